// Package store persists the finalized feature table in a relational
// database through GORM. Loading is wholesale replacement: the table is
// dropped and rebuilt so the store always mirrors the latest build.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/ingest"
	"github.com/agriml/yieldpipe/pkg/errors"
)

// FeatureRow is one finalized feature record. CropYield is never null;
// the optional source columns are nullable.
type FeatureRow struct {
	ID             uint    `gorm:"primaryKey"`
	Area           string  `gorm:"size:100;not null;index:idx_feature_key"`
	Year           int     `gorm:"not null;index:idx_feature_key"`
	CropType       string  `gorm:"size:100;index:idx_feature_key"`
	CropYield      float64 `gorm:"not null"`
	Rainfall       *float64
	Temperature    *float64
	PesticideUsage *float64
	CreatedAt      time.Time
}

// TableName keeps the table name shared with the CSV snapshot.
func (FeatureRow) TableName() string {
	return "ml_features"
}

const (
	// DefaultBatchSize is the chunk size for bulk inserts.
	DefaultBatchSize = 1000

	// MaxPageSize caps a single FetchPage.
	MaxPageSize = 10000
)

// Store wraps a GORM connection to the feature table.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to PostgreSQL with the given DSN.
func Open(dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "store: connect")
	}
	return New(db, logger), nil
}

// New wraps an existing GORM connection.
func New(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Replace drops and recreates the feature table, then inserts rows in
// chunks. A chunk that fails is retried row by row so one bad record
// costs one row, not a thousand. Returns inserted and failed counts;
// progress, when non-nil, is called after every chunk with the running
// inserted count.
func (s *Store) Replace(ctx context.Context, rows []FeatureRow, progress func(inserted int)) (inserted, failed int, err error) {
	migrator := s.db.WithContext(ctx).Migrator()
	if migrator.HasTable(&FeatureRow{}) {
		if err := migrator.DropTable(&FeatureRow{}); err != nil {
			return 0, 0, errors.Wrap(err, "store: drop table")
		}
	}
	if err := migrator.AutoMigrate(&FeatureRow{}); err != nil {
		return 0, 0, errors.Wrap(err, "store: migrate")
	}

	for start := 0; start < len(rows); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		if err := s.db.WithContext(ctx).Create(&chunk).Error; err != nil {
			s.logger.Warn().Err(err).
				Int("chunk_start", start).
				Int("chunk_size", len(chunk)).
				Msg("chunk insert failed, retrying row by row")
			for i := range chunk {
				row := chunk[i]
				row.ID = 0
				if rowErr := s.db.WithContext(ctx).Create(&row).Error; rowErr != nil {
					failed++
					s.logger.Warn().Err(rowErr).
						Str("area", row.Area).
						Int("year", row.Year).
						Str("crop_type", row.CropType).
						Msg("row insert failed")
					continue
				}
				inserted++
			}
		} else {
			inserted += len(chunk)
		}
		if progress != nil {
			progress(inserted)
		}
	}

	s.logger.Info().Int("inserted", inserted).Int("failed", failed).Msg("feature store replaced")
	return inserted, failed, nil
}

// FetchPage returns up to limit rows starting at offset, ordered by
// primary key so pagination is stable. The limit is capped.
func (s *Store) FetchPage(ctx context.Context, offset, limit int) ([]FeatureRow, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	var rows []FeatureRow
	err := s.db.WithContext(ctx).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "store: fetch page")
	}
	return rows, nil
}

// Count returns the number of stored feature rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&FeatureRow{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "store: count")
	}
	return n, nil
}

// RowsFromFrame converts a finalized frame into store rows. A row with
// a null crop yield violates the finalizer contract and is an error.
func RowsFromFrame(f *dataset.Frame) ([]FeatureRow, error) {
	rows := make([]FeatureRow, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		y, ok := f.At(i, ingest.ColCropYield).Float()
		if !ok {
			return nil, errors.NewDataQualityError("store", "row without crop yield", i)
		}
		row := FeatureRow{
			Area:           f.At(i, ingest.ColArea).Display(),
			CropType:       f.At(i, ingest.ColCropType).Display(),
			CropYield:      y,
			Rainfall:       floatPtr(f.At(i, ingest.ColRainfall)),
			Temperature:    floatPtr(f.At(i, ingest.ColTemperature)),
			PesticideUsage: floatPtr(f.At(i, ingest.ColPesticides)),
		}
		if yr, err := strconv.Atoi(f.At(i, ingest.ColYear).Display()); err == nil {
			row.Year = yr
		} else if v, ok := f.At(i, ingest.ColYear).Coerce().Float(); ok {
			row.Year = int(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FrameFromRows converts store rows back into a frame with the
// canonical feature columns.
func FrameFromRows(rows []FeatureRow) *dataset.Frame {
	f := dataset.New(ingest.FeatureColumns...)
	for _, r := range rows {
		f.AppendRow(map[string]dataset.Value{
			ingest.ColArea:        dataset.Str(r.Area),
			ingest.ColYear:        dataset.Num(float64(r.Year)),
			ingest.ColCropType:    dataset.Str(r.CropType),
			ingest.ColCropYield:   dataset.Num(r.CropYield),
			ingest.ColRainfall:    valueFromPtr(r.Rainfall),
			ingest.ColTemperature: valueFromPtr(r.Temperature),
			ingest.ColPesticides:  valueFromPtr(r.PesticideUsage),
		})
	}
	return f
}

func floatPtr(v dataset.Value) *float64 {
	if f, ok := v.Float(); ok {
		return &f
	}
	return nil
}

func valueFromPtr(p *float64) dataset.Value {
	if p == nil {
		return dataset.Null()
	}
	return dataset.Num(*p)
}
