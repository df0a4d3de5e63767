package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/ingest"
	"github.com/agriml/yieldpipe/pkg/log"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return New(db, log.Nop())
}

func sampleRows(n int) []FeatureRow {
	rows := make([]FeatureRow, n)
	for i := range rows {
		rain := 100.0 + float64(i)
		rows[i] = FeatureRow{
			Area:      fmt.Sprintf("Area%02d", i%5),
			Year:      1990 + i%30,
			CropType:  "Maize",
			CropYield: 30000 + float64(i),
			Rainfall:  &rain,
		}
	}
	return rows
}

func TestReplaceAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted, failed, err := s.Replace(ctx, sampleRows(25), nil)
	require.NoError(t, err)
	assert.Equal(t, 25, inserted)
	assert.Equal(t, 0, failed)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
}

func TestReplaceIsWholesale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.Replace(ctx, sampleRows(25), nil)
	require.NoError(t, err)
	_, _, err = s.Replace(ctx, sampleRows(10), nil)
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestReplaceProgressCallback(t *testing.T) {
	s := openTestStore(t)

	var calls []int
	_, _, err := s.Replace(context.Background(), sampleRows(25), func(inserted int) {
		calls = append(calls, inserted)
	})
	require.NoError(t, err)
	// One chunk for 25 rows at the default batch size.
	assert.Equal(t, []int{25}, calls)
}

func TestFetchPageOrderingAndCap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.Replace(ctx, sampleRows(30), nil)
	require.NoError(t, err)

	first, err := s.FetchPage(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, first, 10)

	second, err := s.FetchPage(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, second, 10)
	assert.Greater(t, second[0].ID, first[9].ID)

	// A non-positive limit falls back to the cap rather than erroring.
	all, err := s.FetchPage(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 30)

	past, err := s.FetchPage(ctx, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestFrameRoundTrip(t *testing.T) {
	f := dataset.New(ingest.FeatureColumns...)
	f.AppendRow(map[string]dataset.Value{
		ingest.ColArea:        dataset.Str("Albania"),
		ingest.ColYear:        dataset.Str("1990"),
		ingest.ColCropType:    dataset.Str("Maize"),
		ingest.ColCropYield:   dataset.Num(36613),
		ingest.ColRainfall:    dataset.Num(1485),
		ingest.ColTemperature: dataset.Num(16.37),
		ingest.ColPesticides:  dataset.Null(),
	})

	rows, err := RowsFromFrame(f)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Albania", rows[0].Area)
	assert.Equal(t, 1990, rows[0].Year)
	assert.Equal(t, 36613.0, rows[0].CropYield)
	require.NotNil(t, rows[0].Rainfall)
	assert.Equal(t, 1485.0, *rows[0].Rainfall)
	assert.Nil(t, rows[0].PesticideUsage)

	back := FrameFromRows(rows)
	require.Equal(t, 1, back.NumRows())
	assert.Equal(t, "Albania", back.At(0, ingest.ColArea).Display())
	assert.Equal(t, "1990", back.At(0, ingest.ColYear).Display())
	assert.True(t, back.At(0, ingest.ColPesticides).IsNull())
	v, ok := back.At(0, ingest.ColTemperature).Float()
	require.True(t, ok)
	assert.Equal(t, 16.37, v)
}

func TestRowsFromFrameRejectsNullYield(t *testing.T) {
	f := dataset.New(ingest.FeatureColumns...)
	f.AppendRow(map[string]dataset.Value{
		ingest.ColArea: dataset.Str("Albania"),
		ingest.ColYear: dataset.Str("1990"),
	})

	_, err := RowsFromFrame(f)
	require.Error(t, err)
}

func TestStoreRoundTripThroughDatabase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleRows(12)
	_, _, err := s.Replace(ctx, in, nil)
	require.NoError(t, err)

	out, err := s.FetchPage(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, out, 12)
	assert.Equal(t, in[3].Area, out[3].Area)
	assert.Equal(t, in[3].CropYield, out[3].CropYield)
	require.NotNil(t, out[3].Rainfall)
	assert.Equal(t, *in[3].Rainfall, *out[3].Rainfall)
}
