// Package train implements the model training pipeline and the
// inference engine: data acquisition with fallback, column resolution,
// imputation, encoding, scaling, the boosted fit, and the persisted
// model bundle.
package train

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/pkg/errors"
	"github.com/agriml/yieldpipe/store"
)

// SourceKind tags which acquisition stage produced the training data.
type SourceKind string

const (
	// SourceStore marks data fetched from the feature store.
	SourceStore SourceKind = "store"
	// SourceFile marks data read from the CSV snapshot fallback.
	SourceFile SourceKind = "file"
)

// DataSource is one acquisition stage.
type DataSource interface {
	Kind() SourceKind
	Fetch(ctx context.Context) (*dataset.Frame, error)
}

const (
	// storeBatchSize is the page size for store pagination.
	storeBatchSize = 10000
	// storeMaxRows caps how many rows acquisition will pull.
	storeMaxRows = 500000
	// storeAttempts is how often a failing page is retried.
	storeAttempts = 3
)

// StoreSource paginates the feature store. Each page is retried a
// bounded number of times; a page that keeps failing abandons the store
// so the resolver can fall back.
type StoreSource struct {
	Store  *store.Store
	Logger zerolog.Logger
}

// Kind identifies the source as the feature store.
func (s *StoreSource) Kind() SourceKind {
	return SourceStore
}

// Fetch pulls every stored row page by page, up to the row cap.
func (s *StoreSource) Fetch(ctx context.Context) (*dataset.Frame, error) {
	var all []store.FeatureRow
	for offset := 0; offset < storeMaxRows; offset += storeBatchSize {
		limit := storeBatchSize
		if remaining := storeMaxRows - offset; remaining < limit {
			limit = remaining
		}

		var page []store.FeatureRow
		var err error
		for attempt := 1; attempt <= storeAttempts; attempt++ {
			page, err = s.Store.FetchPage(ctx, offset, limit)
			if err == nil {
				break
			}
			s.Logger.Warn().Err(err).
				Int("offset", offset).
				Int("attempt", attempt).
				Msg("store page fetch failed")
		}
		if err != nil {
			return nil, errors.Wrapf(errors.ErrStoreUnavailable, "page at offset %d failed %d times", offset, storeAttempts)
		}

		all = append(all, page...)
		if len(page) < limit {
			break
		}
	}
	if len(all) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "store source")
	}
	return store.FrameFromRows(all), nil
}

// FileSource reads the CSV snapshot written by the feature builder.
type FileSource struct {
	Path string
}

// Kind identifies the source as the snapshot file.
func (s *FileSource) Kind() SourceKind {
	return SourceFile
}

// Fetch loads the snapshot CSV.
func (s *FileSource) Fetch(ctx context.Context) (*dataset.Frame, error) {
	f, err := dataset.ReadCSV(s.Path)
	if err != nil {
		return nil, errors.NewSourceError("snapshot", s.Path, err)
	}
	if f.NumRows() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "file source")
	}
	return f, nil
}

// Resolver tries acquisition stages in order and reports which one
// satisfied the request. Duplicate rows are dropped before handoff.
type Resolver struct {
	Sources []DataSource
	Logger  zerolog.Logger
}

// NewResolver builds the standard two-stage resolver: feature store
// first, snapshot CSV as fallback. A nil store skips the first stage.
func NewResolver(st *store.Store, snapshotPath string, logger zerolog.Logger) *Resolver {
	var sources []DataSource
	if st != nil {
		sources = append(sources, &StoreSource{Store: st, Logger: logger})
	}
	if snapshotPath != "" {
		sources = append(sources, &FileSource{Path: snapshotPath})
	}
	return &Resolver{Sources: sources, Logger: logger}
}

// Resolve returns the first frame a stage produces, tagged with the
// stage's kind. It fails only when every stage fails.
func (r *Resolver) Resolve(ctx context.Context) (*dataset.Frame, SourceKind, error) {
	var lastErr error
	for _, src := range r.Sources {
		f, err := src.Fetch(ctx)
		if err != nil {
			r.Logger.Warn().Err(err).Str("source", string(src.Kind())).
				Msg("acquisition stage failed, trying next")
			lastErr = err
			continue
		}
		f = f.DropDuplicates()
		r.Logger.Info().Str("source", string(src.Kind())).
			Int("rows", f.NumRows()).
			Msg("training data acquired")
		return f, src.Kind(), nil
	}
	if lastErr == nil {
		lastErr = errors.New("no acquisition sources configured")
	}
	return nil, "", errors.Wrap(lastErr, "resolve training data")
}
