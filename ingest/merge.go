package ingest

import (
	"github.com/rs/zerolog"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/pkg/errors"
)

var joinKeys = []string{ColArea, ColYear}

// Merge left-joins every available source onto the yield frame on
// (area, year). Yield is the anchor: every yield row survives, a key
// matching several rows of a source fans out, and a key absent from a
// source leaves that source's columns null. Colliding column names get
// a `_<source>` suffix. A nil or empty yield source aborts the merge.
func Merge(s Sources, logger zerolog.Logger) (*dataset.Frame, error) {
	if s.Yield == nil || s.Yield.NumRows() == 0 {
		return nil, errors.WithStack(errors.ErrNoYieldSource)
	}

	merged := s.Yield.Copy()
	join := func(name string, right *dataset.Frame) error {
		if right == nil || right.NumRows() == 0 {
			logger.Warn().Str("source", name).Msg("source empty, columns will be null")
			return nil
		}
		out, err := merged.LeftJoin(right, joinKeys, "_"+name)
		if err != nil {
			return errors.Wrapf(err, "merge: joining %s", name)
		}
		logger.Info().Str("source", name).
			Int("rows_before", merged.NumRows()).
			Int("rows_after", out.NumRows()).
			Msg("source merged")
		merged = out
		return nil
	}

	if err := join("rainfall", s.Rainfall); err != nil {
		return nil, err
	}
	if err := join("temperature", s.Temperature); err != nil {
		return nil, err
	}
	if err := join("pesticides", s.Pesticides); err != nil {
		return nil, err
	}
	return merged, nil
}
