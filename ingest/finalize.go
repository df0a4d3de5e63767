package ingest

import (
	"github.com/rs/zerolog"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/pkg/errors"
)

// FeatureColumns is the canonical column order of the finalized table.
var FeatureColumns = []string{
	ColArea, ColYear, ColCropType, ColCropYield,
	ColRainfall, ColTemperature, ColPesticides,
}

var numericFeatureColumns = []string{
	ColCropYield, ColRainfall, ColTemperature, ColPesticides,
}

// Finalize restricts the merged frame to the canonical feature columns
// (the present subset, canonical order), coerces the numeric columns,
// drops rows without a crop yield and removes exact duplicates. The
// result never has a null crop_yield.
func Finalize(merged *dataset.Frame, logger zerolog.Logger) (*dataset.Frame, error) {
	if merged == nil || merged.NumRows() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "finalize")
	}

	f := merged.Select(FeatureColumns...)
	if !f.HasColumn(ColCropYield) {
		return nil, errors.NewColumnError(ColCropYield, "target", merged.Columns())
	}

	for _, c := range numericFeatureColumns {
		f.CoerceNumeric(c)
	}

	before := f.NumRows()
	f = f.DropNullRows(ColCropYield)
	f = f.DropDuplicates()
	if f.NumRows() == 0 {
		return nil, errors.NewDataQualityError("finalize", "no rows with a crop yield survived", 0)
	}

	logger.Info().
		Int("rows_in", before).
		Int("rows_out", f.NumRows()).
		Msg("feature table finalized")
	logCoverage(f, logger)
	return f, nil
}

// logCoverage reports how many rows carry a value in each column, so a
// source that joined poorly is visible in the logs.
func logCoverage(f *dataset.Frame, logger zerolog.Logger) {
	total := f.NumRows()
	for _, c := range f.Columns() {
		filled := 0
		for i := 0; i < total; i++ {
			if !f.At(i, c).IsNull() {
				filled++
			}
		}
		logger.Info().Str("column", c).
			Int("filled", filled).
			Int("total", total).
			Msg("column coverage")
	}
}

// WriteSnapshot saves the finalized table as the CSV fallback used by
// the training resolver when the feature store is unreachable.
func WriteSnapshot(f *dataset.Frame, path string, logger zerolog.Logger) error {
	if err := dataset.WriteCSV(f, path); err != nil {
		return errors.Wrap(err, "finalize: snapshot")
	}
	logger.Info().Str("path", path).Int("rows", f.NumRows()).Msg("snapshot written")
	return nil
}
