// Package ingest builds the feature table: it reads the four raw
// agricultural sources, merges them onto the yield rows and finalizes
// the result into the canonical feature schema.
package ingest

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/pkg/errors"
)

// Canonical column names of the finalized feature table.
const (
	ColArea        = "area"
	ColYear        = "year"
	ColCropType    = "crop_type"
	ColCropYield   = "crop_yield"
	ColRainfall    = "rainfall"
	ColTemperature = "temperature"
	ColPesticides  = "pesticide_usage"
)

// Default file names inside the raw data directory.
const (
	RainfallFile    = "rainfall.csv"
	TemperatureFile = "temp.csv"
	PesticidesFile  = "pesticides.csv"
	YieldFile       = "yield.csv"
)

// Sources holds the normalized per-source frames. A source that failed
// to load is nil; only Yield is mandatory downstream.
type Sources struct {
	Rainfall    *dataset.Frame
	Temperature *dataset.Frame
	Pesticides  *dataset.Frame
	Yield       *dataset.Frame
}

// rename applies the first rename whose source column exists.
func rename(f *dataset.Frame, to string, candidates ...string) {
	if f.HasColumn(to) {
		return
	}
	for _, from := range candidates {
		if f.HasColumn(from) {
			_ = f.Rename(from, to)
			return
		}
	}
}

// ReadRainfall loads and normalizes the rainfall source: rows keyed by
// (area, year) with a strictly positive rainfall value. The raw file
// carries a leading space in its area header.
func ReadRainfall(path string) (*dataset.Frame, error) {
	f, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, errors.NewSourceError("rainfall", path, err)
	}
	rename(f, ColArea, " Area", "Area")
	rename(f, ColYear, "Year")
	rename(f, ColRainfall, "average_rain_fall_mm_per_year")
	f.CoerceNumeric(ColRainfall)
	f = f.Filter(func(i int) bool {
		v, ok := f.At(i, ColRainfall).Float()
		return ok && v > 0
	})
	return f.Select(ColArea, ColYear, ColRainfall), nil
}

// ReadTemperature loads and normalizes the temperature source, keeping
// plausible average temperatures only.
func ReadTemperature(path string) (*dataset.Frame, error) {
	f, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, errors.NewSourceError("temperature", path, err)
	}
	rename(f, ColArea, "country")
	rename(f, ColYear, "year", "Year")
	rename(f, ColTemperature, "avg_temp")
	f.CoerceNumeric(ColTemperature)
	f = f.Filter(func(i int) bool {
		v, ok := f.At(i, ColTemperature).Float()
		return ok && v >= -50 && v <= 60
	})
	return f.Select(ColArea, ColYear, ColTemperature), nil
}

// ReadPesticides loads and normalizes the pesticide source, restricted
// to the aggregate "Pesticides (total)" item with non-negative usage.
func ReadPesticides(path string) (*dataset.Frame, error) {
	f, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, errors.NewSourceError("pesticides", path, err)
	}
	f = f.Filter(func(i int) bool {
		return f.At(i, "Item").Display() == "Pesticides (total)"
	})
	rename(f, ColArea, "Area")
	rename(f, ColYear, "Year")
	rename(f, ColPesticides, "Value")
	f.CoerceNumeric(ColPesticides)
	f = f.Filter(func(i int) bool {
		v, ok := f.At(i, ColPesticides).Float()
		return ok && v >= 0
	})
	return f.Select(ColArea, ColYear, ColPesticides), nil
}

// ReadYield loads and normalizes the yield source: the target rows,
// restricted to the "Yield" element with strictly positive values.
func ReadYield(path string) (*dataset.Frame, error) {
	f, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, errors.NewSourceError("yield", path, err)
	}
	f = f.Filter(func(i int) bool {
		return f.At(i, "Element").Display() == "Yield"
	})
	rename(f, ColArea, "Area")
	rename(f, ColYear, "Year")
	rename(f, ColCropType, "Item")
	rename(f, ColCropYield, "Value")
	f.CoerceNumeric(ColCropYield)
	f = f.Filter(func(i int) bool {
		v, ok := f.At(i, ColCropYield).Float()
		return ok && v > 0
	})
	return f.Select(ColArea, ColYear, ColCropType, ColCropYield), nil
}

// LoadSources reads every raw file under dir. A source that fails to
// load is logged and left nil; the run continues without it. Only a
// missing yield source is fatal, and that is enforced by Merge.
func LoadSources(dir string, logger zerolog.Logger) Sources {
	var s Sources

	load := func(name, file string, read func(string) (*dataset.Frame, error)) *dataset.Frame {
		path := filepath.Join(dir, file)
		f, err := read(path)
		if err != nil {
			logger.Warn().Err(err).Str("source", name).Str("path", path).
				Msg("source unreadable, continuing without it")
			return nil
		}
		logger.Info().Str("source", name).Int("rows", f.NumRows()).Msg("source loaded")
		return f
	}

	s.Rainfall = load("rainfall", RainfallFile, ReadRainfall)
	s.Temperature = load("temperature", TemperatureFile, ReadTemperature)
	s.Pesticides = load("pesticides", PesticidesFile, ReadPesticides)
	s.Yield = load("yield", YieldFile, ReadYield)
	return s
}
