package train

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/pkg/errors"
)

// Predictor answers predictions from a saved model bundle. Inputs are
// reindexed onto the bundle's feature columns: a missing column reads
// as zero and an unparseable value becomes zero, so a sparse input
// still yields a prediction. Features are fed to the model as-is; the
// bundled scaler is not reapplied.
type Predictor struct {
	bundle *Bundle
	logger zerolog.Logger
}

// NewPredictor loads the bundle at path; an incomplete bundle is
// rejected here, not at prediction time.
func NewPredictor(path string, logger zerolog.Logger) (*Predictor, error) {
	b, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("path", path).
		Int("features", len(b.FeatureColumns)).
		Str("target", b.TargetColumn).
		Msg("model bundle loaded")
	return &Predictor{bundle: b, logger: logger}, nil
}

// FeatureColumns returns the column order the model expects.
func (p *Predictor) FeatureColumns() []string {
	return p.bundle.FeatureColumns
}

// TargetColumn returns the name of the predicted quantity.
func (p *Predictor) TargetColumn() string {
	return p.bundle.TargetColumn
}

// PredictOne scores a single record given as a loose key-value map,
// typically decoded from JSON.
func (p *Predictor) PredictOne(input map[string]interface{}) (float64, error) {
	if len(input) == 0 {
		return 0, errors.NewValueError("predict", "empty input record")
	}
	x := make([]float64, len(p.bundle.FeatureColumns))
	for j, c := range p.bundle.FeatureColumns {
		x[j] = looseFloat(input[c])
	}
	return p.bundle.Model.PredictRow(x)
}

// BatchPredict acquires a frame through the resolver, scores every row
// and returns the frame with a prediction column appended. When outPath
// is set the result is also written as CSV.
func (p *Predictor) BatchPredict(ctx context.Context, resolver *Resolver, outPath string) (*dataset.Frame, error) {
	frame, kind, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	cols := p.bundle.FeatureColumns
	preds := make([]dataset.Value, frame.NumRows())
	x := make([]float64, len(cols))
	for i := 0; i < frame.NumRows(); i++ {
		for j, c := range cols {
			if v, ok := frame.At(i, c).Coerce().Float(); ok {
				x[j] = v
			} else {
				x[j] = 0
			}
		}
		v, err := p.bundle.Model.PredictRow(x)
		if err != nil {
			return nil, err
		}
		preds[i] = dataset.Num(v)
	}

	out := frame.Copy()
	if err := out.AddColumn("prediction", preds); err != nil {
		return nil, errors.Wrap(err, "predict: append predictions")
	}

	p.logger.Info().Str("source", string(kind)).
		Int("rows", out.NumRows()).
		Msg("batch prediction complete")

	if outPath != "" {
		if err := dataset.WriteCSV(out, outPath); err != nil {
			return nil, errors.Wrap(err, "predict: write output")
		}
		p.logger.Info().Str("path", outPath).Msg("predictions written")
	}
	return out, nil
}

// looseFloat coerces a decoded JSON value to a feature value, falling
// back to zero for anything that is not a number.
func looseFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}
