package boost

import (
	"gonum.org/v1/gonum/mat"

	"github.com/agriml/yieldpipe/core/model"
	"github.com/agriml/yieldpipe/metrics"
	"github.com/agriml/yieldpipe/pkg/errors"
)

// GBTRegressor wraps the boosting trainer behind a fit/predict API.
// Exported hyperparameters plus the trained Model make the whole
// regressor gob-serializable for model bundles.
type GBTRegressor struct {
	model.BaseEstimator

	// Model is the trained ensemble, nil until Fit.
	Model *Model

	// NumEstimators is the number of boosting rounds.
	NumEstimators int

	// LearningRate shrinks each tree's contribution.
	LearningRate float64

	// MaxDepth limits tree depth; 0 means no limit.
	MaxDepth int

	// MinSamplesLeaf is the minimum row count in each child.
	MinSamplesLeaf int

	// Seed makes training deterministic.
	Seed int64
}

// NewGBTRegressor creates a regressor with default hyperparameters.
func NewGBTRegressor() *GBTRegressor {
	defaults := DefaultTrainingParams()
	return &GBTRegressor{
		NumEstimators:  defaults.NumIterations,
		LearningRate:   defaults.LearningRate,
		MaxDepth:       defaults.MaxDepth,
		MinSamplesLeaf: defaults.MinSamplesLeaf,
		Seed:           defaults.Seed,
	}
}

// WithNumEstimators sets the number of boosting rounds.
func (g *GBTRegressor) WithNumEstimators(n int) *GBTRegressor {
	g.NumEstimators = n
	return g
}

// WithLearningRate sets the shrinkage rate.
func (g *GBTRegressor) WithLearningRate(lr float64) *GBTRegressor {
	g.LearningRate = lr
	return g
}

// WithMaxDepth sets the tree depth limit.
func (g *GBTRegressor) WithMaxDepth(d int) *GBTRegressor {
	g.MaxDepth = d
	return g
}

// WithSeed sets the random seed.
func (g *GBTRegressor) WithSeed(seed int64) *GBTRegressor {
	g.Seed = seed
	return g
}

// Fit trains the ensemble on X and the single-column target y.
func (g *GBTRegressor) Fit(X, y mat.Matrix) error {
	params := DefaultTrainingParams()
	params.NumIterations = g.NumEstimators
	params.LearningRate = g.LearningRate
	params.MaxDepth = g.MaxDepth
	params.MinSamplesLeaf = g.MinSamplesLeaf
	params.Seed = g.Seed

	trainer := NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "GBTRegressor.Fit")
	}

	g.Model = trainer.GetModel()
	g.SetFitted()
	return nil
}

// Predict returns one prediction per row of X as an n×1 matrix.
func (g *GBTRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !g.IsFitted() || g.Model == nil {
		return nil, errors.NewNotFittedError("GBTRegressor", "Predict")
	}
	return g.Model.Predict(X)
}

// PredictRow evaluates a single sample.
func (g *GBTRegressor) PredictRow(x []float64) (float64, error) {
	if !g.IsFitted() || g.Model == nil {
		return 0, errors.NewNotFittedError("GBTRegressor", "PredictRow")
	}
	if len(x) != g.Model.NumFeatures {
		return 0, errors.NewDimensionError("GBTRegressor.PredictRow", g.Model.NumFeatures, len(x), 1)
	}
	return g.Model.PredictRow(x), nil
}

// Score returns the R² of the prediction against y.
func (g *GBTRegressor) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := g.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}
