package boost

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/agriml/yieldpipe/core/parallel"
	"github.com/agriml/yieldpipe/pkg/errors"
)

// TrainingParams contains the boosting hyperparameters.
type TrainingParams struct {
	// NumIterations is the number of boosting rounds (trees).
	NumIterations int `json:"num_iterations"`

	// LearningRate shrinks each tree's contribution.
	LearningRate float64 `json:"learning_rate"`

	// MaxDepth limits tree depth; 0 means no limit.
	MaxDepth int `json:"max_depth"`

	// MinSamplesSplit is the minimum row count to attempt a split.
	MinSamplesSplit int `json:"min_samples_split"`

	// MinSamplesLeaf is the minimum row count in each child.
	MinSamplesLeaf int `json:"min_samples_leaf"`

	// MinGainToSplit rejects splits whose SSE reduction is below it.
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// FeatureFraction subsamples candidate features per tree when < 1.
	FeatureFraction float64 `json:"feature_fraction"`

	// Seed drives feature subsampling; results are deterministic for a
	// fixed seed.
	Seed int64 `json:"seed"`
}

// DefaultTrainingParams returns the parameter set used when the caller
// only cares about iteration count and seed.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:   100,
		LearningRate:    0.1,
		MaxDepth:        6,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MinGainToSplit:  1e-12,
		FeatureFraction: 1.0,
		Seed:            42,
	}
}

// Model is the trained ensemble. All fields are exported for gob.
type Model struct {
	Trees        []*TreeNode
	InitScore    float64
	LearningRate float64
	NumFeatures  int
}

// PredictRow evaluates the ensemble for a single sample.
func (m *Model) PredictRow(x []float64) float64 {
	score := m.InitScore
	for _, tree := range m.Trees {
		score += m.LearningRate * tree.PredictRow(x)
	}
	return score
}

// predictParallelThreshold is the row count below which batch
// prediction stays sequential.
const predictParallelThreshold = 256

// Predict evaluates the ensemble for every row of X. Large batches are
// scored across cores; rows are independent.
func (m *Model) Predict(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		x := make([]float64, cols)
		for i := start; i < end; i++ {
			for j := 0; j < cols; j++ {
				x[j] = X.At(i, j)
			}
			out.Set(i, 0, m.PredictRow(x))
		}
	})
	return out, nil
}

// Trainer runs gradient boosting with squared-error loss: each round
// fits a regression tree to the current residuals and adds it with
// shrinkage.
type Trainer struct {
	params TrainingParams

	trees     []*TreeNode
	initScore float64
	nFeatures int
}

// NewTrainer creates a trainer with the given parameters.
func NewTrainer(params TrainingParams) *Trainer {
	return &Trainer{params: params}
}

// Fit trains the ensemble on X and the single-column target y.
func (t *Trainer) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "Trainer.Fit")
	}
	if yRows != rows {
		return errors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Trainer.Fit", 1, yCols, 1)
	}
	if t.params.NumIterations <= 0 {
		return errors.NewValueError("Trainer.Fit", "NumIterations must be positive")
	}
	if t.params.LearningRate <= 0 {
		return errors.NewValueError("Trainer.Fit", "LearningRate must be positive")
	}

	// Copy into row-major slices once; tree building indexes rows heavily.
	data := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValueError("Trainer.Fit", "X contains NaN or Inf; clean the data before fitting")
			}
			row[j] = v
		}
		data[i] = row
	}

	target := make([]float64, rows)
	var sum float64
	for i := 0; i < rows; i++ {
		target[i] = y.At(i, 0)
		sum += target[i]
	}
	t.initScore = sum / float64(rows)
	t.nFeatures = cols

	// Residuals start from the constant init score.
	residuals := make([]float64, rows)
	predictions := make([]float64, rows)
	for i := range predictions {
		predictions[i] = t.initScore
	}

	rng := rand.New(rand.NewSource(t.params.Seed))
	allRows := make([]int, rows)
	for i := range allRows {
		allRows[i] = i
	}

	t.trees = t.trees[:0]
	for iter := 0; iter < t.params.NumIterations; iter++ {
		for i := 0; i < rows; i++ {
			residuals[i] = target[i] - predictions[i]
		}

		builder := &treeBuilder{
			X:        data,
			y:        residuals,
			params:   t.params,
			features: t.sampleFeatures(cols, rng),
		}
		tree := builder.build(allRows, 0)
		t.trees = append(t.trees, tree)

		for i := 0; i < rows; i++ {
			predictions[i] += t.params.LearningRate * tree.PredictRow(data[i])
		}
	}
	return nil
}

// sampleFeatures picks the candidate feature set for one tree.
func (t *Trainer) sampleFeatures(cols int, rng *rand.Rand) []int {
	all := make([]int, cols)
	for j := range all {
		all[j] = j
	}
	frac := t.params.FeatureFraction
	if frac <= 0 || frac >= 1 {
		return all
	}
	k := int(frac * float64(cols))
	if k < 1 {
		k = 1
	}
	rng.Shuffle(cols, func(a, b int) { all[a], all[b] = all[b], all[a] })
	picked := all[:k]
	// Sorted candidates keep the split scan order deterministic.
	sort.Ints(picked)
	return picked
}

// GetModel returns the trained ensemble.
func (t *Trainer) GetModel() *Model {
	return &Model{
		Trees:        t.trees,
		InitScore:    t.initScore,
		LearningRate: t.params.LearningRate,
		NumFeatures:  t.nFeatures,
	}
}
