package train

import (
	"context"
	"math"
	"math/rand"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/agriml/yieldpipe/boost"
	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/ingest"
	"github.com/agriml/yieldpipe/metrics"
	"github.com/agriml/yieldpipe/pkg/errors"
	"github.com/agriml/yieldpipe/preprocessing"
)

// MinTrainingSamples is the smallest dataset worth fitting; anything
// below it fails before the model is touched.
const MinTrainingSamples = 100

// interactColumn is the engineered rainfall-temperature product.
const interactColumn = "rain_temp_interact"

// Request describes one training run.
type Request struct {
	// FeatureColumns are the requested feature names; misspellings are
	// recovered by fuzzy matching against the acquired data.
	FeatureColumns []string

	// TargetColumn is the regression target.
	TargetColumn string

	// TestFraction is the held-out share; 0 means the default 0.2.
	TestFraction float64

	// Seed drives the split shuffle and the model's randomness.
	Seed int64

	// NumEstimators is the boosting round count; 0 means the default.
	NumEstimators int

	// AllowMissingFeatures drops unresolvable features instead of
	// failing the run.
	AllowMissingFeatures bool

	// DropNA drops incomplete rows instead of imputing them.
	DropNA bool
}

// SplitMetrics holds the regression scores of one split. Diagnostics is
// nil when the above/below-median view is undefined for the split.
type SplitMetrics struct {
	R2          float64
	MAE         float64
	MSE         float64
	RMSE        float64
	Diagnostics *metrics.BinaryDiagnostics
}

// Result reports a completed training run.
type Result struct {
	Train SplitMetrics
	Test  SplitMetrics

	// Samples is the row count after cleaning, before the split.
	Samples      int
	TrainSamples int
	TestSamples  int

	// FeatureColumns is the assembled matrix column order, as stored in
	// the bundle.
	FeatureColumns []string

	// Source tags which acquisition stage supplied the data.
	Source SourceKind

	ModelPath string
}

// Pipeline runs training end to end: acquire, clean, encode, scale,
// split, fit, score, persist.
type Pipeline struct {
	Resolver  *Resolver
	ModelPath string
	Logger    zerolog.Logger
}

// NewPipeline creates a training pipeline writing its bundle to
// modelPath.
func NewPipeline(resolver *Resolver, modelPath string, logger zerolog.Logger) *Pipeline {
	return &Pipeline{Resolver: resolver, ModelPath: modelPath, Logger: logger}
}

// Run executes one training run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.TargetColumn == "" {
		return nil, errors.NewValueError("train", "target column is required")
	}
	if len(req.FeatureColumns) == 0 {
		return nil, errors.NewValueError("train", "at least one feature column is required")
	}
	if req.TestFraction == 0 {
		req.TestFraction = 0.2
	}
	if req.TestFraction < 0 || req.TestFraction >= 1 {
		return nil, errors.NewValueError("train", "test fraction must be in (0, 1)")
	}
	if req.NumEstimators == 0 {
		req.NumEstimators = boost.DefaultTrainingParams().NumIterations
	}

	frame, kind, err := p.Resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	target, features, err := p.resolveColumns(frame, req)
	if err != nil {
		return nil, err
	}

	numeric, categorical := splitByType(frame, features)
	frame.CoerceNumeric(target)

	// Categorical gaps are mode-filled either way; only the numeric
	// null policy depends on DropNA, and the joint drop spans the
	// numeric features plus the target, never the categoricals.
	for _, c := range categorical {
		imputeCategorical(frame, c)
	}
	if req.DropNA {
		used := append(append([]string(nil), numeric...), target)
		before := frame.NumRows()
		frame = frame.DropNullRows(used...)
		p.Logger.Info().Int("rows_before", before).Int("rows_after", frame.NumRows()).
			Msg("incomplete rows dropped")
	} else {
		for _, c := range numeric {
			imputeNumeric(frame, c)
		}
		imputeTarget(frame, target)
	}

	matrixCols := append([]string(nil), numeric...)
	for _, c := range categorical {
		expanded, err := expandCategorical(frame, c)
		if err != nil {
			return nil, err
		}
		matrixCols = append(matrixCols, expanded...)
	}
	if cols, ok := addInteraction(frame, numeric); ok {
		matrixCols = append(matrixCols, cols)
	}

	n := frame.NumRows()
	if n < MinTrainingSamples {
		return nil, errors.NewDataQualityError("train",
			"not enough samples after cleaning to fit a model", n)
	}

	X, err := frame.Matrix(matrixCols)
	if err != nil {
		return nil, errors.Wrap(err, "train: assemble matrix")
	}
	y, err := targetVector(frame, target)
	if err != nil {
		return nil, err
	}

	scaler := preprocessing.NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return nil, errors.Wrap(err, "train: scale features")
	}

	trainIdx, testIdx := seededSplit(n, req.TestFraction, req.Seed)
	XTrain, yTrain := takeRows(scaled, y, trainIdx)
	XTest, yTest := takeRows(scaled, y, testIdx)

	reg := boost.NewGBTRegressor().
		WithNumEstimators(req.NumEstimators).
		WithSeed(req.Seed)
	if err := reg.Fit(XTrain, denseColumn(yTrain)); err != nil {
		return nil, err
	}

	trainMetrics, err := p.scoreSplit(reg, XTrain, yTrain)
	if err != nil {
		return nil, err
	}
	testMetrics, err := p.scoreSplit(reg, XTest, yTest)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Model:          reg,
		FeatureColumns: matrixCols,
		TargetColumn:   target,
		Scaler:         scaler,
	}
	if err := bundle.Save(p.ModelPath); err != nil {
		return nil, err
	}

	p.Logger.Info().
		Str("source", string(kind)).
		Int("samples", n).
		Int("features", len(matrixCols)).
		Float64("test_r2", testMetrics.R2).
		Str("model_path", p.ModelPath).
		Msg("training run complete")

	return &Result{
		Train:          trainMetrics,
		Test:           testMetrics,
		Samples:        n,
		TrainSamples:   len(trainIdx),
		TestSamples:    len(testIdx),
		FeatureColumns: matrixCols,
		Source:         kind,
		ModelPath:      p.ModelPath,
	}, nil
}

// resolveColumns maps the requested feature columns onto the acquired
// columns, recovering near-misses by fuzzy matching. The target gets no
// such recovery: it must be present exactly, or the run fails as a
// configuration error. An unresolvable feature is fatal unless the
// request allows dropping it.
func (p *Pipeline) resolveColumns(frame *dataset.Frame, req Request) (string, []string, error) {
	available := frame.Columns()

	target := req.TargetColumn
	if !frame.HasColumn(target) {
		return "", nil, errors.NewColumnError(req.TargetColumn, "target", available)
	}

	var features []string
	seen := map[string]struct{}{target: {}}
	for _, want := range req.FeatureColumns {
		c, ok := resolveColumn(want, available)
		if !ok {
			if req.AllowMissingFeatures {
				p.Logger.Warn().Str("column", want).Msg("feature column not found, dropped")
				continue
			}
			return "", nil, errors.NewColumnError(want, "feature", available)
		}
		if c != want {
			p.Logger.Warn().Str("requested", want).Str("resolved", c).
				Msg("feature column resolved by fuzzy match")
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		features = append(features, c)
	}
	if len(features) == 0 {
		return "", nil, errors.NewValueError("train", "no usable feature columns")
	}
	return target, features, nil
}

// splitByType classifies each feature column and coerces the numeric
// ones in place. A column is categorical only when it holds values and
// not a single one parses as a number; a mostly-text column with a few
// numeric strays is treated as numeric and the strays become null. An
// entirely null column stays numeric too, so it is zero-filled
// downstream rather than encoded as a constant indicator.
func splitByType(frame *dataset.Frame, features []string) (numeric, categorical []string) {
	for _, c := range features {
		parseable, nonNull := 0, 0
		for i := 0; i < frame.NumRows(); i++ {
			v := frame.At(i, c)
			if !v.IsNull() {
				nonNull++
			}
			if _, ok := v.Coerce().Float(); ok {
				parseable++
			}
		}
		if parseable == 0 && nonNull > 0 {
			categorical = append(categorical, c)
			continue
		}
		frame.CoerceNumeric(c)
		numeric = append(numeric, c)
	}
	return numeric, categorical
}

// columnMedian returns the median of the non-null values, and whether
// there were any.
func columnMedian(frame *dataset.Frame, col string) (float64, bool) {
	var vals []float64
	for i := 0; i < frame.NumRows(); i++ {
		if v, ok := frame.At(i, col).Float(); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	return metrics.Median(vals), true
}

// imputeNumeric fills nulls with the per-area median, falling back to
// the global median, falling back to zero.
func imputeNumeric(frame *dataset.Frame, col string) {
	global, hasGlobal := columnMedian(frame, col)

	groups := make(map[string][]float64)
	if frame.HasColumn(ingest.ColArea) {
		for i := 0; i < frame.NumRows(); i++ {
			if v, ok := frame.At(i, col).Float(); ok {
				key := frame.At(i, ingest.ColArea).Display()
				groups[key] = append(groups[key], v)
			}
		}
	}

	for i := 0; i < frame.NumRows(); i++ {
		if !frame.At(i, col).IsNull() {
			continue
		}
		if vals := groups[frame.At(i, ingest.ColArea).Display()]; len(vals) > 0 {
			frame.Set(i, col, dataset.Num(metrics.Median(vals)))
			continue
		}
		if hasGlobal {
			frame.Set(i, col, dataset.Num(global))
			continue
		}
		frame.Set(i, col, dataset.Num(0))
	}
}

// imputeCategorical fills nulls with the most frequent value, or the
// literal "missing" when the column holds nothing at all.
func imputeCategorical(frame *dataset.Frame, col string) {
	counts := make(map[string]int)
	mode, best := "missing", 0
	for i := 0; i < frame.NumRows(); i++ {
		v := frame.At(i, col)
		if v.IsNull() {
			continue
		}
		s := v.Display()
		counts[s]++
		if counts[s] > best || (counts[s] == best && s < mode) {
			mode, best = s, counts[s]
		}
	}
	for i := 0; i < frame.NumRows(); i++ {
		if frame.At(i, col).IsNull() {
			frame.Set(i, col, dataset.Str(mode))
		}
	}
}

// imputeTarget fills null targets with the global median.
func imputeTarget(frame *dataset.Frame, col string) {
	global, ok := columnMedian(frame, col)
	if !ok {
		return
	}
	for i := 0; i < frame.NumRows(); i++ {
		if frame.At(i, col).IsNull() {
			frame.Set(i, col, dataset.Num(global))
		}
	}
}

// expandCategorical one-hot encodes col into indicator columns appended
// to the frame, returning the new column names in category order.
func expandCategorical(frame *dataset.Frame, col string) ([]string, error) {
	values := make([]string, frame.NumRows())
	for i := range values {
		values[i] = frame.At(i, col).Display()
	}

	enc := preprocessing.NewOneHotEncoder(col)
	indicators, err := enc.FitTransform(values)
	if err != nil {
		return nil, errors.Wrapf(err, "train: encode %q", col)
	}

	names := enc.FeatureNames()
	for j, name := range names {
		column := make([]dataset.Value, frame.NumRows())
		for i := range column {
			column[i] = dataset.Num(indicators.At(i, j))
		}
		if err := frame.AddColumn(name, column); err != nil {
			return nil, errors.Wrapf(err, "train: encode %q", col)
		}
	}
	return names, nil
}

// addInteraction appends rainfall x temperature when both features are
// in play and the column is not already taken.
func addInteraction(frame *dataset.Frame, numeric []string) (string, bool) {
	hasRain, hasTemp := false, false
	for _, c := range numeric {
		if c == ingest.ColRainfall {
			hasRain = true
		}
		if c == ingest.ColTemperature {
			hasTemp = true
		}
	}
	if !hasRain || !hasTemp || frame.HasColumn(interactColumn) {
		return "", false
	}

	column := make([]dataset.Value, frame.NumRows())
	for i := range column {
		r, rOK := frame.At(i, ingest.ColRainfall).Float()
		t, tOK := frame.At(i, ingest.ColTemperature).Float()
		if rOK && tOK {
			column[i] = dataset.Num(r * t)
		} else {
			column[i] = dataset.Null()
		}
	}
	if err := frame.AddColumn(interactColumn, column); err != nil {
		return "", false
	}
	return interactColumn, true
}

// targetVector extracts the target column; after cleaning it must be
// fully populated and numeric.
func targetVector(frame *dataset.Frame, col string) (*mat.VecDense, error) {
	n := frame.NumRows()
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v, ok := frame.At(i, col).Float()
		if !ok {
			return nil, errors.NewDataQualityError("train", "target still has missing values after cleaning", i)
		}
		y.SetVec(i, v)
	}
	return y, nil
}

// seededSplit shuffles row indices deterministically and carves off
// floor(n * fraction) rows (at least one) as the test set.
func seededSplit(n int, fraction float64, seed int64) (trainIdx, testIdx []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testSize := int(float64(n) * fraction)
	if testSize < 1 {
		testSize = 1
	}
	if testSize >= n {
		testSize = n - 1
	}
	return perm[testSize:], perm[:testSize]
}

// takeRows copies the selected rows of X and y.
func takeRows(X mat.Matrix, y *mat.VecDense, idx []int) (*mat.Dense, *mat.VecDense) {
	_, cols := X.Dims()
	outX := mat.NewDense(len(idx), cols, nil)
	outY := mat.NewVecDense(len(idx), nil)
	for i, src := range idx {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(src, j))
		}
		outY.SetVec(i, y.AtVec(src))
	}
	return outX, outY
}

// denseColumn views a vector as an n x 1 matrix for the trainer.
func denseColumn(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, v.AtVec(i))
	}
	return out
}

// scoreSplit computes the regression metrics and, when defined, the
// above-median diagnostic for one split.
func (p *Pipeline) scoreSplit(reg *boost.GBTRegressor, X *mat.Dense, y *mat.VecDense) (SplitMetrics, error) {
	pred, err := reg.Predict(X)
	if err != nil {
		return SplitMetrics{}, err
	}
	n := y.Len()
	predVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		predVec.SetVec(i, pred.At(i, 0))
	}

	var m SplitMetrics
	if m.MSE, err = metrics.MSE(y, predVec); err != nil {
		return SplitMetrics{}, err
	}
	if m.RMSE, err = metrics.RMSE(y, predVec); err != nil {
		return SplitMetrics{}, err
	}
	if m.MAE, err = metrics.MAE(y, predVec); err != nil {
		return SplitMetrics{}, err
	}
	// A constant split target leaves R2 undefined; report NaN instead of
	// failing the whole run.
	if r2, err := metrics.R2Score(y, predVec); err == nil {
		m.R2 = r2
	} else {
		m.R2 = math.NaN()
	}

	if diag, ok, err := metrics.AboveMedianDiagnostics(y, predVec); err == nil && ok {
		m.Diagnostics = &diag
	}
	return m, nil
}
