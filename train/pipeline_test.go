package train

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agriml/yieldpipe/dataset"
	"github.com/agriml/yieldpipe/ingest"
	"github.com/agriml/yieldpipe/pkg/errors"
	"github.com/agriml/yieldpipe/pkg/log"
)

// syntheticFeatures builds a plausible finalized feature table. Every
// nullRainEvery-th row has a null rainfall so imputation paths get
// exercised; 0 disables that.
func syntheticFeatures(n, nullRainEvery int) *dataset.Frame {
	crops := []string{"Maize", "Wheat", "Potatoes"}
	areas := []string{"Albania", "Algeria", "Brazil", "India"}

	f := dataset.New(ingest.FeatureColumns...)
	for i := 0; i < n; i++ {
		rain := 500.0 + float64((i*37)%1000)
		temp := 10.0 + float64(i%20)
		pest := float64(i % 200)
		yield := 1000 + 3*rain + 50*temp + 2*pest + float64(i%7)*10

		rainCell := dataset.Num(rain)
		if nullRainEvery > 0 && i%nullRainEvery == 0 {
			rainCell = dataset.Null()
		}
		f.AppendRow(map[string]dataset.Value{
			ingest.ColArea:        dataset.Str(areas[i%len(areas)]),
			ingest.ColYear:        dataset.Num(float64(1900 + i)),
			ingest.ColCropType:    dataset.Str(crops[i%len(crops)]),
			ingest.ColCropYield:   dataset.Num(yield),
			ingest.ColRainfall:    rainCell,
			ingest.ColTemperature: dataset.Num(temp),
			ingest.ColPesticides:  dataset.Num(pest),
		})
	}
	return f
}

func writeFeaturesCSV(t *testing.T, f *dataset.Frame) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ml_features.csv")
	require.NoError(t, dataset.WriteCSV(f, path))
	return path
}

func filePipeline(t *testing.T, f *dataset.Frame) (*Pipeline, string) {
	t.Helper()
	snapshot := writeFeaturesCSV(t, f)
	modelPath := filepath.Join(t.TempDir(), "models", "yield.gob")
	resolver := NewResolver(nil, snapshot, log.Nop())
	return NewPipeline(resolver, modelPath, log.Nop()), modelPath
}

func defaultRequest() Request {
	return Request{
		FeatureColumns: []string{
			ingest.ColYear, ingest.ColRainfall, ingest.ColTemperature,
			ingest.ColPesticides, ingest.ColArea, ingest.ColCropType,
		},
		TargetColumn:  ingest.ColCropYield,
		TestFraction:  0.2,
		Seed:          42,
		NumEstimators: 50,
	}
}

func TestPipelineRun(t *testing.T) {
	p, modelPath := filePipeline(t, syntheticFeatures(200, 0))

	res, err := p.Run(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Equal(t, SourceFile, res.Source)
	assert.Equal(t, 200, res.Samples)
	assert.Equal(t, 40, res.TestSamples)
	assert.Equal(t, 160, res.TrainSamples)
	assert.Equal(t, modelPath, res.ModelPath)

	// Numeric features, one-hot expansions and the interaction term.
	assert.Contains(t, res.FeatureColumns, ingest.ColRainfall)
	assert.Contains(t, res.FeatureColumns, "area_Albania")
	assert.Contains(t, res.FeatureColumns, "crop_type_Maize")
	assert.Contains(t, res.FeatureColumns, interactColumn)

	assert.False(t, math.IsNaN(res.Train.R2))
	assert.Greater(t, res.Train.R2, 0.8)
	assert.Greater(t, res.Test.RMSE, 0.0)
	require.NotNil(t, res.Test.Diagnostics)
	assert.Greater(t, res.Test.Diagnostics.Accuracy, 0.5)

	_, err = os.Stat(modelPath)
	require.NoError(t, err)
}

func TestPipelineDeterministicForSeed(t *testing.T) {
	f := syntheticFeatures(150, 0)

	run := func() *Result {
		p, _ := filePipeline(t, f)
		res, err := p.Run(context.Background(), defaultRequest())
		require.NoError(t, err)
		return res
	}

	r1 := run()
	r2 := run()
	assert.Equal(t, r1.Test.RMSE, r2.Test.RMSE)
	assert.Equal(t, r1.Train.R2, r2.Train.R2)
}

func TestPipelineTooFewSamples(t *testing.T) {
	p, modelPath := filePipeline(t, syntheticFeatures(50, 0))

	_, err := p.Run(context.Background(), defaultRequest())
	require.Error(t, err)
	var dqErr *errors.DataQualityError
	assert.True(t, errors.As(err, &dqErr))
	assert.Equal(t, 50, dqErr.Samples)

	// The guard fires before any fit, so nothing is persisted.
	_, statErr := os.Stat(modelPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipelineImputesInsteadOfFailing(t *testing.T) {
	p, _ := filePipeline(t, syntheticFeatures(200, 5))

	req := defaultRequest()
	req.DropNA = false
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Samples)
}

func TestPipelineDropNAShrinksSamples(t *testing.T) {
	f := syntheticFeatures(200, 5)

	pKeep, _ := filePipeline(t, f)
	keep, err := pKeep.Run(context.Background(), defaultRequest())
	require.NoError(t, err)

	pDrop, _ := filePipeline(t, f)
	req := defaultRequest()
	req.DropNA = true
	drop, err := pDrop.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 160, drop.Samples)
	assert.LessOrEqual(t, drop.Samples, keep.Samples)
}

func TestPipelineDropNAKeepsRowsWithNullCategoricals(t *testing.T) {
	f := syntheticFeatures(120, 0)
	for i := 0; i < f.NumRows(); i += 10 {
		f.Set(i, ingest.ColCropType, dataset.Null())
	}
	p, _ := filePipeline(t, f)

	// The joint drop spans the numeric features and the target; a null
	// crop_type is mode-filled and one-hot encoded, not dropped.
	req := defaultRequest()
	req.DropNA = true
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 120, res.Samples)
	assert.Contains(t, res.FeatureColumns, "crop_type_Maize")
}

func TestPipelineFuzzyColumnRecovery(t *testing.T) {
	p, _ := filePipeline(t, syntheticFeatures(150, 0))

	req := defaultRequest()
	req.FeatureColumns = []string{"rainfal", ingest.ColTemperature}
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.FeatureColumns, ingest.ColRainfall)
}

func TestPipelineMisspelledTargetIsFatal(t *testing.T) {
	p, modelPath := filePipeline(t, syntheticFeatures(150, 0))

	// Fuzzy recovery is for features only; a near-miss target is a
	// configuration error, not something to guess at.
	req := defaultRequest()
	req.TargetColumn = "crop_yeild"
	_, err := p.Run(context.Background(), req)
	require.Error(t, err)
	var colErr *errors.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "target", colErr.Role)
	assert.Equal(t, "crop_yeild", colErr.Column)

	_, statErr := os.Stat(modelPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipelineMissingFeaturePolicy(t *testing.T) {
	f := syntheticFeatures(150, 0)

	p, _ := filePipeline(t, f)
	req := defaultRequest()
	req.FeatureColumns = []string{ingest.ColRainfall, "soil_acidity_xyz"}
	_, err := p.Run(context.Background(), req)
	require.Error(t, err)
	var colErr *errors.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "soil_acidity_xyz", colErr.Column)

	p2, _ := filePipeline(t, f)
	req.AllowMissingFeatures = true
	res, err := p2.Run(context.Background(), req)
	require.NoError(t, err)
	assert.NotContains(t, res.FeatureColumns, "soil_acidity_xyz")
}

func TestPipelineMissingTargetIsFatal(t *testing.T) {
	p, _ := filePipeline(t, syntheticFeatures(150, 0))

	req := defaultRequest()
	req.TargetColumn = "completely_unrelated"
	req.AllowMissingFeatures = true
	_, err := p.Run(context.Background(), req)
	require.Error(t, err)
	var colErr *errors.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "target", colErr.Role)
}

func TestSplitByTypeDetection(t *testing.T) {
	f := dataset.New("pure_text", "mixed", "numbers", "all_null")
	for i := 0; i < 4; i++ {
		f.AppendRow(map[string]dataset.Value{
			"pure_text": dataset.Str([]string{"A", "B", "A", "C"}[i]),
			"mixed":     dataset.Str([]string{"A", "5", "B", "7"}[i]),
			"numbers":   dataset.Str(fmt.Sprintf("%d", i)),
		})
	}

	numeric, categorical := splitByType(f, []string{"pure_text", "mixed", "numbers", "all_null"})
	// An entirely null column counts as numeric (zero-filled later),
	// not as a constant category.
	assert.Equal(t, []string{"mixed", "numbers", "all_null"}, numeric)
	assert.Equal(t, []string{"pure_text"}, categorical)

	// A column with any parseable value is coerced wholesale; its text
	// entries are destroyed, not preserved as categories.
	assert.True(t, f.At(0, "mixed").IsNull())
	v, ok := f.At(1, "mixed").Float()
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	// The all-null column zero-fills through numeric imputation.
	imputeNumeric(f, "all_null")
	for i := 0; i < f.NumRows(); i++ {
		filled, ok := f.At(i, "all_null").Float()
		require.True(t, ok)
		assert.Equal(t, 0.0, filled)
	}
}

func TestSeededSplit(t *testing.T) {
	train1, test1 := seededSplit(100, 0.2, 42)
	train2, test2 := seededSplit(100, 0.2, 42)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
	assert.Len(t, test1, 20)
	assert.Len(t, train1, 80)

	seen := map[int]struct{}{}
	for _, i := range append(append([]int(nil), train1...), test1...) {
		seen[i] = struct{}{}
	}
	assert.Len(t, seen, 100)

	_, test3 := seededSplit(100, 0.2, 7)
	assert.NotEqual(t, test1, test3)
}
