package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/agriml/yieldpipe/pkg/errors"
)

// BinaryDiagnostics carries the secondary above/below-median diagnostic:
// both the target and the prediction are binarized against the target's
// median, then scored as a classifier.
type BinaryDiagnostics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
}

// AboveMedianDiagnostics binarizes yTrue and yPred at the median of yTrue
// and computes accuracy, precision and recall. It returns ok=false when
// the target has fewer than two distinct values, in which case the
// diagnostic is undefined and simply omitted.
func AboveMedianDiagnostics(yTrue, yPred *mat.VecDense) (BinaryDiagnostics, bool, error) {
	n := yTrue.Len()
	if n == 0 {
		return BinaryDiagnostics{}, false, errors.NewValueError("AboveMedianDiagnostics", "empty vector")
	}
	if yPred.Len() != n {
		return BinaryDiagnostics{}, false, errors.NewDimensionError("AboveMedianDiagnostics", n, yPred.Len(), 0)
	}

	values := make([]float64, n)
	distinct := make(map[float64]struct{}, 2)
	for i := 0; i < n; i++ {
		values[i] = yTrue.AtVec(i)
		if len(distinct) < 2 {
			distinct[values[i]] = struct{}{}
		}
	}
	if len(distinct) < 2 {
		return BinaryDiagnostics{}, false, nil
	}

	threshold := Median(values)

	var tp, tn, fp, fn float64
	for i := 0; i < n; i++ {
		actual := yTrue.AtVec(i) > threshold
		predicted := yPred.AtVec(i) > threshold
		switch {
		case actual && predicted:
			tp++
		case !actual && !predicted:
			tn++
		case !actual && predicted:
			fp++
		default:
			fn++
		}
	}

	d := BinaryDiagnostics{
		Accuracy: (tp + tn) / float64(n),
	}
	// Undefined precision/recall scores zero rather than erroring, the
	// zero_division=0 convention.
	if tp+fp > 0 {
		d.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		d.Recall = tp / (tp + fn)
	}
	return d, true, nil
}
