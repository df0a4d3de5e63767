package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func vec(values ...float64) *mat.VecDense {
	return mat.NewVecDense(len(values), values)
}

func TestMSEPerfectPrediction(t *testing.T) {
	yTrue := vec(1, 2, 3)
	yPred := vec(1, 2, 3)

	mse, err := MSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}
	if mse != 0 {
		t.Errorf("MSE = %v, want 0", mse)
	}
}

func TestMSEKnownValue(t *testing.T) {
	yTrue := vec(1, 2, 3)
	yPred := vec(2, 2, 2)

	mse, err := MSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}
	// Errors are 1, 0, 1 so the mean square is 2/3.
	if math.Abs(mse-2.0/3.0) > 1e-12 {
		t.Errorf("MSE = %v, want %v", mse, 2.0/3.0)
	}
}

func TestRMSEIsSqrtOfMSE(t *testing.T) {
	yTrue := vec(0, 0, 0, 0)
	yPred := vec(2, 2, 2, 2)

	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("RMSE failed: %v", err)
	}
	if math.Abs(rmse-2) > 1e-12 {
		t.Errorf("RMSE = %v, want 2", rmse)
	}
}

func TestMAEKnownValue(t *testing.T) {
	yTrue := vec(1, -1)
	yPred := vec(2, 1)

	mae, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MAE failed: %v", err)
	}
	if math.Abs(mae-1.5) > 1e-12 {
		t.Errorf("MAE = %v, want 1.5", mae)
	}
}

func TestR2ScorePerfectAndMean(t *testing.T) {
	yTrue := vec(1, 2, 3, 4)

	r2, err := R2Score(yTrue, vec(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("R2Score failed: %v", err)
	}
	if math.Abs(r2-1) > 1e-12 {
		t.Errorf("perfect R2 = %v, want 1", r2)
	}

	// Predicting the mean everywhere gives R2 of 0.
	r2, err = R2Score(yTrue, vec(2.5, 2.5, 2.5, 2.5))
	if err != nil {
		t.Fatalf("R2Score failed: %v", err)
	}
	if math.Abs(r2) > 1e-12 {
		t.Errorf("mean R2 = %v, want 0", r2)
	}
}

func TestR2ScoreNoVariance(t *testing.T) {
	if _, err := R2Score(vec(3, 3, 3), vec(1, 2, 3)); err == nil {
		t.Error("R2Score with constant yTrue should fail")
	}
}

func TestDimensionMismatch(t *testing.T) {
	if _, err := MSE(vec(1, 2), vec(1)); err == nil {
		t.Error("MSE with mismatched lengths should fail")
	}
	if _, err := MAE(vec(1, 2), vec(1)); err == nil {
		t.Error("MAE with mismatched lengths should fail")
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median = %v, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("even median = %v, want 2.5", got)
	}
	if got := Median(nil); !math.IsNaN(got) {
		t.Errorf("empty median = %v, want NaN", got)
	}
}
