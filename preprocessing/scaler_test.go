package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	r, c := scaled.Dims()
	for j := 0; j < c; j++ {
		var sum, sumSq float64
		for i := 0; i < r; i++ {
			sum += scaled.At(i, j)
		}
		mean := sum / float64(r)
		for i := 0; i < r; i++ {
			diff := scaled.At(i, j) - mean
			sumSq += diff * diff
		}
		std := math.Sqrt(sumSq / float64(r))

		if math.Abs(mean) > 1e-10 {
			t.Errorf("column %d: mean = %v, want 0", j, mean)
		}
		if math.Abs(std-1) > 1e-10 {
			t.Errorf("column %d: std = %v, want 1", j, std)
		}
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	// A constant column is centered but not divided by zero.
	for i := 0; i < 3; i++ {
		if got := scaled.At(i, 0); got != 0 {
			t.Errorf("row %d: got %v, want 0", i, got)
		}
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScaler()
	X := mat.NewDense(2, 2, nil)
	if _, err := scaler.Transform(X); err == nil {
		t.Error("Transform on unfitted scaler should fail")
	}
}

func TestStandardScalerDimensionMismatch(t *testing.T) {
	scaler := NewStandardScaler()
	if err := scaler.Fit(mat.NewDense(3, 2, nil)); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := scaler.Transform(mat.NewDense(3, 5, nil)); err == nil {
		t.Error("Transform with wrong column count should fail")
	}
}

func TestStandardScalerInverseRoundTrip(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 100,
		2, 200,
		3, 300,
	})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	back, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(back.At(i, j)-X.At(i, j)) > 1e-9 {
				t.Errorf("(%d,%d): got %v, want %v", i, j, back.At(i, j), X.At(i, j))
			}
		}
	}
}
