package ml

import (
	"math"
	"math/rand"
	"testing"
)

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	// noise-free data over y = 4 + 2*x1 - 3*x2 + 0.5*x3
	rnd := rand.New(rand.NewSource(1))
	X := make([][]float64, 50)
	y := make([]float64, 50)
	for i := range X {
		x1 := rnd.Float64() * 10
		x2 := rnd.Float64() * 10
		x3 := rnd.Float64() * 10
		X[i] = []float64{x1, x2, x3}
		y[i] = 4 + 2*x1 - 3*x2 + 0.5*x3
	}

	model := &LinearRegression{}
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{2, -3, 0.5}
	got := model.Coef()
	for j := range want {
		if math.Abs(got[j]-want[j]) > 1e-8 {
			t.Fatalf("coefficient %d: expected %f, got %f", j, want[j], got[j])
		}
	}
	if math.Abs(model.Intercept()-4) > 1e-8 {
		t.Fatalf("expected intercept 4, got %f", model.Intercept())
	}

	r2, err := model.Score(X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r2 < 0.999999 {
		t.Fatalf("expected R² near 1 on noise-free data, got %f", r2)
	}
}

func TestLinearRegressionNotTrained(t *testing.T) {
	model := &LinearRegression{}
	if _, err := model.PredictVector([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for untrained model")
	}
}

func TestLinearRegressionDeterministic(t *testing.T) {
	ds := SynthesizeDataset(400, 42)

	first := &LinearRegression{}
	if err := first.Fit(ds.X, ds.Y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &LinearRegression{}
	if err := second.Fit(ds.X, ds.Y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for j := range first.Weights {
		if first.Weights[j] != second.Weights[j] {
			t.Fatalf("coefficient %d differs between identical fits", j)
		}
	}
	if first.Bias != second.Bias {
		t.Fatal("intercept differs between identical fits")
	}
}

func TestMeanSquaredError(t *testing.T) {
	mse, err := MeanSquaredError([]float64{1, 2, 3}, []float64{1, 2, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 4.0 / 3.0
	if math.Abs(mse-want) > 1e-12 {
		t.Fatalf("expected MSE %f, got %f", want, mse)
	}

	if _, err := MeanSquaredError([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}
