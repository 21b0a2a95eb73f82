package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LinearRegression is an ordinary-least-squares model over the
// standardized feature space. Fields are exported for gob.
type LinearRegression struct {
	Weights []float64
	Bias    float64
}

// Fit solves the least-squares problem for X against y using an
// intercept-augmented design matrix and gonum's QR-backed solver.
func (lr *LinearRegression) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("got %d rows but %d targets", len(X), len(y))
	}
	cols := len(X[0])
	if cols == 0 {
		return errors.New("no feature columns")
	}
	if len(X) <= cols {
		return fmt.Errorf("need more than %d rows to fit %d coefficients", cols, cols+1)
	}

	design := mat.NewDense(len(X), cols+1, nil)
	for i, row := range X {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		design.Set(i, 0, 1)
		for j, value := range row {
			design.Set(i, j+1, value)
		}
	}

	target := mat.NewVecDense(len(y), y)
	var beta mat.VecDense
	if err := beta.SolveVec(design, target); err != nil {
		return fmt.Errorf("least squares solve: %w", err)
	}

	lr.Bias = beta.AtVec(0)
	lr.Weights = make([]float64, cols)
	for j := 0; j < cols; j++ {
		lr.Weights[j] = beta.AtVec(j + 1)
	}
	return nil
}

// Fitted reports whether Fit has been called.
func (lr *LinearRegression) Fitted() bool {
	return len(lr.Weights) > 0
}

// PredictVector returns the raw regression output for one vector.
func (lr *LinearRegression) PredictVector(v []float64) (float64, error) {
	if !lr.Fitted() {
		return 0, errors.New("model not trained")
	}
	if len(v) != len(lr.Weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(lr.Weights), len(v))
	}
	prediction := lr.Bias
	for j, weight := range lr.Weights {
		prediction += weight * v[j]
	}
	return prediction, nil
}

// Predict returns raw regression outputs for every row.
func (lr *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	predictions := make([]float64, len(X))
	for i, row := range X {
		p, err := lr.PredictVector(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		predictions[i] = p
	}
	return predictions, nil
}

// Score returns the coefficient of determination R² on X against y.
func (lr *LinearRegression) Score(X [][]float64, y []float64) (float64, error) {
	if len(X) != len(y) {
		return 0, fmt.Errorf("got %d rows but %d targets", len(X), len(y))
	}
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return stat.RSquaredFrom(predictions, y, nil), nil
}

// Coef returns a copy of the fitted weight vector.
func (lr *LinearRegression) Coef() []float64 {
	weights := make([]float64, len(lr.Weights))
	copy(weights, lr.Weights)
	return weights
}

// Intercept returns the fitted bias term.
func (lr *LinearRegression) Intercept() float64 {
	return lr.Bias
}

// MeanSquaredError is the average squared residual between predictions
// and actual targets.
func MeanSquaredError(predictions, actual []float64) (float64, error) {
	if len(predictions) != len(actual) {
		return 0, fmt.Errorf("got %d predictions but %d targets", len(predictions), len(actual))
	}
	if len(predictions) == 0 {
		return 0, errors.New("no values to score")
	}
	var sum float64
	for i, p := range predictions {
		residual := p - actual[i]
		sum += residual * residual
	}
	return sum / float64(len(predictions)), nil
}
