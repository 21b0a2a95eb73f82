package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes features to zero mean and unit variance
// using statistics computed once at fit time. Fields are exported so
// the fitted state survives gob serialization.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// Fit computes per-column mean and standard deviation from the
// training rows. Columns with zero spread fall back to a unit scale so
// Transform stays defined.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("no rows to fit")
	}
	cols := len(X[0])
	if cols == 0 {
		return errors.New("no columns to fit")
	}

	column := make([]float64, len(X))
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)
	for j := 0; j < cols; j++ {
		for i, row := range X {
			if len(row) != cols {
				return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
			}
			column[i] = row[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return nil
}

// Fitted reports whether Fit has been called.
func (s *StandardScaler) Fitted() bool {
	return len(s.Mean) > 0 && len(s.Mean) == len(s.Std)
}

// Transform standardizes every row using the fitted statistics.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.TransformVector(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformVector standardizes a single feature vector.
func (s *StandardScaler) TransformVector(v []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, errors.New("scaler not fitted")
	}
	if len(v) != len(s.Mean) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.Mean), len(v))
	}
	scaled := make([]float64, len(v))
	for j, value := range v {
		scaled[j] = (value - s.Mean[j]) / s.Std[j]
	}
	return scaled, nil
}
