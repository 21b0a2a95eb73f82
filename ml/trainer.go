package ml

import (
	"fmt"
	"time"
)

// MinPrediction is the lower clamp applied to every served estimate.
const MinPrediction = 50000

// TrainConfig controls dataset synthesis and the train/test split.
type TrainConfig struct {
	Samples   int
	Seed      int64
	TestRatio float64
}

func (c TrainConfig) withDefaults() TrainConfig {
	if c.Samples <= 0 {
		c.Samples = DefaultSamples
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		c.TestRatio = 0.2
	}
	return c
}

// TrainingResult carries the held-out evaluation metrics. Informational
// only; nothing branches on these values.
type TrainingResult struct {
	Samples   int
	MSE       float64
	R2        float64
	TrainedAt time.Time
}

// Pipeline is the fitted scaler + regression pair. It is immutable
// after training and shared read-only across requests.
type Pipeline struct {
	Scaler *StandardScaler
	Model  *LinearRegression
}

// Predict standardizes the vector, applies the regression and clamps
// the result to the serving floor.
func (p *Pipeline) Predict(v []float64) (float64, error) {
	if p == nil || p.Scaler == nil || p.Model == nil {
		return 0, fmt.Errorf("pipeline not initialized")
	}
	scaled, err := p.Scaler.TransformVector(v)
	if err != nil {
		return 0, err
	}
	prediction, err := p.Model.PredictVector(scaled)
	if err != nil {
		return 0, err
	}
	if prediction < MinPrediction {
		prediction = MinPrediction
	}
	return prediction, nil
}

// Train synthesizes a dataset, splits it 80/20, fits the scaler on the
// training rows only, fits the regression on standardized rows and
// evaluates MSE and R² on the held-out partition.
func Train(cfg TrainConfig) (*Pipeline, *TrainingResult, error) {
	cfg = cfg.withDefaults()

	ds := SynthesizeDataset(cfg.Samples, cfg.Seed)
	train, test, err := TrainTestSplit(ds, cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("split dataset: %w", err)
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(train.X); err != nil {
		return nil, nil, fmt.Errorf("fit scaler: %w", err)
	}
	trainScaled, err := scaler.Transform(train.X)
	if err != nil {
		return nil, nil, fmt.Errorf("scale training rows: %w", err)
	}
	testScaled, err := scaler.Transform(test.X)
	if err != nil {
		return nil, nil, fmt.Errorf("scale test rows: %w", err)
	}

	model := &LinearRegression{}
	if err := model.Fit(trainScaled, train.Y); err != nil {
		return nil, nil, fmt.Errorf("fit regression: %w", err)
	}

	predictions, err := model.Predict(testScaled)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate model: %w", err)
	}
	mse, err := MeanSquaredError(predictions, test.Y)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate model: %w", err)
	}
	r2, err := model.Score(testScaled, test.Y)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate model: %w", err)
	}

	result := &TrainingResult{
		Samples:   cfg.Samples,
		MSE:       mse,
		R2:        r2,
		TrainedAt: time.Now().UTC(),
	}
	return &Pipeline{Scaler: scaler, Model: model}, result, nil
}
