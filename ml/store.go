package ml

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Artifact file names, fixed relative to the store directory.
const (
	ModelFile  = "house_price_model.gob"
	ScalerFile = "scaler.gob"
)

// ErrNoArtifacts means the persisted pair is missing, partial or
// unreadable. A partial pair is deliberately treated as absent: both
// files must exist together or neither counts.
var ErrNoArtifacts = errors.New("model artifacts not found")

// Store persists and restores the fitted pipeline as two gob files.
// There is no atomicity across the two writes; a crash in between
// leaves a partial pair, which Load then reports as absent.
type Store struct {
	Dir string
}

// modelArtifact bundles the regression with its training metadata so a
// restored server still knows how the model scored.
type modelArtifact struct {
	Model  *LinearRegression
	Result *TrainingResult
}

// ModelPath returns the regression artifact path.
func (s *Store) ModelPath() string {
	return filepath.Join(s.Dir, ModelFile)
}

// ScalerPath returns the scaler artifact path.
func (s *Store) ScalerPath() string {
	return filepath.Join(s.Dir, ScalerFile)
}

// Save serializes both artifacts, overwriting any existing pair.
func (s *Store) Save(p *Pipeline, result *TrainingResult) error {
	if p == nil || p.Scaler == nil || p.Model == nil {
		return errors.New("nothing to save: pipeline not fitted")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := writeGob(s.ModelPath(), modelArtifact{Model: p.Model, Result: result}); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := writeGob(s.ScalerPath(), p.Scaler); err != nil {
		return fmt.Errorf("save scaler: %w", err)
	}
	return nil
}

// Load restores the pipeline from disk. Any missing or undecodable
// file yields ErrNoArtifacts so callers fall back to training.
func (s *Store) Load() (*Pipeline, *TrainingResult, error) {
	var artifact modelArtifact
	if err := readGob(s.ModelPath(), &artifact); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoArtifacts, err)
	}
	scaler := &StandardScaler{}
	if err := readGob(s.ScalerPath(), scaler); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoArtifacts, err)
	}
	if artifact.Model == nil || !artifact.Model.Fitted() || !scaler.Fitted() {
		return nil, nil, fmt.Errorf("%w: artifact pair incomplete", ErrNoArtifacts)
	}
	return &Pipeline{Scaler: scaler, Model: artifact.Model}, artifact.Result, nil
}

// LoadOrTrain restores an intact artifact pair, or trains a fresh
// pipeline and persists it. The trained return reports which path was
// taken.
func (s *Store) LoadOrTrain(cfg TrainConfig, logger *zap.Logger) (p *Pipeline, result *TrainingResult, trained bool, err error) {
	p, result, err = s.Load()
	if err == nil {
		logger.Info("model artifacts loaded",
			zap.String("model", s.ModelPath()),
			zap.String("scaler", s.ScalerPath()),
		)
		return p, result, false, nil
	}
	if !errors.Is(err, ErrNoArtifacts) {
		return nil, nil, false, err
	}

	logger.Info("no saved model found, training new model", zap.String("dir", s.Dir))
	p, result, err = Train(cfg)
	if err != nil {
		return nil, nil, false, fmt.Errorf("train model: %w", err)
	}
	if err := s.Save(p, result); err != nil {
		return nil, nil, false, err
	}
	logger.Info("model trained",
		zap.Int("samples", result.Samples),
		zap.Float64("mse", result.MSE),
		zap.Float64("r2", result.R2),
	)
	return p, result, true, nil
}

func writeGob(path string, value interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewEncoder(file).Encode(value)
}

func readGob(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(out)
}
