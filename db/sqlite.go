package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens the SQLite database and creates the schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        bedrooms REAL NOT NULL,
        bathrooms REAL NOT NULL,
        sqft_living REAL NOT NULL,
        floors REAL NOT NULL,
        age REAL NOT NULL,
        predicted_price REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        samples INTEGER NOT NULL,
        mse REAL NOT NULL,
        r2 REAL NOT NULL,
        trained_at DATETIME NOT NULL
    );
    `

	_, err = database.Exec(query)
	return err
}

// Enabled reports whether InitDB has been called.
func Enabled() bool {
	return database != nil
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// PredictionRecord is one served prediction with its inputs.
type PredictionRecord struct {
	Bedrooms       float64   `json:"bedrooms"`
	Bathrooms      float64   `json:"bathrooms"`
	SqftLiving     float64   `json:"sqft_living"`
	Floors         float64   `json:"floors"`
	Age            float64   `json:"age"`
	PredictedPrice float64   `json:"predicted_price"`
	CreatedAt      time.Time `json:"created_at"`
}

// SavePrediction appends one prediction to the history.
func SavePrediction(record PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := database.Exec(`
        INSERT INTO predictions (bedrooms, bathrooms, sqft_living, floors, age, predicted_price, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Bedrooms, record.Bathrooms, record.SqftLiving, record.Floors, record.Age,
		record.PredictedPrice, createdAt)
	return err
}

// QueryPredictions returns the most recent predictions, newest first.
func QueryPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT bedrooms, bathrooms, sqft_living, floors, age, predicted_price, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var record PredictionRecord
		if err := rows.Scan(&record.Bedrooms, &record.Bathrooms, &record.SqftLiving,
			&record.Floors, &record.Age, &record.PredictedPrice, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// TrainingRun records one completed training with its held-out metrics.
type TrainingRun struct {
	Samples   int       `json:"samples"`
	MSE       float64   `json:"mse"`
	R2        float64   `json:"r2"`
	TrainedAt time.Time `json:"trained_at"`
}

// SaveTrainingRun appends a training run to the log.
func SaveTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	trainedAt := run.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now().UTC()
	}
	_, err := database.Exec(`
        INSERT INTO training_runs (samples, mse, r2, trained_at)
        VALUES (?, ?, ?, ?)`,
		run.Samples, run.MSE, run.R2, trainedAt)
	return err
}

// LoadTrainingRuns returns every recorded training run, newest first.
func LoadTrainingRuns() ([]TrainingRun, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT samples, mse, r2, trained_at
        FROM training_runs
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		if err := rows.Scan(&run.Samples, &run.MSE, &run.R2, &run.TrainedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
