package db

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"deliveryeta/ml"

	_ "github.com/mattn/go-sqlite3"
)

// PredictionRecord is one served prediction as stored in the log.
type PredictionRecord struct {
	ID           int64      `json:"id"`
	Age          int        `json:"age"`
	Rating       float64    `json:"rating"`
	Distance     float64    `json:"distance"`
	Normalized   [3]float64 `json:"normalized"`
	Minutes      float64    `json:"minutes"`
	ModelVersion string     `json:"model_version"`
	InBounds     bool       `json:"in_bounds"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Store is the SQLite prediction log.
type Store struct {
	database *sql.DB
}

// InitDB opens the SQLite database at path and creates the schema.
func InitDB(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        age INTEGER NOT NULL,
        rating REAL NOT NULL,
        distance REAL NOT NULL,
        norm_age REAL NOT NULL,
        norm_rating REAL NOT NULL,
        norm_distance REAL NOT NULL,
        minutes REAL NOT NULL,
        model_version TEXT NOT NULL,
        in_bounds INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

// SavePrediction appends p to the log.
func (s *Store) SavePrediction(p ml.Prediction) error {
	if s == nil || s.database == nil {
		return errors.New("database not initialized")
	}
	_, err := s.database.Exec(`
        INSERT INTO predictions (
            age, rating, distance, norm_age, norm_rating, norm_distance,
            minutes, model_version, in_bounds, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Input.Age, p.Input.Rating, p.Input.Distance,
		p.Normalized[0], p.Normalized[1], p.Normalized[2],
		p.Minutes, p.ModelVersion, p.InBounds, time.Now().UTC(),
	)
	return err
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if s == nil || s.database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.database.Query(`
        SELECT id, age, rating, distance, norm_age, norm_rating, norm_distance,
               minutes, model_version, in_bounds, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(&r.ID, &r.Age, &r.Rating, &r.Distance,
			&r.Normalized[0], &r.Normalized[1], &r.Normalized[2],
			&r.Minutes, &r.ModelVersion, &r.InBounds, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
