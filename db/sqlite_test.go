package db

import (
	"path/filepath"
	"testing"

	"deliveryeta/ml"
)

func TestPredictionLog(t *testing.T) {
	store, err := InitDB(filepath.Join(t.TempDir(), "predictions.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	for i, minutes := range []float64{21.5, 34.25, 18} {
		p := ml.Prediction{
			Input:        ml.FeatureVector{Age: 20 + i, Rating: 4.5, Distance: 2},
			Normalized:   [3]float64{0.1, 0.2, 0.3},
			Minutes:      minutes,
			ModelVersion: "v1",
			InBounds:     true,
		}
		if err := store.SavePrediction(p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	records, err := store.RecentPredictions(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Minutes != 18 || records[0].Age != 22 {
		t.Fatalf("expected newest record first, got %+v", records[0])
	}
	if records[1].Normalized != [3]float64{0.1, 0.2, 0.3} || !records[1].InBounds || records[1].ModelVersion != "v1" {
		t.Fatalf("unexpected record: %+v", records[1])
	}
	if records[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestStoreErrors(t *testing.T) {
	if _, err := InitDB(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	var store *Store
	if err := store.SavePrediction(ml.Prediction{}); err == nil {
		t.Fatal("expected error for nil store")
	}
	opened, err := InitDB(filepath.Join(t.TempDir(), "p.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer opened.Close()
	if _, err := opened.RecentPredictions(0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}
