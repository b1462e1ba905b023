package ml

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArtifactSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "model.json")
	artifact := testArtifact()
	artifact.Bounds.Max[2] = 25
	if err := artifact.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	model, loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Version != "v-test" {
		t.Fatalf("expected version v-test, got %q", loaded.Version)
	}
	if loaded.BoundsDefaulted {
		t.Fatal("expected bounds from file")
	}
	if *loaded.Bounds != *artifact.Bounds {
		t.Fatalf("expected bounds %+v, got %+v", *artifact.Bounds, *loaded.Bounds)
	}
	got, err := model.PredictSequence([][]float64{{0.5, 0, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != expectedTestOutput(0.5) {
		t.Fatalf("expected %f, got %f", expectedTestOutput(0.5), got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the artifact in the directory, got %d entries", len(entries))
	}
}

func TestLoadArtifactDefaultsMissingBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	payload := `{
		"format_version": 1,
		"name": "legacy",
		"version": "1",
		"model_type": "dense",
		"features": ["age", "rating", "distance"],
		"dense": [{"weights": [[1], [1], [1]], "bias": [0]}]
	}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}
	artifact, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !artifact.BoundsDefaulted {
		t.Fatal("expected bounds to be defaulted")
	}
	if *artifact.Bounds != DefaultBounds() {
		t.Fatalf("expected default bounds, got %+v", *artifact.Bounds)
	}
}

func TestLoadArtifactRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"format version": `{"format_version": 2, "model_type": "dense", "features": ["age","rating","distance"]}`,
		"feature order":  `{"format_version": 1, "model_type": "dense", "features": ["rating","age","distance"]}`,
		"degenerate":     `{"format_version": 1, "model_type": "dense", "features": ["age","rating","distance"], "bounds": {"min": [18,1,0.1], "max": [18,5,20]}}`,
		"not json":       `model`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.json")
			if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadArtifact(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadModelRejectsBadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	artifact := testArtifact()
	artifact.LSTM.Bias = []float64{1}
	if err := artifact.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := LoadModel(path)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestSetBoundsClearsDefaultFlag(t *testing.T) {
	artifact := testArtifact()
	artifact.BoundsDefaulted = true
	fitted := DefaultBounds()
	fitted.Min[0] = 20
	if err := artifact.SetBounds(fitted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.BoundsDefaulted || artifact.Bounds.Min[0] != 20 {
		t.Fatalf("unexpected artifact state: %+v", artifact)
	}
	fitted.Max[0] = 10
	if err := artifact.SetBounds(fitted); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("expected ErrInvalidBounds, got %v", err)
	}
}

func TestBundledModelArtifact(t *testing.T) {
	model, artifact, err := LoadModel(filepath.Join("..", "models", "lstm_delivery_model.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.BoundsDefaulted {
		t.Fatal("bundled artifact should carry its own bounds")
	}
	predictor, err := NewPredictor(model, artifact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *artifact.Bounds != DefaultBounds() {
		t.Fatalf("expected bundled bounds %+v, got %+v", DefaultBounds(), *artifact.Bounds)
	}

	cases := []struct {
		input FeatureVector
		want  [FeatureCount]float64
	}{
		{FeatureVector{Age: 18, Rating: 1.0, Distance: 0.1}, [FeatureCount]float64{0, 0, 0}},
		{FeatureVector{Age: 60, Rating: 5.0, Distance: 20.0}, [FeatureCount]float64{1, 1, 1}},
		{FeatureVector{Age: 39, Rating: 3.0, Distance: 10.05}, [FeatureCount]float64{0.5, 0.5, 0.5}},
		{FeatureVector{Age: 30, Rating: 4.5, Distance: 2.0}, Normalize(FeatureVector{Age: 30, Rating: 4.5, Distance: 2.0}, DefaultBounds())},
	}
	for _, tc := range cases {
		prediction, err := predictor.Predict(context.Background(), tc.input)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", tc.input, err)
		}
		for i := range tc.want {
			if math.Abs(prediction.Normalized[i]-tc.want[i]) > 1e-9 {
				t.Fatalf("%+v: expected normalized %v, got %v", tc.input, tc.want, prediction.Normalized)
			}
		}
		if !prediction.InBounds {
			t.Fatalf("%+v: expected slider input to be in bounds", tc.input)
		}
		if math.IsNaN(prediction.Minutes) || math.IsInf(prediction.Minutes, 0) {
			t.Fatalf("%+v: expected finite minutes, got %f", tc.input, prediction.Minutes)
		}
	}
}
