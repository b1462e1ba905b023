package ml

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

type countingModel struct {
	mu     sync.Mutex
	calls  int
	output float64
	seen   [][]float64
	state  func() State
	during State
}

func (m *countingModel) PredictSequence(seq [][]float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.seen = seq
	if m.state != nil {
		m.during = m.state()
	}
	return m.output, nil
}

func newTestPredictor(t *testing.T, opts ...PredictorOption) *Predictor {
	t.Helper()
	artifact := testArtifact()
	model, err := BuildModel(artifact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictor, err := NewPredictor(model, artifact, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return predictor
}

func TestPredictorPredict(t *testing.T) {
	predictor := newTestPredictor(t)
	input := FeatureVector{Age: 39, Rating: 3.0, Distance: 10.05}

	got, err := predictor.Predict(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got.Minutes-expectedTestOutput(0.5)) > 1e-12 {
		t.Fatalf("expected %f, got %f", expectedTestOutput(0.5), got.Minutes)
	}
	if got.ModelVersion != "v-test" || !got.InBounds || got.Cached {
		t.Fatalf("unexpected prediction: %+v", got)
	}
	if math.IsNaN(got.Minutes) || math.IsInf(got.Minutes, 0) {
		t.Fatalf("expected finite output, got %f", got.Minutes)
	}

	again, err := predictor.Predict(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Minutes != got.Minutes {
		t.Fatalf("expected identical repeated prediction, got %f and %f", got.Minutes, again.Minutes)
	}
	if predictor.State() != StateIdle {
		t.Fatalf("expected idle state, got %s", predictor.State())
	}
}

func TestPredictorReshapesToSingleStep(t *testing.T) {
	model := &countingModel{output: 12.5}
	artifact := testArtifact()
	predictor, err := NewPredictor(model, artifact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	model.state = predictor.State

	got, err := predictor.Predict(context.Background(), FeatureVector{Age: 60, Rating: 5.0, Distance: 20.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Minutes != 12.5 {
		t.Fatalf("expected verbatim model output, got %f", got.Minutes)
	}
	if len(model.seen) != 1 || len(model.seen[0]) != FeatureCount {
		t.Fatalf("expected one step of %d features, got %v", FeatureCount, model.seen)
	}
	for _, value := range model.seen[0] {
		if value != 1 {
			t.Fatalf("expected max corner to normalize to 1, got %v", model.seen[0])
		}
	}
	if model.during != StatePredicting {
		t.Fatalf("expected predicting state during inference, got %s", model.during)
	}
}

func TestPredictorCache(t *testing.T) {
	model := &countingModel{output: 20}
	predictor, err := NewPredictor(model, testArtifact(), WithCache(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := FeatureVector{Age: 30, Rating: 4.5, Distance: 2.0}
	first, err := predictor.Predict(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := predictor.Predict(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", model.calls)
	}
	if first.Cached || !second.Cached || first.Minutes != second.Minutes {
		t.Fatalf("unexpected cache behaviour: %+v %+v", first, second)
	}
}

func TestPredictorNonFiniteOutput(t *testing.T) {
	predictor, err := NewPredictor(&countingModel{output: math.NaN()}, testArtifact())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := predictor.Predict(context.Background(), FeatureVector{Age: 30, Rating: 4, Distance: 1}); !errors.Is(err, ErrNonFiniteOutput) {
		t.Fatalf("expected ErrNonFiniteOutput, got %v", err)
	}
}

func TestPredictorCancelledContext(t *testing.T) {
	model := &countingModel{output: 1}
	predictor, err := NewPredictor(model, testArtifact())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := predictor.Predict(ctx, FeatureVector{Age: 30, Rating: 4, Distance: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("expected no model calls, got %d", model.calls)
	}
}

func TestNewPredictorValidation(t *testing.T) {
	if _, err := NewPredictor(nil, testArtifact()); err == nil {
		t.Fatal("expected error for nil model")
	}
	model := &countingModel{}
	if _, err := NewPredictor(model, &Artifact{}); err == nil {
		t.Fatal("expected error for artifact without bounds")
	}
	artifact := testArtifact()
	artifact.TimeSteps = 3
	if _, err := NewPredictor(model, artifact); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}
