package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// State tells whether the predictor is running an inference.
type State int32

const (
	StateIdle State = iota
	StatePredicting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePredicting:
		return "predicting"
	default:
		return "unknown"
	}
}

// Prediction is the outcome of one inference call.
type Prediction struct {
	Input        FeatureVector         `json:"input"`
	Normalized   [FeatureCount]float64 `json:"normalized"`
	Minutes      float64               `json:"minutes"`
	ModelVersion string                `json:"model_version"`
	InBounds     bool                  `json:"in_bounds"`
	Cached       bool                  `json:"cached"`
}

// ModelProvider is what the transport layer needs from a predictor.
type ModelProvider interface {
	Predict(ctx context.Context, input FeatureVector) (Prediction, error)
	Artifact() *Artifact
}

// PredictorOption configures a Predictor at construction.
type PredictorOption func(*Predictor) error

// WithCache keeps up to size results keyed by the raw input. Inference is
// deterministic for fixed weights so cached and fresh results are equal.
func WithCache(size int) PredictorOption {
	return func(p *Predictor) error {
		if size <= 0 {
			return nil
		}
		cache, err := lru.New[FeatureVector, float64](size)
		if err != nil {
			return err
		}
		p.cache = cache
		return nil
	}
}

// Predictor normalizes inputs with the artifact's bounds and runs one
// inference at a time.
type Predictor struct {
	model    SequenceModel
	artifact *Artifact
	bounds   Bounds
	cache    *lru.Cache[FeatureVector, float64]

	mu    sync.Mutex
	state atomic.Int32
}

// NewPredictor checks that the artifact has valid bounds and a single time
// step, then applies opts.
func NewPredictor(model SequenceModel, artifact *Artifact, opts ...PredictorOption) (*Predictor, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if artifact == nil || artifact.Bounds == nil {
		return nil, errors.New("artifact with bounds is required")
	}
	if err := artifact.Bounds.Validate(); err != nil {
		return nil, err
	}
	if artifact.Steps() != 1 {
		return nil, fmt.Errorf("%w: predictor feeds 1 time step, artifact expects %d", ErrShapeMismatch, artifact.Steps())
	}
	p := &Predictor{
		model:    model,
		artifact: artifact,
		bounds:   *artifact.Bounds,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Artifact returns the artifact the predictor was built from.
func (p *Predictor) Artifact() *Artifact {
	return p.artifact
}

// Bounds returns the normalization bounds in use.
func (p *Predictor) Bounds() Bounds {
	return p.bounds
}

// State returns StatePredicting while an inference is running.
func (p *Predictor) State() State {
	return State(p.state.Load())
}

// Predict normalizes input and returns the model's estimate in minutes.
// Cached results skip the inference lock.
func (p *Predictor) Predict(ctx context.Context, input FeatureVector) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	normalized := Normalize(input, p.bounds)
	result := Prediction{
		Input:        input,
		Normalized:   normalized,
		ModelVersion: p.artifact.Version,
		InBounds:     input.InBounds(p.bounds),
	}

	if p.cache != nil {
		if minutes, ok := p.cache.Get(input); ok {
			result.Minutes = minutes
			result.Cached = true
			return result, nil
		}
	}

	minutes, err := p.infer(ctx, normalized)
	if err != nil {
		return Prediction{}, err
	}
	if p.cache != nil {
		p.cache.Add(input, minutes)
	}
	result.Minutes = minutes
	return result, nil
}

func (p *Predictor) infer(ctx context.Context, normalized [FeatureCount]float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// The lock may have been held by a slow call; recheck before running.
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.state.Store(int32(StatePredicting))
	defer p.state.Store(int32(StateIdle))

	// One sequence of one time step holding the three features.
	minutes, err := p.model.PredictSequence([][]float64{normalized[:]})
	if err != nil {
		return 0, err
	}
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0, ErrNonFiniteOutput
	}
	return minutes, nil
}
