package ml

import "errors"

var (
	ErrShapeMismatch    = errors.New("input shape mismatch")
	ErrUnsupportedModel = errors.New("unsupported model type")
	ErrNonFiniteOutput  = errors.New("model produced a non-finite output")
)

// SequenceModel maps a sequence of time steps, each FeatureCount wide, to a
// single output value.
type SequenceModel interface {
	PredictSequence(seq [][]float64) (float64, error)
}

// FeedForwardModel runs only the dense stack over the flattened sequence.
type FeedForwardModel struct {
	steps  int
	layers []denseLayer
}

func (m *FeedForwardModel) PredictSequence(seq [][]float64) (float64, error) {
	if len(seq) != m.steps {
		return 0, ErrShapeMismatch
	}
	flat := make([]float64, 0, m.steps*FeatureCount)
	for _, step := range seq {
		if len(step) != FeatureCount {
			return 0, ErrShapeMismatch
		}
		flat = append(flat, step...)
	}
	return runDense(m.layers, flat)
}

func runDense(layers []denseLayer, input []float64) (float64, error) {
	out := input
	for _, layer := range layers {
		next, err := layer.forward(out)
		if err != nil {
			return 0, err
		}
		out = next
	}
	if len(out) != 1 {
		return 0, ErrShapeMismatch
	}
	return out[0], nil
}
