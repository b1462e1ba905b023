package ml

import (
	"fmt"
	"math"
)

type activation func(float64) float64

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func linear(x float64) float64 { return x }

func lookupActivation(name string) (activation, error) {
	switch name {
	case "", "linear":
		return linear, nil
	case "relu":
		return relu, nil
	case "sigmoid":
		return sigmoid, nil
	case "tanh":
		return math.Tanh, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

// denseLayer computes act(x·W + b) with W laid out [in][out].
type denseLayer struct {
	weights [][]float64
	bias    []float64
	act     activation
}

func newDenseLayer(spec DenseSpec) (denseLayer, error) {
	if len(spec.Weights) == 0 {
		return denseLayer{}, fmt.Errorf("%w: dense layer has no weights", ErrShapeMismatch)
	}
	out := len(spec.Weights[0])
	if out == 0 {
		return denseLayer{}, fmt.Errorf("%w: dense layer has no outputs", ErrShapeMismatch)
	}
	for i, row := range spec.Weights {
		if len(row) != out {
			return denseLayer{}, fmt.Errorf("%w: dense weight row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), out)
		}
	}
	if len(spec.Bias) != out {
		return denseLayer{}, fmt.Errorf("%w: dense bias has %d entries, want %d", ErrShapeMismatch, len(spec.Bias), out)
	}
	act, err := lookupActivation(spec.Activation)
	if err != nil {
		return denseLayer{}, err
	}
	return denseLayer{weights: spec.Weights, bias: spec.Bias, act: act}, nil
}

func (l denseLayer) inputs() int  { return len(l.weights) }
func (l denseLayer) outputs() int { return len(l.bias) }

func (l denseLayer) forward(x []float64) ([]float64, error) {
	if len(x) != l.inputs() {
		return nil, ErrShapeMismatch
	}
	out := make([]float64, l.outputs())
	for j := range out {
		sum := l.bias[j]
		for i, xi := range x {
			sum += xi * l.weights[i][j]
		}
		out[j] = l.act(sum)
	}
	return out, nil
}
