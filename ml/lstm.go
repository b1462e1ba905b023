package ml

import (
	"fmt"
	"math"
)

// lstmLayer follows the Keras LSTM layout: kernel [input][4*units],
// recurrent kernel [units][4*units], bias [4*units], gates ordered i, f, c, o.
type lstmLayer struct {
	units     int
	kernel    [][]float64
	recurrent [][]float64
	bias      []float64
}

func newLSTMLayer(spec LSTMSpec) (lstmLayer, error) {
	if spec.Units <= 0 {
		return lstmLayer{}, fmt.Errorf("%w: lstm units must be positive", ErrShapeMismatch)
	}
	width := 4 * spec.Units
	if len(spec.Kernel) != FeatureCount {
		return lstmLayer{}, fmt.Errorf("%w: lstm kernel has %d rows, want %d", ErrShapeMismatch, len(spec.Kernel), FeatureCount)
	}
	if err := checkRows(spec.Kernel, width, "lstm kernel"); err != nil {
		return lstmLayer{}, err
	}
	if len(spec.RecurrentKernel) != spec.Units {
		return lstmLayer{}, fmt.Errorf("%w: lstm recurrent kernel has %d rows, want %d", ErrShapeMismatch, len(spec.RecurrentKernel), spec.Units)
	}
	if err := checkRows(spec.RecurrentKernel, width, "lstm recurrent kernel"); err != nil {
		return lstmLayer{}, err
	}
	if len(spec.Bias) != width {
		return lstmLayer{}, fmt.Errorf("%w: lstm bias has %d entries, want %d", ErrShapeMismatch, len(spec.Bias), width)
	}
	return lstmLayer{
		units:     spec.Units,
		kernel:    spec.Kernel,
		recurrent: spec.RecurrentKernel,
		bias:      spec.Bias,
	}, nil
}

func checkRows(m [][]float64, width int, name string) error {
	for i, row := range m {
		if len(row) != width {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d", ErrShapeMismatch, name, i, len(row), width)
		}
	}
	return nil
}

// forward runs the sequence from a zero state and returns the last hidden state.
func (l lstmLayer) forward(seq [][]float64) ([]float64, error) {
	h := make([]float64, l.units)
	c := make([]float64, l.units)
	z := make([]float64, 4*l.units)

	for _, x := range seq {
		if len(x) != len(l.kernel) {
			return nil, ErrShapeMismatch
		}
		copy(z, l.bias)
		for i, xi := range x {
			row := l.kernel[i]
			for j := range z {
				z[j] += xi * row[j]
			}
		}
		for i, hi := range h {
			row := l.recurrent[i]
			for j := range z {
				z[j] += hi * row[j]
			}
		}

		u := l.units
		for k := 0; k < u; k++ {
			in := sigmoid(z[k])
			forget := sigmoid(z[u+k])
			candidate := math.Tanh(z[2*u+k])
			out := sigmoid(z[3*u+k])
			c[k] = forget*c[k] + in*candidate
			h[k] = out * math.Tanh(c[k])
		}
	}
	return h, nil
}

// LSTMModel is a single LSTM layer followed by a dense stack ending in one unit.
type LSTMModel struct {
	steps  int
	lstm   lstmLayer
	layers []denseLayer
}

func (m *LSTMModel) PredictSequence(seq [][]float64) (float64, error) {
	if len(seq) != m.steps {
		return 0, ErrShapeMismatch
	}
	h, err := m.lstm.forward(seq)
	if err != nil {
		return 0, err
	}
	return runDense(m.layers, h)
}
