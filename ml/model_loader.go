package ml

import (
	"fmt"
)

// LoadModel reads the artifact at path and builds the model it describes.
func LoadModel(path string) (SequenceModel, *Artifact, error) {
	artifact, err := LoadArtifact(path)
	if err != nil {
		return nil, nil, err
	}
	model, err := BuildModel(artifact)
	if err != nil {
		return nil, nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return model, artifact, nil
}

func BuildModel(artifact *Artifact) (SequenceModel, error) {
	switch artifact.ModelType {
	case ModelTypeLSTM:
		if artifact.LSTM == nil {
			return nil, fmt.Errorf("%w: lstm model without lstm weights", ErrShapeMismatch)
		}
		lstm, err := newLSTMLayer(*artifact.LSTM)
		if err != nil {
			return nil, err
		}
		layers, err := buildDenseStack(artifact.Dense, lstm.units)
		if err != nil {
			return nil, err
		}
		return &LSTMModel{steps: artifact.Steps(), lstm: lstm, layers: layers}, nil
	case ModelTypeDense:
		layers, err := buildDenseStack(artifact.Dense, artifact.Steps()*FeatureCount)
		if err != nil {
			return nil, err
		}
		return &FeedForwardModel{steps: artifact.Steps(), layers: layers}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, artifact.ModelType)
	}
}

func buildDenseStack(specs []DenseSpec, inputs int) ([]denseLayer, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no dense layers", ErrShapeMismatch)
	}
	layers := make([]denseLayer, 0, len(specs))
	width := inputs
	for i, spec := range specs {
		layer, err := newDenseLayer(spec)
		if err != nil {
			return nil, fmt.Errorf("dense layer %d: %w", i, err)
		}
		if layer.inputs() != width {
			return nil, fmt.Errorf("%w: dense layer %d takes %d inputs, previous layer yields %d", ErrShapeMismatch, i, layer.inputs(), width)
		}
		width = layer.outputs()
		layers = append(layers, layer)
	}
	if width != 1 {
		return nil, fmt.Errorf("%w: final layer has %d outputs, want 1", ErrShapeMismatch, width)
	}
	return layers, nil
}
