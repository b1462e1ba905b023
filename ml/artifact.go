package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CurrentFormatVersion is the artifact layout this package reads and writes.
const CurrentFormatVersion = 1

const (
	ModelTypeLSTM  = "lstm"
	ModelTypeDense = "dense"
)

// LSTMSpec holds LSTM weights exported from Keras.
type LSTMSpec struct {
	Units           int         `json:"units"`
	Kernel          [][]float64 `json:"kernel"`
	RecurrentKernel [][]float64 `json:"recurrent_kernel"`
	Bias            []float64   `json:"bias"`
}

type DenseSpec struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation,omitempty"`
}

// Artifact is a trained model together with the normalization bounds it was
// trained against. The two are versioned as one unit.
type Artifact struct {
	FormatVersion int         `json:"format_version"`
	Name          string      `json:"name"`
	Version       string      `json:"version"`
	ModelType     string      `json:"model_type"`
	TimeSteps     int         `json:"time_steps,omitempty"`
	Features      []string    `json:"features"`
	Bounds        *Bounds     `json:"bounds,omitempty"`
	LSTM          *LSTMSpec   `json:"lstm,omitempty"`
	Dense         []DenseSpec `json:"dense"`

	// BoundsDefaulted is set by LoadArtifact when the file had no bounds.
	BoundsDefaulted bool `json:"-"`
}

func LoadArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	if artifact.Bounds == nil {
		defaults := DefaultBounds()
		artifact.Bounds = &defaults
		artifact.BoundsDefaulted = true
	}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return &artifact, nil
}

// Validate checks metadata and bounds. Weight shapes are checked when the
// model is built.
func (a *Artifact) Validate() error {
	if a.FormatVersion != CurrentFormatVersion {
		return fmt.Errorf("unsupported format version %d", a.FormatVersion)
	}
	if a.TimeSteps < 0 {
		return errors.New("time_steps must not be negative")
	}
	names := FeatureNames()
	if len(a.Features) != len(names) {
		return fmt.Errorf("expected features %v, got %v", names, a.Features)
	}
	for i, name := range names {
		if a.Features[i] != name {
			return fmt.Errorf("expected features %v, got %v", names, a.Features)
		}
	}
	if a.Bounds == nil {
		return fmt.Errorf("%w: missing", ErrInvalidBounds)
	}
	return a.Bounds.Validate()
}

// SetBounds replaces the stored bounds, e.g. after re-fitting them from the
// training dataset.
func (a *Artifact) SetBounds(b Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}
	a.Bounds = &b
	a.BoundsDefaulted = false
	return nil
}

func (a *Artifact) Steps() int {
	if a.TimeSteps == 0 {
		return 1
	}
	return a.TimeSteps
}

// Save writes the artifact to path through a temporary file and a rename so
// readers never see a partial file.
func (a *Artifact) Save(path string) error {
	if err := a.Validate(); err != nil {
		return err
	}
	out := *a
	if out.BoundsDefaulted {
		out.Bounds = nil
	}
	payload, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
