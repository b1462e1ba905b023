package ml

import (
	"errors"
	"fmt"
	"os"
)

// DataPreprocessor fits min/max bounds over a training dataset and applies
// them, the way the scaler used during training did.
type DataPreprocessor struct {
	bounds *Bounds
}

func (p *DataPreprocessor) LoadDataset(path string) ([]FeatureVector, error) {
	if path == "" {
		return nil, errors.New("dataset path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTrainingRows(file)
}

func (p *DataPreprocessor) ComputeStats(features []FeatureVector) error {
	bounds, err := FitBounds(features)
	if err != nil {
		return err
	}
	p.bounds = &bounds
	return nil
}

func (p *DataPreprocessor) Normalize(features []FeatureVector) ([][FeatureCount]float64, error) {
	if len(features) == 0 {
		return nil, errors.New("features is empty")
	}
	if p.bounds == nil {
		return nil, errors.New("feature stats not computed")
	}
	vectors := make([][FeatureCount]float64, len(features))
	for i, feature := range features {
		vectors[i] = Normalize(feature, *p.bounds)
	}
	return vectors, nil
}

func (p *DataPreprocessor) Bounds() (Bounds, bool) {
	if p.bounds == nil {
		return Bounds{}, false
	}
	return *p.bounds, true
}

// FitBounds returns the per-feature minimum and maximum of features.
func FitBounds(features []FeatureVector) (Bounds, error) {
	if len(features) == 0 {
		return Bounds{}, errors.New("features is empty")
	}
	var bounds Bounds
	for i, f := range features {
		values := f.Values()
		if i == 0 {
			bounds.Min = values
			bounds.Max = values
			continue
		}
		for j, value := range values {
			if value < bounds.Min[j] {
				bounds.Min[j] = value
			}
			if value > bounds.Max[j] {
				bounds.Max[j] = value
			}
		}
	}
	if err := bounds.Validate(); err != nil {
		return Bounds{}, fmt.Errorf("fitted bounds: %w", err)
	}
	return bounds, nil
}

// BoundsDrift returns, per feature, how far b has moved from ref on each
// corner, expressed as a fraction of ref's range.
func BoundsDrift(ref, b Bounds) [FeatureCount][2]float64 {
	var drift [FeatureCount][2]float64
	for i := 0; i < FeatureCount; i++ {
		span := ref.Max[i] - ref.Min[i]
		drift[i][0] = (b.Min[i] - ref.Min[i]) / span
		drift[i][1] = (b.Max[i] - ref.Max[i]) / span
	}
	return drift
}
