package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jszwec/csvutil"
)

// TrainingRow is one line of the delivery training dataset. Only the model
// inputs are needed to fit bounds; the target column is optional.
type TrainingRow struct {
	Age       int      `csv:"age"`
	Rating    float64  `csv:"rating"`
	Distance  float64  `csv:"distance_km"`
	TimeTaken *float64 `csv:"time_taken_min,omitempty"`
}

func ReadTrainingRows(reader io.Reader) ([]FeatureVector, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("create dataset decoder: %w", err)
	}

	var features []FeatureVector
	for {
		var row TrainingRow
		if err := decoder.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode dataset line %d: %w", len(features)+2, err)
		}
		if math.IsNaN(row.Rating) || math.IsNaN(row.Distance) {
			continue
		}
		features = append(features, FeatureVector{Age: row.Age, Rating: row.Rating, Distance: row.Distance})
	}
	if len(features) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return features, nil
}
