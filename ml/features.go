package ml

import (
	"errors"
	"fmt"
	"math"
)

// FeatureCount is the width of one time step fed to the model.
const FeatureCount = 3

// ErrInvalidBounds reports bounds that are not finite or have max <= min.
var ErrInvalidBounds = errors.New("invalid normalization bounds")

// FeatureVector is one set of raw inputs for a delivery: courier age,
// courier rating and distance in kilometres.
type FeatureVector struct {
	Age      int     `json:"age"`
	Rating   float64 `json:"rating"`
	Distance float64 `json:"distance"`
}

// Values returns the components in model input order.
func (v FeatureVector) Values() [FeatureCount]float64 {
	return [FeatureCount]float64{float64(v.Age), v.Rating, v.Distance}
}

// InBounds reports whether every component lies inside the bound range.
func (v FeatureVector) InBounds(b Bounds) bool {
	values := v.Values()
	for i, value := range values {
		if value < b.Min[i] || value > b.Max[i] {
			return false
		}
	}
	return true
}

// FeatureNames lists the features in model input order, as stored in
// artifacts.
func FeatureNames() []string {
	return []string{"age", "rating", "distance"}
}

// Bounds holds the per-feature min/max corners the model was trained with.
type Bounds struct {
	Min [FeatureCount]float64 `json:"min"`
	Max [FeatureCount]float64 `json:"max"`
}

// DefaultBounds are the slider ranges of the UI, used only when an artifact
// carries no bounds of its own.
func DefaultBounds() Bounds {
	return Bounds{
		Min: [FeatureCount]float64{18, 1.0, 0.1},
		Max: [FeatureCount]float64{60, 5.0, 20.0},
	}
}

// Validate checks that every bound is finite and max > min per feature.
func (b Bounds) Validate() error {
	names := FeatureNames()
	for i := 0; i < FeatureCount; i++ {
		lo, hi := b.Min[i], b.Max[i]
		if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
			return fmt.Errorf("%w: %s bound is not finite", ErrInvalidBounds, names[i])
		}
		if hi <= lo {
			return fmt.Errorf("%w: %s max %g <= min %g", ErrInvalidBounds, names[i], hi, lo)
		}
	}
	return nil
}

// Normalize rescales v linearly so that b.Min maps to 0 and b.Max to 1.
// Values outside the bounds are not clamped.
func Normalize(v FeatureVector, b Bounds) [FeatureCount]float64 {
	values := v.Values()
	var out [FeatureCount]float64
	for i, value := range values {
		out[i] = NormalizeFeature(value, b.Min[i], b.Max[i])
	}
	return out
}

// NormalizeFeature maps min to 0 and max to 1 for a single value.
func NormalizeFeature(value, min, max float64) float64 {
	return (value - min) / (max - min)
}
