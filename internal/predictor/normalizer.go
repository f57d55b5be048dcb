package predictor

import (
	"encoding/json"
	"fmt"
	"math"

	"greenhouse_forecast/internal/model"
)

// Normalizer holds per-feature z-score parameters.
//
// Mean and Std are indexed by model.Feature. Inputs MUST be in the order the
// parameters were fitted on ({co2, wind, humidity, radiation, temperature}).
// The normalizer cannot detect a swapped column: a CSV exposing columns in
// another order silently corrupts every prediction downstream, so callers
// map columns by name before building rows.
type Normalizer struct {
	Mean [model.NumFeatures]float64 `json:"mean"`
	Std  [model.NumFeatures]float64 `json:"std"`
}

// FitNormalizer computes population mean and standard deviation per feature
// from a reference dataset.
func FitNormalizer(rows []model.FeatureVector) (Normalizer, error) {
	if len(rows) == 0 {
		return Normalizer{}, model.ErrEmptyWindow
	}
	n := float64(len(rows))

	var norm Normalizer
	for _, r := range rows {
		for f := range r {
			norm.Mean[f] += r[f]
		}
	}
	for f := range norm.Mean {
		norm.Mean[f] /= n
	}

	var variance [model.NumFeatures]float64
	for _, r := range rows {
		for f := range r {
			d := r[f] - norm.Mean[f]
			variance[f] += d * d
		}
	}
	for f := range variance {
		norm.Std[f] = math.Sqrt(variance[f] / n)
		// Guard against zero std.
		if norm.Std[f] < 1e-10 {
			norm.Std[f] = 1
		}
	}
	return norm, nil
}

// IsZero reports whether no parameters were set.
func (n Normalizer) IsZero() bool {
	return n == Normalizer{}
}

// Validate rejects parameters that would produce non-finite outputs.
func (n Normalizer) Validate() error {
	for f := 0; f < model.NumFeatures; f++ {
		name := model.Feature(f).String()
		if math.IsNaN(n.Mean[f]) || math.IsInf(n.Mean[f], 0) {
			return fmt.Errorf("normalizer mean for %s is not finite", name)
		}
		if !(n.Std[f] > 0) || math.IsInf(n.Std[f], 0) {
			return fmt.Errorf("normalizer std for %s must be positive, got %v", name, n.Std[f])
		}
	}
	return nil
}

// NormalizeVector maps one row from physical units to standardized units.
func (n Normalizer) NormalizeVector(v model.FeatureVector) model.FeatureVector {
	var out model.FeatureVector
	for f := range v {
		out[f] = (v[f] - n.Mean[f]) / n.Std[f]
	}
	return out
}

// DenormalizeVector maps one row from standardized units back to physical units.
func (n Normalizer) DenormalizeVector(v model.FeatureVector) model.FeatureVector {
	var out model.FeatureVector
	for f := range v {
		out[f] = v[f]*n.Std[f] + n.Mean[f]
	}
	return out
}

// Normalize returns a new window in standardized units.
func (n Normalizer) Normalize(window []model.FeatureVector) []model.FeatureVector {
	out := make([]model.FeatureVector, len(window))
	for i, v := range window {
		out[i] = n.NormalizeVector(v)
	}
	return out
}

// Denormalize returns a new window in physical units.
func (n Normalizer) Denormalize(window []model.FeatureVector) []model.FeatureVector {
	out := make([]model.FeatureVector, len(window))
	for i, v := range window {
		out[i] = n.DenormalizeVector(v)
	}
	return out
}

// NormalizeRows is Normalize for untyped rows. Fails with *model.ShapeError
// when a row is not NumFeatures wide.
func (n Normalizer) NormalizeRows(rows [][]float64) ([][]float64, error) {
	w, err := model.WindowFromRows(rows)
	if err != nil {
		return nil, err
	}
	return model.Rows(n.Normalize(w)), nil
}

// DenormalizeRows is Denormalize for untyped rows.
func (n Normalizer) DenormalizeRows(rows [][]float64) ([][]float64, error) {
	w, err := model.WindowFromRows(rows)
	if err != nil {
		return nil, err
	}
	return model.Rows(n.Denormalize(w)), nil
}

// LoadNormalizer deserializes normalizer parameters from JSON.
func LoadNormalizer(data []byte) (Normalizer, error) {
	var n Normalizer
	if err := json.Unmarshal(data, &n); err != nil {
		return Normalizer{}, err
	}
	if err := n.Validate(); err != nil {
		return Normalizer{}, err
	}
	return n, nil
}
