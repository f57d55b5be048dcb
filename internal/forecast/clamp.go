package forecast

import "greenhouse_forecast/internal/model"

// Bounds is an inclusive physical range.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp returns v limited to [b.Min, b.Max].
func (b Bounds) Clamp(v float64) float64 {
	return min(max(v, b.Min), b.Max)
}

// Contains reports whether v lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// FeatureBounds are the plausible ranges applied to every denormalized prediction.
var FeatureBounds = [model.NumFeatures]Bounds{
	model.CO2:         {350, 2000},
	model.Wind:        {0, 20},
	model.Humidity:    {30, 90},
	model.Radiation:   {0, 1200},
	model.Temperature: {5, 40},
}

// SoilBounds limits the exogenous soil moisture value.
var SoilBounds = Bounds{0, 100}

// TempSmoothingWeight is the weight of the new prediction in the
// temperature blend; the remainder goes to the last observed temperature.
const TempSmoothingWeight = 0.7

// ClampVector limits every feature of v to FeatureBounds.
func ClampVector(v model.FeatureVector) model.FeatureVector {
	var out model.FeatureVector
	for f := range v {
		out[f] = FeatureBounds[f].Clamp(v[f])
	}
	return out
}

// ClampSoil limits soil moisture to SoilBounds.
func ClampSoil(v float64) float64 {
	return SoilBounds.Clamp(v)
}

// SmoothTemperature blends a predicted temperature with the last observed one.
func SmoothTemperature(predicted, lastObserved float64) float64 {
	return TempSmoothingWeight*predicted + (1-TempSmoothingWeight)*lastObserved
}
