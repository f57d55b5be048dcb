package model

// Feature indexes a FeatureVector. The order matches the column order the
// normalizer and network were fitted on and must never change.
type Feature int

const (
	CO2 Feature = iota
	Wind
	Humidity
	Radiation
	Temperature
)

// NumFeatures is the width of every row fed to the predictor.
const NumFeatures = 5

// SequenceLength is the number of rows the predictor consumes per call.
const SequenceLength = 10

// FeatureNames maps every Feature to its external name.
var FeatureNames = [NumFeatures]string{
	CO2:         "co2",
	Wind:        "wind",
	Humidity:    "humidity",
	Radiation:   "radiation",
	Temperature: "temperature",
}

// FeatureInfo holds display name and unit for a feature.
type FeatureInfo struct {
	Name string
	Unit string
}

// FeatureCatalog maps every Feature to its display name and unit.
var FeatureCatalog = map[Feature]FeatureInfo{
	CO2:         {Name: "CO₂", Unit: "ppm"},
	Wind:        {Name: "Wind Speed", Unit: "m/s"},
	Humidity:    {Name: "Relative Humidity", Unit: "%"},
	Radiation:   {Name: "Solar Radiation", Unit: "W/m²"},
	Temperature: {Name: "Temperature", Unit: "°C"},
}

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return "unknown"
	}
	return FeatureNames[f]
}

// FeatureVector is one time step in fixed feature order
// {co2, wind, humidity, radiation, temperature}.
type FeatureVector [NumFeatures]float64

// Get returns the value of feature f.
func (v FeatureVector) Get(f Feature) float64 {
	return v[f]
}

// WindowFromRows converts raw rows into feature vectors. Every row must
// carry exactly NumFeatures values in feature order.
func WindowFromRows(rows [][]float64) ([]FeatureVector, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyWindow
	}
	out := make([]FeatureVector, len(rows))
	for i, row := range rows {
		if len(row) != NumFeatures {
			return nil, &ShapeError{Row: i, Width: len(row)}
		}
		copy(out[i][:], row)
	}
	return out, nil
}

// Rows converts feature vectors back into plain rows.
func Rows(window []FeatureVector) [][]float64 {
	out := make([][]float64, len(window))
	for i, v := range window {
		row := make([]float64, NumFeatures)
		copy(row, v[:])
		out[i] = row
	}
	return out
}

// PrepareWindow returns a fresh window of exactly SequenceLength rows, most
// recent last. Longer inputs keep their newest rows. Shorter inputs are
// front-padded with the earliest row when allowPadding is set and rejected
// otherwise.
func PrepareWindow(rows []FeatureVector, allowPadding bool) ([]FeatureVector, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyWindow
	}
	if len(rows) < SequenceLength && !allowPadding {
		return nil, &InsufficientDataError{Have: len(rows), Need: SequenceLength}
	}

	window := make([]FeatureVector, SequenceLength)
	if len(rows) >= SequenceLength {
		copy(window, rows[len(rows)-SequenceLength:])
		return window, nil
	}

	pad := SequenceLength - len(rows)
	for i := 0; i < pad; i++ {
		window[i] = rows[0]
	}
	copy(window[pad:], rows)
	return window, nil
}

// Column extracts one feature across a window.
func Column(window []FeatureVector, f Feature) []float64 {
	out := make([]float64, len(window))
	for i, v := range window {
		out[i] = v[f]
	}
	return out
}
