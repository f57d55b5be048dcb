package api

import (
	"errors"
	"fmt"
	"strings"

	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/ingest"
	"greenhouse_forecast/internal/model"
)

// Range is an accepted interval for a manually entered reading.
type Range struct {
	Min, Max float64
	Label    string
	Unit     string
}

// Manual input limits, wider than the physical clamp applied to predictions.
var (
	TemperatureRange  = Range{Min: -10, Max: 60, Label: "Temperature", Unit: "°C"}
	HumidityRange     = Range{Min: 0, Max: 100, Label: "Humidity", Unit: "%"}
	CO2Range          = Range{Min: 250, Max: 5000, Label: "CO₂", Unit: " ppm"}
	SoilMoistureRange = Range{Min: 0, Max: 100, Label: "Soil moisture", Unit: "%"}
)

func (r Range) check(v float64) string {
	if v < r.Min || v > r.Max {
		return fmt.Sprintf("%s must be between %g%s and %g%s", r.Label, r.Min, r.Unit, r.Max, r.Unit)
	}
	return ""
}

// ValidationError collects every problem found in a request body.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, "; ")
}

var errMissingSequence = errors.New("missing 'sequence' in request")

// EngineRequest turns a decoded body into an engine request.
func (p *PredictRequest) EngineRequest() (forecast.Request, error) {
	if p.Sequence != nil {
		return p.sequenceRequest()
	}
	if p.Temperature != nil || p.Humidity != nil || p.CO2 != nil {
		return p.manualRequest()
	}
	return forecast.Request{}, errMissingSequence
}

func (p *PredictRequest) sequenceRequest() (forecast.Request, error) {
	window, err := model.WindowFromRows(p.Sequence)
	if err != nil {
		return forecast.Request{}, err
	}
	return forecast.Request{
		Window:       window,
		SoilMoisture: soilOrHumidity(p.SoilMoisture, window),
		FutureSteps:  p.FutureSteps,
	}, nil
}

// manualRequest builds a one-row window. Wind and radiation are not
// entered manually and are set to zero.
func (p *PredictRequest) manualRequest() (forecast.Request, error) {
	var problems []string
	value := func(v *float64, r Range) float64 {
		if v == nil {
			problems = append(problems, r.Label+" is required")
			return 0
		}
		if msg := r.check(*v); msg != "" {
			problems = append(problems, msg)
		}
		return *v
	}

	var row model.FeatureVector
	row[model.Temperature] = value(p.Temperature, TemperatureRange)
	row[model.Humidity] = value(p.Humidity, HumidityRange)
	row[model.CO2] = value(p.CO2, CO2Range)
	window := []model.FeatureVector{row}

	if p.SoilMoisture != nil {
		if msg := SoilMoistureRange.check(*p.SoilMoisture); msg != "" {
			problems = append(problems, msg)
		}
	}
	if len(problems) > 0 {
		return forecast.Request{}, &ValidationError{Problems: problems}
	}

	return forecast.Request{
		Window:       window,
		SoilMoisture: soilOrHumidity(p.SoilMoisture, window),
		FutureSteps:  p.FutureSteps,
	}, nil
}

// tableRequest builds an engine request from an uploaded CSV export.
func tableRequest(table *ingest.Table, soil *float64, steps int) forecast.Request {
	if soil == nil {
		if v, ok := table.LastSoil(); ok {
			soil = &v
		}
	}
	return forecast.Request{
		Window:       table.Rows,
		SoilMoisture: soilOrHumidity(soil, table.Rows),
		FutureSteps:  steps,
	}
}

// soilOrHumidity falls back to the newest humidity reading when no soil
// moisture was supplied.
func soilOrHumidity(soil *float64, window []model.FeatureVector) float64 {
	if soil != nil {
		return *soil
	}
	if len(window) == 0 {
		return 0
	}
	return window[len(window)-1][model.Humidity]
}
