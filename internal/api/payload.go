package api

import (
	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/model"
)

// Client -> Server

// PredictRequest is the body of /api/predict and /api/forecast. Either
// Sequence or the manual Temperature, Humidity and CO2 fields are set.
type PredictRequest struct {
	Sequence     [][]float64 `json:"sequence,omitempty"`
	SoilMoisture *float64    `json:"soil_moisture,omitempty"`
	FutureSteps  int         `json:"future_steps,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	CO2         *float64 `json:"co2,omitempty"`
}

// Server -> Client

type ForecastStepPayload struct {
	Hour         int     `json:"hour"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	CO2          float64 `json:"co2"`
	SoilMoisture float64 `json:"soil_moisture"`
}

type MetricSummaryPayload struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Trend string  `json:"trend"`
}

type MetricsPayload struct {
	Temperature  MetricSummaryPayload `json:"temperature"`
	Humidity     MetricSummaryPayload `json:"humidity"`
	CO2          MetricSummaryPayload `json:"co2"`
	SoilMoisture MetricSummaryPayload `json:"soil_moisture"`
}

type ErrorMetricsPayload struct {
	MAE  float64 `json:"mae"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// RiskPayload is embedded in both response kinds.
type RiskPayload struct {
	RiskScore          int      `json:"risk_score"`
	RiskLabel          string   `json:"risk_label"`
	Confidence         int      `json:"confidence"`
	Recommendations    []string `json:"recommendations"`
	GreenhouseSuitable bool     `json:"greenhouse_suitable"`
	Anomaly            bool     `json:"anomaly"`
}

type ForecastResponse struct {
	Success      bool                  `json:"success"`
	Predictions  []ForecastStepPayload `json:"predictions"`
	Metrics      MetricsPayload        `json:"metrics"`
	ErrorMetrics *ErrorMetricsPayload  `json:"error_metrics,omitempty"`
	RiskPayload
}

type PredictionResponse struct {
	Success              bool    `json:"success"`
	PredictedTemperature float64 `json:"predicted_temperature"`
	PredictedHumidity    float64 `json:"predicted_humidity"`
	PredictedCO2         float64 `json:"predicted_co2"`
	PredictedRadiation   float64 `json:"predicted_radiation"`
	PredictedWind        float64 `json:"predicted_wind"`
	PredictedSoil        float64 `json:"predicted_soil"`
	AutoAction           string  `json:"auto_action"`
	RiskPayload
}

type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// ForecastFromResult converts a horizon-mode result to its wire form.
func ForecastFromResult(res *forecast.Result) ForecastResponse {
	steps := make([]ForecastStepPayload, len(res.Predictions))
	for i, s := range res.Predictions {
		steps[i] = ForecastStepPayload{
			Hour:         s.Hour,
			Temperature:  s.Temperature,
			Humidity:     s.Humidity,
			CO2:          s.CO2,
			SoilMoisture: s.SoilMoisture,
		}
	}

	resp := ForecastResponse{
		Success:     true,
		Predictions: steps,
		Metrics: MetricsPayload{
			Temperature:  summaryPayload(res.Metrics.Temperature),
			Humidity:     summaryPayload(res.Metrics.Humidity),
			CO2:          summaryPayload(res.Metrics.CO2),
			SoilMoisture: summaryPayload(res.Metrics.SoilMoisture),
		},
		RiskPayload: riskPayload(res.Risk),
	}
	if em := res.ErrorMetrics; em != nil {
		resp.ErrorMetrics = &ErrorMetricsPayload{MAE: em.MAE, MSE: em.MSE, RMSE: em.RMSE, R2: em.R2}
	}
	return resp
}

// PredictionFromResult converts a single-step result to its wire form.
func PredictionFromResult(res *forecast.PredictionResult) PredictionResponse {
	return PredictionResponse{
		Success:              true,
		PredictedTemperature: res.Predicted[model.Temperature],
		PredictedHumidity:    res.Predicted[model.Humidity],
		PredictedCO2:         res.Predicted[model.CO2],
		PredictedRadiation:   res.Predicted[model.Radiation],
		PredictedWind:        res.Predicted[model.Wind],
		PredictedSoil:        res.SoilMoisture,
		AutoAction:           string(res.AutoAction),
		RiskPayload:          riskPayload(res.Risk),
	}
}

func summaryPayload(m model.MetricSummary) MetricSummaryPayload {
	return MetricSummaryPayload{Min: m.Min, Max: m.Max, Avg: m.Avg, Trend: string(m.Trend)}
}

func riskPayload(r model.RiskAssessment) RiskPayload {
	recs := r.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return RiskPayload{
		RiskScore:          r.Score,
		RiskLabel:          string(r.Label),
		Confidence:         r.Confidence,
		Recommendations:    recs,
		GreenhouseSuitable: r.GreenhouseSuitable,
		Anomaly:            r.Anomaly,
	}
}
