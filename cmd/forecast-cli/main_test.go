package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse_forecast/internal/api"
	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/ingest"
	"greenhouse_forecast/internal/model"
)

func parse(t *testing.T, csv string) *ingest.Table {
	t.Helper()
	table, err := ingest.NewGreenhouseParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	return table
}

func TestBuildRequest_Soil(t *testing.T) {
	noSoil := parse(t, "cppm,hr,temp\n600,60,20\n620,64,21\n")
	withSoil := parse(t, "cppm,hr,temp,soil\n600,60,20,35\n620,64,21,38\n")

	tests := []struct {
		name  string
		table *ingest.Table
		flag  float64
		want  float64
	}{
		{"flag wins", withSoil, 50, 50},
		{"soil column", withSoil, -1, 38},
		{"humidity fallback", noSoil, -1, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := buildRequest(tt.table, tt.flag, 6)
			assert.Equal(t, tt.want, req.SoilMoisture)
			assert.Equal(t, 6, req.FutureSteps)
			assert.Len(t, req.Window, 2)
		})
	}
}

func testResult() *forecast.Result {
	em := model.ErrorMetrics{MAE: 1.5, MSE: 2.25, RMSE: 1.5, R2: 0}
	return &forecast.Result{
		Predictions: []model.ForecastStep{
			{Hour: 1, Temperature: 24.5, Humidity: 61, CO2: 610, SoilMoisture: 40},
			{Hour: 2, Temperature: 25, Humidity: 62, CO2: 615, SoilMoisture: 40},
		},
		ErrorMetrics: &em,
		Risk: model.RiskAssessment{
			Score:           15,
			Label:           model.RiskLow,
			Confidence:      85,
			Recommendations: []string{"Overwatering risk"},
		},
	}
}

func TestWriteForecast_Formats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeForecast(&buf, testResult(), "csv"))
	assert.Equal(t, "hour,temperature,humidity,co2,soil_moisture\n"+
		"1,24.50,61.00,610.00,40.00\n"+
		"2,25.00,62.00,615.00,40.00\n", buf.String())

	buf.Reset()
	require.NoError(t, writeForecast(&buf, testResult(), "json"))
	var resp api.ForecastResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Len(t, resp.Predictions, 2)
	assert.Equal(t, 15, resp.RiskScore)

	buf.Reset()
	require.NoError(t, writeForecast(&buf, testResult(), "table"))
	out := buf.String()
	assert.Contains(t, out, "Risk         15 (Low), confidence 85%")
	assert.Contains(t, out, "Advice       Overwatering risk")
	assert.Contains(t, out, "MAE 1.50")

	assert.Error(t, writeForecast(&buf, testResult(), "xml"))
}

func TestWritePrediction_Formats(t *testing.T) {
	res := &forecast.PredictionResult{
		Predicted:    model.FeatureVector{700, 2, 80, 300, 24},
		SoilMoisture: 50,
		Risk:         model.RiskAssessment{Score: 20, Label: model.RiskLow, Confidence: 80, Anomaly: true},
		AutoAction:   model.ActionDehumidifier,
	}

	var buf bytes.Buffer
	require.NoError(t, writePrediction(&buf, res, "csv"))
	assert.Equal(t, "temperature,humidity,co2,radiation,wind,soil_moisture,auto_action\n"+
		"24.00,80.00,700.00,300.00,2.00,50.00,Activate dehumidifier\n", buf.String())

	buf.Reset()
	require.NoError(t, writePrediction(&buf, res, "table"))
	assert.Contains(t, buf.String(), "Action       Activate dehumidifier")
	assert.Contains(t, buf.String(), "Anomaly      yes")

	assert.Error(t, writePrediction(&buf, res, "yaml"))
}
