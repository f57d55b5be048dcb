package model

// ForecastStep is one reported step of a horizon forecast.
type ForecastStep struct {
	Hour         int // 1-based
	Temperature  float64
	Humidity     float64
	CO2          float64
	SoilMoisture float64
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// MetricSummary aggregates one feature across the forecast horizon.
type MetricSummary struct {
	Min   float64
	Max   float64
	Avg   float64
	Trend Trend
}

// Metrics holds a MetricSummary per reported feature.
type Metrics struct {
	Temperature  MetricSummary
	Humidity     MetricSummary
	CO2          MetricSummary
	SoilMoisture MetricSummary
}

// ErrorMetrics compares two series point by point.
type ErrorMetrics struct {
	MAE  float64
	MSE  float64
	RMSE float64
	R2   float64
}

type RiskLabel string

const (
	RiskLow      RiskLabel = "Low"
	RiskModerate RiskLabel = "Moderate"
	RiskHigh     RiskLabel = "High"
)

// RiskAssessment is the verdict of the rule engine.
type RiskAssessment struct {
	Score              int // 0-100
	Label              RiskLabel
	Confidence         int // 100 - Score
	Recommendations    []string
	GreenhouseSuitable bool
	Anomaly            bool
}

// Action is a suggested actuator command.
type Action string

const (
	ActionCoolingFan   Action = "Turn ON cooling fan"
	ActionHeater       Action = "Turn ON heater"
	ActionDehumidifier Action = "Activate dehumidifier"
	ActionHumidifier   Action = "Activate humidifier"
	ActionStable       Action = "Stable"
)
