// Package risk maps environmental readings to an agronomic risk verdict.
package risk

import "greenhouse_forecast/internal/model"

// Conditions are the values a verdict is computed from.
type Conditions struct {
	Temperature  float64 // °C
	Humidity     float64 // %
	CO2          float64 // ppm
	SoilMoisture float64 // %
}

// Comfort bands and sub-scores.
const (
	TempLow      = 18.0
	TempHigh     = 32.0
	HumidityLow  = 45.0
	HumidityHigh = 75.0
	CO2Low       = 400.0
	CO2High      = 1500.0
	SoilLow      = 30.0
	SoilHigh     = 70.0

	scoreTemp     = 25
	scoreHumidity = 20
	scoreCO2Low   = 15
	scoreCO2High  = 20
	scoreSoilLow  = 20
	scoreSoilHigh = 15
)

// Recommendation texts.
const (
	AdviceTemperature  = "Regulate greenhouse temperature"
	AdviceHumidity     = "Adjust humidity levels"
	AdviceCO2Enrich    = "Increase CO₂ enrichment"
	AdviceVentilation  = "Improve ventilation"
	AdviceIrrigation   = "Irrigation required"
	AdviceOverwatering = "Overwatering risk"
)

// Score applies the additive rules and returns the clamped score together
// with recommendations in rule order.
func Score(c Conditions) (int, []string) {
	score := 0
	tips := []string{}

	if c.Temperature < TempLow || c.Temperature > TempHigh {
		score += scoreTemp
		tips = append(tips, AdviceTemperature)
	}

	if c.Humidity < HumidityLow || c.Humidity > HumidityHigh {
		score += scoreHumidity
		tips = append(tips, AdviceHumidity)
	}

	if c.CO2 < CO2Low {
		score += scoreCO2Low
		tips = append(tips, AdviceCO2Enrich)
	} else if c.CO2 > CO2High {
		score += scoreCO2High
		tips = append(tips, AdviceVentilation)
	}

	if c.SoilMoisture < SoilLow {
		score += scoreSoilLow
		tips = append(tips, AdviceIrrigation)
	} else if c.SoilMoisture > SoilHigh {
		score += scoreSoilHigh
		tips = append(tips, AdviceOverwatering)
	}

	return min(max(score, 0), 100), tips
}

// Label buckets a score: <25 Low, <60 Moderate, otherwise High.
func Label(score int) model.RiskLabel {
	switch {
	case score < 25:
		return model.RiskLow
	case score < 60:
		return model.RiskModerate
	default:
		return model.RiskHigh
	}
}

// Evaluate builds the full assessment, including the anomaly flag for c.
func Evaluate(c Conditions) model.RiskAssessment {
	score, tips := Score(c)
	label := Label(score)
	return model.RiskAssessment{
		Score:              score,
		Label:              label,
		Confidence:         max(0, 100-score),
		Recommendations:    tips,
		GreenhouseSuitable: label != model.RiskHigh,
		Anomaly:            IsAnomaly(c),
	}
}

// IsAnomaly flags readings outside the sensor plausibility envelope. The
// thresholds are stricter than the comfort bands and usually indicate a
// faulty sensor or a diverging model.
func IsAnomaly(c Conditions) bool {
	return c.Temperature < -5 || c.Temperature > 45 ||
		c.Humidity < 20 || c.Humidity > 95 ||
		c.CO2 < 200 || c.CO2 > 2500
}

// SuggestAction picks the first matching actuator command. Only one action
// is reported per step, so the order is significant.
func SuggestAction(c Conditions) model.Action {
	switch {
	case c.Temperature > TempHigh:
		return model.ActionCoolingFan
	case c.Temperature < TempLow:
		return model.ActionHeater
	case c.Humidity > HumidityHigh:
		return model.ActionDehumidifier
	case c.Humidity < HumidityLow:
		return model.ActionHumidifier
	default:
		return model.ActionStable
	}
}
