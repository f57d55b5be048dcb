// Package metrics aggregates forecast trajectories. All functions are pure;
// calling them twice on the same input yields identical results.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"greenhouse_forecast/internal/model"
)

// TrendOf compares the first and last value of a series. Series with fewer
// than two points are stable.
func TrendOf(series []float64) model.Trend {
	if len(series) < 2 {
		return model.TrendStable
	}
	first, last := series[0], series[len(series)-1]
	switch {
	case last > first:
		return model.TrendIncreasing
	case last < first:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// Summarize computes min, max, mean and trend of a series. An empty series
// yields a zero stable summary.
func Summarize(series []float64) model.MetricSummary {
	if len(series) == 0 {
		return model.MetricSummary{Trend: model.TrendStable}
	}
	lo, hi := series[0], series[0]
	var sum float64
	for _, v := range series {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	return model.MetricSummary{
		Min:   lo,
		Max:   hi,
		Avg:   sum / float64(len(series)),
		Trend: TrendOf(series),
	}
}

// SummarizeSteps summarizes every reported feature of a trajectory.
func SummarizeSteps(steps []model.ForecastStep) model.Metrics {
	temp := make([]float64, len(steps))
	hum := make([]float64, len(steps))
	co2 := make([]float64, len(steps))
	soil := make([]float64, len(steps))
	for i, s := range steps {
		temp[i] = s.Temperature
		hum[i] = s.Humidity
		co2[i] = s.CO2
		soil[i] = s.SoilMoisture
	}
	return model.Metrics{
		Temperature:  Summarize(temp),
		Humidity:     Summarize(hum),
		CO2:          Summarize(co2),
		SoilMoisture: Summarize(soil),
	}
}

var ErrNoOverlap = errors.New("no overlapping points to compare")

// Compare computes point accuracy of predicted against actual over the first
// min(len(actual), len(predicted)) points.
//
// R² is 1 - SSres/SStot. When actual is constant, R² is 1 for a perfect fit
// and 0 otherwise.
func Compare(actual, predicted []float64) (model.ErrorMetrics, error) {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return model.ErrorMetrics{}, ErrNoOverlap
	}
	actual, predicted = actual[:n], predicted[:n]

	var mean float64
	for _, a := range actual {
		mean += a
	}
	mean /= float64(n)

	var absSum, ssRes, ssTot float64
	for i := range actual {
		d := actual[i] - predicted[i]
		absSum += math.Abs(d)
		ssRes += d * d
		t := actual[i] - mean
		ssTot += t * t
	}

	mse := ssRes / float64(n)
	var r2 float64
	switch {
	case ssTot > 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	}

	em := model.ErrorMetrics{
		MAE:  absSum / float64(n),
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		R2:   r2,
	}
	if math.IsNaN(em.MSE) || math.IsInf(em.MSE, 0) {
		return model.ErrorMetrics{}, fmt.Errorf("error metrics are not finite")
	}
	return em, nil
}
