// Package forecast rolls a sequence predictor forward over a sensor window
// and turns the trajectory into a forecast with a risk verdict.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"greenhouse_forecast/internal/metrics"
	"greenhouse_forecast/internal/model"
	"greenhouse_forecast/internal/predictor"
	"greenhouse_forecast/internal/risk"
)

// Config holds engine options fixed at start-up.
type Config struct {
	DefaultSteps   int
	MaxSteps       int
	Feedback       FeedbackSource
	SmoothFeedback bool
	AllowPadding   bool
	ErrorMetrics   bool
}

// DefaultConfig returns the production defaults: a 24 step horizon capped
// at one week, raw feedback, padding of short windows and error metrics.
func DefaultConfig() Config {
	return Config{
		DefaultSteps: 24,
		MaxSteps:     168,
		Feedback:     FeedbackRaw,
		AllowPadding: true,
		ErrorMetrics: true,
	}
}

// Request is the input of one forecast call.
type Request struct {
	Window       []model.FeatureVector // oldest first, physical units
	SoilMoisture float64
	FutureSteps  int // 0 selects Config.DefaultSteps
}

// Result is the horizon-mode output.
type Result struct {
	Predictions  []model.ForecastStep
	Metrics      model.Metrics
	ErrorMetrics *model.ErrorMetrics
	Risk         model.RiskAssessment
}

// PredictionResult is the single-step output.
type PredictionResult struct {
	Predicted    model.FeatureVector
	SoilMoisture float64
	Risk         model.RiskAssessment
	AutoAction   model.Action
}

// Engine is immutable after New and safe for concurrent use. Every call
// allocates its own window.
type Engine struct {
	norm predictor.Normalizer
	pred predictor.SequencePredictor
	cfg  Config
}

func New(norm predictor.Normalizer, pred predictor.SequencePredictor, cfg Config) (*Engine, error) {
	if pred == nil {
		return nil, errors.New("forecast: nil predictor")
	}
	if err := norm.Validate(); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if cfg.DefaultSteps < 1 {
		return nil, fmt.Errorf("forecast: default steps must be >= 1, got %d", cfg.DefaultSteps)
	}
	if cfg.MaxSteps < cfg.DefaultSteps {
		return nil, fmt.Errorf("forecast: max steps %d below default %d", cfg.MaxSteps, cfg.DefaultSteps)
	}
	fs, err := ParseFeedbackSource(string(cfg.Feedback))
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if cfg.SmoothFeedback && fs == FeedbackNormalized {
		return nil, fmt.Errorf("forecast: %w", errSmoothNormalized)
	}
	cfg.Feedback = fs
	return &Engine{norm: norm, pred: pred, cfg: cfg}, nil
}

// Config returns the engine options.
func (e *Engine) Config() Config {
	return e.cfg
}

// Forecast rolls the window forward FutureSteps steps.
func (e *Engine) Forecast(req Request) (*Result, error) {
	steps := req.FutureSteps
	if steps == 0 {
		steps = e.cfg.DefaultSteps
	}
	if steps < 1 || steps > e.cfg.MaxSteps {
		return nil, fmt.Errorf("%w: %d steps, allowed 1..%d", model.ErrInvalidHorizon, steps, e.cfg.MaxSteps)
	}

	window, err := model.PrepareWindow(req.Window, e.cfg.AllowPadding)
	if err != nil {
		return nil, err
	}
	roller, err := NewRoller(e.norm, e.pred, window, req.SoilMoisture, e.cfg)
	if err != nil {
		return nil, err
	}
	trajectory, err := roller.Run(steps)
	if err != nil {
		return nil, err
	}

	unrounded := make([]model.ForecastStep, len(trajectory))
	reported := make([]model.ForecastStep, len(trajectory))
	for i, s := range trajectory {
		unrounded[i] = forecastStep(s)
		reported[i] = roundStep(unrounded[i])
	}

	summary := metrics.SummarizeSteps(unrounded)
	res := &Result{
		Predictions: reported,
		Metrics:     roundMetrics(summary, metrics.SummarizeSteps(reported)),
	}

	if e.cfg.ErrorMetrics {
		// Self-consistency only: the observed window precedes the horizon,
		// so this is not an out-of-sample accuracy.
		forecastCO2 := make([]float64, len(unrounded))
		for i, s := range unrounded {
			forecastCO2[i] = s.CO2
		}
		em, err := metrics.Compare(model.Column(window, model.CO2), forecastCO2)
		if err == nil {
			em = roundErrorMetrics(em)
			res.ErrorMetrics = &em
		}
	}

	res.Risk = risk.Evaluate(risk.Conditions{
		Temperature:  summary.Temperature.Avg,
		Humidity:     summary.Humidity.Avg,
		CO2:          summary.CO2.Avg,
		SoilMoisture: summary.SoilMoisture.Avg,
	})
	res.Risk.Anomaly = risk.IsAnomaly(rawConditions(trajectory[len(trajectory)-1]))
	return res, nil
}

// PredictNext predicts a single step and suggests an actuator action.
// FutureSteps is ignored.
func (e *Engine) PredictNext(req Request) (*PredictionResult, error) {
	window, err := model.PrepareWindow(req.Window, e.cfg.AllowPadding)
	if err != nil {
		return nil, err
	}
	roller, err := NewRoller(e.norm, e.pred, window, req.SoilMoisture, e.cfg)
	if err != nil {
		return nil, err
	}
	s, err := roller.Next()
	if err != nil {
		return nil, err
	}

	c := conditionsOf(forecastStep(s))
	var predicted model.FeatureVector
	for f, v := range s.Reported {
		predicted[f] = round2(v)
	}
	assessment := risk.Evaluate(c)
	assessment.Anomaly = risk.IsAnomaly(rawConditions(s))
	return &PredictionResult{
		Predicted:    predicted,
		SoilMoisture: round2(s.SoilMoisture),
		Risk:         assessment,
		AutoAction:   risk.SuggestAction(c),
	}, nil
}

func forecastStep(s Step) model.ForecastStep {
	return model.ForecastStep{
		Hour:         s.Hour,
		Temperature:  s.Reported[model.Temperature],
		Humidity:     s.Reported[model.Humidity],
		CO2:          s.Reported[model.CO2],
		SoilMoisture: s.SoilMoisture,
	}
}

func conditionsOf(s model.ForecastStep) risk.Conditions {
	return risk.Conditions{
		Temperature:  s.Temperature,
		Humidity:     s.Humidity,
		CO2:          s.CO2,
		SoilMoisture: s.SoilMoisture,
	}
}

// rawConditions reads the denormalized prediction before clamping. Clamped
// values never leave the anomaly envelope.
func rawConditions(s Step) risk.Conditions {
	return risk.Conditions{
		Temperature:  s.Raw[model.Temperature],
		Humidity:     s.Raw[model.Humidity],
		CO2:          s.Raw[model.CO2],
		SoilMoisture: s.SoilMoisture,
	}
}

func asUnavailable(err error) error {
	if errors.Is(err, model.ErrPredictionUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrPredictionUnavailable, err)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundStep(s model.ForecastStep) model.ForecastStep {
	s.Temperature = round2(s.Temperature)
	s.Humidity = round2(s.Humidity)
	s.CO2 = round2(s.CO2)
	s.SoilMoisture = round2(s.SoilMoisture)
	return s
}

func roundSummary(m model.MetricSummary) model.MetricSummary {
	m.Min = round2(m.Min)
	m.Max = round2(m.Max)
	m.Avg = round2(m.Avg)
	return m
}

// roundMetrics rounds m and takes the trends from the summary of the
// rounded series, so a trend always matches the reported predictions.
func roundMetrics(m, rounded model.Metrics) model.Metrics {
	out := model.Metrics{
		Temperature:  roundSummary(m.Temperature),
		Humidity:     roundSummary(m.Humidity),
		CO2:          roundSummary(m.CO2),
		SoilMoisture: roundSummary(m.SoilMoisture),
	}
	out.Temperature.Trend = rounded.Temperature.Trend
	out.Humidity.Trend = rounded.Humidity.Trend
	out.CO2.Trend = rounded.CO2.Trend
	out.SoilMoisture.Trend = rounded.SoilMoisture.Trend
	return out
}

func roundErrorMetrics(em model.ErrorMetrics) model.ErrorMetrics {
	return model.ErrorMetrics{
		MAE:  round2(em.MAE),
		MSE:  round2(em.MSE),
		RMSE: round2(em.RMSE),
		R2:   math.Round(em.R2*10000) / 10000,
	}
}
