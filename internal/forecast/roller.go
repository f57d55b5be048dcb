package forecast

import (
	"errors"
	"fmt"

	"greenhouse_forecast/internal/model"
	"greenhouse_forecast/internal/predictor"
)

// FeedbackSource selects the row appended to the window after each step.
type FeedbackSource string

const (
	// FeedbackRaw appends the denormalized prediction before clamping.
	FeedbackRaw FeedbackSource = "raw"
	// FeedbackClamped appends the denormalized prediction after clamping.
	FeedbackClamped FeedbackSource = "clamped"
	// FeedbackNormalized appends the predictor output unchanged. The window
	// is kept in physical units, so this mixes scales; it exists to reproduce
	// the drift of deployments that fed the standardized vector back. It
	// cannot be combined with SmoothFeedback.
	FeedbackNormalized FeedbackSource = "normalized"
)

var errSmoothNormalized = errors.New("smooth feedback cannot be combined with normalized feedback")

// ParseFeedbackSource validates a configured feedback source.
func ParseFeedbackSource(s string) (FeedbackSource, error) {
	switch fs := FeedbackSource(s); fs {
	case FeedbackRaw, FeedbackClamped, FeedbackNormalized:
		return fs, nil
	case "":
		return FeedbackRaw, nil
	default:
		return "", fmt.Errorf("unknown feedback source %q", s)
	}
}

// Step is one iteration of the roll-forward.
type Step struct {
	Hour         int
	Raw          model.FeatureVector // denormalized, unclamped
	Reported     model.FeatureVector // clamped, temperature smoothed
	SoilMoisture float64
}

// Roller owns the sliding window of one forecast. It is not safe for
// concurrent use and must not outlive the request that created it.
type Roller struct {
	norm     predictor.Normalizer
	pred     predictor.SequencePredictor
	feedback FeedbackSource
	smooth   bool
	soil     float64

	window   []model.FeatureVector
	hour     int
	lastTemp float64
}

// NewRoller copies window, which must hold exactly model.SequenceLength rows
// in physical units. The newest row's temperature, clamped, seeds the
// temperature blend; afterwards each step blends against the previously
// reported temperature, so reported values never leave FeatureBounds.
func NewRoller(norm predictor.Normalizer, pred predictor.SequencePredictor, window []model.FeatureVector, soil float64, cfg Config) (*Roller, error) {
	if len(window) != model.SequenceLength {
		return nil, &model.InsufficientDataError{Have: len(window), Need: model.SequenceLength}
	}
	if cfg.SmoothFeedback && cfg.Feedback == FeedbackNormalized {
		return nil, errSmoothNormalized
	}
	w := make([]model.FeatureVector, len(window))
	copy(w, window)
	return &Roller{
		norm:     norm,
		pred:     pred,
		feedback: cfg.Feedback,
		smooth:   cfg.SmoothFeedback,
		soil:     ClampSoil(soil),
		window:   w,
		lastTemp: FeatureBounds[model.Temperature].Clamp(w[len(w)-1][model.Temperature]),
	}, nil
}

// Next predicts one step and advances the window.
func (r *Roller) Next() (Step, error) {
	normalized := r.norm.Normalize(r.window)
	predNorm, err := r.pred.PredictNext(normalized)
	if err != nil {
		return Step{}, fmt.Errorf("step %d: %w", r.hour+1, asUnavailable(err))
	}

	raw := r.norm.DenormalizeVector(predNorm)
	clamped := ClampVector(raw)
	reported := clamped
	reported[model.Temperature] = SmoothTemperature(clamped[model.Temperature], r.lastTemp)

	var next model.FeatureVector
	switch r.feedback {
	case FeedbackClamped:
		next = clamped
	case FeedbackNormalized:
		next = predNorm
	default:
		next = raw
	}
	if r.smooth {
		next[model.Temperature] = SmoothTemperature(next[model.Temperature], r.lastTemp)
	}
	r.lastTemp = reported[model.Temperature]

	copy(r.window, r.window[1:])
	r.window[len(r.window)-1] = next
	r.hour++

	return Step{
		Hour:         r.hour,
		Raw:          raw,
		Reported:     reported,
		SoilMoisture: r.soil,
	}, nil
}

// Run produces n steps.
func (r *Roller) Run(n int) ([]Step, error) {
	steps := make([]Step, 0, n)
	for i := 0; i < n; i++ {
		s, err := r.Next()
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// Window returns a copy of the current window.
func (r *Roller) Window() []model.FeatureVector {
	w := make([]model.FeatureVector, len(r.window))
	copy(w, r.window)
	return w
}
