package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse_forecast/internal/model"
	"greenhouse_forecast/internal/predictor"
)

// stubPredictor returns a fixed normalized vector and records its inputs.
type stubPredictor struct {
	next    model.FeatureVector
	failAt  int // 1-based call that fails; 0 never fails
	calls   int
	windows [][]model.FeatureVector
}

func (s *stubPredictor) PredictNext(window []model.FeatureVector) (model.FeatureVector, error) {
	s.calls++
	w := make([]model.FeatureVector, len(window))
	copy(w, window)
	s.windows = append(s.windows, w)
	if s.failAt > 0 && s.calls >= s.failAt {
		return model.FeatureVector{}, errors.New("backend offline")
	}
	return s.next, nil
}

// testNorm maps physical x to (x-10)/2 for every feature.
var testNorm = predictor.Normalizer{
	Mean: model.FeatureVector{10, 10, 10, 10, 10},
	Std:  model.FeatureVector{2, 2, 2, 2, 2},
}

func constantWindow(v model.FeatureVector) []model.FeatureVector {
	w := make([]model.FeatureVector, model.SequenceLength)
	for i := range w {
		w[i] = v
	}
	return w
}

func TestRoller_WindowLengthInvariant(t *testing.T) {
	window := constantWindow(model.FeatureVector{800, 3, 60, 400, 22})
	r, err := NewRoller(testNorm, predictor.PersistencePredictor{}, window, 50, DefaultConfig())
	require.NoError(t, err)

	for i := 1; i <= 40; i++ {
		s, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, i, s.Hour)
		assert.Len(t, r.Window(), model.SequenceLength)
	}
}

func TestRoller_PredictorSeesNormalizedWindow(t *testing.T) {
	stub := &stubPredictor{}
	window := constantWindow(model.FeatureVector{14, 14, 14, 14, 14})
	r, err := NewRoller(testNorm, stub, window, 50, DefaultConfig())
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)
	require.Len(t, stub.windows, 1)
	for _, v := range stub.windows[0] {
		assert.Equal(t, model.FeatureVector{2, 2, 2, 2, 2}, v)
	}
}

func TestRoller_FeedbackSources(t *testing.T) {
	// Normalized 20 denormalizes to 50: clamps co2, wind and temperature.
	predNorm := model.FeatureVector{20, 20, 20, 20, 20}
	raw := model.FeatureVector{50, 50, 50, 50, 50}
	clamped := ClampVector(raw)
	start := model.FeatureVector{800, 3, 60, 400, 30}

	tests := []struct {
		name     string
		source   FeedbackSource
		smooth   bool
		expected model.FeatureVector
	}{
		{"raw", FeedbackRaw, false, raw},
		{"clamped", FeedbackClamped, false, clamped},
		{"normalized", FeedbackNormalized, false, predNorm},
		{
			"raw smoothed", FeedbackRaw, true,
			model.FeatureVector{50, 50, 50, 50, SmoothTemperature(50, 30)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Feedback = tt.source
			cfg.SmoothFeedback = tt.smooth

			r, err := NewRoller(testNorm, &stubPredictor{next: predNorm}, constantWindow(start), 50, cfg)
			require.NoError(t, err)

			s, err := r.Next()
			require.NoError(t, err)

			assert.Equal(t, raw, s.Raw)
			w := r.Window()
			assert.Equal(t, tt.expected, w[len(w)-1])
			assert.Equal(t, start, w[len(w)-2])

			// Reported values do not depend on the feedback source.
			assert.InDelta(t, 0.7*40+0.3*30, s.Reported[model.Temperature], 1e-12)
			assert.Equal(t, 50.0, s.Reported[model.Humidity])
			assert.Equal(t, 20.0, s.Reported[model.Wind])
			assert.Equal(t, 350.0, s.Reported[model.CO2])
		})
	}
}

func TestRoller_SmoothsAgainstNewestRow(t *testing.T) {
	// Persistence with raw feedback: each step reports 0.7*T + 0.3*T = T.
	window := constantWindow(model.FeatureVector{800, 3, 60, 400, 22})
	window[model.SequenceLength-1][model.Temperature] = 30
	r, err := NewRoller(testNorm, predictor.PersistencePredictor{}, window, 50, DefaultConfig())
	require.NoError(t, err)

	s, err := r.Next()
	require.NoError(t, err)
	assert.InDelta(t, 30.0, s.Reported[model.Temperature], 1e-9)
}

func TestRoller_ReportedTemperatureStaysInBounds(t *testing.T) {
	// Observed 60°C is outside the plausible range and the predictor keeps
	// pushing further out; raw feedback carries the unclamped values.
	window := constantWindow(model.FeatureVector{800, 3, 60, 400, 60})
	r, err := NewRoller(testNorm, driftUp{}, window, 50, DefaultConfig())
	require.NoError(t, err)

	steps, err := r.Run(20)
	require.NoError(t, err)
	for _, s := range steps {
		for f, v := range s.Reported {
			assert.True(t, FeatureBounds[f].Contains(v), "hour %d %s=%.2f", s.Hour, model.Feature(f), v)
		}
	}
	assert.Greater(t, steps[19].Raw[model.Temperature], 60.0)
}

type driftUp struct{}

func (driftUp) PredictNext(window []model.FeatureVector) (model.FeatureVector, error) {
	next := window[len(window)-1]
	for f := range next {
		next[f] += 1
	}
	return next, nil
}

func TestRoller_TemperatureIsExponentiallySmoothed(t *testing.T) {
	// Normalized 5 is 20°C physical; the window starts at 30°C.
	stub := &stubPredictor{next: model.FeatureVector{5, 5, 5, 5, 5}}
	r, err := NewRoller(testNorm, stub, constantWindow(model.FeatureVector{800, 3, 60, 400, 30}), 50, DefaultConfig())
	require.NoError(t, err)

	steps, err := r.Run(3)
	require.NoError(t, err)
	first := 0.7*20 + 0.3*30
	second := 0.7*20 + 0.3*first
	third := 0.7*20 + 0.3*second
	assert.InDelta(t, first, steps[0].Reported[model.Temperature], 1e-9)
	assert.InDelta(t, second, steps[1].Reported[model.Temperature], 1e-9)
	assert.InDelta(t, third, steps[2].Reported[model.Temperature], 1e-9)
}

func TestRoller_SmoothsAgainstPreviousReport(t *testing.T) {
	// The second step blends against the first reported value, not against
	// the 20°C now at the end of the window.
	stub := &stubPredictor{next: model.FeatureVector{5, 5, 5, 5, 5}}
	r, err := NewRoller(testNorm, stub, constantWindow(model.FeatureVector{800, 3, 60, 400, 30}), 50, DefaultConfig())
	require.NoError(t, err)

	steps, err := r.Run(2)
	require.NoError(t, err)
	assert.InDelta(t, 23.0, steps[0].Reported[model.Temperature], 1e-9)
	assert.InDelta(t, 20.9, steps[1].Reported[model.Temperature], 1e-9)
	assert.Equal(t, 20.0, r.Window()[model.SequenceLength-1][model.Temperature])
}

func TestRoller_SeedTemperatureIsClamped(t *testing.T) {
	// Blending against the unclamped 45°C would report 41.5.
	window := constantWindow(model.FeatureVector{800, 3, 60, 400, 45})
	r, err := NewRoller(testNorm, predictor.PersistencePredictor{}, window, 50, DefaultConfig())
	require.NoError(t, err)

	s, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 45.0, s.Raw[model.Temperature])
	assert.InDelta(t, 40.0, s.Reported[model.Temperature], 1e-9)
}

func TestRoller_RejectsSmoothedNormalizedFeedback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Feedback = FeedbackNormalized
	cfg.SmoothFeedback = true
	_, err := NewRoller(testNorm, predictor.PersistencePredictor{}, constantWindow(model.FeatureVector{}), 50, cfg)
	assert.ErrorIs(t, err, errSmoothNormalized)
}

func TestRoller_ClampsSoil(t *testing.T) {
	r, err := NewRoller(testNorm, predictor.PersistencePredictor{}, constantWindow(model.FeatureVector{}), 250, DefaultConfig())
	require.NoError(t, err)
	s, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 100.0, s.SoilMoisture)
}

func TestRoller_PredictorFailure(t *testing.T) {
	stub := &stubPredictor{failAt: 3}
	r, err := NewRoller(testNorm, stub, constantWindow(model.FeatureVector{}), 50, DefaultConfig())
	require.NoError(t, err)

	steps, err := r.Run(5)
	assert.Nil(t, steps)
	assert.ErrorIs(t, err, model.ErrPredictionUnavailable)
	assert.ErrorContains(t, err, "step 3")
	assert.ErrorContains(t, err, "backend offline")
	assert.Equal(t, 3, stub.calls, "no retry after failure")
}

func TestRoller_RequiresFullWindow(t *testing.T) {
	_, err := NewRoller(testNorm, predictor.PersistencePredictor{}, make([]model.FeatureVector, 3), 50, DefaultConfig())
	var dataErr *model.InsufficientDataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestRoller_DoesNotAliasInput(t *testing.T) {
	window := constantWindow(model.FeatureVector{800, 3, 60, 400, 22})
	r, err := NewRoller(testNorm, &stubPredictor{next: model.FeatureVector{1, 1, 1, 1, 1}}, window, 50, DefaultConfig())
	require.NoError(t, err)
	_, err = r.Run(3)
	require.NoError(t, err)
	assert.Equal(t, model.FeatureVector{800, 3, 60, 400, 22}, window[model.SequenceLength-1])
}

func TestParseFeedbackSource(t *testing.T) {
	fs, err := ParseFeedbackSource("")
	require.NoError(t, err)
	assert.Equal(t, FeedbackRaw, fs)

	fs, err = ParseFeedbackSource("clamped")
	require.NoError(t, err)
	assert.Equal(t, FeedbackClamped, fs)

	_, err = ParseFeedbackSource("smoothed")
	assert.Error(t, err)
}
