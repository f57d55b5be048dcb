package predictor

import (
	"encoding/json"
	"fmt"
	"math"

	"greenhouse_forecast/internal/model"
)

// SequencePredictor maps a normalized window to the normalized next row.
// Implementations must be deterministic and safe for concurrent use.
type SequencePredictor interface {
	PredictNext(window []model.FeatureVector) (model.FeatureVector, error)
}

// NetworkPredictor runs a feedforward network over the flattened window.
type NetworkPredictor struct {
	net    *Network
	seqLen int
}

// NewNetworkPredictor wraps net, which must take seqLen*NumFeatures inputs
// and produce NumFeatures outputs.
func NewNetworkPredictor(net *Network, seqLen int) (*NetworkPredictor, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	if want := seqLen * model.NumFeatures; net.InputSize() != want {
		return nil, fmt.Errorf("network takes %d inputs, expected %d for a %d-step window",
			net.InputSize(), want, seqLen)
	}
	if net.OutputSize() != model.NumFeatures {
		return nil, fmt.Errorf("network produces %d outputs, expected %d", net.OutputSize(), model.NumFeatures)
	}
	return &NetworkPredictor{net: net, seqLen: seqLen}, nil
}

// SequenceLength returns the window length the network was built for.
func (p *NetworkPredictor) SequenceLength() int {
	return p.seqLen
}

func (p *NetworkPredictor) PredictNext(window []model.FeatureVector) (model.FeatureVector, error) {
	if len(window) != p.seqLen {
		return model.FeatureVector{}, fmt.Errorf("%w: window has %d rows, network expects %d",
			model.ErrPredictionUnavailable, len(window), p.seqLen)
	}

	input := make([]float64, 0, p.seqLen*model.NumFeatures)
	for _, v := range window {
		input = append(input, v[:]...)
	}

	out := p.net.Forward(input)
	var next model.FeatureVector
	for f, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.FeatureVector{}, fmt.Errorf("%w: non-finite output for %s",
				model.ErrPredictionUnavailable, model.Feature(f))
		}
		next[f] = v
	}
	return next, nil
}

// PersistencePredictor predicts that the next row equals the newest one.
type PersistencePredictor struct{}

func (PersistencePredictor) PredictNext(window []model.FeatureVector) (model.FeatureVector, error) {
	if len(window) == 0 {
		return model.FeatureVector{}, fmt.Errorf("%w: empty window", model.ErrPredictionUnavailable)
	}
	return window[len(window)-1], nil
}

// SavedModel is the JSON-serializable model artifact.
type SavedModel struct {
	Network        *Network   `json:"network"`
	Normalization  Normalizer `json:"normalization"`
	SequenceLength int        `json:"sequence_length"`
}

// Save serializes the predictor together with its normalizer.
func (p *NetworkPredictor) Save(norm Normalizer) ([]byte, error) {
	m := SavedModel{
		Network:        p.net,
		Normalization:  norm,
		SequenceLength: p.seqLen,
	}
	return json.MarshalIndent(m, "", "  ")
}

// LoadModel deserializes a model artifact. The returned Normalizer is the
// zero value when the artifact carries none.
func LoadModel(data []byte) (*NetworkPredictor, Normalizer, error) {
	var m SavedModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, Normalizer{}, err
	}
	if m.Network == nil {
		return nil, Normalizer{}, fmt.Errorf("model artifact has no network")
	}
	if m.SequenceLength == 0 {
		m.SequenceLength = model.SequenceLength
	}
	if m.SequenceLength != model.SequenceLength {
		return nil, Normalizer{}, fmt.Errorf("model artifact window length %d, engine uses %d",
			m.SequenceLength, model.SequenceLength)
	}
	// A zero normalization means the artifact ships without a scaler and
	// the caller fits one from a reference dataset.
	if !m.Normalization.IsZero() {
		if err := m.Normalization.Validate(); err != nil {
			return nil, Normalizer{}, err
		}
	}
	p, err := NewNetworkPredictor(m.Network, m.SequenceLength)
	if err != nil {
		return nil, Normalizer{}, err
	}
	return p, m.Normalization, nil
}
