package ws

import (
	"encoding/json"

	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/model"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"` // echoed in the reply
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server payloads reuse api.PredictRequest.

// Server -> Client messages

type FeatureInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Unit  string `json:"unit"`
}

type EngineInfoPayload struct {
	Features       []FeatureInfo `json:"features"`
	SequenceLength int           `json:"sequence_length"`
	DefaultSteps   int           `json:"default_steps"`
	MaxSteps       int           `json:"max_steps"`
	Feedback       string        `json:"feedback"`
	AllowPadding   bool          `json:"allow_padding"`
}

type ErrorPayload struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// Message type constants
const (
	// Client -> Server
	TypeForecastRequest = "forecast:request"
	TypePredictRequest  = "predict:request"

	// Server -> Client
	TypeEngineInfo     = "engine:info"
	TypeForecastResult = "forecast:result"
	TypePredictResult  = "predict:result"
	TypeForecastUpdate = "forecast:update"
	TypePredictUpdate  = "predict:update"
	TypeError          = "error"
)

// NewEnvelope creates a JSON-encoded envelope with the given type and payload.
func NewEnvelope(msgType string, payload any) ([]byte, error) {
	return newReply(msgType, "", payload)
}

func newReply(msgType, id string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = data
	}
	return json.Marshal(env)
}

// EngineInfoFromConfig describes the engine to a newly connected client.
func EngineInfoFromConfig(cfg forecast.Config) EngineInfoPayload {
	features := make([]FeatureInfo, model.NumFeatures)
	for i, name := range model.FeatureNames {
		info := model.FeatureCatalog[model.Feature(i)]
		features[i] = FeatureInfo{Name: name, Label: info.Name, Unit: info.Unit}
	}
	return EngineInfoPayload{
		Features:       features,
		SequenceLength: model.SequenceLength,
		DefaultSteps:   cfg.DefaultSteps,
		MaxSteps:       cfg.MaxSteps,
		Feedback:       string(cfg.Feedback),
		AllowPadding:   cfg.AllowPadding,
	}
}
