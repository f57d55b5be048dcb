package ws

import (
	"log"

	"greenhouse_forecast/internal/api"
	"greenhouse_forecast/internal/forecast"
)

// Bridge implements forecast.Listener and broadcasts every result to the
// WebSocket hub, so dashboards follow forecasts requested by any client.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnForecast(res *forecast.Result) {
	msg, err := NewEnvelope(TypeForecastUpdate, api.ForecastFromResult(res))
	if err != nil {
		log.Printf("Error marshaling forecast update: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnPrediction(res *forecast.PredictionResult) {
	msg, err := NewEnvelope(TypePredictUpdate, api.PredictionFromResult(res))
	if err != nil {
		log.Printf("Error marshaling prediction update: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
