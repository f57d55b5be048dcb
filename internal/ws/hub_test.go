package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse_forecast/internal/forecast"
)

func TestNewEnvelope(t *testing.T) {
	payload := ErrorPayload{Status: 400, Error: "bad"}

	msg, err := NewEnvelope(TypeError, payload)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, TypeError, env.Type)
	assert.Empty(t, env.ID)

	var parsed ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &parsed))
	assert.Equal(t, payload, parsed)
}

func TestNewEnvelope_NoPayload(t *testing.T) {
	msg, err := NewEnvelope(TypeForecastRequest, nil)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, TypeForecastRequest, env.Type)
	assert.Nil(t, env.Payload)
}

func TestNewReply_EchoesID(t *testing.T) {
	msg, err := newReply(TypeForecastResult, "req-7", map[string]int{"n": 1})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, "req-7", env.ID)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 16)}

	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())

	_, open := <-c.send
	assert.False(t, open)

	// A second unregister is a no-op.
	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()

	c1 := &Client{hub: hub, send: make(chan []byte, 16)}
	c2 := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.Register(c1)
	hub.Register(c2)

	msg := []byte(`{"type":"test"}`)
	hub.Broadcast(msg)

	assert.Equal(t, msg, <-c1.send)
	assert.Equal(t, msg, <-c2.send)
}

func TestHub_BroadcastSkipsFullClients(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	fast := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.Register(slow)
	hub.Register(fast)

	hub.Broadcast([]byte("1"))
	hub.Broadcast([]byte("2"))

	assert.Len(t, slow.send, 1)
	assert.Len(t, fast.send, 2)
}

func TestEngineInfoFromConfig(t *testing.T) {
	info := EngineInfoFromConfig(forecast.DefaultConfig())

	require.Len(t, info.Features, 5)
	assert.Equal(t, "co2", info.Features[0].Name)
	assert.Equal(t, "ppm", info.Features[0].Unit)
	assert.Equal(t, "temperature", info.Features[4].Name)
	assert.Equal(t, "°C", info.Features[4].Unit)
	assert.Equal(t, 10, info.SequenceLength)
	assert.Equal(t, 24, info.DefaultSteps)
	assert.Equal(t, 168, info.MaxSteps)
	assert.Equal(t, "raw", info.Feedback)
	assert.True(t, info.AllowPadding)
}

func TestMessageTypes(t *testing.T) {
	assert.Equal(t, "forecast:request", TypeForecastRequest)
	assert.Equal(t, "predict:request", TypePredictRequest)
	assert.Equal(t, "engine:info", TypeEngineInfo)
	assert.Equal(t, "forecast:result", TypeForecastResult)
	assert.Equal(t, "predict:result", TypePredictResult)
	assert.Equal(t, "forecast:update", TypeForecastUpdate)
	assert.Equal(t, "predict:update", TypePredictUpdate)
	assert.Equal(t, "error", TypeError)
}
