package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"greenhouse_forecast/internal/api"
	"greenhouse_forecast/internal/forecast"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and answers forecast requests.
// Replies go to the requesting client only; the listener (usually a Bridge)
// sees every successful result.
type Handler struct {
	hub      *Hub
	engine   *forecast.Engine
	listener forecast.Listener
}

func NewHandler(hub *Hub, engine *forecast.Engine, listener forecast.Listener) *Handler {
	if listener == nil {
		listener = forecast.Listeners(nil)
	}
	return &Handler{hub: hub, engine: engine, listener: listener}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendEngineInfo(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		if reply := h.handleMessage(msg); reply != nil && !c.trySend(reply) {
			log.Printf("WebSocket client buffer full, dropping reply")
		}
	}
}

// handleMessage runs one request and returns the encoded reply.
func (h *Handler) handleMessage(msg []byte) []byte {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return h.errorReply("", fmt.Errorf("invalid message: %w", err), http.StatusBadRequest)
	}

	switch env.Type {
	case TypeForecastRequest:
		req, err := decodePayload(env)
		if err != nil {
			return h.errorReply(env.ID, err, api.StatusFor(err))
		}
		res, err := h.engine.Forecast(req)
		if err != nil {
			return h.errorReply(env.ID, err, api.StatusFor(err))
		}
		h.listener.OnForecast(res)
		return h.reply(TypeForecastResult, env.ID, api.ForecastFromResult(res))

	case TypePredictRequest:
		req, err := decodePayload(env)
		if err != nil {
			return h.errorReply(env.ID, err, api.StatusFor(err))
		}
		res, err := h.engine.PredictNext(req)
		if err != nil {
			return h.errorReply(env.ID, err, api.StatusFor(err))
		}
		h.listener.OnPrediction(res)
		return h.reply(TypePredictResult, env.ID, api.PredictionFromResult(res))

	default:
		log.Printf("Unknown message type: %s", env.Type)
		return h.errorReply(env.ID, fmt.Errorf("unknown message type %q", env.Type), http.StatusBadRequest)
	}
}

func decodePayload(env Envelope) (forecast.Request, error) {
	var p api.PredictRequest
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return forecast.Request{}, &api.ValidationError{Problems: []string{fmt.Sprintf("invalid %s payload: %v", env.Type, err)}}
		}
	}
	return p.EngineRequest()
}

func (h *Handler) reply(msgType, id string, payload any) []byte {
	msg, err := newReply(msgType, id, payload)
	if err != nil {
		log.Printf("Error marshaling %s: %v", msgType, err)
		return nil
	}
	return msg
}

func (h *Handler) errorReply(id string, err error, status int) []byte {
	return h.reply(TypeError, id, ErrorPayload{Status: status, Error: err.Error()})
}

func (h *Handler) sendEngineInfo(c *Client) {
	msg, err := NewEnvelope(TypeEngineInfo, EngineInfoFromConfig(h.engine.Config()))
	if err != nil {
		log.Printf("Error creating engine:info message: %v", err)
		return
	}
	c.trySend(msg)
}
