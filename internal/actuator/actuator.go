// Package actuator publishes forecast verdicts to greenhouse controllers over MQTT.
package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/model"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 32
)

// Publisher is the subset of mqtt.Client the actuator needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type Config struct {
	ActionTopic string // single-step actuator commands
	StatusTopic string // retained horizon risk status
	QoS         byte
}

// Command is published for every single-step prediction that may drive
// actuators.
type Command struct {
	Action       string  `json:"action"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	CO2          float64 `json:"co2"`
	SoilMoisture float64 `json:"soil_moisture"`
	RiskScore    int     `json:"risk_score"`
	Timestamp    string  `json:"timestamp"`
}

// Status summarizes a horizon forecast.
type Status struct {
	Horizon            int      `json:"horizon"`
	RiskScore          int      `json:"risk_score"`
	RiskLabel          string   `json:"risk_label"`
	Confidence         int      `json:"confidence"`
	GreenhouseSuitable bool     `json:"greenhouse_suitable"`
	Anomaly            bool     `json:"anomaly"`
	AvgTemperature     float64  `json:"avg_temperature"`
	AvgHumidity        float64  `json:"avg_humidity"`
	AvgCO2             float64  `json:"avg_co2"`
	Recommendations    []string `json:"recommendations"`
	Timestamp          string   `json:"timestamp"`
}

type outbound struct {
	topic    string
	retained bool
	payload  []byte
}

// Actuator implements forecast.Listener. Commands are only sent for
// predictions that are suitable and not anomalous. Listener callbacks only
// enqueue; Start drains the queue to the broker. Messages are dropped when
// the queue is full.
type Actuator struct {
	pub   Publisher
	cfg   Config
	now   func() time.Time
	queue chan outbound
}

func New(pub Publisher, cfg Config) *Actuator {
	return &Actuator{pub: pub, cfg: cfg, now: time.Now, queue: make(chan outbound, queueSize)}
}

// Start publishes queued messages until ctx is cancelled.
func (a *Actuator) Start(ctx context.Context) {
	log.Println("Actuator: publisher started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Actuator: publisher stopped")
			return
		case msg := <-a.queue:
			if err := a.send(msg); err != nil {
				log.Printf("Actuator: %v", err)
			}
		}
	}
}

func (a *Actuator) OnPrediction(res *forecast.PredictionResult) {
	if a.cfg.ActionTopic == "" {
		return
	}
	if res.Risk.Anomaly || !res.Risk.GreenhouseSuitable {
		log.Printf("Actuator: holding %q (risk %s, anomaly %t)", res.AutoAction, res.Risk.Label, res.Risk.Anomaly)
		return
	}

	cmd := Command{
		Action:       string(res.AutoAction),
		Temperature:  res.Predicted[model.Temperature],
		Humidity:     res.Predicted[model.Humidity],
		CO2:          res.Predicted[model.CO2],
		SoilMoisture: res.SoilMoisture,
		RiskScore:    res.Risk.Score,
		Timestamp:    a.timestamp(),
	}
	a.enqueue(a.cfg.ActionTopic, false, cmd)
}

func (a *Actuator) OnForecast(res *forecast.Result) {
	if a.cfg.StatusTopic == "" {
		return
	}
	recs := res.Risk.Recommendations
	if recs == nil {
		recs = []string{}
	}
	status := Status{
		Horizon:            len(res.Predictions),
		RiskScore:          res.Risk.Score,
		RiskLabel:          string(res.Risk.Label),
		Confidence:         res.Risk.Confidence,
		GreenhouseSuitable: res.Risk.GreenhouseSuitable,
		Anomaly:            res.Risk.Anomaly,
		AvgTemperature:     res.Metrics.Temperature.Avg,
		AvgHumidity:        res.Metrics.Humidity.Avg,
		AvgCO2:             res.Metrics.CO2.Avg,
		Recommendations:    recs,
		Timestamp:          a.timestamp(),
	}
	a.enqueue(a.cfg.StatusTopic, true, status)
}

func (a *Actuator) enqueue(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Actuator: marshaling message for %s: %v", topic, err)
		return
	}
	select {
	case a.queue <- outbound{topic: topic, retained: retained, payload: payload}:
	default:
		log.Printf("Actuator: queue full, dropping message for %s", topic)
	}
}

func (a *Actuator) send(msg outbound) error {
	token := a.pub.Publish(msg.topic, a.cfg.QoS, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out after %s", msg.topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", msg.topic, err)
	}
	return nil
}

func (a *Actuator) timestamp() string {
	return a.now().UTC().Format(time.RFC3339)
}
