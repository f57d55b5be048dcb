package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"greenhouse_forecast/internal/actuator"
	"greenhouse_forecast/internal/api"
	"greenhouse_forecast/internal/bootstrap"
	"greenhouse_forecast/internal/config"
	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/ingest"
	"greenhouse_forecast/internal/ws"
)

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.Addr, "listen address")
	frontendDir := flag.String("frontend-dir", cfg.FrontendDir, "directory containing frontend build")
	modelPath := flag.String("model", cfg.ModelPath, "path to model JSON (empty = persistence baseline)")
	normPath := flag.String("normalizer", cfg.NormalizerPath, "path to normalizer JSON")
	referenceCSV := flag.String("reference-csv", cfg.ReferenceCSV, "dataset to fit the normalizer on")
	flag.StringVar(&cfg.FeedbackSource, "feedback", cfg.FeedbackSource, "row fed back each step: raw, clamped or normalized")
	flag.BoolVar(&cfg.SmoothFeedback, "smooth-feedback", cfg.SmoothFeedback, "apply temperature smoothing to the fed-back row")
	flag.BoolVar(&cfg.AllowPadding, "allow-padding", cfg.AllowPadding, "pad windows shorter than the sequence length")
	flag.Parse()

	engineCfg, err := cfg.Forecast()
	if err != nil {
		log.Fatalf("Invalid forecast config: %v", err)
	}
	engine, err := bootstrap.NewEngine(bootstrap.Artifacts{
		ModelPath:      *modelPath,
		NormalizerPath: *normPath,
		ReferenceCSV:   *referenceCSV,
	}, engineCfg)
	if err != nil {
		log.Fatalf("Failed to build forecast engine: %v", err)
	}
	log.Printf("Engine ready: horizon %d (max %d), feedback %s",
		engineCfg.DefaultSteps, engineCfg.MaxSteps, engineCfg.Feedback)

	// Set up WebSocket hub and result listeners
	hub := ws.NewHub()
	listeners := forecast.Listeners{ws.NewBridge(hub)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MQTTEnabled() {
		client, err := actuator.Connect(actuator.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			log.Printf("MQTT actuator disabled: %v", err)
		} else {
			defer client.Disconnect(250)
			act := actuator.New(client, actuator.Config{
				ActionTopic: cfg.MQTTTopicAction,
				StatusTopic: cfg.MQTTTopicStatus,
				QoS:         1,
			})
			go act.Start(ctx)
			listeners = append(listeners, act)
		}
	}

	mux := newMux(engine, hub, listeners, *frontendDir)

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, api.CORS(mux)); err != nil {
		log.Fatal(err)
	}
}

// newMux mounts the HTTP API, the WebSocket endpoint and, when present,
// the frontend build.
func newMux(engine *forecast.Engine, hub *ws.Hub, listener forecast.Listener, frontendDir string) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(engine, ingest.NewGreenhouseParser(), listener).Register(mux)
	mux.Handle("/ws", ws.NewHandler(hub, engine, listener))

	// Serve frontend static files
	if frontendDir != "" {
		if _, err := os.Stat(frontendDir); err == nil {
			log.Printf("Serving frontend from %s", frontendDir)
			mux.Handle("/", http.FileServer(http.Dir(frontendDir)))
		}
	}
	return mux
}
