// Package api serves the forecast engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/ingest"
	"greenhouse_forecast/internal/model"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadSize = 10 << 20
)

var errBadRequest = errors.New("bad request")

// Server routes HTTP requests to the engine and notifies a listener of
// every successful result.
type Server struct {
	engine   *forecast.Engine
	parser   ingest.Parser
	listener forecast.Listener
}

func NewServer(engine *forecast.Engine, parser ingest.Parser, listener forecast.Listener) *Server {
	if listener == nil {
		listener = forecast.Listeners(nil)
	}
	return &Server{engine: engine, parser: parser, listener: listener}
}

// Register mounts the API routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("POST /api/forecast", s.handleForecast)
	mux.HandleFunc("POST /api/predict_csv", s.handlePredictCSV)
	mux.HandleFunc("OPTIONS /api/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// Handler returns the API routes wrapped in CORS headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return CORS(mux)
}

// CORS allows requests from any origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.engine.PredictNext(req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.listener.OnPrediction(res)
	writeJSON(w, http.StatusOK, PredictionFromResult(res))
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.forecast(w, req)
}

func (s *Server) handlePredictCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, fmt.Errorf("%w: parsing upload: %w", errBadRequest, err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: no CSV file provided", errBadRequest))
		return
	}
	defer file.Close()

	steps, err := formInt(r, "future_steps")
	if err != nil {
		writeError(w, err)
		return
	}
	soil, err := formFloat(r, "soil_moisture")
	if err != nil {
		writeError(w, err)
		return
	}

	table, err := s.parser.Parse(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if table.Skipped > 0 {
		log.Printf("CSV upload: skipped %d unparseable rows", table.Skipped)
	}
	s.forecast(w, tableRequest(table, soil, steps))
}

func (s *Server) forecast(w http.ResponseWriter, req forecast.Request) {
	res, err := s.engine.Forecast(req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.listener.OnForecast(res)
	writeJSON(w, http.StatusOK, ForecastFromResult(res))
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (forecast.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var body PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return forecast.Request{}, fmt.Errorf("%w: decoding body: %w", errBadRequest, err)
	}
	return body.EngineRequest()
}

func formInt(r *http.Request, key string) (int, error) {
	raw := r.FormValue(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return v, nil
}

func formFloat(r *http.Request, key string) (*float64, error) {
	raw := r.FormValue(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", errBadRequest, key)
	}
	return &v, nil
}

// StatusFor maps an error to its HTTP status: caller mistakes are 400,
// predictor failures 503.
func StatusFor(err error) int {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, errBadRequest),
		errors.Is(err, errMissingSequence),
		model.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPredictionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Forecast request failed: %v", err)
	}
	resp := ErrorResponse{Error: err.Error()}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		resp.Details = vErr.Problems
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
