package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse_forecast/internal/api"
	"greenhouse_forecast/internal/bootstrap"
	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/ws"
)

func testMux(t *testing.T, frontendDir string) (*httptest.Server, *ws.Hub) {
	t.Helper()
	engine, err := bootstrap.NewEngine(bootstrap.Artifacts{}, forecast.DefaultConfig())
	require.NoError(t, err)
	hub := ws.NewHub()
	srv := httptest.NewServer(newMux(engine, hub, forecast.Listeners{ws.NewBridge(hub)}, frontendDir))
	t.Cleanup(srv.Close)
	return srv, hub
}

func TestNewMux_Routes(t *testing.T) {
	srv, _ := testMux(t, "")

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := json.Marshal(api.PredictRequest{Sequence: [][]float64{{600, 1, 60, 200, 24}}, FutureSteps: 2})
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/api/forecast", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var f api.ForecastResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&f))
	assert.Len(t, f.Predictions, 2)
}

func TestNewMux_BroadcastsHTTPResultsToDashboards(t *testing.T) {
	srv, hub := testMux(t, "")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var env ws.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, ws.TypeEngineInfo, env.Type)
	require.Equal(t, 1, hub.ClientCount())

	body, err := json.Marshal(api.PredictRequest{Sequence: [][]float64{{600, 1, 60, 200, 24}}})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/predict", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, ws.TypePredictUpdate, env.Type)
}

func TestNewMux_ServesFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>greenhouse</h1>"), 0o644))
	srv, _ := testMux(t, dir)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewMux_MissingFrontendDir(t *testing.T) {
	srv, _ := testMux(t, filepath.Join(t.TempDir(), "missing"))

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
