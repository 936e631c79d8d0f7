package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
	"github.com/deepgram/pipeview/internal/services"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipelineServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pipeline.ProcessPath {
			http.NotFound(w, r)
			return
		}
		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"final_response":  "echo: " + req.Text,
			"pipeline_stages": []map[string]interface{}{{"agent": "Echo", "output": map[string]int{"x": 1}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestMainServer(t *testing.T) {
	upstream := newPipelineServer(t)
	svcs, err := services.InitializeServicesWithOptions(services.Options{
		Pipeline: pipeline.NewService(upstream.URL, nil),
	})
	require.NoError(t, err)

	server := httptest.NewServer(setupRouter(svcs))
	defer server.Close()

	t.Run("console page", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `id="request-form"`)
		assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "nonce-")
		assert.NotEmpty(t, resp.Cookies())
	})

	t.Run("submit endpoint", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/console/submit", "application/json", strings.NewReader(`{"text": "<hi>"}`))
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body["answer_html"], "echo: &lt;hi&gt;")
		assert.Contains(t, body["stages_html"], "<h3>Echo</h3>")
	})

	t.Run("empty submission", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/console/submit", "application/json", strings.NewReader(`{"text": "  "}`))
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("websocket endpoint", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect to WebSocket: %v", err)
		}
		defer ws.Close()

		require.NoError(t, ws.WriteJSON(map[string]string{"text": "hello"}))
		ws.SetReadDeadline(time.Now().Add(5 * time.Second))

		var event map[string]string
		require.NoError(t, ws.ReadJSON(&event))
		assert.Equal(t, "busy", event["type"])

		event = nil
		require.NoError(t, ws.ReadJSON(&event))
		assert.Equal(t, "result", event["type"])
		assert.Contains(t, event["answer_html"], "echo: hello")
	})

	t.Run("health endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/health")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "disabled", body["redis"])
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "pipeview_pipeline_requests_total")
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/invalid")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
		}
	})
}
