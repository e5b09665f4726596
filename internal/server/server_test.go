package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opto-ai/opto/internal/config"
	"github.com/opto-ai/opto/internal/di"
	"github.com/opto-ai/opto/internal/modules/advisor"
	"github.com/opto-ai/opto/internal/modules/reference"
	testingpkg "github.com/opto-ai/opto/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith builds a server from a fully wired container. A non-nil
// assistant replaces the disabled chat service.
func newTestServerWith(t *testing.T, assistant advisor.Assistant) *Server {
	t.Helper()
	cfg := &config.Config{
		DataDir:        t.TempDir(),
		Port:           8000,
		DevMode:        true,
		AllowedOrigins: []string{"http://localhost:5173"},
		OpenAI: config.OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: time.Second,
		},
		InferenceLog: config.InferenceLogConfig{
			Enabled:         true,
			RetentionDays:   30,
			CleanupSchedule: "0 0 3 * * *",
		},
	}
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, _, err := di.Wire(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	if assistant != nil {
		container.AdvisorService = advisor.NewService(assistant, container.ReferenceStore, container.Metrics, log)
	}

	return New(Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		AllowedOrigins: cfg.AllowedOrigins,
		Container:      container,
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRootEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "message": "Opto AI Assistant API is running"}, decode(t, w))

	w = do(t, s, "GET", "/ping", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode(t, w)["ping"])

	w = do(t, s, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, reference.Default().Version(), body["reference_version"])
	assert.Equal(t, false, body["assistant"])
}

func TestModuleRoutesAreMounted(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{"GET", "/portfolio-data", "", http.StatusOK},
		{"GET", "/api/reference/assets", "", http.StatusOK},
		{"GET", "/api/reference/scenarios", "", http.StatusOK},
		{"POST", "/api/reference/reload", "", http.StatusOK},
		{"POST", "/api/allocation/metrics", `{"allocations": {"public_bonds": 60, "public_equities": 40}}`, http.StatusOK},
		{"POST", "/api/allocation/optimize", `{"allocations": {"public_bonds": 60, "public_equities": 40}}`, http.StatusOK},
		{"GET", "/api/inference/logs", "", http.StatusOK},
		{"GET", "/api/inference/stats", "", http.StatusOK},
		{"GET", "/api/system/status", "", http.StatusOK},
		{"GET", "/api/system/jobs", "", http.StatusOK},
		{"GET", "/api/system/database/stats", "", http.StatusOK},
		{"GET", "/metrics", "", http.StatusOK},
		{"GET", "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestChatWithoutAPIKey(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/chat", `{
		"messages": [{"role": "user", "content": "Increase bonds to 60%"}],
		"portfolio_data": {"allocations": {"public_bonds": 54, "public_equities": 46}, "metrics": {"return": 7, "yield": 2.9, "volatility": 10}}
	}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])
}

func chatBody(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"messages":       []map[string]string{{"role": "user", "content": content}},
		"portfolio_data": testingpkg.NewPortfolioDataFixture(),
	})
	require.NoError(t, err)
	return string(body)
}

func TestChatToolFlow(t *testing.T) {
	assistant := testingpkg.NewMockAssistant()
	assistant.SetToolCall(advisor.ToolSimulateAllocationChange, `{"asset_class": "public bonds", "new_percentage": 60}`)
	assistant.SetNarration("Bonds are now 60%.", nil)
	s := newTestServerWith(t, assistant)

	w := do(t, s, "POST", "/chat", chatBody(t, "Increase bonds to 60%"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "function_result", body["type"])
	assert.Equal(t, "simulate_allocation_change", body["function_name"])
	assert.Equal(t, map[string]interface{}{"role": "assistant", "content": "Bonds are now 60%."}, body["assistant_message"])

	result := body["result"].(map[string]interface{})
	assert.Equal(t, true, result["resolved"])
	assert.Equal(t, 60.0, result["allocation"].(map[string]interface{})["public_bonds"])

	require.Len(t, assistant.IntentCalls(), 1)
	require.Len(t, assistant.NarrateCalls(), 1)
	assert.Equal(t, assistant.IntentCalls()[0].RequestID, assistant.NarrateCalls()[0].RequestID)

	w = do(t, s, "GET", "/metrics", "")
	assert.Contains(t, w.Body.String(), `opto_chat_requests_total{type="function_result"} 1`)
}

func TestChatDirectReply(t *testing.T) {
	assistant := testingpkg.NewMockAssistant()
	assistant.SetReply("I can simulate allocation changes and stress scenarios.")
	s := newTestServerWith(t, assistant)

	w := do(t, s, "POST", "/chat", chatBody(t, "What can you do?"))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "message", body["type"])
	assert.Empty(t, assistant.NarrateCalls())
}

func TestChatUnknownScenario(t *testing.T) {
	assistant := testingpkg.NewMockAssistant()
	assistant.SetToolCall(advisor.ToolAnalyzeHistoricalScenario, `{"scenario": "tulip_mania"}`)
	s := newTestServerWith(t, assistant)

	w := do(t, s, "POST", "/chat", chatBody(t, "What about the tulip crash?"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/api/system/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, reference.Default().Version(), status.ReferenceVersion)
	assert.Equal(t, "embedded", status.ReferenceSource)
	assert.Equal(t, 2, status.Jobs)
	assert.GreaterOrEqual(t, status.MemoryPercent, 0.0)
}

func TestTriggerJob(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/api/system/jobs/wal_checkpoint", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decode(t, w)["status"])

	w = do(t, s, "POST", "/api/system/jobs/inference_cleanup", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, "GET", "/api/system/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var jobs JobsStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Len(t, jobs.Jobs, 2)
	for _, job := range jobs.Jobs {
		assert.Equal(t, 1, job.Runs, job.Name)
	}

	w = do(t, s, "POST", "/api/system/jobs/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsRecordRoutePattern(t *testing.T) {
	s := newTestServer(t)

	do(t, s, "GET", "/ping", "")
	w := do(t, s, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `opto_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
