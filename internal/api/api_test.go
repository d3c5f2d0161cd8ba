package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/evaluator"
	"github.com/gpudc/simulator/internal/leaderboard"
	"github.com/gpudc/simulator/internal/session"
	"github.com/gpudc/simulator/internal/simulator"
	"github.com/gpudc/simulator/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T) *Server {
	t.Helper()
	sim, err := simulator.New(config.Default(), "")
	if err != nil {
		t.Fatalf("simulator.New() error = %v", err)
	}
	t.Cleanup(func() { sim.Close() })

	eval := evaluator.New()
	sess := session.New(sim, eval)
	board := leaderboard.New(t.TempDir() + "/leaderboard.csv")
	broadcaster := telemetry.NewBroadcaster()
	return NewServer(sim, sess, eval, board, broadcaster)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestGetStatus_TicksOnceWhenTelemetryIsEmpty(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if n := len(s.sim.Telemetry.All()); n != 1 {
		t.Errorf("telemetry holds %d states after GET /status, want 1", n)
	}
}

func TestGetThermalRack_UnknownRackReturns404(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/thermal/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /thermal/999 = %d, want 404", rec.Code)
	}
}

func TestPostSimTick_AdvancesAndReturnsStates(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/sim/tick?n=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /sim/tick = %d, want 200", rec.Code)
	}
	var states []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &states); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(states) != 3 {
		t.Errorf("len(states) = %d, want 3", len(states))
	}
}

func TestPostAdjustCooling_ValidBodyReturnsOK(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/actions/adjust_cooling", map[string]any{"rack_id": 0, "setpoint_c": 18})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /actions/adjust_cooling = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestPostMigrateWorkload_UnknownJobReturns404(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/actions/migrate_workload", map[string]any{"job_id": "nonexistent", "target_rack_id": 0})
	if rec.Code != http.StatusNotFound {
		t.Errorf("POST /actions/migrate_workload(unknown job) = %d, want 404", rec.Code)
	}
}

func TestPostMigrateWorkload_MalformedBodyReturns400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/actions/migrate_workload", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
}

func TestSessionLifecycle_StartStepEnd(t *testing.T) {
	s := testServer(t)

	startRec := doRequest(t, s, http.MethodPost, "/eval/session/start/steady_state?agent_name=tester", nil)
	if startRec.Code != http.StatusOK {
		t.Fatalf("POST /eval/session/start = %d, want 200: %s", startRec.Code, startRec.Body.String())
	}

	stepRec := doRequest(t, s, http.MethodPost, "/eval/session/step", nil)
	if stepRec.Code != http.StatusOK {
		t.Fatalf("POST /eval/session/step = %d, want 200: %s", stepRec.Code, stepRec.Body.String())
	}

	statusRec := doRequest(t, s, http.MethodGet, "/eval/session/status", nil)
	var status session.Status
	if err := json.Unmarshal(statusRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Active {
		t.Errorf("session Active = false after start+step")
	}

	endRec := doRequest(t, s, http.MethodPost, "/eval/session/end", nil)
	if endRec.Code != http.StatusOK {
		t.Fatalf("POST /eval/session/end = %d, want 200: %s", endRec.Code, endRec.Body.String())
	}
}

func TestGetEvalScenarios_ListsFivePredefinedScenarios(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/eval/scenarios", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /eval/scenarios = %d, want 200", rec.Code)
	}
	var scenarios []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &scenarios); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(scenarios) != 5 {
		t.Errorf("len(scenarios) = %d, want 5", len(scenarios))
	}
}

func TestGetLeaderboard_EmptyFileReturnsEmptyList(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/eval/leaderboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /eval/leaderboard = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}

func TestMetrics_ExposesPrometheusFormat(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("GET /metrics returned an empty body")
	}
}
