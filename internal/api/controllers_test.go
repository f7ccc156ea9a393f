package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tradefan-core/internal/analysis"
	"tradefan-core/internal/events"
	"tradefan-core/internal/executor"
	"tradefan-core/internal/market"
	"tradefan-core/internal/monitor"
	"tradefan-core/internal/risk"
	"tradefan-core/internal/signal"
	"tradefan-core/pkg/db"
)

// noopEngine satisfies Engine with canned responses.
type noopEngine struct {
	state string
}

func (e *noopEngine) Start(context.Context) error { return nil }
func (e *noopEngine) Stop(context.Context) error  { return nil }
func (e *noopEngine) Pause() bool                 { return true }
func (e *noopEngine) Resume() bool                { return true }
func (e *noopEngine) Reset() bool                 { return false }
func (e *noopEngine) Status() executor.Status {
	return executor.Status{State: e.state}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	bus := events.NewBus()
	pipeline := signal.NewPipeline(signal.DefaultPipelineConfig(),
		market.NewBuffer(10), signal.NewValidator(signal.DefaultValidatorConfig()),
		analysis.NewAnalyzer(nil), bus, nil)

	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	return NewServer(bus, database, &noopEngine{state: "RUNNING"}, pipeline,
		risk.NewChecker(risk.DefaultLimits()), monitor.NewSystemMetrics(),
		SystemMeta{Paper: true, Venue: "binance-spot", Version: "test"},
		"test-secret", Credentials{Username: "operator", PasswordHash: hash})
}

func doLogin(t *testing.T, s *Server, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(gin.H{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, s *Server) string {
	t.Helper()
	w := doLogin(t, s, "operator", "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, expected 200", w.Code)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		username string
		password string
		want     int
	}{
		{name: "valid", username: "operator", password: "secret", want: http.StatusOK},
		{name: "wrong password", username: "operator", password: "nope", want: http.StatusUnauthorized},
		{name: "unknown user", username: "ghost", password: "secret", want: http.StatusUnauthorized},
		{name: "missing fields", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doLogin(t, s, tt.username, tt.password); w.Code != tt.want {
				t.Fatalf("status=%d, expected %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/status", "/api/positions", "/api/signals", "/api/trades", "/api/metrics", "/api/risk"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: status=%d, expected 401", path, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status=%d, expected 401", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["paper"] != true {
		t.Fatalf("paper=%v, expected true", resp["paper"])
	}
	engine, ok := resp["engine"].(map[string]any)
	if !ok || engine["state"] != "RUNNING" {
		t.Fatalf("engine=%v, expected state RUNNING", resp["engine"])
	}
}

func TestEngineControls(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, s)

	tests := []struct {
		path string
		want int
	}{
		{path: "/api/engine/start", want: http.StatusOK},
		{path: "/api/engine/pause", want: http.StatusOK},
		{path: "/api/engine/resume", want: http.StatusOK},
		{path: "/api/engine/stop", want: http.StatusOK},
		{path: "/api/engine/reset", want: http.StatusConflict}, // noop engine refuses reset
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s: status=%d, expected %d (%s)", tt.path, w.Code, tt.want, w.Body.String())
		}
	}
}

func TestTradesEndpointEmpty(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := generateToken("operator", "secret-key", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}
	username, err := parseToken(tok, "secret-key")
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}
	if username != "operator" {
		t.Fatalf("username=%q, expected operator", username)
	}

	if _, err := parseToken(tok, "other-key"); err == nil {
		t.Fatalf("token verified with the wrong secret")
	}

	expired, err := generateToken("operator", "secret-key", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}
	if _, err := parseToken(expired, "secret-key"); err == nil {
		t.Fatalf("expired token accepted")
	}
}
