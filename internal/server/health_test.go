package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewHealthServer(t *testing.T) {
	s := NewHealthServer(nil)
	if s == nil {
		t.Fatal("expected non-nil server")
	}
	if s.ready {
		t.Fatal("expected not ready initially")
	}
	if !s.live {
		t.Fatal("expected live initially")
	}
	if s.timeout != DefaultCheckTimeout {
		t.Fatalf("expected default timeout, got %s", s.timeout)
	}
}

func TestNewHealthServer_WithConfig(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "1.0.0"})
	if s.version != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %s", s.version)
	}
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec, resp
}

func TestHealthServer_ReadyProbe(t *testing.T) {
	s := NewHealthServer(nil)
	h := s.Handler()

	rec, resp := get(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", rec.Code)
	}
	if resp.Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", resp.Status)
	}

	s.SetReady(true)
	rec, _ = get(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", rec.Code)
	}
}

func TestHealthServer_LiveProbe(t *testing.T) {
	s := NewHealthServer(nil)
	h := s.Handler()

	rec, _ := get(t, h, "/livez")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	s.SetLive(false)
	rec, _ = get(t, h, "/livez")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthServer_AggregatesChecks(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []HealthStatus
		wantStatus HealthStatus
		wantCode   int
	}{
		{"no checks", nil, HealthStatusHealthy, http.StatusOK},
		{"all healthy", []HealthStatus{HealthStatusHealthy, HealthStatusHealthy}, HealthStatusHealthy, http.StatusOK},
		{"degraded", []HealthStatus{HealthStatusHealthy, HealthStatusDegraded}, HealthStatusDegraded, http.StatusOK},
		{"unhealthy wins", []HealthStatus{HealthStatusDegraded, HealthStatusUnhealthy}, HealthStatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHealthServer(&HealthConfig{Version: "test"})
			for i, st := range tt.statuses {
				st := st
				s.RegisterCheck(string(rune('a'+i)), func(context.Context) HealthCheck {
					return HealthCheck{Status: st}
				})
			}

			rec, resp := get(t, s.Handler(), "/healthz")
			if rec.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, rec.Code)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, resp.Status)
			}
			if resp.Version != "test" {
				t.Errorf("expected version test, got %q", resp.Version)
			}
			if len(resp.Checks) != len(tt.statuses) {
				t.Fatalf("expected %d checks, got %d", len(tt.statuses), len(resp.Checks))
			}
			for i, c := range resp.Checks {
				if want := string(rune('a' + i)); c.Name != want {
					t.Errorf("check %d: expected name %s, got %s", i, want, c.Name)
				}
			}
		})
	}
}

func TestHealthServer_MountAPIRoute(t *testing.T) {
	s := NewHealthServer(nil)
	mux := http.NewServeMux()
	s.Mount(mux)

	rec, resp := get(t, mux, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %s", ct)
	}
}

func TestLLMHealthChecker(t *testing.T) {
	ctx := context.Background()

	if c := LLMHealthChecker("", nil)(ctx); c.Status != HealthStatusUnhealthy {
		t.Errorf("no provider: expected unhealthy, got %s", c.Status)
	}

	c := LLMHealthChecker("anthropic", nil)(ctx)
	if c.Status != HealthStatusHealthy {
		t.Errorf("configured: expected healthy, got %s", c.Status)
	}
	if c.Details["provider"] != "anthropic" {
		t.Errorf("expected provider detail, got %v", c.Details)
	}

	c = LLMHealthChecker("anthropic", func(context.Context) error { return errors.New("timeout") })(ctx)
	if c.Status != HealthStatusDegraded {
		t.Errorf("failing check: expected degraded, got %s", c.Status)
	}
	if c.Message != "LLM provider degraded: timeout" {
		t.Errorf("unexpected message %q", c.Message)
	}

	c = LLMHealthChecker("proxy", func(context.Context) error { return nil })(ctx)
	if c.Status != HealthStatusHealthy || c.Message != "LLM provider OK" {
		t.Errorf("passing check: got %s %q", c.Status, c.Message)
	}
}

func TestConfigHealthChecker(t *testing.T) {
	ctx := context.Background()
	if c := ConfigHealthChecker(nil)(ctx); c.Status != HealthStatusHealthy {
		t.Errorf("expected healthy, got %s", c.Status)
	}

	c := ConfigHealthChecker([]string{"missing key", "bad level"})(ctx)
	if c.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", c.Status)
	}
	if c.Details["warning_2"] != "bad level" {
		t.Errorf("unexpected details %v", c.Details)
	}
}

func TestCollectionHealthChecker(t *testing.T) {
	c := CollectionHealthChecker(func() int { return 7 })(context.Background())
	if c.Details["creatures"] != "7" {
		t.Errorf("expected 7 creatures, got %v", c.Details)
	}
}
