// Package server provides HTTP health probes and graceful shutdown for the
// bestiary HTTP front end.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// DefaultCheckTimeout bounds a full /healthz run.
const DefaultCheckTimeout = 5 * time.Second

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the response from health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Uptime    string        `json:"uptime,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker is a function that performs a health check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves liveness, readiness and full health probes.
type HealthServer struct {
	mu        sync.RWMutex
	checks    map[string]HealthChecker
	version   string
	timeout   time.Duration
	startedAt time.Time
	ready     bool
	live      bool
}

// HealthConfig configures the health server.
type HealthConfig struct {
	Version string
	Timeout time.Duration
}

// NewHealthServer creates a new health server. It starts live and not ready.
func NewHealthServer(config *HealthConfig) *HealthServer {
	s := &HealthServer{
		checks:    make(map[string]HealthChecker),
		timeout:   DefaultCheckTimeout,
		startedAt: time.Now(),
		live:      true,
	}
	if config != nil {
		s.version = config.Version
		if config.Timeout > 0 {
			s.timeout = config.Timeout
		}
	}
	return s
}

// RegisterCheck adds or replaces a named health check.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// SetReady marks the server as ready to accept traffic.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// SetLive marks the server as live (or not).
func (s *HealthServer) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

// Mount registers the probe routes on mux.
func (s *HealthServer) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /livez", s.handleLive)
}

// Handler returns a standalone handler serving only the probe routes.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Mount(mux)
	return mux
}

// Check runs every registered check concurrently and aggregates the result.
// Checks are reported in name order.
func (s *HealthServer) Check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		names = append(names, k)
		checks[k] = v
	}
	version := s.version
	s.mu.RUnlock()
	sort.Strings(names)

	results := make([]HealthCheck, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			check := checks[name](ctx)
			check.Name = name
			results[i] = check
		}(i, name)
	}
	wg.Wait()

	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Checks:    results,
	}
	for _, check := range results {
		if check.Status == HealthStatusUnhealthy {
			response.Status = HealthStatusUnhealthy
		} else if check.Status == HealthStatusDegraded && response.Status == HealthStatusHealthy {
			response.Status = HealthStatusDegraded
		}
	}
	return response
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := s.Check(r.Context())

	statusCode := http.StatusOK
	if response.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	probe(w, ready)
}

func (s *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	live := s.live
	s.mu.RUnlock()
	probe(w, live)
}

func probe(w http.ResponseWriter, ok bool) {
	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
	}
	if !ok {
		response.Status = HealthStatusUnhealthy
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// LLMHealthChecker reports on the text-generation endpoint. With a nil
// checkFn it only reports whether a provider is configured; an unreachable
// provider degrades the service rather than failing it.
func LLMHealthChecker(providerName string, checkFn func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if providerName == "" {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: "no LLM provider configured",
			}
		}
		details := map[string]string{"provider": providerName}
		if checkFn == nil {
			return HealthCheck{
				Status:  HealthStatusHealthy,
				Message: "LLM provider configured: " + providerName,
				Details: details,
			}
		}

		if err := checkFn(ctx); err != nil {
			return HealthCheck{
				Status:  HealthStatusDegraded,
				Message: "LLM provider degraded: " + err.Error(),
				Details: details,
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "LLM provider OK",
			Details: details,
		}
	}
}

// ConfigHealthChecker degrades the service while configuration warnings
// are outstanding.
func ConfigHealthChecker(warnings []string) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if len(warnings) == 0 {
			return HealthCheck{Status: HealthStatusHealthy, Message: "configuration OK"}
		}
		details := make(map[string]string, len(warnings))
		for i, w := range warnings {
			details["warning_"+strconv.Itoa(i+1)] = w
		}
		return HealthCheck{
			Status:  HealthStatusDegraded,
			Message: "configuration has warnings",
			Details: details,
		}
	}
}

// CollectionHealthChecker reports the in-memory collection size.
func CollectionHealthChecker(size func() int) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "collection in memory",
			Details: map[string]string{"creatures": strconv.Itoa(size())},
		}
	}
}
