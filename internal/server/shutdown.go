package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// DefaultShutdownTimeout bounds the whole hook run.
const DefaultShutdownTimeout = 10 * time.Second

// ShutdownHook is a function called during shutdown.
type ShutdownHook struct {
	Name     string
	Priority int // lower runs first
	Fn       func(ctx context.Context) error
}

// ShutdownHandler runs registered hooks in priority order once its context
// is cancelled.
type ShutdownHandler struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration
	health  *HealthServer
	logger  *slog.Logger
	once    sync.Once
	err     error
}

// NewShutdownHandler creates a handler. A non-nil health server is marked
// not ready as soon as shutdown starts.
func NewShutdownHandler(timeout time.Duration, health *HealthServer, logger *slog.Logger) *ShutdownHandler {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ShutdownHandler{timeout: timeout, health: health, logger: logger}
}

// Register adds a hook.
func (s *ShutdownHandler) Register(hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
	sort.SliceStable(s.hooks, func(i, j int) bool {
		return s.hooks[i].Priority < s.hooks[j].Priority
	})
}

// Wait blocks until ctx is done, then runs the hooks.
func (s *ShutdownHandler) Wait(ctx context.Context) error {
	<-ctx.Done()
	return s.Shutdown()
}

// Shutdown runs every hook once, even when earlier hooks fail, and returns
// the joined errors. Later calls return the first result.
func (s *ShutdownHandler) Shutdown() error {
	s.once.Do(func() {
		if s.health != nil {
			s.health.SetReady(false)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.mu.Lock()
		hooks := make([]ShutdownHook, len(s.hooks))
		copy(hooks, s.hooks)
		s.mu.Unlock()

		var errs []error
		for _, hook := range hooks {
			start := time.Now()
			if err := hook.Fn(ctx); err != nil {
				s.logger.Warn("shutdown hook failed", "hook", hook.Name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
				continue
			}
			s.logger.Debug("shutdown hook done", "hook", hook.Name, "duration", time.Since(start))
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

// HTTPServerShutdownHook stops srv from accepting connections and drains it.
func HTTPServerShutdownHook(name string, srv *http.Server) ShutdownHook {
	return ShutdownHook{
		Name:     name,
		Priority: 10,
		Fn:       srv.Shutdown,
	}
}

// TracingShutdownHook flushes and stops the trace exporter.
func TracingShutdownHook(shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{
		Name:     "tracing",
		Priority: 80,
		Fn:       shutdownFn,
	}
}

// AuditLoggerShutdownHook closes the audit log last so shutdown events are kept.
func AuditLoggerShutdownHook(closeFn func() error) ShutdownHook {
	return ShutdownHook{
		Name:     "audit-logger",
		Priority: 95,
		Fn: func(context.Context) error {
			return closeFn()
		},
	}
}
