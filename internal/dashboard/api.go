package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/collection"
	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/generator"
	"github.com/efebarandurmaz/bestiary/internal/observability"
	"github.com/efebarandurmaz/bestiary/internal/server"
)

//go:embed static
var staticFS embed.FS

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 4 << 20

// Generator is the part of the generation service the API needs.
type Generator interface {
	GenerateFromSettings(ctx context.Context, s bestiary.Settings) (*generator.Result, error)
}

// Config holds dashboard server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigin   string
	HistorySize  int
	PingInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:   ":8080",
		CORSOrigin:   "*",
		HistorySize:  DefaultHistorySize,
		PingInterval: 30 * time.Second,
	}
}

// Server is the bestiary HTTP front end.
type Server struct {
	config     *Config
	gen        Generator
	collection *collection.Collection
	defaults   bestiary.Settings
	store      *Store
	hub        *Hub
	emitter    *Emitter
	health     *server.HealthServer
	metrics    *observability.GeneratorMetrics
	audit      *observability.AuditLogger
	logger     *slog.Logger
	server     *http.Server
}

// NewServer creates the server and its routes.
func NewServer(config *Config, opts Options, store *Store, hub *Hub, emitter *Emitter) *Server {
	s := &Server{
		config:     config,
		gen:        opts.Generator,
		collection: opts.Collection,
		defaults:   opts.Defaults,
		store:      store,
		hub:        hub,
		emitter:    emitter,
		health:     opts.Health,
		metrics:    opts.Metrics,
		audit:      opts.Audit,
		logger:     opts.Logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryEntry)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/collection", s.handleListCollection)
	mux.HandleFunc("POST /api/collection", s.handleAddCreature)
	mux.HandleFunc("DELETE /api/collection", s.handleClearCollection)
	mux.HandleFunc("POST /api/collection/import", s.handleImport)
	mux.HandleFunc("GET /api/collection/export", s.handleExportCollection)
	mux.HandleFunc("GET /api/collection/{id}", s.handleGetCreature)
	mux.HandleFunc("DELETE /api/collection/{id}", s.handleRemoveCreature)
	mux.HandleFunc("GET /api/collection/{id}/export", s.handleExportCreature)
	mux.HandleFunc("GET /api/events", s.handleSSE)

	s.health.Mount(mux)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /", http.FileServerFS(static))

	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	s.server = &http.Server{
		Addr:              config.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// HTTPServer exposes the underlying server for shutdown hooks.
func (s *Server) HTTPServer() *http.Server { return s.server }

// Start serves until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting bestiary server", "addr", s.config.ListenAddr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping bestiary server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, bestiary.FullCatalog(s.defaults))
}

// handleGenerate handles POST /api/generate. Missing settings take the
// configured defaults. A reply that is not JSON is still a 200: the result
// carries parse_error and raw_text.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var settings bestiary.Settings
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&settings)
	if err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid settings body: "+err.Error())
		return
	}
	settings = settings.WithDefaults(s.defaults)

	if s.gen == nil {
		respondError(w, http.StatusServiceUnavailable, generator.ErrNoProvider.Error())
		return
	}

	res, err := s.gen.GenerateFromSettings(r.Context(), settings)
	if err != nil {
		var serr *generator.SettingsError
		if errors.As(err, &serr) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Warn("generation failed", "model", settings.Model, "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	respondJSON(w, http.StatusOK, s.store.List(limit))
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "generation not found")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	stats.Collection = s.collection.Len()
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListCollection(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.collection.List())
}

func (s *Server) handleAddCreature(w http.ResponseWriter, r *http.Request) {
	var c creature.Creature
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.collection.Add(&c)
	if err != nil {
		s.audit.LogCollection(observability.AuditEventCollectionAdd, "", c.Name(), err)
		if errors.Is(err, collection.ErrDuplicate) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.audit.LogCollection(observability.AuditEventCollectionAdd, entry.ID, entry.Name(), nil)
	s.collectionChanged()
	s.emitter.CollectionAdded(entry)
	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetCreature(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.collection.Get(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, collection.ErrNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRemoveCreature(w http.ResponseWriter, r *http.Request) {
	entry, err := s.collection.Remove(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	s.audit.LogCollection(observability.AuditEventCollectionDrop, entry.ID, entry.Name(), nil)
	s.collectionChanged()
	s.emitter.CollectionRemoved(entry)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCollection(w http.ResponseWriter, r *http.Request) {
	s.collection.Clear()
	s.collectionChanged()
	s.emitter.CollectionCleared()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	added, skipped, err := s.collection.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(added) > 0 {
		s.collectionChanged()
		for _, entry := range added {
			s.emitter.CollectionAdded(entry)
		}
	}
	respondJSON(w, http.StatusOK, map[string]int{"added": len(added), "skipped": skipped})
}

func (s *Server) handleExportCollection(w http.ResponseWriter, r *http.Request) {
	creatures := s.collection.Creatures()
	attachment(w, collection.CollectionFilename)
	if err := collection.WriteAll(w, creatures); err != nil {
		s.logger.Error("collection export failed", "error", err)
		return
	}
	s.audit.LogExport(collection.CollectionFilename, len(creatures))
}

func (s *Server) handleExportCreature(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.collection.Get(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, collection.ErrNotFound.Error())
		return
	}

	name := collection.CreatureFilename(entry.Creature)
	attachment(w, name)
	if err := collection.WriteCreature(w, entry.Creature); err != nil {
		s.logger.Error("creature export failed", "id", entry.ID, "error", err)
		return
	}
	s.audit.LogExport(name, 1)
}

// handleSSE handles GET /api/events.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	client, err := NewClient(w, s.config.CORSOrigin)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.hub.Register(client)
	defer s.hub.Unregister(client)
	s.logger.Debug("SSE client connected", "clients", s.hub.ClientCount())

	data, _ := json.Marshal(&Event{Type: EventConnected, Timestamp: time.Now()})
	client.Send(data)

	client.Serve(r.Context().Done(), s.config.PingInterval)
	s.logger.Debug("SSE client disconnected")
}

func (s *Server) collectionChanged() {
	if s.metrics != nil {
		s.metrics.CollectionSize.Set(float64(s.collection.Len()))
	}
}

func attachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.config.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
