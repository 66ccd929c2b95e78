// Package dashboard serves the bestiary JSON API, the live event stream and
// a small embedded web page.
package dashboard

import (
	"log/slog"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/collection"
	"github.com/efebarandurmaz/bestiary/internal/observability"
	"github.com/efebarandurmaz/bestiary/internal/server"
)

// Options carries the services the dashboard fronts. Only Generator may be
// left nil, in which case generation answers 503.
type Options struct {
	Generator  Generator
	Collection *collection.Collection
	Defaults   bestiary.Settings
	Health     *server.HealthServer
	Metrics    *observability.GeneratorMetrics
	Audit      *observability.AuditLogger
	Logger     *slog.Logger
}

// Dashboard ties together all dashboard components.
type Dashboard struct {
	Server  *Server
	Store   *Store
	Hub     *Hub
	Emitter *Emitter
}

// NewEmitterFor builds the history store, hub and emitter. The emitter is
// needed before the generator exists so it can be registered as an observer.
func NewEmitterFor(config *Config) *Emitter {
	return NewEmitter(NewStore(config.HistorySize), NewHub())
}

// New creates a fully wired dashboard around emitter. A nil emitter gets a
// fresh one.
func New(config *Config, emitter *Emitter, opts Options) *Dashboard {
	if config == nil {
		config = DefaultConfig()
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultConfig().PingInterval
	}
	if emitter == nil {
		emitter = NewEmitterFor(config)
	}
	if opts.Collection == nil {
		opts.Collection = collection.New()
	}
	if opts.Defaults == (bestiary.Settings{}) {
		opts.Defaults = bestiary.DefaultSettings()
	}
	if opts.Health == nil {
		opts.Health = server.NewHealthServer(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Dashboard{
		Server:  NewServer(config, opts, emitter.store, emitter.hub, emitter),
		Store:   emitter.store,
		Hub:     emitter.hub,
		Emitter: emitter,
	}
}
