package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/efebarandurmaz/bestiary/internal/config"
	"github.com/efebarandurmaz/bestiary/internal/generator"
	"github.com/efebarandurmaz/bestiary/internal/llm"
	"github.com/efebarandurmaz/bestiary/internal/llmutil"
	"github.com/efebarandurmaz/bestiary/internal/metrics"
	"github.com/efebarandurmaz/bestiary/internal/observability"
	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	warnings []string
	logger   *slog.Logger
	prices   *pricing.Table
	provider llm.Provider
	tracing  *observability.TracerProvider
	audit    *observability.AuditLogger
	session  *metrics.SessionMetrics
}

// loadConfig reads .env and the config file and builds the logger and
// price table. It does not contact any endpoint.
func loadConfig(configPath, envPath string) (*app, error) {
	if err := config.LoadDotEnv(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = config.Default()
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	prices, err := cfg.PriceTable()
	if err != nil {
		logger.Warn("invalid pricing configuration, using built-in prices", "error", err)
		prices = pricing.DefaultTable()
	}

	return &app{
		cfg:      cfg,
		warnings: cfg.Validate(),
		logger:   logger,
		prices:   prices,
	}, nil
}

// setup loads configuration and starts tracing, auditing and the provider.
func setup(ctx context.Context, configPath, envPath string) (*app, error) {
	a, err := loadConfig(configPath, envPath)
	if err != nil {
		return nil, err
	}

	a.tracing, err = observability.InitTracing(ctx, a.cfg.TracingSetup(version))
	if err != nil {
		a.logger.Warn("tracing disabled", "error", err)
		a.tracing, _ = observability.InitTracing(ctx, nil)
	}

	a.audit, err = observability.NewAuditLogger(a.cfg.AuditSetup())
	if err != nil {
		return nil, err
	}

	a.provider, err = llmutil.NewFactory().Create(a.cfg.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	providerName := "none"
	if a.provider != nil {
		providerName = a.provider.Name()
	}
	a.session = metrics.New(providerName)

	a.logger.Debug("bestiary ready",
		"provider", providerName,
		"default_model", a.prices.DefaultModel(),
		"audit_session", a.audit.SessionID(),
	)
	return a, nil
}

// generator wires the provider with pricing, audit, metrics and the
// session report.
func (a *app) generator(extra ...generator.Option) (*generator.Generator, error) {
	opts := []generator.Option{
		generator.WithPricing(a.prices),
		generator.WithAudit(a.audit),
		generator.WithMetrics(observability.Metrics()),
		generator.WithLogger(a.logger),
		generator.WithObserver(a.session.Observe),
	}
	g, err := generator.New(a.provider, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("%w (set llm.provider in the config or BESTIARY_LLM_PROVIDER)", err)
	}
	return g, nil
}

func (a *app) close(ctx context.Context) {
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}
	if err := a.audit.Close(); err != nil {
		a.logger.Warn("audit close failed", "error", err)
	}
}
