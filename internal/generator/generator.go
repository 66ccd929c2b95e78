// Package generator runs one creature generation: it calls the text
// endpoint, interprets the reply and prices the call.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/llm"
	"github.com/efebarandurmaz/bestiary/internal/observability"
	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

// ErrNoProvider is returned by New when no text endpoint is configured.
var ErrNoProvider = errors.New("generator: no LLM provider configured")

// Result is the outcome of a generation call that reached the endpoint.
// Exactly one of Creature and ParseError is set.
type Result struct {
	RequestID  string
	Creature   *creature.Creature
	ParseError *creature.ParseError
	RawText    string
	Usage      pricing.Usage
}

// OK reports whether the reply was interpreted into a creature.
func (r *Result) OK() bool { return r.Creature != nil }

type resultJSON struct {
	RequestID  string             `json:"request_id"`
	Creature   *creature.Creature `json:"creature"`
	ParseError *string            `json:"parse_error"`
	RawText    string             `json:"raw_text"`
	Usage      pricing.Usage      `json:"usage"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		RequestID: r.RequestID,
		Creature:  r.Creature,
		RawText:   r.RawText,
		Usage:     r.Usage,
	}
	if r.ParseError != nil {
		msg := r.ParseError.Error()
		out.ParseError = &msg
	}
	return json.Marshal(out)
}

// Generator turns generation requests into interpreted results.
type Generator struct {
	provider  llm.Provider
	prices    *pricing.Table
	audit     *observability.AuditLogger
	metrics   *observability.GeneratorMetrics
	logger    *slog.Logger
	observers []Observer
}

// Option configures a Generator.
type Option func(*Generator)

// WithPricing sets the price table used for usage records.
func WithPricing(t *pricing.Table) Option {
	return func(g *Generator) { g.prices = t }
}

// WithAudit sets the audit logger.
func WithAudit(a *observability.AuditLogger) Option {
	return func(g *Generator) { g.audit = a }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *observability.GeneratorMetrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithObserver registers a callback for generation events.
func WithObserver(o Observer) Option {
	return func(g *Generator) { g.observers = append(g.observers, o) }
}

// New creates a generator around provider.
func New(provider llm.Provider, opts ...Option) (*Generator, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	g := &Generator{
		provider: provider,
		prices:   pricing.DefaultTable(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Provider returns the underlying text endpoint.
func (g *Generator) Provider() llm.Provider { return g.provider }

// Prices returns the price table in use.
func (g *Generator) Prices() *pricing.Table { return g.prices }

// Generate calls the endpoint once. Transport and upstream errors are
// returned as is and nothing is interpreted. A reply that is not JSON is
// not an error: it comes back as a Result with ParseError set.
func (g *Generator) Generate(ctx context.Context, req bestiary.GenerationRequest) (*Result, error) {
	requestID := uuid.NewString()
	providerName := g.provider.Name()

	ctx, span := observability.StartGenerationSpan(ctx, req.Model, req.Temperature)
	defer span.End()

	g.audit.LogGenerationStart(requestID, providerName, req.Model, req.Temperature)
	g.emit(Event{Type: EventStarted, RequestID: requestID, Model: req.Model})
	g.logger.Debug("generation started", "request_id", requestID, "provider", providerName, "model", req.Model)

	temperature := req.Temperature
	maxTokens := bestiary.MaxOutputTokens
	opts := &llm.RequestOptions{
		Model:       req.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	llmCtx, llmSpan := observability.StartLLMSpan(ctx, providerName, req.Model)
	start := time.Now()
	resp, err := g.provider.Complete(llmCtx, llm.NewPrompt(req.SystemPrompt, req.UserMessage), opts)
	latency := time.Since(start)
	if err != nil {
		observability.RecordError(llmSpan, err)
		llmSpan.End()
		observability.RecordError(span, err)

		g.audit.LogLLMError(requestID, providerName, req.Model, latency, err)
		if g.metrics != nil {
			g.metrics.RecordGeneration(req.Model, latency, 0, 0, 0, err)
		}
		g.logger.Warn("generation failed", "request_id", requestID, "model", req.Model, "error", err)
		g.emit(Event{Type: EventFailed, RequestID: requestID, Model: req.Model, Err: err})
		return nil, err
	}
	observability.RecordLLMMetrics(llmSpan, resp.InputTokens, resp.OutputTokens, latency)
	llmSpan.End()

	result := &Result{
		RequestID: requestID,
		RawText:   resp.Content,
		Usage:     pricing.NewUsage(g.prices, req.Model, latency, resp.InputTokens, resp.OutputTokens),
	}
	observability.RecordCost(span, result.Usage.CostUSD)

	_, interpSpan := observability.StartInterpretSpan(ctx, len(resp.Content))
	c, err := creature.Interpret(resp.Content)
	var parseErr *creature.ParseError
	if errors.As(err, &parseErr) {
		result.ParseError = parseErr
		observability.RecordInterpretResult(interpSpan, "", false, parseErr)
	} else {
		result.Creature = c
		observability.RecordInterpretResult(interpSpan, c.Name(), c.SVGPortrait() != "", nil)
	}
	interpSpan.End()

	if g.metrics != nil {
		var outcomeErr error
		if result.ParseError != nil {
			outcomeErr = result.ParseError
		}
		g.metrics.RecordGeneration(req.Model, latency, result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.CostUSD, outcomeErr)
		if c.PortraitRejected() {
			g.metrics.PortraitsRejected.Inc()
		}
	}

	if result.ParseError != nil {
		g.audit.LogParseError(requestID, req.Model, len(resp.Content), result.ParseError)
		g.logger.Warn("generated text is not valid JSON",
			"request_id", requestID,
			"model", req.Model,
			"error", result.ParseError)
		g.emit(Event{Type: EventParseFailed, RequestID: requestID, Model: req.Model, Result: result})
		return result, nil
	}

	g.audit.LogGenerationEnd(requestID, req.Model, c.Name(), latency, result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.CostUSD)
	g.logger.Info("creature generated",
		"request_id", requestID,
		"name", c.Name(),
		"model", req.Model,
		"latency_ms", result.Usage.LatencyMs,
		"tokens", result.Usage.TotalTokens,
		"cost_usd", result.Usage.CostUSD)
	g.emit(Event{Type: EventCompleted, RequestID: requestID, Model: req.Model, Result: result})
	return result, nil
}

// GenerateFromSettings validates settings and generates from them.
func (g *Generator) GenerateFromSettings(ctx context.Context, s bestiary.Settings) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, &SettingsError{Err: err}
	}
	return g.Generate(ctx, bestiary.BuildRequest(s))
}

// SettingsError wraps invalid user settings.
type SettingsError struct {
	Err error
}

func (e *SettingsError) Error() string { return "invalid settings: " + e.Err.Error() }
func (e *SettingsError) Unwrap() error { return e.Err }

func (g *Generator) emit(ev Event) {
	if len(g.observers) == 0 {
		return
	}
	ev.Time = time.Now()
	for _, o := range g.observers {
		o(ev)
	}
}
