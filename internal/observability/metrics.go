package observability

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/llm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "bestiary"

// Generation outcomes used as the "outcome" label.
const (
	OutcomeCreature   = "creature"
	OutcomeParseError = "parse_error"
	OutcomeUpstream   = "upstream_error"
	OutcomeTransport  = "transport_error"
)

// GeneratorMetrics contains the bestiary Prometheus collectors.
type GeneratorMetrics struct {
	Registry *prometheus.Registry

	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	TokensTotal        *prometheus.CounterVec
	CostUSDTotal       *prometheus.CounterVec
	PortraitsRejected  prometheus.Counter
	CollectionSize     prometheus.Gauge
	HTTPRequestsTotal  *prometheus.CounterVec
}

// NewGeneratorMetrics creates the collectors on a fresh registry.
func NewGeneratorMetrics() *GeneratorMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &GeneratorMetrics{
		Registry: reg,

		GenerationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "total",
			Help:      "Creature generations by model and outcome",
		}, []string{"model", "outcome"}),

		GenerationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Latency of the text endpoint call",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"model"}),

		TokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction",
		}, []string{"model", "direction"}),

		CostUSDTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Estimated spend in US dollars",
		}, []string{"model"}),

		PortraitsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "interpret",
			Name:      "portraits_rejected_total",
			Help:      "svg_portrait values replaced with null",
		}),

		CollectionSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "collection",
			Name:      "size",
			Help:      "Creatures currently in the collection",
		}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status",
		}, []string{"route", "status"}),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *GeneratorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordGeneration records one finished generation call.
func (m *GeneratorMetrics) RecordGeneration(model string, duration time.Duration, inputTokens, outputTokens int, costUSD float64, err error) {
	m.GenerationsTotal.WithLabelValues(model, Outcome(err)).Inc()
	m.GenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil && !isParseOutcome(err) {
		return
	}
	m.TokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.TokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	m.CostUSDTotal.WithLabelValues(model).Add(costUSD)
}

// isParseOutcome reports errors raised after the call itself succeeded, whose
// tokens were still billed.
func isParseOutcome(err error) bool {
	var p *creature.ParseError
	return errors.As(err, &p)
}

// Outcome classifies a generation error for the outcome label.
func Outcome(err error) string {
	var upstream *llm.UpstreamError
	switch {
	case err == nil:
		return OutcomeCreature
	case isParseOutcome(err):
		return OutcomeParseError
	case errors.As(err, &upstream):
		return OutcomeUpstream
	default:
		return OutcomeTransport
	}
}

var (
	globalMetrics *GeneratorMetrics
	metricsOnce   sync.Once
)

// Metrics returns the global metrics instance.
func Metrics() *GeneratorMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewGeneratorMetrics()
	})
	return globalMetrics
}
