package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/efebarandurmaz/bestiary/internal/generator"
	"github.com/efebarandurmaz/bestiary/internal/observability"
)

// SessionMetrics collects statistics for one CLI or server session.
type SessionMetrics struct {
	mu sync.Mutex

	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at,omitempty"`
	Duration    time.Duration       `json:"duration_ms,omitempty"`
	Provider    string              `json:"provider"`
	Generations []GenerationMetrics `json:"generations"`
	Totals      Totals              `json:"totals"`
	Collected   int                 `json:"collected"`
	Errors      []string            `json:"errors,omitempty"`
}

// GenerationMetrics is one line of the report.
type GenerationMetrics struct {
	RequestID    string  `json:"request_id,omitempty"`
	Model        string  `json:"model"`
	Creature     string  `json:"creature,omitempty"`
	Outcome      string  `json:"outcome"`
	LatencyMs    int64   `json:"latency_ms"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

type Totals struct {
	Generations    int     `json:"generations"`
	Creatures      int     `json:"creatures"`
	ParseFailures  int     `json:"parse_failures"`
	UpstreamErrors int     `json:"upstream_errors"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	CostUSD        float64 `json:"cost_usd"`
	LatencyMs      int64   `json:"latency_ms"`
}

// New starts tracking a session.
func New(provider string) *SessionMetrics {
	return &SessionMetrics{StartedAt: time.Now(), Provider: provider}
}

// AddResult records a call that reached the endpoint.
func (m *SessionMetrics) AddResult(model string, res *generator.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := GenerationMetrics{
		RequestID:    res.RequestID,
		Model:        model,
		Outcome:      observability.OutcomeCreature,
		LatencyMs:    res.Usage.LatencyMs,
		InputTokens:  res.Usage.InputTokens,
		OutputTokens: res.Usage.OutputTokens,
		CostUSD:      res.Usage.CostUSD,
	}
	if res.ParseError != nil {
		g.Outcome = observability.OutcomeParseError
		m.Totals.ParseFailures++
		m.Errors = append(m.Errors, res.ParseError.Error())
	} else {
		g.Creature = res.Creature.Name()
		m.Totals.Creatures++
	}

	m.Generations = append(m.Generations, g)
	m.Totals.Generations++
	m.Totals.InputTokens += g.InputTokens
	m.Totals.OutputTokens += g.OutputTokens
	m.Totals.CostUSD += g.CostUSD
	m.Totals.LatencyMs += g.LatencyMs
}

// AddError records a call that failed before any text came back.
func (m *SessionMetrics) AddError(model string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Generations = append(m.Generations, GenerationMetrics{
		Model:   model,
		Outcome: observability.Outcome(err),
	})
	m.Totals.Generations++
	m.Totals.UpstreamErrors++
	m.Errors = append(m.Errors, err.Error())
}

// Observe adapts the session to generator events.
func (m *SessionMetrics) Observe(ev generator.Event) {
	switch ev.Type {
	case generator.EventCompleted, generator.EventParseFailed:
		m.AddResult(ev.Model, ev.Result)
	case generator.EventFailed:
		m.AddError(ev.Model, ev.Err)
	}
}

// Finish marks the session as complete.
func (m *SessionMetrics) Finish(collected int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Collected = collected
}

// Snapshot returns a copy of the totals.
func (m *SessionMetrics) Snapshot() Totals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Totals
}

// AverageLatency returns the mean latency of calls that returned text.
func (t Totals) AverageLatency() time.Duration {
	n := t.Creatures + t.ParseFailures
	if n == 0 {
		return 0
	}
	return time.Duration(t.LatencyMs/int64(n)) * time.Millisecond
}

// PrintSummary writes a human-readable summary.
func (m *SessionMetrics) PrintSummary(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║      BESTIAIRE · SESSION REPORT      ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Provider:    %-23s║\n", m.Provider)
	fmt.Fprintf(w, "║ Cost:        %-23s║\n", fmt.Sprintf("$%.4f", m.Totals.CostUSD))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GENERATIONS\n")
	fmt.Fprintf(w, "║   Total:       %d\n", m.Totals.Generations)
	fmt.Fprintf(w, "║   Creatures:   %d\n", m.Totals.Creatures)
	fmt.Fprintf(w, "║   Bad JSON:    %d\n", m.Totals.ParseFailures)
	fmt.Fprintf(w, "║   Failed:      %d\n", m.Totals.UpstreamErrors)
	fmt.Fprintf(w, "║   Tokens:      %d in / %d out\n", m.Totals.InputTokens, m.Totals.OutputTokens)
	fmt.Fprintf(w, "║   Avg latency: %s\n", m.Totals.AverageLatency())
	fmt.Fprintf(w, "║   Collected:   %d\n", m.Collected)
	if len(m.Generations) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ CALLS\n")
		for _, g := range m.Generations {
			label := g.Creature
			if label == "" {
				label = g.Outcome
			}
			fmt.Fprintf(w, "║   %-24s %7dms  $%.4f\n", truncate(label, 24), g.LatencyMs, g.CostUSD)
		}
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *SessionMetrics) JSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.MarshalIndent(m, "", "  ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
