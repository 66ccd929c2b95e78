// Package pricing estimates the dollar cost of a generation call.
package pricing

import (
	"fmt"
	"sort"
	"time"
)

// Model identifiers with built-in prices.
const (
	ModelSonnet = "claude-sonnet-4-20250514"
	ModelHaiku  = "claude-haiku-4-5-20251001"
)

// Price is the cost of one million tokens, in US dollars.
type Price struct {
	InputPerMillion  float64 `mapstructure:"input" json:"input_per_million"`
	OutputPerMillion float64 `mapstructure:"output" json:"output_per_million"`
}

// Table maps model ids to prices. Unknown models are billed at the
// default model's price.
type Table struct {
	prices       map[string]Price
	defaultModel string
}

var builtin = map[string]Price{
	ModelSonnet: {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	ModelHaiku:  {InputPerMillion: 0.8, OutputPerMillion: 4.0},
}

var defaultTable = mustTable(nil, ModelSonnet)

// DefaultTable returns the built-in price table.
func DefaultTable() *Table { return defaultTable }

// NewTable builds a table from the built-in prices with overrides applied.
// defaultModel may be empty, meaning ModelSonnet; otherwise it must be a row
// of the resulting table.
func NewTable(overrides map[string]Price, defaultModel string) (*Table, error) {
	prices := make(map[string]Price, len(builtin)+len(overrides))
	for id, p := range builtin {
		prices[id] = p
	}
	for id, p := range overrides {
		if p.InputPerMillion < 0 || p.OutputPerMillion < 0 {
			return nil, fmt.Errorf("pricing: negative price for model %q", id)
		}
		prices[id] = p
	}

	if defaultModel == "" {
		defaultModel = ModelSonnet
	}
	if _, ok := prices[defaultModel]; !ok {
		return nil, fmt.Errorf("pricing: default model %q has no price", defaultModel)
	}
	return &Table{prices: prices, defaultModel: defaultModel}, nil
}

func mustTable(overrides map[string]Price, defaultModel string) *Table {
	t, err := NewTable(overrides, defaultModel)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultModel returns the model whose price applies to unknown models.
func (t *Table) DefaultModel() string { return t.defaultModel }

// Lookup returns the price for model and whether it was found. When it was
// not, the default model's price is returned.
func (t *Table) Lookup(model string) (Price, bool) {
	if p, ok := t.prices[model]; ok {
		return p, true
	}
	return t.prices[t.defaultModel], false
}

// Models returns the priced model ids in sorted order.
func (t *Table) Models() []string {
	ids := make([]string, 0, len(t.prices))
	for id := range t.prices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EstimateCost returns (in*inputPrice + out*outputPrice) / 1e6, unrounded.
func (t *Table) EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, _ := t.Lookup(model)
	return (float64(inputTokens)*p.InputPerMillion + float64(outputTokens)*p.OutputPerMillion) / 1_000_000
}

// EstimateCost prices a call with the built-in table.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	return defaultTable.EstimateCost(model, inputTokens, outputTokens)
}

// Usage is the accounting record of one generation call.
type Usage struct {
	LatencyMs    int64   `json:"latency"`
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalTokens  int     `json:"totalTokens"`
	CostUSD      float64 `json:"cost"`
	Model        string  `json:"model"`
}

// NewUsage builds a usage record. Negative token counts are treated as 0.
func NewUsage(t *Table, model string, latency time.Duration, inputTokens, outputTokens int) Usage {
	if t == nil {
		t = defaultTable
	}
	inputTokens = max(inputTokens, 0)
	outputTokens = max(outputTokens, 0)
	return Usage{
		LatencyMs:    latency.Milliseconds(),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostUSD:      t.EstimateCost(model, inputTokens, outputTokens),
		Model:        model,
	}
}
