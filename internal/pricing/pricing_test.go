package pricing

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func approx(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		in, out int
		want    float64
		epsilon float64
	}{
		{"sonnet million each", ModelSonnet, 1_000_000, 1_000_000, 18.0, 1e-9},
		{"haiku million each", ModelHaiku, 1_000_000, 1_000_000, 4.8, 1e-9},
		{"haiku input only", ModelHaiku, 1000, 0, 0.0008, 1e-12},
		{"unknown model uses default", "unknown-model", 1_000_000, 0, 3.0, 1e-9},
		{"empty model uses default", "", 0, 1_000_000, 15.0, 1e-9},
		{"not rounded", ModelSonnet, 1, 1, 0.000018, 1e-15},
		{"sonnet zero", ModelSonnet, 0, 0, 0, 0},
		{"haiku zero", ModelHaiku, 0, 0, 0, 0},
		{"unknown zero", "other", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.model, tt.in, tt.out)
			if !approx(got, tt.want, tt.epsilon) {
				t.Errorf("EstimateCost(%q, %d, %d) = %v, want %v", tt.model, tt.in, tt.out, got, tt.want)
			}
		})
	}
}

func TestEstimateCost_Monotonic(t *testing.T) {
	base := EstimateCost(ModelSonnet, 1200, 800)
	if EstimateCost(ModelSonnet, 1201, 800) <= base {
		t.Error("cost should grow with input tokens")
	}
	if EstimateCost(ModelSonnet, 1200, 801) <= base {
		t.Error("cost should grow with output tokens")
	}
}

func TestNewTable_Overrides(t *testing.T) {
	tbl, err := NewTable(map[string]Price{
		"local-model": {InputPerMillion: 0, OutputPerMillion: 0},
		ModelHaiku:    {InputPerMillion: 1, OutputPerMillion: 5},
	}, "local-model")
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if got := tbl.DefaultModel(); got != "local-model" {
		t.Errorf("DefaultModel = %q", got)
	}
	if got := tbl.EstimateCost("anything", 1000, 1000); got != 0 {
		t.Errorf("unknown model cost = %v, want 0", got)
	}
	if got := tbl.EstimateCost(ModelHaiku, 1_000_000, 1_000_000); !approx(got, 6.0, 1e-9) {
		t.Errorf("overridden haiku cost = %v, want 6", got)
	}
	if got := tbl.EstimateCost(ModelSonnet, 1_000_000, 1_000_000); !approx(got, 18.0, 1e-9) {
		t.Errorf("built-in sonnet cost = %v, want 18", got)
	}
	want := []string{ModelHaiku, ModelSonnet, "local-model"}
	if got := tbl.Models(); !reflect.DeepEqual(got, want) {
		t.Errorf("Models = %v, want %v", got, want)
	}
}

func TestNewTable_Errors(t *testing.T) {
	tests := []struct {
		name         string
		overrides    map[string]Price
		defaultModel string
		want         string
	}{
		{"unknown default", nil, "missing", `default model "missing"`},
		{"negative price", map[string]Price{"x": {InputPerMillion: -1}}, "", "negative price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.overrides, tt.defaultModel)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewTable error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		model  string
		want   Price
		wantOK bool
	}{
		{ModelHaiku, Price{InputPerMillion: 0.8, OutputPerMillion: 4.0}, true},
		{"gpt-4o", Price{InputPerMillion: 3.0, OutputPerMillion: 15.0}, false},
	}

	for _, tt := range tests {
		p, ok := DefaultTable().Lookup(tt.model)
		if ok != tt.wantOK || p != tt.want {
			t.Errorf("Lookup(%q) = %+v, %v; want %+v, %v", tt.model, p, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNewUsage(t *testing.T) {
	u := NewUsage(nil, ModelSonnet, 1500*time.Millisecond, 1000, 2000)
	if u.LatencyMs != 1500 {
		t.Errorf("LatencyMs = %d, want 1500", u.LatencyMs)
	}
	if u.TotalTokens != 3000 {
		t.Errorf("TotalTokens = %d, want 3000", u.TotalTokens)
	}
	if u.Model != ModelSonnet {
		t.Errorf("Model = %q", u.Model)
	}
	if !approx(u.CostUSD, 0.033, 1e-12) {
		t.Errorf("CostUSD = %v, want 0.033", u.CostUSD)
	}
}

func TestNewUsage_ClampsNegativeTokens(t *testing.T) {
	u := NewUsage(DefaultTable(), ModelHaiku, 0, -5, 10)
	if u.InputTokens != 0 {
		t.Errorf("InputTokens = %d, want 0", u.InputTokens)
	}
	if u.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want 10", u.TotalTokens)
	}
	if u.CostUSD < 0 {
		t.Errorf("CostUSD = %v, want >= 0", u.CostUSD)
	}
}
