package llmutil_test

import (
	"testing"

	"github.com/efebarandurmaz/bestiary/internal/llm"
	"github.com/efebarandurmaz/bestiary/internal/llmutil"
)

func TestNewFactory_RegistersPresets(t *testing.T) {
	names := llmutil.NewFactory().Names()
	want := []string{"anthropic", "custom", "groq", "ollama", "openai", "proxy"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCreate_RequiredSettings(t *testing.T) {
	tests := []struct {
		name    string
		cfg     llm.ProviderConfig
		wantErr bool
		wantAs  string
	}{
		{"anthropic without key", llm.ProviderConfig{Provider: "anthropic"}, true, ""},
		{"anthropic with key", llm.ProviderConfig{Provider: "anthropic", APIKey: "k"}, false, "anthropic"},
		{"proxy without url", llm.ProviderConfig{Provider: "proxy"}, true, ""},
		{"proxy with url", llm.ProviderConfig{Provider: "proxy", BaseURL: "http://localhost/api/generate"}, false, "proxy"},
		{"custom without url", llm.ProviderConfig{Provider: "custom"}, true, ""},
		{"ollama preset", llm.ProviderConfig{Provider: "ollama"}, false, "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := llmutil.NewFactory().Create(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantAs {
				t.Errorf("expected provider %q, got %q", tt.wantAs, p.Name())
			}
		})
	}
}
