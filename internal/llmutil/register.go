// Package llmutil wires the built-in providers into an llm.ProviderFactory.
package llmutil

import (
	"fmt"

	"github.com/efebarandurmaz/bestiary/internal/llm"
	"github.com/efebarandurmaz/bestiary/internal/llm/anthropic"
	"github.com/efebarandurmaz/bestiary/internal/llm/openai"
)

// RegisterDefaultProviders registers all built-in provider constructors
// (anthropic, proxy, and the OpenAI-compatible presets) into factory.
// The CLI, the HTTP front end and the TUI share this registration.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		if c.APIKey == "" {
			return nil, fmt.Errorf("anthropic: api_key is required")
		}
		return anthropic.New(c.APIKey, c.Model, c.BaseURL).WithTimeout(c.Timeout), nil
	})
	factory.Register("proxy", func(c llm.ProviderConfig) (llm.Provider, error) {
		if c.BaseURL == "" {
			return nil, fmt.Errorf("proxy: base_url must point at the generate endpoint")
		}
		return anthropic.NewProxy(c.BaseURL, c.APIKey, c.Model).WithTimeout(c.Timeout), nil
	})
	// All OpenAI-compatible providers
	for _, p := range []struct{ name, url string }{
		{"openai", llm.KnownProviders["openai"]},
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"custom", ""},
	} {
		p := p
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			if base == "" {
				return nil, fmt.Errorf("%s: base_url is required", p.name)
			}
			return openai.New(p.name, c.APIKey, c.Model, base), nil
		})
	}
}

// NewFactory returns a factory with the default providers registered.
func NewFactory() *llm.ProviderFactory {
	f := llm.NewFactory()
	RegisterDefaultProviders(f)
	return f
}
