package llm

import "context"

// Provider is the interface all text-generation backends must implement.
type Provider interface {
	// Complete sends a prompt and returns the generated text with its usage counters.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Name returns the provider identifier (e.g. "anthropic", "proxy").
	Name() string
}
