// Package llm provides the ordered multi-provider text-generation client
// used by the enrichment pipeline: first configured provider to succeed
// wins, later ones are fallbacks.
package llm

import "context"

// Request is one generation call: system/user prompts plus sampling limits.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Result is a successful generation with its accounting fields.
type Result struct {
	Text       string
	TokensUsed int
	Provider   string
	LatencyMS  int64
	Cost       float64
}

// Provider is one model endpoint in the fallback chain.
type Provider interface {
	// Name returns the provider/model identifier used for logging and the
	// price table.
	Name() string
	// Configured reports whether a credential is available; unconfigured
	// providers are skipped without counting as an attempt.
	Configured() bool
	// Generate returns the generated text and total token usage.
	Generate(ctx context.Context, req Request) (string, int, error)
}
