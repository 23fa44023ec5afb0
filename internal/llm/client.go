package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/logger"
)

// providerTimeout bounds every individual provider attempt.
const providerTimeout = 10 * time.Second

// ErrNoProviders is returned when no provider in the chain has a credential.
var ErrNoProviders = errors.New("no generation providers configured")

// FallbackClient tries an ordered list of providers until one succeeds.
type FallbackClient struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// NewFallbackClient builds a client over the given provider order.
func NewFallbackClient(providers []Provider, log *zap.Logger) *FallbackClient {
	return &FallbackClient{
		providers: providers,
		timeout:   providerTimeout,
		logger:    log,
	}
}

// Credentials holds the API keys of the default chain; an empty key disables
// its providers.
type Credentials struct {
	Mistral string
	OpenAI  string
	Groq    string
	Gemini  string
}

// DefaultProviders assembles the standard fallback order. primaryModel is
// the environment-resolved Mistral model identifier for the first entry
// (for example "mistral-small-latest").
func DefaultProviders(creds Credentials, primaryModel string) []Provider {
	if primaryModel == "" {
		primaryModel = "mistral-small-latest"
	}
	return []Provider{
		NewOpenAIProvider("mistral/"+primaryModel, MistralBaseURL, creds.Mistral, primaryModel),
		NewOpenAIProvider("openai/gpt-oss-120b", OpenAIBaseURL, creds.OpenAI, "gpt-oss-120b"),
		NewOpenAIProvider("groq/llama-3.1-8b-instant", GroqBaseURL, creds.Groq, "llama-3.1-8b-instant"),
		NewOpenAIProvider("groq/llama-3.3-70b-versatile", GroqBaseURL, creds.Groq, "llama-3.3-70b-versatile"),
		NewGeminiProvider("gemini/gemini-2.5-flash", creds.Gemini, "gemini-2.5-flash"),
	}
}

// Generate walks the provider chain in order. Providers without a credential
// are skipped. The first success returns immediately with accounting fields
// filled in; a timeout or error moves on to the next provider. When every
// provider has been exhausted the aggregate error names the last failure.
func (c *FallbackClient) Generate(ctx context.Context, req Request) (*Result, error) {
	var (
		lastErr      error
		lastProvider string
	)

	for _, provider := range c.providers {
		if !provider.Configured() {
			c.logger.Warn("provider skipped, no credential", logger.CommonFields(provider.Name(), "")...)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		text, tokens, err := provider.Generate(callCtx, req)
		cancel()

		if err != nil {
			c.logger.Warn("provider failed",
				append(logger.CommonFields(provider.Name(), ""), zap.Error(err))...,
			)
			lastErr = err
			lastProvider = provider.Name()
			continue
		}

		latency := time.Since(start).Milliseconds()
		cost := Cost(provider.Name(), tokens)

		c.logger.Info("generation succeeded",
			append(logger.CommonFields(provider.Name(), ""),
				zap.Int("tokens_used", tokens),
				zap.Int64("latency_ms", latency),
				zap.Float64("cost_usd", cost),
			)...,
		)

		return &Result{
			Text:       text,
			TokensUsed: tokens,
			Provider:   provider.Name(),
			LatencyMS:  latency,
			Cost:       cost,
		}, nil
	}

	if lastProvider == "" {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("all generation providers failed, last %s: %w", lastProvider, lastErr)
}
