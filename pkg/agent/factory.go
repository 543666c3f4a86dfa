// Package agent provides the LLM client factory and the bounded tool loop
// that turns chat requests into tracker-grounded replies.
package agent

import (
	"fmt"

	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/anthropic"
	"github.com/Koplal/tai-discord-bot/pkg/llm/google"
	"github.com/Koplal/tai-discord-bot/pkg/llm/middleware/metrics"
	"github.com/Koplal/tai-discord-bot/pkg/llm/middleware/ratelimit"
	"github.com/Koplal/tai-discord-bot/pkg/llm/middleware/retry"
	"github.com/Koplal/tai-discord-bot/pkg/llm/ollama"
	"github.com/Koplal/tai-discord-bot/pkg/llm/openai"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

// SecretSource resolves provider API keys by name.
type SecretSource interface {
	Get(name string) (string, error)
}

// NewLLMClient builds the provider client for the configured model and wraps
// it with the middleware chain:
//
//	Metrics -> Retry -> RateLimit -> provider
//
// The API key is resolved from secrets based on the model's provider; the
// ollama provider needs no key.
func NewLLMClient(cfg config.LLMConfig, secrets SecretSource, recorder metrics.Recorder, logger *logx.Logger) (llm.LLMClient, error) {
	provider, err := config.GetModelProvider(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("resolving provider for model %s: %w", cfg.Model, err)
	}

	var base llm.LLMClient
	switch provider {
	case config.ProviderAnthropic:
		key, keyErr := secrets.Get(config.SecretAnthropicAPIKey)
		if keyErr != nil {
			return nil, fmt.Errorf("anthropic credentials: %w", keyErr)
		}
		base = anthropic.NewClient(key, cfg.Model)
	case config.ProviderOpenAI:
		key, keyErr := secrets.Get(config.SecretOpenAIAPIKey)
		if keyErr != nil {
			return nil, fmt.Errorf("openai credentials: %w", keyErr)
		}
		base = openai.NewClient(key, cfg.Model)
	case config.ProviderGoogle:
		key, keyErr := secrets.Get(config.SecretGoogleAPIKey)
		if keyErr != nil {
			return nil, fmt.Errorf("google credentials: %w", keyErr)
		}
		base = google.NewClient(key, cfg.Model)
	case config.ProviderOllama:
		base = ollama.NewClient(cfg.OllamaHost, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	if recorder == nil {
		recorder = metrics.Nop()
	}

	return llm.Chain(base,
		metrics.Middleware(recorder, nil, logger),
		retry.Middleware(nil, logger),
		ratelimit.Middleware(ratelimit.NewLimiter(cfg.RateTPM), nil, recorder),
	), nil
}
