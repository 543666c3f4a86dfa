// Package retry provides retry middleware with exponential backoff for LLM
// clients.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/llmerrors"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

// Middleware returns a middleware function that retries failed requests
// according to the per-type budgets in configs (llmerrors.DefaultRetryConfigs
// when nil). Error types with a zero budget pass through unchanged; retryable
// errors that exhaust their budget surface as ErrorTypeServiceUnavailable so
// callers degrade instead of hammering the provider.
func Middleware(configs map[llmerrors.ErrorType]llmerrors.RetryConfig, logger *logx.Logger) llm.Middleware {
	if configs == nil {
		configs = llmerrors.DefaultRetryConfigs
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			// Complete path retries per error classification.
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error

				for attempt := 0; ; attempt++ {
					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err

					cfg, retryable := budgetFor(configs, err)
					if !retryable {
						return llm.CompletionResponse{}, err
					}
					if attempt >= cfg.MaxRetries {
						if logger != nil {
							logger.Warn("giving up after %d attempts: %v", attempt+1, err)
						}
						return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(lastErr, attempt+1)
					}

					delay := Delay(cfg, attempt)
					if logger != nil {
						logger.Debug("retrying %s error in %v (attempt %d of %d): %v",
							llmerrors.TypeOf(err), delay, attempt+1, cfg.MaxRetries, err)
					}
					select {
					case <-ctx.Done():
						return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
					case <-time.After(delay):
					}
				}
			},
			// Stream implementation with retry (retries stream establishment)
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				var lastErr error

				for attempt := 0; ; attempt++ {
					ch, err := next.Stream(ctx, req)
					if err == nil {
						return ch, nil
					}
					lastErr = err

					cfg, retryable := budgetFor(configs, err)
					if !retryable {
						return nil, err
					}
					if attempt >= cfg.MaxRetries {
						return nil, llmerrors.NewServiceUnavailableError(lastErr, attempt+1)
					}

					select {
					case <-ctx.Done():
						return nil, fmt.Errorf("stream retry cancelled: %w", ctx.Err())
					case <-time.After(Delay(cfg, attempt)):
					}
				}
			},
			next.GetModelName,
		)
	}
}

// budgetFor resolves the retry budget for an error. Context cancellation is
// never retried regardless of how the provider classified it.
func budgetFor(configs map[llmerrors.ErrorType]llmerrors.RetryConfig, err error) (llmerrors.RetryConfig, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.RetryConfig{}, false
	}
	cfg := configs[llmerrors.TypeOf(err)]
	return cfg, cfg.MaxRetries > 0
}

// Delay computes the backoff before the retry that follows failed attempt
// number attempt (zero-based): InitialDelay scaled by BackoffFactor per
// prior attempt, capped at MaxDelay, with up to ±10% jitter when enabled.
func Delay(cfg llmerrors.RetryConfig, attempt int) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}

	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if cfg.Jitter && delay > 0 {
		delay += time.Duration((rand.Float64()*0.2 - 0.1) * float64(delay)) //nolint:gosec // Jitter does not need crypto randomness
	}
	return delay
}
