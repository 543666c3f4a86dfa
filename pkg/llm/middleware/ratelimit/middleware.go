package ratelimit

import (
	"context"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/middleware/metrics"
)

// Middleware returns a middleware function that reserves the estimated token
// spend of each request before it reaches the provider. The wait is bounded
// by the request context; throttle rejections and queue waits are reported
// to the recorder.
func Middleware(limiter *Limiter, estimator TokenEstimator, recorder metrics.Recorder) llm.Middleware {
	if estimator == nil {
		estimator = NewDefaultTokenEstimator()
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}

	return func(next llm.LLMClient) llm.LLMClient {
		acquire := func(ctx context.Context, req llm.CompletionRequest) error {
			// Estimated spend is the prompt plus the worst-case output
			need := estimator.EstimatePrompt(req) + req.MaxTokens

			start := time.Now()
			if err := limiter.Wait(ctx, need); err != nil {
				recorder.IncThrottle(next.GetModelName(), "rate_limit")
				return err
			}
			recorder.ObserveQueueWait(next.GetModelName(), time.Since(start))
			return nil
		}

		return llm.WrapClient(
			// Complete path waits for budget before forwarding.
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if err := acquire(ctx, req); err != nil {
					return llm.CompletionResponse{}, err
				}
				return next.Complete(ctx, req) //nolint:wrapcheck // Middleware passes through errors unchanged
			},
			// Stream path applies the same admission gate.
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				if err := acquire(ctx, req); err != nil {
					return nil, err
				}
				return next.Stream(ctx, req) //nolint:wrapcheck // Middleware passes through errors unchanged
			},
			next.GetModelName,
		)
	}
}
