// Package ratelimit provides token-rate limiting middleware for LLM
// clients.
package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/tokens"
)

// TokenEstimator estimates the number of prompt tokens a request will send.
type TokenEstimator interface {
	EstimatePrompt(req llm.CompletionRequest) int
}

// DefaultTokenEstimator counts tokens over message content and tool results
// using the shared tokenizer.
type DefaultTokenEstimator struct{}

// NewDefaultTokenEstimator returns the tokenizer-backed estimator.
func NewDefaultTokenEstimator() TokenEstimator {
	return &DefaultTokenEstimator{}
}

// EstimatePrompt estimates prompt tokens for a request.
func (e *DefaultTokenEstimator) EstimatePrompt(req llm.CompletionRequest) int {
	var b strings.Builder
	for i := range req.Messages {
		b.WriteString(req.Messages[i].Content)
		b.WriteByte('\n')
		for _, result := range req.Messages[i].ToolResults {
			b.WriteString(result.Content)
			b.WriteByte('\n')
		}
	}
	return tokens.Count(b.String())
}

// Limiter admits token spend for a single provider at a configured
// tokens-per-minute rate. The zero-rate limiter admits everything.
type Limiter struct {
	bucket *rate.Limiter
	burst  int
}

// NewLimiter sizes a limiter at tokensPerMinute with one full minute of
// burst. Non-positive rates disable limiting.
func NewLimiter(tokensPerMinute int) *Limiter {
	if tokensPerMinute <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute),
		burst:  tokensPerMinute,
	}
}

// Wait blocks until n tokens are available or ctx is done. Estimates larger
// than the burst are clamped so an oversized prompt degrades to a
// full-bucket wait instead of failing outright.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if l == nil || l.bucket == nil {
		return nil
	}

	if n > l.burst {
		n = l.burst
	}
	if n < 1 {
		n = 1
	}

	if err := l.bucket.WaitN(ctx, n); err != nil {
		return fmt.Errorf("token rate limit: %w", err)
	}
	return nil
}

// Tokens reports the currently available token budget.
func (l *Limiter) Tokens() float64 {
	if l == nil || l.bucket == nil {
		return 0
	}
	return l.bucket.Tokens()
}
