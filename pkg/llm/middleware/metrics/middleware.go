package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/llmerrors"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
	"github.com/Koplal/tai-discord-bot/pkg/tokens"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor pulls token usage out of a request/response pair.
type UsageExtractor func(in llm.CompletionRequest, out llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor trusts provider-reported usage and falls back to
// tokenizer estimation when the provider reported nothing.
func DefaultUsageExtractor(in llm.CompletionRequest, out llm.CompletionResponse) (promptTokens, completionTokens int) {
	if out.Usage.PromptTokens > 0 || out.Usage.CompletionTokens > 0 {
		return out.Usage.PromptTokens, out.Usage.CompletionTokens
	}

	var b strings.Builder
	for _, m := range in.Messages {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return tokens.Count(b.String()), tokens.Count(out.Content)
}

// Middleware returns a middleware function that records request counts,
// token usage, estimated cost, and latency for LLM operations.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	extract := usageExtractor
	if extract == nil {
		extract = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			// Complete path: full usage accounting.
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				elapsed := time.Since(start)

				model := next.GetModelName()
				var inTok, outTok int
				var cost float64
				errType := ""
				if err != nil {
					errType = llmerrors.TypeOf(err).String()
				} else {
					inTok, outTok = extract(req, resp)
					cost = config.EstimateCostUSD(model, inTok, outTok)
				}

				recorder.ObserveRequest(model, inTok, outTok, cost, err == nil, errType, elapsed)

				if logger != nil {
					status := statusError
					if err == nil {
						status = statusSuccess
					}
					logger.Debug("LLM request: model=%s tokens=%d+%d cost=$%.4f status=%s duration=%dms",
						model, inTok, outTok, cost, status, elapsed.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware passes through errors unchanged
			},
			// Stream path: only setup time and outcome are observed.
			// Token counting would require consuming the stream.
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				start := time.Now()
				stream, err := next.Stream(ctx, req)
				elapsed := time.Since(start)

				errType := ""
				if err != nil {
					errType = llmerrors.TypeOf(err).String()
				}
				recorder.ObserveRequest(next.GetModelName(), 0, 0, 0, err == nil, errType, elapsed)

				return stream, err //nolint:wrapcheck // Middleware passes through errors unchanged
			},
			next.GetModelName,
		)
	}
}
