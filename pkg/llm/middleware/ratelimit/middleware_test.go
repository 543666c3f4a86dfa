package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
)

type fixedEstimator int

func (f fixedEstimator) EstimatePrompt(llm.CompletionRequest) int { return int(f) }

type captureRecorder struct {
	throttles []string
	waits     []time.Duration
}

func (c *captureRecorder) ObserveRequest(string, int, int, float64, bool, string, time.Duration) {}

func (c *captureRecorder) IncThrottle(_, reason string) {
	c.throttles = append(c.throttles, reason)
}

func (c *captureRecorder) ObserveQueueWait(_ string, duration time.Duration) {
	c.waits = append(c.waits, duration)
}

func TestLimiterDisabledAdmitsEverything(t *testing.T) {
	l := NewLimiter(0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, 1_000_000); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestLimiterStartsWithFullBurst(t *testing.T) {
	l := NewLimiter(600)

	start := time.Now()
	if err := l.Wait(context.Background(), 600); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("full-bucket wait took %v, want immediate", elapsed)
	}
}

func TestLimiterClampsOversizedRequests(t *testing.T) {
	l := NewLimiter(60)

	start := time.Now()
	if err := l.Wait(context.Background(), 10_000); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("clamped wait took %v, want immediate", elapsed)
	}
}

func TestLimiterWaitBoundedByContext(t *testing.T) {
	l := NewLimiter(600)
	if err := l.Wait(context.Background(), 600); err != nil {
		t.Fatalf("draining Wait returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, 600); err == nil {
		t.Fatal("Wait on a drained bucket with a short deadline returned nil, want error")
	}
}

func TestMiddlewarePassesWhenBudgetAvailable(t *testing.T) {
	mock := llm.NewMockLLMClient([]llm.CompletionResponse{{Content: "ok"}}, nil)
	rec := &captureRecorder{}
	client := llm.Chain(mock, Middleware(NewLimiter(100_000), nil, rec))

	req := llm.CompletionRequest{
		Messages:  []llm.CompletionMessage{llm.NewUserMessage("hello")},
		MaxTokens: 100,
	}
	resp, err := client.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want %q", resp.Content, "ok")
	}
	if mock.CallCount != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount)
	}
	if len(rec.waits) != 1 {
		t.Errorf("recorded %d queue waits, want 1", len(rec.waits))
	}
}

func TestMiddlewareThrottleKeepsProviderUntouched(t *testing.T) {
	l := NewLimiter(60)
	if err := l.Wait(context.Background(), 60); err != nil {
		t.Fatalf("draining Wait returned error: %v", err)
	}

	mock := llm.NewMockLLMClient([]llm.CompletionResponse{{Content: "ok"}}, nil)
	rec := &captureRecorder{}
	client := llm.Chain(mock, Middleware(l, fixedEstimator(600), rec))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Complete(ctx, llm.CompletionRequest{}); err == nil {
		t.Fatal("Complete returned nil error, want throttle error")
	}

	if mock.CallCount != 0 {
		t.Errorf("CallCount = %d, want 0 (provider must not be called when throttled)", mock.CallCount)
	}
	if len(rec.throttles) != 1 || rec.throttles[0] != "rate_limit" {
		t.Errorf("throttles = %v, want [rate_limit]", rec.throttles)
	}
}

func TestDefaultEstimatorCountsToolResults(t *testing.T) {
	est := NewDefaultTokenEstimator()
	req := llm.CompletionRequest{Messages: []llm.CompletionMessage{
		{Role: llm.RoleSystem, Content: "You are a helpful assistant."},
		{Role: llm.RoleUser, Content: "What is the status of COD-42?"},
		{Role: llm.RoleUser, ToolResults: []llm.ToolResult{
			{ToolCallID: "call_1", Content: "COD-42 Fix login redirect is In Progress, assigned to Jordan"},
		}},
	}}

	withResults := est.EstimatePrompt(req)
	req.Messages[2].ToolResults = nil
	withoutResults := est.EstimatePrompt(req)

	if withResults <= withoutResults {
		t.Errorf("EstimatePrompt with tool results = %d, want > %d", withResults, withoutResults)
	}
}
