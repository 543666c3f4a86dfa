package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// CallerUsage represents aggregated token consumption for one caller over
// a query window.
type CallerUsage struct {
	CallerID         string `json:"caller_id"`
	Window           string `json:"window"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// UsageService answers usage report queries from Prometheus.
type UsageService struct {
	queryAPI v1.API
}

// NewUsageService creates a usage query service against a Prometheus
// server.
func NewUsageService(prometheusURL string) (*UsageService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &UsageService{
		queryAPI: v1.NewAPI(client),
	}, nil
}

// Report retrieves one caller's prompt and completion token totals over
// the trailing window. Callers with no recorded runs report zeroes.
func (u *UsageService) Report(ctx context.Context, callerID string, window time.Duration) (*CallerUsage, error) {
	rng := model.Duration(window).String()
	usage := &CallerUsage{
		CallerID: callerID,
		Window:   rng,
	}

	promptQuery := fmt.Sprintf(`sum(increase(bot_caller_tokens_total{caller=%q, type="prompt"}[%s]))`, callerID, rng)
	prompt, err := u.sumQuery(ctx, promptQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	usage.PromptTokens = prompt

	completionQuery := fmt.Sprintf(`sum(increase(bot_caller_tokens_total{caller=%q, type="completion"}[%s]))`, callerID, rng)
	completion, err := u.sumQuery(ctx, completionQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	usage.CompletionTokens = completion

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage, nil
}

func (u *UsageService) sumQuery(ctx context.Context, query string) (int64, error) {
	result, _, err := u.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}
