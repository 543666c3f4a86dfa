// Package tracker provides a client for a Linear-style project tracker:
// one GraphQL endpoint, API key auth, issues addressed by TEAM-123
// identifiers.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/boterr"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

// ObserveFunc is called after every tracker round trip, for metrics.
type ObserveFunc func(operation string, err error, elapsed time.Duration)

// Client speaks GraphQL to the tracker's single POST endpoint.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *logx.Logger
	observe  ObserveFunc
}

// NewClient creates a tracker client. The http.Client owns the request
// timeout; nil selects a 30 second default.
func NewClient(endpoint, apiKey string, httpClient *http.Client, logger *logx.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logx.NewLogger("tracker")
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		client:   httpClient,
		logger:   logger,
	}
}

// WithObserver returns a client that reports each call to fn.
func (c *Client) WithObserver(fn ObserveFunc) *Client {
	clone := *c
	clone.observe = fn
	return &clone
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// execute posts one GraphQL document and decodes data into out. Transport
// failures, non-2xx statuses, and GraphQL error lists all come back as
// remote errors whose detail stays out of user-visible text.
func (c *Client) execute(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	start := time.Now()
	err := c.post(ctx, query, variables, out)
	if c.observe != nil {
		c.observe(operation, err, time.Since(start))
	}
	if err != nil {
		c.logger.Debug("%s failed: %v", operation, err)
		return err
	}
	c.logger.Debug("%s ok in %dms", operation, time.Since(start).Milliseconds())
	return nil
}

func (c *Client) post(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return boterr.NewRemote(err, "tracker request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return boterr.NewRemote(err, "failed to read tracker response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return boterr.NewRemote(
			fmt.Errorf("status %d: %s", resp.StatusCode, snippet(body)),
			fmt.Sprintf("tracker returned status %d", resp.StatusCode),
		)
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return boterr.NewRemote(err, "failed to decode tracker response")
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return boterr.NewRemote(
			fmt.Errorf("graphql: %s", strings.Join(messages, "; ")),
			"tracker rejected the request",
		)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return boterr.NewRemote(err, "failed to decode tracker data")
		}
	}
	return nil
}

// snippet bounds remote bodies quoted into error detail.
func snippet(body []byte) string {
	const max = 300
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
