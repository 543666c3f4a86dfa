// Package ollama provides the Ollama implementation of llm.LLMClient.
// Ollama is a local LLM runtime, used here for development profiles where
// requests must not leave the machine.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/llmerrors"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

// Client adapts the Ollama API client to llm.LLMClient.
type Client struct {
	client  *api.Client
	model   string
	hostURL string
}

// NewClient creates a new Ollama client for the given server URL
// (e.g. "http://localhost:11434") and model. An "ollama:" model prefix,
// as written in config files, is stripped.
func NewClient(hostURL, model string) llm.LLMClient {
	parsed, err := url.Parse(hostURL)
	if err != nil {
		parsed, _ = url.Parse("http://localhost:11434")
	}

	return &Client{
		client:  api.NewClient(parsed, http.DefaultClient),
		model:   strings.TrimPrefix(model, "ollama:"),
		hostURL: hostURL,
	}
}

// Complete runs one blocking chat call against the Ollama server.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	noStream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &noStream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": maxTokens,
		},
	}
	if len(in.Tools) > 0 {
		req.Tools = convertTools(in.Tools)
	}

	var last api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	out := llm.CompletionResponse{
		Content:    last.Message.Content,
		StopReason: stopReason(&last),
		Usage: llm.Usage{
			PromptTokens:     last.Metrics.PromptEvalCount,
			CompletionTokens: last.Metrics.EvalCount,
		},
	}
	if len(last.Message.ToolCalls) > 0 {
		out.ToolCalls = convertToolCalls(last.Message.ToolCalls)
	}
	return out, nil
}

// Stream drains a blocking Complete call; Ollama chunking is not wired up.
func (o *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	out := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(out)
		resp, err := o.Complete(ctx, in)
		if err != nil {
			out <- llm.StreamChunk{Error: err}
			return
		}
		out <- llm.StreamChunk{Content: resp.Content}
		out <- llm.StreamChunk{Done: true}
	}()
	return out, nil
}

// GetModelName reports the local model this client drives.
func (o *Client) GetModelName() string {
	return o.model
}

// convertMessages maps the conversation onto Ollama's message format.
// Tool results cannot ride along on a user message; each becomes its own
// message with role "tool".
func convertMessages(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	out := make([]api.Message, 0, len(messages))
	for i := range messages {
		msg := &messages[i]

		m := api.Message{Role: string(msg.Role), Content: msg.Content}
		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			m.ToolCalls = append(m.ToolCalls, api.ToolCall{
				ID: tc.ID,
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: api.ToolCallFunctionArguments(tc.Parameters),
				},
			})
		}

		if len(msg.ToolResults) == 0 {
			out = append(out, m)
			continue
		}
		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			out = append(out, api.Message{
				Role:       "tool",
				Content:    tr.Content,
				ToolCallID: tr.ToolCallID,
			})
		}
		// Trailing user text after the tool results, if any.
		if msg.Content != "" {
			out = append(out, m)
		}
	}

	return out, nil
}

// convertTools maps tool definitions onto Ollama's Tool format.
func convertTools(defs []tools.ToolDefinition) api.Tools {
	converted := make(api.Tools, len(defs))
	for i := range defs {
		td := &defs[i]

		props := make(map[string]api.ToolProperty, len(td.InputSchema.Properties))
		for name := range td.InputSchema.Properties {
			p := td.InputSchema.Properties[name]
			props[name] = convertProperty(&p)
		}

		converted[i] = api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        td.Name,
				Description: td.Description,
				Parameters: api.ToolFunctionParameters{
					Type:       td.InputSchema.Type,
					Properties: props,
					Required:   td.InputSchema.Required,
				},
			},
		}
	}
	return converted
}

// convertProperty maps one schema property, recursing into nested objects
// and array item schemas.
func convertProperty(prop *tools.Property) api.ToolProperty {
	out := api.ToolProperty{
		Type:        api.PropertyType{prop.Type},
		Description: prop.Description,
	}

	for _, v := range prop.Enum {
		out.Enum = append(out.Enum, v)
	}

	if prop.Properties != nil {
		nested := make(map[string]api.ToolProperty, len(prop.Properties))
		for name, np := range prop.Properties {
			if np != nil {
				nested[name] = convertProperty(np)
			}
		}
		out.Items = map[string]any{
			"type":       "object",
			"properties": nested,
		}
	}

	if prop.Items != nil {
		out.Items = convertProperty(prop.Items)
	}

	return out
}

// convertToolCalls extracts tool calls from an Ollama response.
func convertToolCalls(calls []api.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	for i := range calls {
		call := &calls[i]

		// Local models often omit IDs; synthesize one so results can be
		// matched back to calls.
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}

		out[i] = llm.ToolCall{
			ID:         id,
			Name:       call.Function.Name,
			Parameters: map[string]any(call.Function.Arguments),
		}
	}
	return out
}

// stopReason normalizes Ollama's done_reason to the provider-neutral values
// the agent loop switches on.
func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

// classifyError tags Ollama failures with a retry category. The Ollama
// client surfaces plain wrapped errors, so this goes by message text.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "connection refused"):
		return llmerrors.NewError(llmerrors.ErrorTypeTransient, fmt.Sprintf("cannot reach Ollama server: %v", err))
	case strings.Contains(text, "model") && strings.Contains(text, "not found"):
		return llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("model not available on Ollama server: %v", err))
	case strings.Contains(text, "context canceled"):
		return llmerrors.NewError(llmerrors.ErrorTypeTransient, fmt.Sprintf("request canceled: %v", err))
	case strings.Contains(text, "timeout"):
		return llmerrors.NewError(llmerrors.ErrorTypeTransient, fmt.Sprintf("request timed out: %v", err))
	default:
		return llmerrors.NewError(llmerrors.ErrorTypeUnknown, fmt.Sprintf("Ollama API error: %v", err))
	}
}
