// Package anthropic provides the Anthropic Claude implementation of llm.LLMClient.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/llmerrors"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

// Client adapts the official Anthropic SDK to llm.LLMClient.
type Client struct {
	api     anthropic.Client
	modelID anthropic.Model
}

// NewClient creates a raw Claude client; middleware is applied at a higher level.
func NewClient(apiKey, model string) llm.LLMClient {
	return &Client{
		api:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelID: anthropic.Model(model),
	}
}

// buildParams converts a conversation into Anthropic message params.
// Anthropic requires: no system messages in the array (extracted to the
// system parameter), strict user/assistant alternation, first and last
// message user-role. Tool results are user-role turns; within a user turn
// tool_result blocks must precede text blocks.
func buildParams(messages []llm.CompletionMessage) (string, []anthropic.MessageParam, error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var sysParts []string
	conv := make([]llm.CompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			sysParts = append(sysParts, m.Content)
			continue
		}
		conv = append(conv, m)
	}
	system := strings.Join(sysParts, "\n\n")

	if len(conv) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	// Merge consecutive same-role messages into one turn to keep alternation.
	var turns []anthropic.MessageParam
	userRole := anthropic.MessageParamRole(llm.RoleUser)
	for _, m := range conv {
		role := anthropic.MessageParamRole(m.Role)
		blocks := blocksFor(m)

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			prev := &turns[n-1]
			if role == userRole {
				prev.Content = mergeUserBlocks(prev.Content, blocks)
			} else {
				prev.Content = append(prev.Content, blocks...)
			}
			continue
		}

		turns = append(turns, anthropic.MessageParam{Role: role, Content: blocks})
	}

	if turns[0].Role != userRole {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", turns[0].Role)
	}
	if tail := turns[len(turns)-1]; tail.Role != userRole {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", tail.Role)
	}

	return system, turns, nil
}

// blocksFor converts one message into content blocks. Tool results lead,
// tool calls trail the text of their assistant turn.
func blocksFor(m llm.CompletionMessage) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion

	for _, tr := range m.ToolResults {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolResult: &anthropic.ToolResultBlockParam{
				ToolUseID: tr.ToolCallID,
				IsError:   anthropic.Bool(tr.IsError),
				Content: []anthropic.ToolResultBlockParamContentUnion{
					{OfText: &anthropic.TextBlockParam{Text: tr.Content}},
				},
			},
		})
	}

	if m.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}

	for _, tc := range m.ToolCalls {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    tc.ID,
				Name:  tc.Name,
				Input: tc.Parameters,
			},
		})
	}

	return blocks
}

// mergeUserBlocks appends new blocks into an existing user turn keeping all
// tool_result blocks ahead of text blocks.
func mergeUserBlocks(existing, incoming []anthropic.ContentBlockParamUnion) []anthropic.ContentBlockParamUnion {
	var results, rest []anthropic.ContentBlockParamUnion
	for _, b := range append(existing, incoming...) {
		if b.OfToolResult != nil {
			results = append(results, b)
		} else {
			rest = append(rest, b)
		}
	}
	return append(results, rest...)
}

// propertySchema recursively converts a Property to Anthropic schema format.
func propertySchema(p *tools.Property) map[string]any {
	node := map[string]any{"type": p.Type}
	if p.Description != "" {
		node["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		node["enum"] = p.Enum
	}
	switch {
	case p.Type == "array" && p.Items != nil:
		node["items"] = propertySchema(p.Items)
	case p.Type == "object" && len(p.Properties) > 0:
		children := make(map[string]any, len(p.Properties))
		for name, child := range p.Properties {
			if child != nil {
				children[name] = propertySchema(child)
			}
		}
		node["properties"] = children
	}
	return node
}

// toolUnion converts one tool definition into the SDK's tool param shape.
func toolUnion(def *tools.ToolDefinition) anthropic.ToolUnionParam {
	var input any
	if len(def.InputSchema.Properties) > 0 {
		props := make(map[string]any, len(def.InputSchema.Properties))
		for name, prop := range def.InputSchema.Properties {
			props[name] = propertySchema(&prop)
		}
		input = props
	}
	schema := anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: input,
		Required:   def.InputSchema.Required,
	}
	return anthropic.ToolUnionParamOfTool(schema, def.Name)
}

// Complete sends one blocking turn through the Messages API.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	system, turns, err := buildParams(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message structure error: %v", err))
	}

	budget := in.MaxTokens
	if budget <= 0 {
		budget = llm.DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       c.modelID,
		Messages:    turns,
		MaxTokens:   int64(budget),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system, Type: "text"}}
	}

	if len(in.Tools) > 0 {
		defs := make([]anthropic.ToolUnionParam, 0, len(in.Tools))
		for i := range in.Tools {
			defs = append(defs, toolUnion(&in.Tools[i]))
		}
		params.Tools = defs

		switch in.ToolChoice {
		case "any":
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		default:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}

	out, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	if out == nil || len(out.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "Claude returned an empty response")
	}

	var text string
	var calls []llm.ToolCall

	for i := range out.Content {
		blk := &out.Content[i]
		switch blk.Type {
		case "text":
			text += blk.AsText().Text
		case "tool_use":
			use := blk.AsToolUse()
			var args map[string]any
			if err := json.Unmarshal(use.Input, &args); err != nil {
				return llm.CompletionResponse{}, fmt.Errorf("unmarshal tool_use input: %w", err)
			}
			calls = append(calls, llm.ToolCall{ID: use.ID, Name: use.Name, Parameters: args})
		}
	}

	return llm.CompletionResponse{
		Content:    text,
		ToolCalls:  calls,
		StopReason: string(out.StopReason),
		Usage: llm.Usage{
			PromptTokens:     int(out.Usage.InputTokens),
			CompletionTokens: int(out.Usage.OutputTokens),
		},
	}, nil
}

// Stream satisfies llm.LLMClient by draining a blocking Complete call.
func (c *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	out := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(out)
		resp, err := c.Complete(ctx, in)
		if err != nil {
			out <- llm.StreamChunk{Error: err}
			return
		}
		out <- llm.StreamChunk{Content: resp.Content}
		out <- llm.StreamChunk{Done: true}
	}()
	return out, nil
}

// GetModelName returns the configured Claude model identifier.
func (c *Client) GetModelName() string {
	return string(c.modelID)
}

// classifyError maps Anthropic SDK errors to structured error types.
func classifyError(err error) *llmerrors.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled by caller")
	}

	msg := err.Error()
	switch code := extractStatusCode(msg); code {
	case 401, 403:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeAuth, code, "invalid or missing API key")
	case 429:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeRateLimit, code, "Anthropic rate limit hit")
	case 400:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeBadPrompt, code, "request rejected as malformed")
	case 500, 502, 503, 504, 529:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeTransient, code, "Anthropic server error")
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "eof"),
		strings.Contains(lower, "reset"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network failure talking to Anthropic")
	case strings.Contains(lower, "rate"), strings.Contains(lower, "quota"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "throttling reported in error text")
	case strings.Contains(lower, "auth"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "api key"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "credential problem reported by API")
	case strings.Contains(lower, "invalid"), strings.Contains(lower, "too large"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "request rejected as invalid")
	}

	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "unrecognized Anthropic error")
}

// extractStatusCode pulls an HTTP status code out of an SDK error string.
// The Anthropic SDK includes status codes in error messages.
func extractStatusCode(msg string) int {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"status code: ", "status: ", "http "} {
		pos := strings.Index(lower, marker)
		if pos == -1 {
			continue
		}
		digits := pos + len(marker)
		if digits+3 > len(msg) {
			continue
		}
		for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504, 529} {
			if strings.HasPrefix(msg[digits:], fmt.Sprintf("%d", code)) {
				return code
			}
		}
	}
	return 0
}
