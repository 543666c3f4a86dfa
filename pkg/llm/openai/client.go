// Package openai provides the OpenAI implementation of llm.LLMClient using
// the official Go SDK's Responses API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

// Client adapts the official OpenAI Go client to llm.LLMClient.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a raw OpenAI client; middleware is applied at a higher level.
func NewClient(apiKey, model string) llm.LLMClient {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// convertPropertyToSchema renders one Property as a JSON Schema fragment,
// recursing through array item and object child schemas.
func convertPropertyToSchema(prop *tools.Property) map[string]any {
	schema := map[string]any{"type": prop.Type}
	if prop.Description != "" {
		schema["description"] = prop.Description
	}
	if len(prop.Enum) > 0 {
		schema["enum"] = prop.Enum
	}

	switch prop.Type {
	case "array":
		if prop.Items != nil {
			schema["items"] = convertPropertyToSchema(prop.Items)
		}
	case "object":
		if len(prop.Properties) > 0 {
			children := make(map[string]any, len(prop.Properties))
			for name, child := range prop.Properties {
				if child != nil {
					children[name] = convertPropertyToSchema(child)
				}
			}
			schema["properties"] = children
		}
	}
	return schema
}

// flattenConversation renders the conversation as Responses API text input.
// Tool rounds are serialized inline; the Responses API receives tool
// definitions structurally but history as text.
func flattenConversation(messages []llm.CompletionMessage) string {
	var b strings.Builder
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			fmt.Fprintf(&b, "System: %s\n\n", msg.Content)
		case llm.RoleAssistant:
			if msg.Content != "" {
				fmt.Fprintf(&b, "Assistant: %s\n\n", msg.Content)
			}
			for j := range msg.ToolCalls {
				tc := &msg.ToolCalls[j]
				args, _ := json.Marshal(tc.Parameters)
				fmt.Fprintf(&b, "Assistant called tool %s(%s)\n\n", tc.Name, args)
			}
		default: // user
			for j := range msg.ToolResults {
				tr := &msg.ToolResults[j]
				status := "ok"
				if tr.IsError {
					status = "error"
				}
				fmt.Fprintf(&b, "Tool result [%s] (%s): %s\n\n", tr.ToolCallID, status, tr.Content)
			}
			if msg.Content != "" {
				b.WriteString(msg.Content)
				b.WriteString("\n\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// outputBudget clamps the requested completion budget to what the model can
// actually emit, so oversized requests don't 400.
func outputBudget(model string, requested int) int {
	n := requested
	if n <= 0 {
		n = llm.DefaultMaxTokens
	}
	if info, ok := config.KnownModels[model]; ok && info.MaxOutputTokens > 0 && n > info.MaxOutputTokens {
		n = info.MaxOutputTokens
	}
	return n
}

// Complete runs one blocking call through the Responses API.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(outputBudget(o.model, in.MaxTokens))),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(flattenConversation(in.Messages))},
	}

	if len(in.Tools) > 0 {
		toolParams := make([]responses.ToolUnionParam, len(in.Tools))
		for i := range in.Tools {
			def := &in.Tools[i]
			props := make(map[string]any, len(def.InputSchema.Properties))
			for name, prop := range def.InputSchema.Properties {
				props[name] = convertPropertyToSchema(&prop)
			}

			toolParams[i] = responses.ToolUnionParam{
				OfFunction: &responses.FunctionToolParam{
					Name:        def.Name,
					Description: openai.String(def.Description),
					Parameters: openai.FunctionParameters(map[string]any{
						"type":       "object",
						"properties": props,
						"required":   def.InputSchema.Required,
					}),
				},
			}
		}
		params.Tools = toolParams
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("OpenAI Responses API failed: %w", err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, fmt.Errorf("empty response from OpenAI Responses API")
	}

	var toolCalls []llm.ToolCall
	for i := range resp.Output {
		item := &resp.Output[i]
		if item.Type != "function_call" {
			// Text arrives via OutputText() below; reasoning items are internal.
			continue
		}

		call := item.AsFunctionCall()
		var parameters map[string]any
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &parameters); err != nil {
				continue
			}
		}
		toolCalls = append(toolCalls, llm.ToolCall{
			ID:         call.ID,
			Name:       call.Name,
			Parameters: parameters,
		})
	}

	return llm.CompletionResponse{
		Content:   resp.OutputText(),
		ToolCalls: toolCalls,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// Stream satisfies llm.LLMClient by draining a blocking Complete call.
func (o *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		res, err := o.Complete(ctx, in)
		if err != nil {
			ch <- llm.StreamChunk{Error: err}
			return
		}
		ch <- llm.StreamChunk{Content: res.Content}
		ch <- llm.StreamChunk{Done: true}
	}()
	return ch, nil
}

// GetModelName reports the configured OpenAI model.
func (o *Client) GetModelName() string {
	return o.model
}
