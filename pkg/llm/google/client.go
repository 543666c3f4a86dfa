// Package google provides the Google Gemini implementation of llm.LLMClient.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/llmerrors"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

// Client adapts the Google GenAI client to llm.LLMClient.
// genai.NewClient needs a context, so creation is deferred to the first
// Complete call.
type Client struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewClient creates a raw Gemini client; middleware is applied at a higher level.
func NewClient(apiKey, model string) llm.LLMClient {
	return &Client{
		apiKey: apiKey,
		model:  model,
	}
}

// Complete runs one blocking generate call against the Gemini API.
func (g *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if g.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeAuth, fmt.Sprintf("failed to create Gemini client: %v", err))
		}
		g.client = client
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	temperature := in.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
		//nolint:gosec // MaxTokens validated at config load, overflow not reachable
		MaxOutputTokens: int32(maxTokens),
	}

	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	if len(in.Tools) > 0 {
		config.Tools = []*genai.Tool{
			{FunctionDeclarations: convertTools(in.Tools)},
		}
		mode := genai.FunctionCallingConfigModeAuto
		if in.ToolChoice == "any" {
			mode = genai.FunctionCallingConfigModeAny
		}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	response := llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: stopReason(result),
	}
	if calls := result.FunctionCalls(); len(calls) > 0 {
		response.ToolCalls = convertFunctionCalls(calls)
	}
	if result.UsageMetadata != nil {
		response.Usage = llm.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}

	return response, nil
}

// Stream adapts the blocking Complete call to the streaming interface.
func (g *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		res, err := g.Complete(ctx, in)
		if err != nil {
			ch <- llm.StreamChunk{Error: err}
			return
		}
		ch <- llm.StreamChunk{Content: res.Content}
		ch <- llm.StreamChunk{Done: true}
	}()
	return ch, nil
}

// GetModelName reports the configured Gemini model.
func (g *Client) GetModelName() string {
	return g.model
}

// convertMessages maps the conversation onto Gemini Content values. System
// messages do not travel in the content list; they are collected and
// returned separately for the SystemInstruction field.
func convertMessages(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var system []string
	var contents []*genai.Content

	for i := range messages {
		msg := &messages[i]

		var role string
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
			continue
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model" // Gemini's name for the assistant side
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		var parts []*genai.Part
		if msg.Content != "" {
			parts = append(parts, &genai.Part{Text: msg.Content})
		}

		for _, tc := range msg.ToolCalls {
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Parameters,
				},
			})
		}

		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			// Gemini matches responses by function name, carried in ToolCallID
			// when the call had no ID of its own.
			if tr.ToolCallID == "" {
				continue
			}
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name: tr.ToolCallID,
					Response: map[string]any{
						"content":  tr.Content,
						"is_error": tr.IsError,
					},
				},
			})
		}

		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}
	}

	return contents, strings.Join(system, "\n\n"), nil
}

// convertTools maps tool definitions onto Gemini function declarations.
func convertTools(toolDefs []tools.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(toolDefs))
	for i := range toolDefs {
		def := &toolDefs[i]

		props := make(map[string]*genai.Schema, len(def.InputSchema.Properties))
		//nolint:gocritic // rangeValCopy: Property size acceptable for this use case
		for name, prop := range def.InputSchema.Properties {
			props[name] = convertPropertyToGeminiSchema(&prop)
		}

		decls[i] = &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   def.InputSchema.Required,
			},
		}
	}
	return decls
}

var geminiScalarTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
}

// convertPropertyToGeminiSchema renders one Property as a genai.Schema,
// recursing through array item and object child schemas. Unknown types
// degrade to string.
func convertPropertyToGeminiSchema(prop *tools.Property) *genai.Schema {
	schema := &genai.Schema{Description: prop.Description}
	if len(prop.Enum) > 0 {
		schema.Enum = prop.Enum
	}

	switch prop.Type {
	case "array":
		schema.Type = genai.TypeArray
		if prop.Items != nil {
			schema.Items = convertPropertyToGeminiSchema(prop.Items)
		}
	case "object":
		schema.Type = genai.TypeObject
		if prop.Properties != nil {
			children := make(map[string]*genai.Schema, len(prop.Properties))
			for name, child := range prop.Properties {
				if child != nil {
					children[name] = convertPropertyToGeminiSchema(child)
				}
			}
			schema.Properties = children
		}
	default:
		t, ok := geminiScalarTypes[prop.Type]
		if !ok {
			t = genai.TypeString
		}
		schema.Type = t
	}

	return schema
}

// convertFunctionCalls extracts tool calls from a Gemini response.
func convertFunctionCalls(calls []*genai.FunctionCall) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	for i, call := range calls {
		// Gemini often omits call IDs; fall back to the function name so
		// results can still be matched by ToolCallID.
		id := call.ID
		if id == "" {
			id = call.Name
		}
		out[i] = llm.ToolCall{
			ID:         id,
			Name:       call.Name,
			Parameters: call.Args,
		}
	}
	return out
}

// stopReason derives a provider-neutral stop reason from a Gemini response.
func stopReason(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return "unknown"
	}
	if len(result.FunctionCalls()) > 0 {
		return "tool_use"
	}
	return "end_turn"
}

// classifyError tags Gemini failures with a retry category. The genai SDK
// wraps HTTP failures as text, so this goes by status codes and keywords in
// the message.
func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request cancelled or timed out")
	}

	text := err.Error()
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(text, "429") || strings.Contains(lower, "quota") || strings.Contains(lower, "resource exhausted"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "Gemini API rate limit")
	case strings.Contains(text, "401") || strings.Contains(text, "403") || strings.Contains(lower, "api key"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "Gemini API authentication failed")
	case strings.Contains(text, "400") || strings.Contains(lower, "invalid argument"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "Gemini API rejected request")
	case strings.Contains(text, "500") || strings.Contains(text, "503") || strings.Contains(lower, "unavailable"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "Gemini API server error")
	default:
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "Gemini API call failed")
	}
}
