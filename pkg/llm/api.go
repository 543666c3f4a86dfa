// Package llm defines the provider-neutral completion API. Concrete
// clients (anthropic, openai, google, ollama) implement LLMClient, and
// middleware composes over it.
package llm

import (
	"context"

	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

// CompletionRole identifies who authored a conversation message.
type CompletionRole string

const (
	// RoleSystem carries instructions and context, not conversation.
	RoleSystem CompletionRole = "system"
	// RoleUser is the human side of the conversation.
	RoleUser CompletionRole = "user"
	// RoleAssistant is the model side of the conversation.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureDefault is the stock temperature for conversational
	// replies. Low enough to stay on task, high enough to not sound canned.
	TemperatureDefault = 0.3

	// DefaultMaxTokens caps completions when a request does not set a budget.
	DefaultMaxTokens = 1024
)

// CompletionMessage is one turn of a conversation. Assistant turns may
// carry the tool calls the model made; user turns may carry the results
// being returned for them.
type CompletionMessage struct {
	Content     string
	Role        CompletionRole
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Parameters map[string]any `json:"parameters"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
}

// ToolResult carries one executed tool invocation's outcome back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Usage is the token accounting for one completion round-trip. Providers
// fill it from SDK metadata; zero values mean "not reported" and callers
// may estimate instead.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Add accumulates another round-trip's usage into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// CompletionRequest asks a provider for one completion over a conversation.
type CompletionRequest struct {
	Messages    []CompletionMessage
	Tools       []tools.ToolDefinition
	ToolChoice  string // "", "auto" or "any"
	MaxTokens   int
	Temperature float32
}

// CompletionResponse is a provider's answer to one CompletionRequest.
type CompletionResponse struct {
	ToolCalls  []ToolCall
	Content    string
	StopReason string // "end_turn", "max_tokens", "tool_use", ...
	Usage      Usage
}

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Error   error
	Content string
	Done    bool
}

// LLMClient is the interface every model provider implements.
type LLMClient interface { //nolint:revive // Keep conventional name
	// Complete runs one blocking completion.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream delivers a completion as incremental chunks.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// GetModelName reports which model the client talks to.
	GetModelName() string
}

// NewCompletionRequest builds a request over messages with the default
// token budget and temperature.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage wraps content in a system-role message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage wraps content in a user-role message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage wraps content in an assistant-role message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content}
}
