// Package tools provides the tracker tool catalog exposed to the model:
// schema types, a sealed registry, and per-feature tool providers.
package tools

import (
	"context"
)

// Property describes a single parameter in a tool's input schema.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Default     interface{}          `json:"default,omitempty"`
}

// InputSchema is a JSON-schema fragment describing a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is the wire-level description of a tool sent to the model.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// Tool is implemented by every catalog entry.
type Tool interface {
	// Definition returns the tool's definition in provider API format.
	Definition() ToolDefinition

	// Name is the identifier the model calls the tool by.
	Name() string

	// PromptDocumentation renders a markdown usage guide for the system prompt.
	PromptDocumentation() string

	// Exec runs the tool against the tracker.
	// Results are plain data (usually map[string]any with a "success" key);
	// an error return marks the invocation failed for the model.
	Exec(ctx context.Context, args map[string]any) (any, error)
}
