package anthropic

import (
	"strings"
	"testing"

	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/llm/llmerrors"
)

func TestBuildParams(t *testing.T) {
	tests := []struct {
		name         string
		input        []llm.CompletionMessage
		expectSystem string
		expectMsgLen int
		expectErr    bool
		errContains  string
	}{
		{
			name:        "empty messages",
			input:       []llm.CompletionMessage{},
			expectErr:   true,
			errContains: "message list cannot be empty",
		},
		{
			name: "system message extracted",
			input: []llm.CompletionMessage{
				{Role: llm.RoleSystem, Content: "You are Tai"},
				{Role: llm.RoleUser, Content: "what shipped yesterday?"},
			},
			expectSystem: "You are Tai",
			expectMsgLen: 1,
		},
		{
			name: "multiple system messages concatenated",
			input: []llm.CompletionMessage{
				{Role: llm.RoleSystem, Content: "You are Tai"},
				{Role: llm.RoleSystem, Content: "Be concise"},
				{Role: llm.RoleUser, Content: "what shipped yesterday?"},
			},
			expectSystem: "You are Tai\n\nBe concise",
			expectMsgLen: 1,
		},
		{
			name: "alternation preserved",
			input: []llm.CompletionMessage{
				{Role: llm.RoleUser, Content: "what's open for COD?"},
				{Role: llm.RoleAssistant, Content: "Six issues are open."},
				{Role: llm.RoleUser, Content: "which are urgent?"},
			},
			expectMsgLen: 3,
		},
		{
			name: "consecutive user messages merged",
			input: []llm.CompletionMessage{
				{Role: llm.RoleUser, Content: "triage the new bug"},
				{Role: llm.RoleUser, Content: "it's the login one"},
			},
			expectMsgLen: 1,
		},
		{
			name: "ends with assistant returns error",
			input: []llm.CompletionMessage{
				{Role: llm.RoleUser, Content: "any blockers?"},
				{Role: llm.RoleAssistant, Content: "None logged."},
			},
			expectErr:   true,
			errContains: "last message must be user",
		},
		{
			name: "starts with assistant returns error",
			input: []llm.CompletionMessage{
				{Role: llm.RoleAssistant, Content: "Ready."},
				{Role: llm.RoleUser, Content: "status update"},
			},
			expectErr:   true,
			errContains: "first message must be user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, msgs, err := buildParams(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %v, want substring %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildParams: %v", err)
			}
			if system != tt.expectSystem {
				t.Errorf("system = %q, want %q", system, tt.expectSystem)
			}
			if len(msgs) != tt.expectMsgLen {
				t.Errorf("got %d turns, want %d", len(msgs), tt.expectMsgLen)
			}
		})
	}
}

func TestBuildParamsToolRound(t *testing.T) {
	input := []llm.CompletionMessage{
		{Role: llm.RoleUser, Content: "create an issue for the login bug"},
		{
			Role:    llm.RoleAssistant,
			Content: "Creating it now.",
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "create_issue", Parameters: map[string]any{"title": "Login bug"}},
			},
		},
		{
			Role: llm.RoleUser,
			ToolResults: []llm.ToolResult{
				{ToolCallID: "call_1", Content: `{"success":true}`},
			},
		},
	}

	_, msgs, err := buildParams(input)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d turns, want 3", len(msgs))
	}

	// Assistant turn carries text then tool_use.
	assistant := msgs[1]
	if len(assistant.Content) != 2 {
		t.Fatalf("got %d assistant blocks, want 2", len(assistant.Content))
	}
	if assistant.Content[1].OfToolUse == nil {
		t.Error("expected tool_use block in assistant turn")
	} else if assistant.Content[1].OfToolUse.ID != "call_1" {
		t.Errorf("tool_use ID mismatch: %s", assistant.Content[1].OfToolUse.ID)
	}

	// Final user turn carries the tool_result.
	final := msgs[2]
	if len(final.Content) != 1 || final.Content[0].OfToolResult == nil {
		t.Fatalf("expected single tool_result block, got %+v", final.Content)
	}
	if final.Content[0].OfToolResult.ToolUseID != "call_1" {
		t.Errorf("tool_result pairing mismatch: %s", final.Content[0].OfToolResult.ToolUseID)
	}
}

func TestMergeUserBlocksKeepsToolResultsFirst(t *testing.T) {
	input := []llm.CompletionMessage{
		{Role: llm.RoleUser, Content: "start"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_issue"}}},
		{Role: llm.RoleUser, ToolResults: []llm.ToolResult{{ToolCallID: "c1", Content: "ok"}}},
		{Role: llm.RoleUser, Content: "also, one more thing"},
	}

	_, msgs, err := buildParams(input)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d turns after merge, want 3", len(msgs))
	}

	merged := msgs[2]
	if len(merged.Content) != 2 {
		t.Fatalf("got %d blocks in merged user turn, want 2", len(merged.Content))
	}
	if merged.Content[0].OfToolResult == nil {
		t.Error("tool_result block must come first in a user turn")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		errStr string
		expect llmerrors.ErrorType
	}{
		{"request failed with status code: 429", llmerrors.ErrorTypeRateLimit},
		{"request failed with status code: 401", llmerrors.ErrorTypeAuth},
		{"request failed with status code: 503", llmerrors.ErrorTypeTransient},
		{"connection reset by peer", llmerrors.ErrorTypeTransient},
		{"something inexplicable", llmerrors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		err := classifyError(stringError(tt.errStr))
		if err.Type != tt.expect {
			t.Errorf("classifyError(%q) = %s, want %s", tt.errStr, err.Type, tt.expect)
		}
	}
}

type stringError string

func (e stringError) Error() string { return string(e) }
