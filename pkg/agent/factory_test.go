package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Koplal/tai-discord-bot/pkg/config"
)

type mapSecrets map[string]string

func (m mapSecrets) Get(name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not found", name)
}

func TestNewLLMClientSelectsProvider(t *testing.T) {
	secrets := mapSecrets{
		config.SecretAnthropicAPIKey: "sk-ant-test",
		config.SecretOpenAIAPIKey:    "sk-test",
		config.SecretGoogleAPIKey:    "g-test",
	}

	tests := []struct {
		model     string
		wantModel string
	}{
		{model: "claude-sonnet-4-5", wantModel: "claude-sonnet-4-5"},
		{model: "gpt-4o", wantModel: "gpt-4o"},
		{model: "gemini-2.5-flash", wantModel: "gemini-2.5-flash"},
		{model: "ollama:llama3.2", wantModel: "llama3.2"},
	}
	for _, tt := range tests {
		cfg := config.LLMConfig{Model: tt.model, MaxTokens: 512, OllamaHost: "http://localhost:11434"}
		client, err := NewLLMClient(cfg, secrets, nil, nil)
		if err != nil {
			t.Fatalf("NewLLMClient(%q) returned error: %v", tt.model, err)
		}
		if got := client.GetModelName(); got != tt.wantModel {
			t.Errorf("GetModelName() = %q for model %q, want %q", got, tt.model, tt.wantModel)
		}
	}
}

func TestNewLLMClientUnknownModel(t *testing.T) {
	cfg := config.LLMConfig{Model: "mystery-model"}
	if _, err := NewLLMClient(cfg, mapSecrets{}, nil, nil); err == nil {
		t.Fatal("NewLLMClient returned nil error for unknown model")
	}
}

func TestNewLLMClientMissingCredentials(t *testing.T) {
	cfg := config.LLMConfig{Model: "claude-sonnet-4-5"}
	_, err := NewLLMClient(cfg, mapSecrets{}, nil, nil)
	if err == nil {
		t.Fatal("NewLLMClient returned nil error without credentials")
	}
	if !strings.Contains(err.Error(), "credentials") {
		t.Errorf("error = %q, want mention of credentials", err)
	}
}
