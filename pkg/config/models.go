package config

import (
	"fmt"
	"strings"
)

// Provider names as used in model routing and secrets lookup.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// ModelInfo carries the static facts about one model: who serves it, what
// it costs, and how big its windows are. Compiled in, not configurable.
type ModelInfo struct {
	Provider         string
	InputCPM         float64 // USD per million prompt tokens
	OutputCPM        float64 // USD per million completion tokens
	MaxContextTokens int     // prompt window
	MaxOutputTokens  int     // completion ceiling
}

// KnownModels maps model names to their pricing and limits. Models missing
// here still work; their provider is inferred from ProviderPatterns and
// their cost reports as zero.
//
// Fields: provider, input CPM, output CPM, context window, output ceiling.
//
//nolint:gochecknoglobals // static model table
var KnownModels = map[string]ModelInfo{
	"claude-3-7-sonnet-20250219": {ProviderAnthropic, 3.0, 15.0, 200000, 8192},
	"claude-sonnet-4-5":          {ProviderAnthropic, 3.0, 15.0, 200000, 8192},
	"claude-opus-4-1":            {ProviderAnthropic, 15.0, 75.0, 200000, 16384},

	"gpt-4o":  {ProviderOpenAI, 2.5, 10.0, 128000, 4096},
	"gpt-5":   {ProviderOpenAI, 20.0, 60.0, 128000, 4096},
	"o3-mini": {ProviderOpenAI, 1.1, 4.4, 128000, 16384},
	"o4-mini": {ProviderOpenAI, 1.1, 4.4, 128000, 16384},

	"gemini-2.0-flash": {ProviderGoogle, 0.10, 0.40, 1048576, 8192},
	"gemini-2.5-flash": {ProviderGoogle, 0.30, 2.50, 1048576, 65536},
}

// ProviderPattern infers a provider from a model name prefix.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns covers models not in the table, so upgrading to a newer
// model name needs no code change. Checked in order; first prefix wins.
//
//nolint:gochecknoglobals // static inference rules
var ProviderPatterns = []ProviderPattern{
	{Prefix: "claude", Provider: ProviderAnthropic},
	{Prefix: "gpt", Provider: ProviderOpenAI},
	{Prefix: "o1", Provider: ProviderOpenAI},
	{Prefix: "o3", Provider: ProviderOpenAI},
	{Prefix: "o4", Provider: ProviderOpenAI},
	{Prefix: "gemini", Provider: ProviderGoogle},
	{Prefix: "phi", Provider: ProviderOllama},
	{Prefix: "llama", Provider: ProviderOllama},
	{Prefix: "qwen", Provider: ProviderOllama},
	{Prefix: "mistral", Provider: ProviderOllama},
	{Prefix: "deepseek", Provider: ProviderOllama},
	{Prefix: "ollama:", Provider: ProviderOllama}, // explicit, e.g. "ollama:phi4"
}

// matchProvider returns the first pattern provider the name matches, or "".
func matchProvider(modelName string) string {
	for _, pat := range ProviderPatterns {
		if strings.HasPrefix(modelName, pat.Prefix) {
			return pat.Provider
		}
	}
	return ""
}

// GetModelProvider maps a model name to its API provider, consulting the
// table first and the prefix patterns second. A name that matches neither
// is a configuration error.
func GetModelProvider(modelName string) (string, error) {
	if info, ok := KnownModels[modelName]; ok {
		return info.Provider, nil
	}
	if p := matchProvider(modelName); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("model %q matches no known provider or name pattern", modelName)
}

// GetModelInfo looks up a model's facts. Unknown models report false and
// get an inferred provider with conservative windows and zero cost.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, ok := KnownModels[modelName]; ok {
		return info, true
	}
	return ModelInfo{Provider: matchProvider(modelName), MaxContextTokens: 32000, MaxOutputTokens: 4096}, false
}

// EstimateCostUSD prices one completion round-trip from the table's
// per-million rates. Unknown models cost zero rather than guessing.
func EstimateCostUSD(modelName string, promptTokens, completionTokens int) float64 {
	info, known := GetModelInfo(modelName)
	if !known {
		return 0
	}
	return float64(promptTokens)/1e6*info.InputCPM + float64(completionTokens)/1e6*info.OutputCPM
}
