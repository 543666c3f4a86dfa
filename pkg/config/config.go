// Package config loads and validates the bot's YAML configuration and
// provides the static model registry and the encrypted secrets store.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration, loaded once at startup and passed by
// value to the components that need slices of it.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Discord DiscordConfig `yaml:"discord"`
	Tracker TrackerConfig `yaml:"tracker"`
	Context ContextConfig `yaml:"context"`
	Reply   ReplyConfig   `yaml:"reply"`
	Cache   CacheConfig   `yaml:"cache"`
	Agent   AgentConfig   `yaml:"agent"`
	Tiers   TiersConfig   `yaml:"tiers"`
	Metrics MetricsConfig `yaml:"metrics"`
	Secrets SecretsConfig `yaml:"secrets"`
}

// LLMConfig selects the model and completion parameters. The provider is
// derived from the model name via the KnownModels registry.
type LLMConfig struct {
	Model       string  `yaml:"model"`       // Model name, mapped to a provider via KnownModels
	MaxTokens   int     `yaml:"max_tokens"`  // Completion budget per request
	Temperature float32 `yaml:"temperature"` // Sampling temperature (0.0-2.0)
	RateTPM     int     `yaml:"rate_tpm"`    // Client-side tokens/minute throttle; 0 disables
	OllamaHost  string  `yaml:"ollama_host"` // Base URL for the ollama provider
}

// DiscordConfig holds chat-surface settings. The bot token itself comes from
// the secrets store, never from this file.
type DiscordConfig struct {
	CommandPrefix string `yaml:"command_prefix"` // Leading token for command-form messages, e.g. "!tai"
	Status        string `yaml:"status"`         // Presence text shown in the member list
}

// TrackerConfig points at the project tracker's GraphQL API.
type TrackerConfig struct {
	Endpoint string `yaml:"endpoint"` // GraphQL endpoint URL
	Team     string `yaml:"team"`     // Team key prefix for issue identifiers, e.g. "COD"
	Timeout  string `yaml:"timeout"`  // Per-request HTTP timeout, Go duration string
}

// TimeoutDuration returns the parsed request timeout. Validate guarantees it
// parses; the fallback covers direct struct construction in tests.
func (t *TrackerConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ContextConfig bounds how much surrounding conversation is gathered for
// each request.
type ContextConfig struct {
	ChannelWindow      int `yaml:"channel_window"`       // Most recent channel messages included
	ThreadParentWindow int `yaml:"thread_parent_window"` // Parent-channel messages prepended for thread requests
	ReplyChainDepth    int `yaml:"reply_chain_depth"`    // Maximum reply-chain hops walked
}

// ReplyConfig bounds outbound replies to the chat surface's message limit.
type ReplyConfig struct {
	MaxChars         int    `yaml:"max_chars"`         // Hard per-message character limit
	TruncationMarker string `yaml:"truncation_marker"` // Appended when a reply is cut
}

// CacheConfig controls the tracker entity cache.
type CacheConfig struct {
	TTL string `yaml:"ttl"` // Entity cache time-to-live, Go duration string
}

// TTLDuration returns the parsed cache TTL.
func (c *CacheConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// AgentConfig bounds the tool-calling loop.
type AgentConfig struct {
	MaxIterations int    `yaml:"max_iterations"` // Model round-trips per request before the loop is forced closed
	FallbackReply string `yaml:"fallback_reply"` // Sent when the loop ends with no text at all
}

// RateConfig is one tier's token bucket. Refill is expressed per minute in
// the file because that is how operators think about chat traffic; the
// admission controller converts to per-second.
type RateConfig struct {
	Capacity        float64 `yaml:"capacity"`          // Burst size (bucket starts full)
	RefillPerMinute float64 `yaml:"refill_per_minute"` // Sustained tokens regained per minute
}

// TierConfig grants one tier its chat groups, feature set, and rate limits.
type TierConfig struct {
	Groups   []string   `yaml:"groups"`   // Chat role names that map callers into this tier
	Features []string   `yaml:"features"` // Feature grants (basic_chat, tracker_read, ...)
	Rate     RateConfig `yaml:"rate"`
}

// TiersConfig enumerates the three tiers. The set is closed; classification
// checks admin groups first, then premium, and free is the floor for
// everyone else.
type TiersConfig struct {
	Free    TierConfig `yaml:"free"`
	Premium TierConfig `yaml:"premium"`
	Admin   TierConfig `yaml:"admin"`
}

// MetricsConfig controls the observability endpoint and where usage-report
// queries are answered from.
type MetricsConfig struct {
	Listen        string `yaml:"listen"`         // Address for /metrics and /healthz, e.g. ":9090"
	PrometheusURL string `yaml:"prometheus_url"` // Prometheus base URL for usage queries; empty disables them
}

// SecretsConfig locates the encrypted secrets file. Empty means env-only.
type SecretsConfig struct {
	File string `yaml:"file"`
}

// DefaultConfig returns a fully populated configuration. Load unmarshals the
// file over these values, so every omitted field keeps its default.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Model:       "claude-sonnet-4-5",
			MaxTokens:   1024,
			Temperature: 0.3,
			OllamaHost:  "http://localhost:11434",
		},
		Discord: DiscordConfig{
			CommandPrefix: "!tai",
			Status:        "watching the tracker",
		},
		Tracker: TrackerConfig{
			Team:    "COD",
			Timeout: "10s",
		},
		Context: ContextConfig{
			ChannelWindow:      20,
			ThreadParentWindow: 5,
			ReplyChainDepth:    5,
		},
		Reply: ReplyConfig{
			MaxChars:         2000,
			TruncationMarker: "… (truncated)",
		},
		Cache: CacheConfig{
			TTL: "5m",
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			FallbackReply: "I wasn't able to put together an answer this time. Please try rephrasing.",
		},
		Tiers: TiersConfig{
			Free: TierConfig{
				Features: []string{"basic_chat"},
				Rate:     RateConfig{Capacity: 5, RefillPerMinute: 10},
			},
			Premium: TierConfig{
				Groups:   []string{"premium"},
				Features: []string{"basic_chat", "tracker_read"},
				Rate:     RateConfig{Capacity: 10, RefillPerMinute: 60},
			},
			Admin: TierConfig{
				Groups:   []string{"admin"},
				Features: []string{"basic_chat", "tracker_read", "tracker_write", "usage_report"},
				Rate:     RateConfig{Capacity: 100, RefillPerMinute: 1000},
			},
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
	}
}

// Load reads and validates the YAML config at path. An empty path returns
// the validated defaults, which still need a tracker endpoint to pass.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks every tunable for a usable value. Structural checks only;
// feature-name validation happens where the feature set is defined.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}
	if _, err := GetModelProvider(c.LLM.Model); err != nil {
		return fmt.Errorf("llm.model: %w", err)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0.0 || c.LLM.Temperature > 2.0 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0, got %g", c.LLM.Temperature)
	}
	if c.LLM.RateTPM < 0 {
		return fmt.Errorf("llm.rate_tpm cannot be negative, got %d", c.LLM.RateTPM)
	}

	if c.Tracker.Endpoint == "" {
		return fmt.Errorf("tracker.endpoint cannot be empty")
	}
	if c.Tracker.Team == "" {
		return fmt.Errorf("tracker.team cannot be empty")
	}
	if d, err := time.ParseDuration(c.Tracker.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("tracker.timeout must be a positive duration, got %q", c.Tracker.Timeout)
	}

	if c.Context.ChannelWindow <= 0 {
		return fmt.Errorf("context.channel_window must be positive, got %d", c.Context.ChannelWindow)
	}
	if c.Context.ThreadParentWindow <= 0 {
		return fmt.Errorf("context.thread_parent_window must be positive, got %d", c.Context.ThreadParentWindow)
	}
	if c.Context.ReplyChainDepth <= 0 {
		return fmt.Errorf("context.reply_chain_depth must be positive, got %d", c.Context.ReplyChainDepth)
	}

	if c.Reply.MaxChars <= len(c.Reply.TruncationMarker) {
		return fmt.Errorf("reply.max_chars (%d) must exceed the truncation marker length (%d)",
			c.Reply.MaxChars, len(c.Reply.TruncationMarker))
	}

	if d, err := time.ParseDuration(c.Cache.TTL); err != nil || d <= 0 {
		return fmt.Errorf("cache.ttl must be a positive duration, got %q", c.Cache.TTL)
	}

	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.FallbackReply == "" {
		return fmt.Errorf("agent.fallback_reply cannot be empty")
	}

	for _, tier := range []struct {
		name string
		cfg  *TierConfig
	}{
		{"free", &c.Tiers.Free},
		{"premium", &c.Tiers.Premium},
		{"admin", &c.Tiers.Admin},
	} {
		if tier.cfg.Rate.Capacity <= 0 {
			return fmt.Errorf("tiers.%s.rate.capacity must be positive, got %g", tier.name, tier.cfg.Rate.Capacity)
		}
		if tier.cfg.Rate.RefillPerMinute <= 0 {
			return fmt.Errorf("tiers.%s.rate.refill_per_minute must be positive, got %g", tier.name, tier.cfg.Rate.RefillPerMinute)
		}
	}

	if c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen cannot be empty")
	}
	return nil
}
