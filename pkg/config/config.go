// Package config provides configuration loading, validation, and management for botchat.
// It handles YAML config files, environment variable overrides, and bot definitions.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"botchat/pkg/chat"
)

// Provider name constants.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
)

// Known model identifier defaults per provider.
const (
	ModelClaudeSonnetLatest = "claude-sonnet-4-20250514"
	ModelGPT4o              = "gpt-4o"
	ModelGeminiFlash        = "gemini-2.0-flash"
	ModelLlama3             = "llama3.1"
)

// Default sampling parameters.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// Bot defines one bot persona: identity plus the behavioral knobs the
// pipeline reads. Read-only to the pipeline during a single invocation.
//
//nolint:govet // fieldalignment: logical grouping preferred over memory optimization
type Bot struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	SystemPrompt         string `yaml:"system_prompt"`
	PreprocessingPrompt  string `yaml:"preprocessing_prompt,omitempty"`
	PostprocessingPrompt string `yaml:"postprocessing_prompt,omitempty"`

	EnableReprocessing       bool   `yaml:"enable_reprocessing"`
	ReprocessingCriteria     string `yaml:"reprocessing_criteria,omitempty"`
	ReprocessingInstructions string `yaml:"reprocessing_instructions,omitempty"`

	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	UseTools    bool    `yaml:"use_tools"`

	// VoiceGhost marks the voice-mode variant of a bot; preprocessing and
	// tool stages are suppressed for it.
	VoiceGhost bool `yaml:"voice_ghost,omitempty"`
}

// Config is the top-level botchat configuration document.
type Config struct {
	Bots     []Bot         `yaml:"bots"`
	Settings chat.Settings `yaml:"settings"`

	// PrometheusURL is the address of the Prometheus server used by the
	// metrics query service. Optional.
	PrometheusURL string `yaml:"prometheus_url,omitempty"`

	// StorePath is the SQLite conversation store location. Optional;
	// empty selects the in-memory store.
	StorePath string `yaml:"store_path,omitempty"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Bots {
		bot := &c.Bots[i]
		if bot.MaxTokens <= 0 {
			bot.MaxTokens = DefaultMaxTokens
		}
		if bot.Temperature == 0 {
			bot.Temperature = DefaultTemperature
		}
		if bot.Model == "" {
			bot.Model = defaultModelFor(bot.Provider)
		}
	}
	if c.Settings.MaxReprocessingDepth <= 0 {
		c.Settings.MaxReprocessingDepth = chat.DefaultMaxReprocessingDepth
	}
}

func defaultModelFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return ModelGPT4o
	case ProviderOllama:
		return ModelLlama3
	case ProviderGemini:
		return ModelGeminiFlash
	default:
		return ModelClaudeSonnetLatest
	}
}

// Validate checks the configuration for common mistakes with actionable messages.
func (c *Config) Validate() error {
	if len(c.Bots) == 0 {
		return fmt.Errorf("config has no bots: define at least one entry under 'bots'")
	}

	seen := make(map[string]bool, len(c.Bots))
	for i := range c.Bots {
		bot := &c.Bots[i]
		if bot.ID == "" {
			return fmt.Errorf("bot at index %d has no id", i)
		}
		if seen[bot.ID] {
			return fmt.Errorf("duplicate bot id %q", bot.ID)
		}
		seen[bot.ID] = true

		if bot.Temperature < 0 || bot.Temperature > 2.0 {
			return fmt.Errorf("bot %q: temperature must be between 0.0 and 2.0, got %v", bot.ID, bot.Temperature)
		}
		// EnableReprocessing with a blank criterion is valid: the evaluator
		// treats it as "no reprocessing".
	}
	return nil
}

// FindBot returns the bot with the given id, or nil.
func (c *Config) FindBot(id string) *Bot {
	for i := range c.Bots {
		if c.Bots[i].ID == id {
			return &c.Bots[i]
		}
	}
	return nil
}

// APIKeyFor returns the provider's API key from the environment, or empty
// when unset. Callers decide how to fall back (secrets file, prompt).
func APIKeyFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return "" // ollama needs no key
	}
}
