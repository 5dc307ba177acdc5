package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is one of "openai", "anthropic", "gemini", "mock".
	Provider string

	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig
	Retry     RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

type OpenAIConfig struct {
	APIKey  string
	Model   string // default "gpt-4o-mini"
	BaseURL string // optional override for OpenAI-compatible APIs
}

type AnthropicConfig struct {
	APIKey string
	Model  string // default "claude-haiku"
}

type GeminiConfig struct {
	APIKey string
	Model  string // default "gemini-flash"
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from STUDYDECK_* variables, falling back
// to defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if p := os.Getenv("STUDYDECK_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	}
	if k := os.Getenv("STUDYDECK_OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
	}
	if m := os.Getenv("STUDYDECK_OPENAI_MODEL"); m != "" {
		cfg.OpenAI.Model = m
	}
	if u := os.Getenv("STUDYDECK_OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}
	if k := os.Getenv("STUDYDECK_ANTHROPIC_API_KEY"); k != "" {
		cfg.Anthropic.APIKey = k
	}
	if m := os.Getenv("STUDYDECK_ANTHROPIC_MODEL"); m != "" {
		cfg.Anthropic.Model = m
	}
	if k := os.Getenv("STUDYDECK_GEMINI_API_KEY"); k != "" {
		cfg.Gemini.APIKey = k
	}
	if m := os.Getenv("STUDYDECK_GEMINI_MODEL"); m != "" {
		cfg.Gemini.Model = m
	}

	return cfg
}

// DiscoverConfig probes the standard vendor key variables in priority
// order and returns a Config for the first key found. Returns false when
// no key is set, which callers treat as "run without an LLM".
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its key.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("STUDYDECK_OPENAI_API_KEY is required for the openai provider")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("STUDYDECK_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("STUDYDECK_GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
