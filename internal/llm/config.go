package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted by DRILL_LLM_PROVIDER.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderDeepSeek   = "deepseek"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use. Defaults to deepseek,
	// which is what the drill prompts were tuned against.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter CompatConfig
	DeepSeek   CompatConfig
	Retry      RetryConfig

	// Timeout bounds a single request including retries.
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	// JSONObject switches structured output from json_schema to the older
	// json_object mode. The schema is then carried in the system prompt.
	JSONObject bool
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// CompatConfig configures an OpenAI-compatible endpoint such as DeepSeek
// or OpenRouter. Empty fields take the preset's defaults.
type CompatConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderDeepSeek,
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// ConfigFromEnv builds a Config from DRILL_LLM_* variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.Provider, "DRILL_LLM_PROVIDER")

	setString(&cfg.Anthropic.APIKey, "DRILL_LLM_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "DRILL_LLM_ANTHROPIC_MODEL")

	setString(&cfg.OpenAI.APIKey, "DRILL_LLM_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "DRILL_LLM_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "DRILL_LLM_OPENAI_BASE_URL")

	setString(&cfg.Gemini.APIKey, "DRILL_LLM_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "DRILL_LLM_GEMINI_MODEL")

	setString(&cfg.OpenRouter.APIKey, "DRILL_LLM_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "DRILL_LLM_OPENROUTER_MODEL")

	setString(&cfg.DeepSeek.APIKey, "DRILL_LLM_DEEPSEEK_API_KEY")
	setString(&cfg.DeepSeek.Model, "DRILL_LLM_DEEPSEEK_MODEL")
	setString(&cfg.DeepSeek.BaseURL, "DRILL_LLM_DEEPSEEK_BASE_URL")

	if v := os.Getenv("DRILL_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig checks the vendors' standard API key variables
// (DeepSeek, Gemini, OpenAI, Anthropic, OpenRouter) and returns a Config
// for the first one found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("DEEPSEEK_API_KEY"); k != "" {
		cfg.Provider = ProviderDeepSeek
		cfg.DeepSeek.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenRouter
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// ResolveConfig returns the DRILL_LLM_* configuration when it validates,
// otherwise whatever DiscoverConfig finds.
func ResolveConfig() (Config, error) {
	cfg := ConfigFromEnv()
	err := cfg.Validate()
	if err == nil {
		return cfg, nil
	}
	discovered, ok := DiscoverConfig()
	if !ok {
		return Config{}, err
	}
	discovered.Timeout = cfg.Timeout
	return discovered, nil
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("DRILL_LLM_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("DRILL_LLM_OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("DRILL_LLM_GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("DRILL_LLM_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case ProviderDeepSeek:
		if c.DeepSeek.APIKey == "" {
			return fmt.Errorf("DRILL_LLM_DEEPSEEK_API_KEY is required for the deepseek provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
