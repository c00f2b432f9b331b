package llm

import "fmt"

const (
	defaultDeepSeekBaseURL   = "https://api.deepseek.com"
	defaultDeepSeekModel     = "deepseek-chat"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "deepseek/deepseek-chat"
)

// NewDeepSeekProvider returns an OpenAI-compatible provider for DeepSeek.
// DeepSeek only understands json_object output, so the schema travels in
// the system prompt and is enforced by local validation.
func NewDeepSeekProvider(cfg CompatConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:     cfg.APIKey,
		Model:      orDefault(cfg.Model, defaultDeepSeekModel),
		BaseURL:    orDefault(cfg.BaseURL, defaultDeepSeekBaseURL),
		JSONObject: true,
	})
}

// NewOpenRouterProvider returns an OpenAI-compatible provider for OpenRouter.
func NewOpenRouterProvider(cfg CompatConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:     cfg.APIKey,
		Model:      orDefault(cfg.Model, defaultOpenRouterModel),
		BaseURL:    orDefault(cfg.BaseURL, defaultOpenRouterBaseURL),
		JSONObject: true,
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
