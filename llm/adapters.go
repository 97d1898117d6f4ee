package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a provider based on the configuration.
// If Provider is empty, it is inferred from the Model name.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" && cfg.Model != "" {
		cfg.Provider = InferProviderFromModel(cfg.Model)
		if cfg.Provider == "" {
			return nil, fmt.Errorf("cannot determine provider for model %q; set provider explicitly", cfg.Model)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Retry:       cfg.Retry,
		})

	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Retry:       cfg.Retry,
		})

	case "google":
		return NewGoogleProvider(GoogleConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Retry:       cfg.Retry,
		})

	case "groq", "mistral", "openrouter", "ollama", "lmstudio", "openai-compat":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = compatBaseURLs[cfg.Provider]
		}
		if baseURL == "" {
			return nil, fmt.Errorf("base_url is required for provider %s", cfg.Provider)
		}
		return NewOpenAICompatProvider(OpenAICompatConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      baseURL,
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
			ProviderName: cfg.Provider,
			Retry:        cfg.Retry,
		})

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// InferProviderFromModel returns the provider name based on model name patterns.
// Llama and Mixtral builds are served from Groq.
func InferProviderFromModel(model string) string {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "claude"):
		return "anthropic"

	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "chatgpt"):
		return "openai"

	case strings.HasPrefix(model, "gemini"):
		return "google"

	case strings.HasPrefix(model, "llama"),
		strings.HasPrefix(model, "mixtral-8x7b"),
		strings.HasPrefix(model, "gemma"),
		strings.HasPrefix(model, "qwen"),
		strings.HasPrefix(model, "deepseek-r1-distill"):
		return "groq"

	case strings.HasPrefix(model, "mistral"),
		strings.HasPrefix(model, "open-mixtral"),
		strings.HasPrefix(model, "codestral"):
		return "mistral"
	}

	// OpenRouter models are namespaced (vendor/model).
	if strings.Contains(model, "/") {
		return "openrouter"
	}
	return ""
}
