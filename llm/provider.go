// Package llm provides chat model providers and start-up model selection.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatRequest represents a chat request to a model.
type ChatRequest struct {
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`

	// Temperature overrides the provider default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`

	// Stop lists sequences at which generation should end. Providers that
	// cannot pass them upstream truncate the reply instead.
	Stop []string `json:"stop,omitempty"`

	// OnToken receives content as it is generated. Providers without
	// streaming support call it once with the whole reply.
	OnToken func(token string) `json:"-"`

	// SingleAttempt disables the provider's retry loop.
	SingleAttempt bool `json:"-"`
}

// ChatResponse represents a chat response from a model.
type ChatResponse struct {
	Content      string `json:"content"`
	StopReason   string `json:"stop_reason"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// Provider is the interface for chat model providers.
type Provider interface {
	// Chat sends a chat request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ProviderConfig selects and configures a provider implementation.
type ProviderConfig struct {
	Provider    string      `json:"provider"` // groq, openai, anthropic, google, mistral, openrouter, ollama, openai-compat
	Model       string      `json:"model"`
	APIKey      string      `json:"api_key"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature float64     `json:"temperature"`
	BaseURL     string      `json:"base_url"` // Custom endpoint for OpenAI-compatible servers
	Retry       RetryConfig `json:"retry"`
}

// RetryConfig holds retry settings for model calls.
type RetryConfig struct {
	MaxRetries  int           `json:"max_retries"`  // 0 means default (5); negative disables retries
	MaxBackoff  time.Duration `json:"max_backoff"`  // default 60s
	InitBackoff time.Duration `json:"init_backoff"` // default 1s
}

// Validate validates the configuration.
func (c *ProviderConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.APIKey == "" && !keylessProviders[c.Provider] {
		return fmt.Errorf("api key is required")
	}
	if c.MaxTokens == 0 {
		return fmt.Errorf("max_tokens is required")
	}
	return nil
}

// ApplyDefaults fills the generation defaults used by nexa.
func (c *ProviderConfig) ApplyDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
}

// keylessProviders run locally and accept requests without a key.
var keylessProviders = map[string]bool{
	"ollama":   true,
	"lmstudio": true,
}

// --- Mock Provider for Testing ---

// MockProvider is a scripted provider for tests.
// Responses are returned in order; the last one repeats once the script runs out.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	model     string
	err       error
	requests  []ChatRequest

	// ChatFunc can be overridden for custom behavior
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider creates a mock that answers with the given replies in order.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses, model: "mock-model"}
}

// SetResponse replaces the script with a single reply.
func (p *MockProvider) SetResponse(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = []string{content}
}

// SetResponses replaces the script.
func (p *MockProvider) SetResponses(contents ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = contents
}

// SetModel sets the model name reported in responses.
func (p *MockProvider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

// SetError makes every call fail with err.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Requests returns every request received so far.
func (p *MockProvider) Requests() []ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ChatRequest(nil), p.requests...)
}

// LastRequest returns the last request, or nil.
func (p *MockProvider) LastRequest() *ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// CallCount returns the number of Chat calls made.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Chat implements the Provider interface.
func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	call := len(p.requests)
	p.requests = append(p.requests, req)
	chatFunc := p.ChatFunc
	err := p.err
	var content string
	if n := len(p.responses); n > 0 {
		if call < n {
			content = p.responses[call]
		} else {
			content = p.responses[n-1]
		}
	}
	model := p.model
	p.mu.Unlock()

	if chatFunc != nil {
		return chatFunc(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	content = applyStop(content, req.Stop)
	if req.OnToken != nil && content != "" {
		req.OnToken(content)
	}
	return &ChatResponse{
		Content:    content,
		StopReason: "stop",
		Model:      model,
	}, nil
}
