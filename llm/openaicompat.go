package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatProvider talks to any OpenAI-compatible chat completions
// endpoint: Groq, Mistral, OpenRouter, local Ollama, LMStudio and so on.
// It streams replies when the request has an OnToken callback.
type OpenAICompatProvider struct {
	apiKey       string
	baseURL      string
	model        string
	maxTokens    int
	temperature  float64
	providerName string
	retry        RetryConfig
	client       *http.Client
}

// OpenAICompatConfig holds configuration for OpenAI-compatible providers.
type OpenAICompatConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float64
	ProviderName string // For logging/identification
	Retry        RetryConfig
	HTTPClient   *http.Client
}

// NewOpenAICompatProvider creates a new OpenAI-compatible provider.
func NewOpenAICompatProvider(cfg OpenAICompatConfig) (*OpenAICompatProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required for openai-compatible provider")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.MaxTokens == 0 {
		return nil, fmt.Errorf("max_tokens is required")
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai-compat"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	return &OpenAICompatProvider{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		providerName: cfg.ProviderName,
		retry:        cfg.Retry,
		client:       client,
	}, nil
}

// OpenAI-compatible request/response types

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stop        []string     `json:"stop,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type oaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type oaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      oaiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage oaiUsage  `json:"usage"`
	Error *oaiError `json:"error,omitempty"`
}

type oaiStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *oaiUsage `json:"usage,omitempty"`
	// Groq reports usage on the final chunk under x_groq.
	XGroq *struct {
		Usage *oaiUsage `json:"usage,omitempty"`
	} `json:"x_groq,omitempty"`
	Error *oaiError `json:"error,omitempty"`
}

// Chat implements the Provider interface.
func (p *OpenAICompatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]oaiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, oaiMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := p.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	oaiReq := oaiRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Stop:        req.Stop,
		Stream:      req.OnToken != nil,
	}

	result, err := withRetry(ctx, p.providerName, p.retry, req.SingleAttempt, func() (*ChatResponse, error) {
		if oaiReq.Stream {
			return p.doStream(ctx, oaiReq, req.OnToken)
		}
		return p.doRequest(ctx, oaiReq)
	})
	if err != nil {
		return nil, err
	}
	result.Content = applyStop(result.Content, req.Stop)
	return result, nil
}

func (p *OpenAICompatProvider) post(ctx context.Context, req oaiRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 64<<10))
		switch httpResp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("rate limit exceeded (429): %s", string(respBody))
		case http.StatusPaymentRequired:
			return nil, fmt.Errorf("payment required (402): %s", string(respBody))
		default:
			return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
		}
	}
	return httpResp, nil
}

// doRequest makes a non-streaming request.
func (p *OpenAICompatProvider) doRequest(ctx context.Context, req oaiRequest) (*ChatResponse, error) {
	httpResp, err := p.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var resp oaiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}

	result := &ChatResponse{
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
		result.StopReason = resp.Choices[0].FinishReason
	}
	return result, nil
}

// doStream makes a streaming request and forwards each content delta to onToken.
func (p *OpenAICompatProvider) doStream(ctx context.Context, req oaiRequest, onToken func(string)) (*ChatResponse, error) {
	httpResp, err := p.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	result := &ChatResponse{Model: p.model}
	var content strings.Builder

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk oaiStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("failed to parse stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if chunk.Model != "" {
			result.Model = chunk.Model
		}
		usage := chunk.Usage
		if usage == nil && chunk.XGroq != nil {
			usage = chunk.XGroq.Usage
		}
		if usage != nil {
			result.InputTokens = usage.PromptTokens
			result.OutputTokens = usage.CompletionTokens
		}
		for _, choice := range chunk.Choices {
			if delta := choice.Delta.Content; delta != "" {
				content.WriteString(delta)
				onToken(delta)
			}
			if choice.FinishReason != nil {
				result.StopReason = *choice.FinishReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}

	result.Content = content.String()
	return result, nil
}

// Provider-specific base URLs
const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	MistralBaseURL    = "https://api.mistral.ai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OllamaLocalURL    = "http://localhost:11434/v1"
	LMStudioLocalURL  = "http://localhost:1234/v1"
)

// compatBaseURLs maps hosted and local OpenAI-compatible providers to their
// default endpoints.
var compatBaseURLs = map[string]string{
	"groq":       GroqBaseURL,
	"mistral":    MistralBaseURL,
	"openrouter": OpenRouterBaseURL,
	"ollama":     OllamaLocalURL,
	"lmstudio":   LMStudioLocalURL,
}

// NewGroqProvider creates a Groq provider.
func NewGroqProvider(cfg OpenAICompatConfig) (*OpenAICompatProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GroqBaseURL
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "groq"
	}
	return NewOpenAICompatProvider(cfg)
}
