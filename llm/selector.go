package llm

import (
	"context"
	"sync"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/logging"
)

// Factory builds a provider handle for one candidate model.
type Factory func(model string) (Provider, error)

// KeySource resolves provider API keys. *credentials.Credentials satisfies it.
type KeySource interface {
	Require(provider string) (string, error)
}

// FactoryConfig configures NewFactory.
type FactoryConfig struct {
	// Provider forces a provider for every model. Empty infers it per model.
	Provider    string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Retry       RetryConfig
	Keys        KeySource

	// Tracing wraps every provider with TracingProvider.
	Tracing bool
}

// NewFactory returns a Factory that resolves each model's provider and key.
// A missing key fails that candidate with an UNAUTHORIZED error.
func NewFactory(cfg FactoryConfig) Factory {
	return func(model string) (Provider, error) {
		provider := cfg.Provider
		if provider == "" {
			provider = InferProviderFromModel(model)
		}
		if provider == "" {
			return nil, errors.Newf(errors.ErrCodeUnsupported, "cannot determine provider for model %q", model)
		}

		var key string
		if !keylessProviders[provider] && cfg.Keys != nil {
			k, err := cfg.Keys.Require(provider)
			if err != nil {
				return nil, err
			}
			key = k
		}

		pc := ProviderConfig{
			Provider:    provider,
			Model:       model,
			APIKey:      key,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			BaseURL:     cfg.BaseURL,
			Retry:       cfg.Retry,
		}
		pc.ApplyDefaults()

		p, err := NewProvider(pc)
		if err != nil {
			return nil, err
		}
		if cfg.Tracing {
			p = WithTracing(p, provider, model)
		}
		return p, nil
	}
}

// Probe sends one liveness request: a single "test" message limited to one
// output token, without retries.
func Probe(ctx context.Context, p Provider) error {
	_, err := p.Chat(ctx, ChatRequest{
		Messages:      []Message{{Role: "user", Content: "test"}},
		MaxTokens:     1,
		SingleAttempt: true,
	})
	return err
}

// Selection is the outcome of a successful Select.
type Selection struct {
	Model    string
	Provider Provider
}

// Selector picks the first candidate model that answers a probe and keeps
// it for its own lifetime.
type Selector struct {
	candidates []string
	factory    Factory
	logger     *logging.Logger

	mu       sync.Mutex
	selected *Selection
	attempts []Attempt
}

// Attempt records the outcome of one candidate during selection.
type Attempt struct {
	Model string
	Err   error
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithSelectorLogger sets the logger that receives the status lines.
func WithSelectorLogger(l *logging.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// NewSelector creates a selector over candidates in priority order.
func NewSelector(candidates []string, factory Factory, opts ...SelectorOption) *Selector {
	s := &Selector{
		candidates: append([]string(nil), candidates...),
		factory:    factory,
		logger:     logging.New().WithComponent("llm"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the cached selection or probes candidates in order until
// one answers. Construction and probe failures are logged and skipped.
// When every candidate fails it returns a NO_MODEL_AVAILABLE error.
func (s *Selector) Select(ctx context.Context) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != nil {
		return s.selected, nil
	}

	s.attempts = s.attempts[:0]
	for _, model := range s.candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "model selection interrupted")
		}

		p, err := s.factory(model)
		if err == nil {
			err = Probe(ctx, p)
		}
		s.attempts = append(s.attempts, Attempt{Model: model, Err: err})
		s.logger.ModelAttempt(model, err)
		if err != nil {
			continue
		}

		s.logger.ModelSelected(model)
		s.selected = &Selection{Model: model, Provider: p}
		return s.selected, nil
	}

	return nil, errors.NoModelAvailable(s.candidates)
}

// Selected returns the chosen model name, if selection has succeeded.
func (s *Selector) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return "", false
	}
	return s.selected.Model, true
}

// Attempts returns the outcome of each candidate tried by the last Select.
func (s *Selector) Attempts() []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attempt(nil), s.attempts...)
}

// Candidates returns the candidate list in priority order.
func (s *Selector) Candidates() []string {
	return append([]string(nil), s.candidates...)
}
