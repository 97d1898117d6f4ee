package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/logging"
)

// scriptedFactory returns mocks that fail for models listed in failing.
func scriptedFactory(failing map[string]bool, built *[]string) Factory {
	return func(model string) (Provider, error) {
		*built = append(*built, model)
		p := NewMockProvider("ok")
		p.SetModel(model)
		if failing[model] {
			p.SetError(fmt.Errorf("model %s decommissioned", model))
		}
		return p, nil
	}
}

func TestSelector_FirstHealthyCandidate(t *testing.T) {
	var built []string
	var buf bytes.Buffer
	logger := logging.New()
	logger.SetOutput(&buf)

	s := NewSelector([]string{"A", "B", "C"}, scriptedFactory(map[string]bool{"A": true}, &built),
		WithSelectorLogger(logger))

	sel, err := s.Select(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sel.Model != "B" {
		t.Errorf("selected %q, want B", sel.Model)
	}
	if strings.Join(built, ",") != "A,B" {
		t.Errorf("built %v; C must never be attempted", built)
	}

	out := buf.String()
	if !strings.Contains(out, "✗ Model A unavailable") {
		t.Errorf("missing failure line in %q", out)
	}
	if !strings.Contains(out, "✓ Using model: B") {
		t.Errorf("missing success line in %q", out)
	}

	attempts := s.Attempts()
	if len(attempts) != 2 || attempts[0].Err == nil || attempts[1].Err != nil {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestSelector_ProbeShape(t *testing.T) {
	mock := NewMockProvider("ok")
	s := NewSelector([]string{"A"}, func(string) (Provider, error) { return mock, nil },
		WithSelectorLogger(logging.Nop()))

	if _, err := s.Select(context.Background()); err != nil {
		t.Fatal(err)
	}
	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no probe sent")
	}
	if req.MaxTokens != 1 || !req.SingleAttempt {
		t.Errorf("probe = %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "test" {
		t.Errorf("probe messages = %+v", req.Messages)
	}
}

func TestSelector_CachesSelection(t *testing.T) {
	var built []string
	s := NewSelector([]string{"A", "B"}, scriptedFactory(nil, &built), WithSelectorLogger(logging.Nop()))

	first, err := s.Select(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Select(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected cached selection")
	}
	if len(built) != 1 {
		t.Errorf("factory called %d times", len(built))
	}
	if model, ok := s.Selected(); !ok || model != "A" {
		t.Errorf("Selected() = %q, %v", model, ok)
	}
}

func TestSelector_NoModelAvailable(t *testing.T) {
	var built []string
	s := NewSelector([]string{"A", "B"}, scriptedFactory(map[string]bool{"A": true, "B": true}, &built),
		WithSelectorLogger(logging.Nop()))

	_, err := s.Select(context.Background())
	if !errors.Is(err, errors.ErrCodeNoModelAvailable) {
		t.Fatalf("expected NO_MODEL_AVAILABLE, got %v", err)
	}
	if _, ok := s.Selected(); ok {
		t.Error("nothing should be selected")
	}
}

func TestSelector_FactoryErrorSkipsCandidate(t *testing.T) {
	factory := func(model string) (Provider, error) {
		if model == "A" {
			return nil, fmt.Errorf("no key")
		}
		return NewMockProvider("ok"), nil
	}
	s := NewSelector([]string{"A", "B"}, factory, WithSelectorLogger(logging.Nop()))
	sel, err := s.Select(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sel.Model != "B" {
		t.Errorf("selected %q", sel.Model)
	}
}

type staticKeys map[string]string

func (k staticKeys) Require(provider string) (string, error) {
	if key, ok := k[provider]; ok {
		return key, nil
	}
	return "", errors.Unauthorized("API key not found for " + provider)
}

func TestNewFactory(t *testing.T) {
	f := NewFactory(FactoryConfig{Keys: staticKeys{"groq": "gsk"}})

	p, err := f("llama-3.3-70b-versatile")
	if err != nil {
		t.Fatal(err)
	}
	compat, ok := p.(*OpenAICompatProvider)
	if !ok {
		t.Fatalf("got %T", p)
	}
	if compat.apiKey != "gsk" || compat.maxTokens != 4096 || compat.temperature != 0.3 {
		t.Errorf("provider = %+v", compat)
	}

	if _, err := f("claude-sonnet-4-20250514"); !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
	if _, err := f("mystery"); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("expected UNSUPPORTED, got %v", err)
	}
}

func TestNewFactory_Tracing(t *testing.T) {
	f := NewFactory(FactoryConfig{Keys: staticKeys{"groq": "gsk"}, Tracing: true})
	p, err := f("llama3-70b-8192")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*TracingProvider); !ok {
		t.Errorf("expected tracing wrapper, got %T", p)
	}
}
