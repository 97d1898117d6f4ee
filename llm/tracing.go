package llm

import (
	"context"
	"strings"

	"github.com/vinayprograms/nexa/telemetry"
)

// TracingProvider records an LLM span around every Chat. Liveness probes get
// their own span name so they can be filtered out of agent traces.
type TracingProvider struct {
	provider     Provider
	providerName string
	model        string
}

// WithTracing wraps p with span recording.
func WithTracing(p Provider, providerName, model string) Provider {
	return &TracingProvider{provider: p, providerName: providerName, model: model}
}

func (tp *TracingProvider) Unwrap() Provider { return tp.provider }

func (tp *TracingProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	tracer := telemetry.GetTracer()
	name := "llm.chat"
	if req.SingleAttempt {
		name = "llm.probe"
	}
	ctx, span := tracer.StartLLMSpan(ctx, name)
	resp, err := tp.provider.Chat(ctx, req)

	opts := telemetry.LLMSpanOptions{Provider: tp.providerName, Model: tp.model, Probe: req.SingleAttempt}
	if resp != nil {
		if resp.Model != "" {
			opts.Model = resp.Model
		}
		opts.TokensIn, opts.TokensOut = resp.InputTokens, resp.OutputTokens
		opts.Response = resp.Content
	}
	if tracer.Debug() {
		opts.Prompt = transcript(req.Messages)
	}
	tracer.EndLLMSpan(span, opts, err)
	return resp, err
}

// transcript flattens messages to "[role] content" lines.
func transcript(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[" + m.Role + "] " + m.Content)
	}
	return b.String()
}
