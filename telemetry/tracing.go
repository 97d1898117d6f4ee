// OpenTelemetry spans for searches, model calls and tool lookups.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps an OpenTelemetry tracer with nexa span helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if none is set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a tracer from the global OpenTelemetry provider.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{tracer: otel.Tracer(name), debug: debug}
}

// NewTracerFrom creates a tracer from a specific provider.
func NewTracerFrom(tp trace.TracerProvider, name string, debug bool) *Tracer {
	return &Tracer{tracer: tp.Tracer(name), debug: debug}
}

// Debug reports whether content is recorded on spans.
func (t *Tracer) Debug() bool {
	return t.debug
}

// --- Search spans ---

// SearchSpanOptions describes a finished search.
type SearchSpanOptions struct {
	Query      string // Only included if debug=true
	Mode       string
	Language   string
	Sources    []string
	Model      string
	Cached     bool
	Iterations int
	ErrorCode  string
	Answer     string // Only included if debug=true
}

// StartSearchSpan starts the root span of one search request.
func (t *Tracer) StartSearchSpan(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "search", trace.WithSpanKind(trace.SpanKindServer))
}

// EndSearchSpan records the outcome of a search and ends the span.
func (t *Tracer) EndSearchSpan(span trace.Span, opts SearchSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("search.mode", opts.Mode),
		attribute.String("search.language", opts.Language),
		attribute.StringSlice("search.sources", opts.Sources),
		attribute.Bool("search.cached", opts.Cached),
		attribute.Int("search.iterations", opts.Iterations),
	}
	if opts.Model != "" {
		attrs = append(attrs, attribute.String("llm.model", opts.Model))
	}
	if opts.ErrorCode != "" {
		attrs = append(attrs, attribute.String("search.error_code", opts.ErrorCode))
	}
	if t.debug {
		attrs = append(attrs, attribute.String("search.query", truncate(opts.Query, 1000)))
		if opts.Answer != "" {
			attrs = append(attrs, attribute.String("search.answer", truncate(opts.Answer, 4000)))
		}
	}
	span.SetAttributes(attrs...)
	endSpan(span, err)
}

// --- LLM spans ---

// LLMSpanOptions describes a finished model call.
type LLMSpanOptions struct {
	Model     string
	Provider  string
	TokensIn  int
	TokensOut int
	Probe     bool
	Prompt    string // Only included if debug=true
	Response  string // Only included if debug=true
}

// StartLLMSpan starts a span for a model call.
func (t *Tracer) StartLLMSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
}

// EndLLMSpan ends a model call span with attributes.
func (t *Tracer) EndLLMSpan(span trace.Span, opts LLMSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.model", opts.Model),
		attribute.String("llm.provider", opts.Provider),
		attribute.Int("llm.tokens.input", opts.TokensIn),
		attribute.Int("llm.tokens.output", opts.TokensOut),
	}
	if opts.Probe {
		attrs = append(attrs, attribute.Bool("llm.probe", true))
	}
	if t.debug {
		if opts.Prompt != "" {
			attrs = append(attrs, attribute.String("llm.prompt", truncate(opts.Prompt, 4000)))
		}
		if opts.Response != "" {
			attrs = append(attrs, attribute.String("llm.response", truncate(opts.Response, 4000)))
		}
	}
	span.SetAttributes(attrs...)
	endSpan(span, err)
}

// --- Tool spans ---

// ToolSpanOptions describes a finished tool lookup.
type ToolSpanOptions struct {
	Tool     string
	Query    string
	Backend  string
	Duration time.Duration
	Result   string // Only included if debug=true
}

// StartToolSpan starts a span for a tool lookup.
func (t *Tracer) StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "tool."+toolName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("tool.name", toolName))
	return ctx, span
}

// EndToolSpan ends a tool span with attributes.
func (t *Tracer) EndToolSpan(span trace.Span, opts ToolSpanOptions, err error) {
	// The tool query is chosen by the model, not typed by the user.
	attrs := []attribute.KeyValue{
		attribute.String("tool.query", truncate(opts.Query, 500)),
		attribute.Int64("tool.duration_ms", opts.Duration.Milliseconds()),
	}
	if opts.Backend != "" {
		attrs = append(attrs, attribute.String("tool.backend", opts.Backend))
	}
	if t.debug && opts.Result != "" {
		attrs = append(attrs, attribute.String("tool.result", truncate(opts.Result, 4000)))
	}
	span.SetAttributes(attrs...)
	endSpan(span, err)
}

// TraceID returns the hex trace ID of the span in ctx, or "" if none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
