package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/vinayprograms/nexa/config"
)

const defaultServiceName = "nexa-search"

// ProviderConfig configures OTLP trace export.
type ProviderConfig struct {
	// ServiceName is the project traces are filed under. Default "nexa-search".
	ServiceName    string
	ServiceVersion string

	// Endpoint is the collector, "host:port" or a URL. A "http://" scheme
	// implies Insecure. Empty falls back to OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string
	Protocol string // "grpc" (default) or "http"
	Insecure bool

	// Debug puts prompts, answers and tool output on spans.
	Debug bool

	Headers       map[string]string
	ExportTimeout time.Duration
}

// ProviderConfigFrom maps the [telemetry] section.
func ProviderConfigFrom(cfg config.TelemetryConfig, version string) ProviderConfig {
	return ProviderConfig{
		ServiceName:    cfg.Project,
		ServiceVersion: version,
		Endpoint:       cfg.Endpoint,
		Protocol:       cfg.Protocol,
		Insecure:       cfg.Insecure,
	}
}

// Provider owns the SDK tracer provider behind the global tracer.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer *Tracer
}

// InitProvider installs an OTLP-backed tracer provider and the global search
// tracer. Shut the Provider down to flush spans.
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	endpoint, insecure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	cfg.Insecure = cfg.Insecure || insecure
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	exporter, err := spanExporter(ctx, cfg, endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating %s span exporter: %w", cfg.Protocol, err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("describing service: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	tracer := NewTracerFrom(tp, cfg.ServiceName, cfg.Debug)
	SetGlobalTracer(tracer)
	return &Provider{tp: tp, tracer: tracer}, nil
}

// splitEndpoint strips a URL scheme from endpoint, reporting whether it was
// plain http.
func splitEndpoint(endpoint string) (hostport string, insecure bool, err error) {
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return "", false, fmt.Errorf("tracing endpoint not configured (set NEXA_TRACING_ENDPOINT or OTEL_EXPORTER_OTLP_ENDPOINT)")
	}
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		return strings.TrimSuffix(rest, "/"), true, nil
	}
	return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), false, nil
}

func spanExporter(ctx context.Context, cfg ProviderConfig, endpoint string) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case "grpc", "":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithHeaders(cfg.Headers)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if cfg.ExportTimeout > 0 {
			opts = append(opts, otlptracegrpc.WithTimeout(cfg.ExportTimeout))
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithHeaders(cfg.Headers)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if cfg.ExportTimeout > 0 {
			opts = append(opts, otlptracehttp.WithTimeout(cfg.ExportTimeout))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	return nil, fmt.Errorf("unknown protocol %q (use grpc or http)", cfg.Protocol)
}

func (p *Provider) Tracer() *Tracer { return p.tracer }

// Shutdown flushes pending spans and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error { return p.tp.Shutdown(ctx) }

func (p *Provider) ForceFlush(ctx context.Context) error { return p.tp.ForceFlush(ctx) }
