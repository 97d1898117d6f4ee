package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vinayprograms/nexa/config"
)

func TestNoopExporter(t *testing.T) {
	exp := NewNoopExporter()

	exp.LogFeedback(FeedbackRecord{Query: "test", Sentiment: "up"})
	exp.LogSearch(SearchRecord{Query: "test"})

	if err := exp.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searches.jsonl")

	exp, err := NewFileExporter(path)
	if err != nil {
		t.Fatalf("NewFileExporter() error = %v", err)
	}

	exp.LogFeedback(FeedbackRecord{SessionID: "sess-123", Query: "capital of France", Sentiment: "down"})
	exp.LogSearch(SearchRecord{
		SessionID: "sess-123",
		Query:     "capital of France",
		Mode:      "balanced",
		Language:  "en",
		Sources:   []string{"web_search"},
		Success:   true,
		ToolCalls: 1,
		Duration:  time.Second,
	})
	exp.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var rec SearchRecord
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec.Kind != KindSearch || rec.Query != "capital of France" || !rec.Success || rec.Timestamp.IsZero() {
		t.Errorf("unexpected record %+v", rec)
	}

	var fb FeedbackRecord
	if err := json.Unmarshal([]byte(lines[0]), &fb); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if fb.Kind != KindFeedback || fb.Sentiment != "down" {
		t.Errorf("unexpected feedback %+v", fb)
	}
}

func TestHTTPExporter(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	exp := NewHTTPExporter(srv.URL)
	exp.LogSearch(SearchRecord{Query: "gravity", Mode: "quick"})
	exp.LogFeedback(FeedbackRecord{Query: "gravity", Sentiment: "up"})

	if err := exp.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var batch []map[string]interface{}
	if err := json.Unmarshal(body, &batch); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(batch))
	}
	if batch[0]["query"] != "gravity" || batch[0]["kind"] != KindSearch {
		t.Errorf("first record = %v", batch[0])
	}
	if batch[1]["kind"] != KindFeedback {
		t.Errorf("second record = %v", batch[1])
	}
}

func TestHTTPExporter_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	exp := NewHTTPExporter(srv.URL)
	exp.LogSearch(SearchRecord{Query: "x"})
	if err := exp.Flush(); err == nil {
		t.Error("expected error on 500")
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		protocol string
		wantErr  bool
	}{
		{"noop", false},
		{"", false},
		{"http", false},
		{"unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.protocol, func(t *testing.T) {
			exp, err := NewExporter(tt.protocol, "")
			if (err != nil) != tt.wantErr {
				t.Errorf("NewExporter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if exp != nil {
				exp.Close()
			}
		})
	}
}

func newRecordingTracer(debug bool) (*Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewTracerFrom(tp, "test", debug), rec
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestSearchSpan(t *testing.T) {
	tracer, rec := newRecordingTracer(false)

	ctx, span := tracer.StartSearchSpan(context.Background())
	if TraceID(ctx) == "" {
		t.Error("expected trace ID in span context")
	}
	tracer.EndSearchSpan(span, SearchSpanOptions{
		Query:     "secret question",
		Mode:      "deep",
		Sources:   []string{"wikipedia", "arxiv_search"},
		ErrorCode: "EMPTY_ANSWER",
	}, errors.New("empty"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "search" {
		t.Errorf("name = %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v", s.Status())
	}
	attrs := attrMap(s.Attributes())
	if attrs["search.mode"].AsString() != "deep" {
		t.Errorf("mode attr = %v", attrs["search.mode"])
	}
	if attrs["search.error_code"].AsString() != "EMPTY_ANSWER" {
		t.Errorf("error_code attr = %v", attrs["search.error_code"])
	}
	if _, ok := attrs["search.query"]; ok {
		t.Error("query must not be recorded without debug")
	}
}

func TestLLMSpan_Debug(t *testing.T) {
	tracer, rec := newRecordingTracer(true)

	_, span := tracer.StartLLMSpan(context.Background(), "llm.chat")
	tracer.EndLLMSpan(span, LLMSpanOptions{
		Model:    "llama-3.3-70b-versatile",
		Provider: "groq",
		Prompt:   "Question: hi",
		Response: "Final Answer: hello",
	}, nil)

	s := rec.Ended()[0]
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v", s.Status())
	}
	attrs := attrMap(s.Attributes())
	if attrs["llm.response"].AsString() != "Final Answer: hello" {
		t.Errorf("response attr = %v", attrs["llm.response"])
	}
}

func TestToolSpan(t *testing.T) {
	tracer, rec := newRecordingTracer(false)

	_, span := tracer.StartToolSpan(context.Background(), "wikipedia")
	tracer.EndToolSpan(span, ToolSpanOptions{
		Tool:     "wikipedia",
		Query:    "Paris",
		Duration: 20 * time.Millisecond,
		Result:   "Paris is the capital",
	}, nil)

	s := rec.Ended()[0]
	if s.Name() != "tool.wikipedia" {
		t.Errorf("name = %q", s.Name())
	}
	attrs := attrMap(s.Attributes())
	if attrs["tool.query"].AsString() != "Paris" {
		t.Errorf("query attr = %v", attrs["tool.query"])
	}
	if _, ok := attrs["tool.result"]; ok {
		t.Error("result must not be recorded without debug")
	}
}

func TestGetTracer_DefaultNoop(t *testing.T) {
	SetGlobalTracer(nil)
	ctx, span := GetTracer().StartSearchSpan(context.Background())
	span.End()
	if TraceID(ctx) != "" {
		t.Error("noop tracer should not produce a trace ID")
	}
}

func TestProviderConfigFrom(t *testing.T) {
	cfg := config.Default().Telemetry
	pc := ProviderConfigFrom(cfg, "1.0.0")
	if pc.ServiceName != "nexa-search" || pc.Endpoint != "localhost:4317" || pc.Protocol != "grpc" {
		t.Errorf("unexpected %+v", pc)
	}
}

func TestInitProvider_UnknownProtocol(t *testing.T) {
	_, err := InitProvider(context.Background(), ProviderConfig{Endpoint: "localhost:4317", Protocol: "udp"})
	if err == nil {
		t.Error("expected error for unknown protocol")
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in           string
		want         string
		wantInsecure bool
	}{
		{"localhost:4317", "localhost:4317", false},
		{"http://collector:4318/", "collector:4318", true},
		{"https://api.smith.example", "api.smith.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, insecure, err := splitEndpoint(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want || insecure != tt.wantInsecure {
				t.Errorf("splitEndpoint(%q) = %q, %v", tt.in, got, insecure)
			}
		})
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if _, _, err := splitEndpoint(""); err == nil {
		t.Error("expected error without any endpoint")
	}
}

func TestTruncate(t *testing.T) {
	if truncate("abcdef", 3) != "abc..." {
		t.Errorf("truncate = %q", truncate("abcdef", 3))
	}
	if truncate("ab", 3) != "ab" {
		t.Error("short strings unchanged")
	}
}
