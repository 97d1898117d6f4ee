// Package telemetry traces searches with OpenTelemetry and keeps an event log
// of completed searches and answer ratings.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// Record kinds in the event log.
const (
	KindSearch   = "search"
	KindFeedback = "feedback"
)

// Exporter receives the event log.
type Exporter interface {
	LogSearch(rec SearchRecord)
	LogFeedback(rec FeedbackRecord)
	Flush() error
	Close() error
}

// SearchRecord summarizes one search.
type SearchRecord struct {
	Kind      string        `json:"kind"`
	SessionID string        `json:"session_id,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
	Query     string        `json:"query"`
	Mode      string        `json:"mode"`
	Language  string        `json:"language"`
	Sources   []string      `json:"sources"`
	Model     string        `json:"model,omitempty"`
	Success   bool          `json:"success"`
	ErrorCode string        `json:"error_code,omitempty"`
	Cached    bool          `json:"cached"`
	ToolCalls int           `json:"tool_calls"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// FeedbackRecord is a thumbs up or down on an answer.
type FeedbackRecord struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	Query     string    `json:"query"`
	Sentiment string    `json:"sentiment"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExporter picks an exporter by protocol. "http" posts JSON batches to
// endpoint, "file" appends JSON lines to the path in endpoint, and "noop" or
// "" discards everything.
func NewExporter(protocol, endpoint string) (Exporter, error) {
	switch protocol {
	case "http":
		return NewHTTPExporter(endpoint), nil
	case "file":
		return NewFileExporter(endpoint)
	case "noop", "":
		return NewNoopExporter(), nil
	}
	return nil, fmt.Errorf("unknown event log protocol: %s", protocol)
}

// journal stamps records and hands them to write under mu.
type journal struct {
	mu    sync.Mutex
	now   func() time.Time
	write func(v interface{})
}

func (j *journal) LogSearch(rec SearchRecord) {
	rec.Kind = KindSearch
	if rec.Timestamp.IsZero() {
		rec.Timestamp = j.now()
	}
	j.append(rec)
}

func (j *journal) LogFeedback(rec FeedbackRecord) {
	rec.Kind = KindFeedback
	if rec.Timestamp.IsZero() {
		rec.Timestamp = j.now()
	}
	j.append(rec)
}

func (j *journal) append(v interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.write(v)
}

const httpBatchSize = 100

// HTTPExporter posts records to a collector in batches of up to 100.
type HTTPExporter struct {
	journal
	endpoint string
	client   *http.Client
	pending  []interface{}
}

func NewHTTPExporter(endpoint string) *HTTPExporter {
	e := &HTTPExporter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	e.now = time.Now
	e.write = e.enqueue
	return e
}

func (e *HTTPExporter) enqueue(v interface{}) {
	e.pending = append(e.pending, v)
	if len(e.pending) >= httpBatchSize {
		// A failed batch stays pending for the next Flush.
		_ = e.post()
	}
}

func (e *HTTPExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.post()
}

func (e *HTTPExporter) Close() error { return e.Flush() }

// post sends pending records; mu must be held.
func (e *HTTPExporter) post() error {
	if len(e.pending) == 0 {
		return nil
	}
	body, err := json.Marshal(e.pending)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("event collector returned %d", resp.StatusCode)
	}
	e.pending = e.pending[:0]
	return nil
}

// FileExporter appends one JSON line per record.
type FileExporter struct {
	journal
	file *os.File
}

func NewFileExporter(path string) (*FileExporter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	e := &FileExporter{file: f}
	e.now = time.Now
	e.write = e.writeLine
	return e, nil
}

func (e *FileExporter) writeLine(v interface{}) {
	line, err := json.Marshal(v)
	if err != nil {
		return
	}
	e.file.Write(append(line, '\n'))
}

func (e *FileExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.file.Sync()
}

func (e *FileExporter) Close() error {
	syncErr := e.Flush()
	if err := e.file.Close(); err != nil {
		return err
	}
	return syncErr
}

// NoopExporter discards records.
type NoopExporter struct{}

func NewNoopExporter() *NoopExporter { return &NoopExporter{} }

func (NoopExporter) LogSearch(SearchRecord)     {}
func (NoopExporter) LogFeedback(FeedbackRecord) {}
func (NoopExporter) Flush() error               { return nil }
func (NoopExporter) Close() error               { return nil }
