package shutdown

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/vinayprograms/nexa/logging"
)

var (
	// ErrAlreadyShutdown is returned by Shutdown after the first call.
	ErrAlreadyShutdown = stderrors.New("shutdown already initiated")

	// ErrTimeout means the deadline passed before every phase ran.
	ErrTimeout = stderrors.New("shutdown timeout exceeded")

	// ErrHandlerFailed means at least one handler returned an error.
	ErrHandlerFailed = stderrors.New("one or more handlers failed")
)

// Phases used by nexa. Lower phases stop first.
const (
	PhaseHTTP      = 10
	PhaseSessions  = 20
	PhaseTelemetry = 30
)

// Handler releases one component.
type Handler func(ctx context.Context) error

// Func adapts a function that takes no context.
func Func(fn func()) Handler {
	return func(context.Context) error {
		fn()
		return nil
	}
}

// HTTPServer stops srv from accepting connections and waits for in-flight
// requests until ctx is done.
func HTTPServer(srv *http.Server) Handler {
	return func(ctx context.Context) error {
		if err := srv.Shutdown(ctx); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// HandlerResult is the outcome of one handler.
type HandlerResult struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a whole shutdown.
type Result struct {
	Duration time.Duration
	Handlers []HandlerResult
	Err      error
}

// Failed returns the names of handlers that returned an error.
func (r *Result) Failed() []string {
	var failed []string
	for _, hr := range r.Handlers {
		if hr.Err != nil {
			failed = append(failed, hr.Name)
		}
	}
	return failed
}

// Config configures a Coordinator.
type Config struct {
	// Timeout bounds the whole shutdown. Default 30s.
	Timeout time.Duration

	// StopOnError skips later phases once a handler fails.
	StopOnError bool

	Logger *logging.Logger
}

type registration struct {
	name    string
	phase   int
	handler Handler
}
