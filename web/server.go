// Package web serves the nexa search UI and its JSON, SSE and WebSocket API.
package web

import (
	"bufio"
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/logging"
	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/search"
	"github.com/vinayprograms/nexa/session"
	"github.com/vinayprograms/nexa/telemetry"
	"github.com/vinayprograms/nexa/tools"
)

// sessionCookie names the cookie carrying the session ID.
const sessionCookie = "nexa_session"

// Engine is the search engine the server fronts.
type Engine interface {
	Run(ctx context.Context, req search.Request, opts ...search.SearchOption) *search.Result
	Model() string
	Registry() *tools.Registry
	ClearCache()
}

// Config configures a Server.
type Config struct {
	DefaultMode     prompt.Mode
	DefaultLanguage prompt.Language

	// SessionIdle is how long an unused session survives a sweep.
	SessionIdle time.Duration

	// SweepInterval is how often idle sessions are swept. Default 1m.
	SweepInterval time.Duration
}

// Server is the HTTP front end.
type Server struct {
	engine Engine
	store  *session.Store
	config Config
	logger *logging.Logger
	events telemetry.Exporter
	now    func() time.Time
	mux    *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithExporter sends answer ratings to the event log.
func WithExporter(exp telemetry.Exporter) Option {
	return func(s *Server) { s.events = exp }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a server for engine, keeping UI state in store.
func NewServer(engine Engine, store *session.Store, cfg Config, opts ...Option) *Server {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = prompt.Balanced
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = prompt.English
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	s := &Server{
		engine: engine,
		store:  store,
		config: cfg,
		logger: logging.New(),
		events: telemetry.NewNoopExporter(),
		now:    time.Now,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("web")
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/search/stream", s.handleSearchStream)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	s.mux.HandleFunc("POST /api/favorites", s.handleFavorite)
	s.mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	s.mux.HandleFunc("GET /api/export", s.handleExport)

	s.mux.HandleFunc("GET /api/tools", s.handleTools)
	s.mux.HandleFunc("DELETE /api/cache", s.handleClearCache)
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// HTTPServer returns an http.Server for addr serving Handler.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// SweepSessions ends idle sessions every SweepInterval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context) {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store.Sweep(s.config.SessionIdle)
		}
	}
}

// session returns the caller's session, creating one when the cookie is
// missing or stale. The returned cookie is non-nil when it must be set.
func (s *Server) session(r *http.Request) (*session.State, *http.Cookie, error) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if st, ok := s.store.Get(c.Value); ok {
			return st, nil, nil
		}
	}
	st, err := s.store.Create()
	if err != nil {
		return nil, nil, err
	}
	return st, &http.Cookie{
		Name:     sessionCookie,
		Value:    st.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// sessionFor is session for plain handlers; it sets the cookie on w.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	st, cookie, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return st, true
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.wrote = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, stderrors.New("response does not support hijacking")
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := withRequestLogger(r.Context(), s.logger.WithTraceID(uuid.New().String()))
		defer func() {
			rv := recover()
			if rv == http.ErrAbortHandler {
				panic(rv)
			}
			if perr := errors.RecoverPanic(rv); perr != nil {
				if !rec.wrote {
					s.writeError(rec, perr)
				}
			}
			requestLogger(ctx, s.logger).HTTPRequest(r.Method, r.URL.Path, rec.status, s.now().Sub(start))
		}()
		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

type loggerKey struct{}

func withRequestLogger(ctx context.Context, l *logging.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func requestLogger(ctx context.Context, fallback *logging.Logger) *logging.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*logging.Logger); ok {
		return l
	}
	return fallback
}
