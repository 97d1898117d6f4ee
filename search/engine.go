// Package search is the entry point for answering a query: it resolves the
// requested tools, consults the response cache, runs the agent and packages
// the answer with its citations.
package search

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/nexa/agent"
	"github.com/vinayprograms/nexa/cache"
	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/llm"
	"github.com/vinayprograms/nexa/logging"
	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/telemetry"
	"github.com/vinayprograms/nexa/tools"
)

// Invoker runs one agent invocation. *agent.Executor implements it.
type Invoker interface {
	Invoke(ctx context.Context, in agent.Input) (*agent.Output, error)
}

// Config configures an Engine.
type Config struct {
	// Candidates are tried in order at construction. Empty uses DefaultModels.
	Candidates []string
	// Factory builds a provider per candidate. Nil uses llm.NewFactory with LLM.
	Factory llm.Factory
	LLM     llm.FactoryConfig

	Tools tools.Config

	CacheTTL     time.Duration
	CacheEnabled bool
}

// DefaultModels is the candidate list used when none is configured.
var DefaultModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-70b-versatile",
	"mixtral-8x7b-32768",
	"llama3-70b-8192",
}

// Engine answers search requests. It is safe for concurrent use.
type Engine struct {
	registry *tools.Registry
	invoker  Invoker
	model    string
	logger   *logging.Logger
	exporter telemetry.Exporter
	now      func() time.Time

	cacheEnabled bool
	mu           sync.Mutex // guards cache
	cache        *cache.Cache[*Result]
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	invoker  Invoker
	model    string
	registry *tools.Registry
	logger   *logging.Logger
	exporter telemetry.Exporter
	now      func() time.Time
}

// WithInvoker replaces the agent executor. Model selection is skipped and
// model is reported as the model in use.
func WithInvoker(inv Invoker, model string) Option {
	return func(o *engineOptions) {
		o.invoker = inv
		o.model = model
	}
}

// WithRegistry replaces the built-in tool registry.
func WithRegistry(r *tools.Registry) Option {
	return func(o *engineOptions) { o.registry = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithExporter sends a record of every search to exp.
func WithExporter(exp telemetry.Exporter) Option {
	return func(o *engineOptions) { o.exporter = exp }
}

// WithClock replaces time.Now for timestamps and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// New builds an engine. Unless an invoker is supplied it selects a model
// first, failing with UNAUTHORIZED when no candidate has credentials and
// NO_MODEL_AVAILABLE when none responds.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.New().WithComponent("search")
	}
	if o.exporter == nil {
		o.exporter = telemetry.NewNoopExporter()
	}
	if o.registry == nil {
		tc := cfg.Tools
		if tc.Logger == nil {
			tc.Logger = o.logger.WithComponent("tools")
		}
		o.registry = tools.NewDefaultRegistry(tc)
	}

	if o.invoker == nil {
		candidates := cfg.Candidates
		if len(candidates) == 0 {
			candidates = DefaultModels
		}
		factory := cfg.Factory
		if factory == nil {
			factory = llm.NewFactory(cfg.LLM)
		}
		selector := llm.NewSelector(candidates, factory, llm.WithSelectorLogger(o.logger.WithComponent("llm")))
		sel, err := selector.Select(ctx)
		if err != nil {
			if authErr := allUnauthorized(selector.Attempts()); authErr != nil {
				return nil, authErr
			}
			return nil, err
		}
		o.invoker = agent.New(sel.Provider, agent.WithLogger(o.logger.WithComponent("agent")))
		o.model = sel.Model
	}

	return &Engine{
		registry:     o.registry,
		invoker:      o.invoker,
		model:        o.model,
		logger:       o.logger,
		exporter:     o.exporter,
		now:          o.now,
		cacheEnabled: cfg.CacheEnabled,
		cache:        cache.New[*Result](cfg.CacheTTL, cache.WithClock(o.now)),
	}, nil
}

// allUnauthorized returns the first error when every attempt failed for
// lack of credentials.
func allUnauthorized(attempts []llm.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	for _, a := range attempts {
		if !errors.Is(a.Err, errors.ErrCodeUnauthorized) {
			return nil
		}
	}
	return attempts[0].Err
}

// Model returns the model answering searches.
func (e *Engine) Model() string { return e.model }

// Registry returns the tool registry.
func (e *Engine) Registry() *tools.Registry { return e.registry }

// ClearCache drops every cached response.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Clear()
}

// CacheLen returns the number of cached responses.
func (e *Engine) CacheLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Len()
}

// SearchOption configures one search call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	onToken   func(string)
	sessionID string
}

// WithStream delivers the answer to fn as it is generated.
func WithStream(fn func(token string)) SearchOption {
	return func(o *searchOptions) { o.onToken = fn }
}

// WithSession tags the search record with a session ID.
func WithSession(id string) SearchOption {
	return func(o *searchOptions) { o.sessionID = id }
}

// Run is Search for callers that want a result in every case. Errors become
// a Result with Success false and the error code set.
func (e *Engine) Run(ctx context.Context, req Request, opts ...SearchOption) *Result {
	res, err := e.Search(ctx, req, opts...)
	if err == nil {
		return res
	}
	return &Result{
		Query:     strings.TrimSpace(req.Query),
		Answer:    "Search error: " + err.Error(),
		Sources:   []Source{},
		Success:   false,
		Error:     err.Error(),
		ErrorCode: errors.Code(err),
		Mode:      prompt.ParseMode(string(req.Mode)),
		Language:  prompt.ParseLanguage(string(req.Language)),
		Model:     e.model,
		Timestamp: e.now(),
	}
}

// Search answers req. Errors are *errors.Error values carrying one of
// INVALID_INPUT, INVALID_SOURCES, EMPTY_ANSWER, TIMEOUT, CANCELED or
// AGENT_EXECUTION.
func (e *Engine) Search(ctx context.Context, req Request, opts ...SearchOption) (res *Result, err error) {
	var so searchOptions
	for _, opt := range opts {
		opt(&so)
	}

	start := e.now()
	query := strings.TrimSpace(req.Query)
	mode := prompt.ParseMode(string(req.Mode))
	lang := prompt.ParseLanguage(string(req.Language))

	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSearchSpan(ctx)
	logger := e.logger
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		logger = logger.WithTraceID(traceID)
	}

	var (
		sourceNames []string
		iterations  int
		cached      bool
	)
	defer func() {
		code := string(errors.Code(err))
		dur := e.now().Sub(start)
		logger.SearchComplete(query, dur, code)
		spanOpts := telemetry.SearchSpanOptions{
			Query:      query,
			Mode:       string(mode),
			Language:   string(lang),
			Sources:    sourceNames,
			Model:      e.model,
			Cached:     cached,
			Iterations: iterations,
			ErrorCode:  code,
		}
		rec := telemetry.SearchRecord{
			SessionID: so.sessionID,
			TraceID:   telemetry.TraceID(ctx),
			Query:     query,
			Mode:      string(mode),
			Language:  string(lang),
			Sources:   sourceNames,
			Model:     e.model,
			Success:   err == nil,
			ErrorCode: code,
			Cached:    cached,
			Duration:  dur,
			Timestamp: start,
		}
		if res != nil {
			spanOpts.Answer = res.Answer
			rec.ToolCalls = len(res.Sources)
		}
		tracer.EndSearchSpan(span, spanOpts, err)
		e.exporter.LogSearch(rec)
	}()

	if query == "" {
		return nil, errors.InvalidInput("query is required")
	}

	selected, err := e.resolveSources(req.Sources)
	if err != nil {
		return nil, err
	}
	for _, t := range selected {
		sourceNames = append(sourceNames, string(t.ID()))
	}
	sort.Strings(sourceNames)
	logger.SearchStart(query, string(mode), sourceNames)

	if req.UseCache && e.cacheEnabled {
		e.mu.Lock()
		hit, ok := e.cache.Get(query, string(mode)+"|"+string(lang), sourceNames)
		e.mu.Unlock()
		if ok {
			cached = true
			logger.CacheHit(query, string(mode))
			res = hit.Clone()
			res.Cached = true
			if so.onToken != nil && res.Answer != "" {
				so.onToken(res.Answer)
			}
			return res, nil
		}
	}

	p := prompt.Build(prompt.Input{Tools: selected, Mode: mode, Language: lang})
	out, err := e.invoker.Invoke(tools.WithLanguage(ctx, string(lang)), agent.Input{
		Prompt:           p,
		Question:         query,
		Tools:            selected,
		MaxIterations:    p.Budget.MaxIterations,
		MaxExecutionTime: p.Budget.MaxExecutionTime,
		OnToken:          so.onToken,
	})
	if err != nil {
		return nil, agentError(err)
	}
	iterations = out.Iterations

	answer := strings.TrimSpace(out.Text)
	if answer == "" {
		return nil, errors.EmptyAnswer()
	}

	res = &Result{
		Query:     query,
		Answer:    answer,
		Sources:   citations(selected, out.Steps),
		Success:   true,
		Mode:      mode,
		Language:  lang,
		Model:     e.model,
		Related:   RelatedQuestions(query),
		Timestamp: start,
	}
	res.Duration = e.now().Sub(start)

	if e.cacheEnabled {
		e.mu.Lock()
		e.cache.Set(query, string(mode)+"|"+string(lang), sourceNames, res.Clone())
		e.mu.Unlock()
	}
	return res, nil
}

// resolveSources maps the requested IDs to registered tools. An empty list
// selects all of them.
func (e *Engine) resolveSources(ids []tools.ToolID) ([]tools.Tool, error) {
	if len(ids) == 0 {
		return e.registry.Tools(), nil
	}
	var known []tools.ToolID
	for _, id := range ids {
		if id.Valid() && e.registry.Has(id) {
			known = append(known, id)
		}
	}
	if len(known) == 0 {
		requested := make([]string, 0, len(ids))
		for _, id := range ids {
			requested = append(requested, string(id))
		}
		return nil, errors.InvalidSources(requested)
	}
	return e.registry.Resolve(known), nil
}

// citations keeps the steps that called one of the selected tools. Calls to
// anything else were answered with an invalid-tool observation.
func citations(selected []tools.Tool, steps []agent.Step) []Source {
	allowed := make(map[tools.ToolID]bool, len(selected))
	for _, t := range selected {
		allowed[t.ID()] = true
	}
	sources := make([]Source, 0, len(steps))
	for _, s := range steps {
		id := tools.ToolID(s.Action.Tool)
		if !allowed[id] {
			continue
		}
		sources = append(sources, Source{
			Tool:        id,
			Query:       agent.ToolQuery(s.Action.ToolInput),
			DisplayName: id.DisplayName(),
		})
	}
	return sources
}

// agentError classifies an executor failure.
func agentError(err error) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("search timed out", errors.WithCause(err))
	case stderrors.Is(err, context.Canceled):
		return errors.New(errors.ErrCodeCanceled, "search canceled", errors.WithCause(err))
	}
	opts := []errors.Option{}
	if code := errors.Code(err); code != "" && code != errors.ErrCodeInternal {
		opts = append(opts, errors.WithMetadata("cause_code", string(code)))
	}
	return errors.WrapWithCode(err, errors.ErrCodeAgentExecution, "agent execution failed", opts...)
}
