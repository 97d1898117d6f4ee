// Package tools provides the tool registry and the built-in lookup tools
// the agent can call: web search, Wikipedia and arXiv.
package tools

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/logging"
	"github.com/vinayprograms/nexa/ratelimit"
	"github.com/vinayprograms/nexa/telemetry"
)

// ToolID identifies a built-in tool. The set is closed.
type ToolID string

const (
	WebSearch ToolID = "web_search"
	Wikipedia ToolID = "wikipedia"
	Arxiv     ToolID = "arxiv_search"
)

// AllToolIDs lists every tool in display order.
func AllToolIDs() []ToolID {
	return []ToolID{WebSearch, Wikipedia, Arxiv}
}

var displayNames = map[ToolID]string{
	WebSearch: "🌐 Web Search",
	Wikipedia: "📚 Wikipedia",
	Arxiv:     "📄 arXiv",
}

// DisplayName returns the user-facing label for a tool. Unknown IDs are
// returned unchanged.
func (id ToolID) DisplayName() string {
	if name, ok := displayNames[id]; ok {
		return name
	}
	return string(id)
}

// Valid reports whether id names a built-in tool.
func (id ToolID) Valid() bool {
	_, ok := displayNames[id]
	return ok
}

func (id ToolID) String() string { return string(id) }

// ParseToolID converts a user-supplied name into a ToolID.
// Matching ignores case and surrounding space. "arxiv" is accepted for arxiv_search.
func ParseToolID(s string) (ToolID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "arxiv" {
		return Arxiv, nil
	}
	id := ToolID(name)
	if !id.Valid() {
		return "", errors.InvalidInput(fmt.Sprintf("unknown tool %q", s),
			errors.WithMetadata("tool", s))
	}
	return id, nil
}

// ParseToolIDs parses each name and returns the recognized IDs in input
// order, without duplicates, plus the names that were rejected.
func ParseToolIDs(names []string) (ids []ToolID, rejected []string) {
	seen := make(map[ToolID]bool)
	for _, name := range names {
		id, err := ParseToolID(name)
		if err != nil {
			rejected = append(rejected, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, rejected
}

// Tool is an external lookup the agent can invoke with a plain-text query.
type Tool interface {
	// ID returns the tool identifier.
	ID() ToolID
	// Name returns the name the model uses in "Action:" lines.
	Name() string
	// Description returns a description for the model.
	Description() string
	// DisplayName returns the user-facing label.
	DisplayName() string
	// Invoke runs the tool and returns text for the model to read.
	Invoke(ctx context.Context, query string) (string, error)
}

// CredentialProvider provides API keys for tools.
type CredentialProvider interface {
	GetAPIKey(provider string) string
}

// Config configures the built-in tools.
type Config struct {
	Credentials CredentialProvider
	HTTPClient  *http.Client
	Limiter     ratelimit.Limiter
	Logger      *logging.Logger

	// Backend forces a web search backend: auto, brave, tavily or duckduckgo.
	Backend string
	// TopK is the number of documents returned by Wikipedia and arXiv.
	TopK int
	// MaxChars caps the text kept per document.
	MaxChars int
	// Timeout bounds a single tool invocation.
	Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = logging.New().WithComponent("tools")
	}
	if c.Backend == "" {
		c.Backend = BackendAuto
	}
	if c.TopK <= 0 {
		c.TopK = 2
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 1000
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// Registry holds the registered tools. It is read-only after construction.
type Registry struct {
	tools map[ToolID]Tool
	order []ToolID
}

// NewRegistry creates a registry from the given tools.
// Later tools with a duplicate ID replace earlier ones.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[ToolID]Tool)}
	for _, t := range tools {
		if _, exists := r.tools[t.ID()]; !exists {
			r.order = append(r.order, t.ID())
		}
		r.tools[t.ID()] = t
	}
	return r
}

// NewDefaultRegistry creates a registry with all built-in tools.
func NewDefaultRegistry(cfg Config) *Registry {
	cfg.applyDefaults()
	return NewRegistry(
		newWebSearchTool(cfg),
		newWikipediaTool(cfg),
		newArxivTool(cfg),
	)
}

// Get returns a tool by ID, or nil.
func (r *Registry) Get(id ToolID) Tool {
	return r.tools[id]
}

// Has checks if a tool is registered.
func (r *Registry) Has(id ToolID) bool {
	_, ok := r.tools[id]
	return ok
}

// IDs returns the registered tool IDs in registration order.
func (r *Registry) IDs() []ToolID {
	return append([]ToolID(nil), r.order...)
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id])
	}
	return out
}

// Resolve returns the tools named by ids in registration order.
// An empty list selects every tool. Unregistered IDs are skipped.
func (r *Registry) Resolve(ids []ToolID) []Tool {
	if len(ids) == 0 {
		return r.Tools()
	}
	want := make(map[ToolID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Tool
	for _, id := range r.order {
		if want[id] {
			out = append(out, r.tools[id])
		}
	}
	return out
}

// Descriptor is the display metadata for one tool.
type Descriptor struct {
	ID          ToolID `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// Descriptors returns display metadata for every tool, sorted by ID.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{
			ID:          t.ID(),
			Name:        t.Name(),
			DisplayName: t.DisplayName(),
			Description: t.Description(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// lookupFunc performs one lookup and reports the backend that served it.
type lookupFunc func(ctx context.Context) (out, backend string, err error)

// invoke wraps a lookup with the per-call timeout, logging and tracing
// shared by every built-in tool.
func invoke(ctx context.Context, cfg Config, id ToolID, query string, fn lookupFunc) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.InvalidInput(fmt.Sprintf("%s: query is required", id))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cfg.Logger.ToolCall(string(id), query)
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartToolSpan(ctx, string(id))
	start := time.Now()

	out, backend, err := fn(ctx)
	dur := time.Since(start)
	cfg.Logger.ToolResult(string(id), dur, err)
	tracer.EndToolSpan(span, telemetry.ToolSpanOptions{
		Tool:     string(id),
		Query:    query,
		Backend:  backend,
		Duration: dur,
		Result:   out,
	}, err)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.WrapWithCode(err, errors.ErrCodeTimeout, fmt.Sprintf("%s timed out", id))
		}
		return "", errors.WrapWithCode(err, errors.ErrCodeToolFailed, fmt.Sprintf("%s failed", id),
			errors.WithMetadata("tool", string(id)))
	}
	return out, nil
}
