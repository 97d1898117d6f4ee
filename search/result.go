package search

import (
	"time"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/tools"
)

// Request is one search submitted by a user.
type Request struct {
	Query    string          `json:"query"`
	Mode     prompt.Mode     `json:"mode,omitempty"`
	Sources  []tools.ToolID  `json:"sources,omitempty"`
	Language prompt.Language `json:"language,omitempty"`
	UseCache bool            `json:"use_cache"`
}

// Source is a tool call that contributed to an answer.
type Source struct {
	Tool        tools.ToolID `json:"tool"`
	Query       string       `json:"query"`
	DisplayName string       `json:"display_name"`
}

// Result is the outcome of a search. It is not modified after it is returned.
type Result struct {
	Query     string           `json:"query"`
	Answer    string           `json:"answer"`
	Sources   []Source         `json:"sources"`
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	ErrorCode errors.ErrorCode `json:"error_code,omitempty"`
	Mode      prompt.Mode      `json:"mode"`
	Language  prompt.Language  `json:"language"`
	Cached    bool             `json:"cached"`
	Model     string           `json:"model,omitempty"`
	Related   []string         `json:"related,omitempty"`
	Duration  time.Duration    `json:"duration"`
	Timestamp time.Time        `json:"timestamp"`
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.Sources != nil {
		c.Sources = make([]Source, len(r.Sources))
		copy(c.Sources, r.Sources)
	}
	if r.Related != nil {
		c.Related = make([]string, len(r.Related))
		copy(c.Related, r.Related)
	}
	return &c
}

// SourceNames returns the tool IDs used, in call order.
func (r *Result) SourceNames() []string {
	names := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		names = append(names, string(s.Tool))
	}
	return names
}
