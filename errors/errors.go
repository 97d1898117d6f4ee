package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// SearchError is implemented by every structured failure the search stack
// returns. The web layer maps Code to a status; retry loops consult Retryable.
type SearchError interface {
	error
	Code() ErrorCode
	Category() ErrorCategory
	Retryable() bool
	Metadata() map[string]string
	Unwrap() error
}

// Error is the concrete SearchError.
type Error struct {
	code     ErrorCode
	category ErrorCategory
	message  string
	cause    error
	meta     map[string]string
	retry    *bool // nil: the category decides
	at       time.Time
}

var (
	_ SearchError      = (*Error)(nil)
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

func (e *Error) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *Error) Code() ErrorCode         { return e.code }
func (e *Error) Category() ErrorCategory { return e.category }
func (e *Error) Unwrap() error           { return e.cause }

// Message is the error text without the cause chain.
func (e *Error) Message() string { return e.message }

// Time reports when the error was raised.
func (e *Error) Time() time.Time { return e.at }

func (e *Error) Retryable() bool {
	if e.retry == nil {
		return e.category.IsRetryable()
	}
	return *e.retry
}

// Metadata returns a copy of the attached context.
func (e *Error) Metadata() map[string]string {
	out := make(map[string]string, len(e.meta))
	for k, v := range e.meta {
		out[k] = v
	}
	return out
}

// wireError is the body API clients receive under "error".
type wireError struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Detail    string            `json:"detail,omitempty"`
	Retryable bool              `json:"retryable"`
	Meta      map[string]string `json:"meta,omitempty"`
	Time      *time.Time        `json:"time,omitempty"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	w := wireError{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Retryable: e.Retryable(),
		Meta:      e.meta,
	}
	if e.cause != nil {
		w.Detail = e.cause.Error()
	}
	if !e.at.IsZero() {
		at := e.at
		w.Time = &at
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds an Error from an API body. The cause survives only
// as text.
func (e *Error) UnmarshalJSON(data []byte) error {
	var w wireError
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	retry := w.Retryable
	*e = Error{
		code:     w.Code,
		category: w.Category,
		message:  w.Message,
		meta:     w.Meta,
		retry:    &retry,
	}
	if w.Detail != "" {
		e.cause = stderrors.New(w.Detail)
	}
	if w.Time != nil {
		e.at = *w.Time
	}
	return nil
}

// Option configures an Error at construction.
type Option func(*Error)

func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) { e.category = cat }
}

// WithRetryable overrides the category's retry default.
func WithRetryable(retryable bool) Option {
	return func(e *Error) { e.retry = &retryable }
}

func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.meta == nil {
			e.meta = make(map[string]string)
		}
		e.meta[key] = value
	}
}

func WithCause(cause error) Option {
	return func(e *Error) { e.cause = cause }
}

// WithTime pins the creation time, mostly for tests.
func WithTime(t time.Time) Option {
	return func(e *Error) { e.at = t }
}

// New builds an Error whose category is the code's default.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:     code,
		category: code.DefaultCategory(),
		message:  message,
		at:       time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode builds an Error carrying the code's stock description.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// NoModelAvailable reports that no candidate model answered its probe.
func NoModelAvailable(tried []string, opts ...Option) *Error {
	if len(tried) == 0 {
		return New(ErrCodeNoModelAvailable, "no models available, check your API key", opts...)
	}
	return New(ErrCodeNoModelAvailable,
		fmt.Sprintf("no models available (tried %d), check your API key", len(tried)), opts...)
}

// InvalidSources reports a source selection with no recognized tool.
func InvalidSources(requested []string, opts ...Option) *Error {
	return New(ErrCodeInvalidSources, fmt.Sprintf("no recognized sources in %v", requested), opts...)
}

func EmptyAnswer(opts ...Option) *Error {
	return FromCode(ErrCodeEmptyAnswer, opts...)
}

func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

func Unauthorized(message string, opts ...Option) *Error {
	return New(ErrCodeUnauthorized, message, opts...)
}

func Timeout(message string, opts ...Option) *Error {
	return New(ErrCodeTimeout, message, opts...)
}
