package errors

import "net/http"

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates exhaustion of a quota or capacity.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Search pipeline
	ErrCodeNoModelAvailable ErrorCode = "NO_MODEL_AVAILABLE" // No model candidate answered the probe
	ErrCodeInvalidSources   ErrorCode = "INVALID_SOURCES"    // Source set has no recognized tool
	ErrCodeAgentExecution   ErrorCode = "AGENT_EXECUTION"    // Agent loop failed
	ErrCodeEmptyAnswer      ErrorCode = "EMPTY_ANSWER"       // Agent loop returned an empty answer
	ErrCodeToolFailed       ErrorCode = "TOOL_FAILED"        // External lookup failed

	// Transient
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Operation timed out
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Service temporarily unavailable
	ErrCodeNetworkErr  ErrorCode = "NETWORK_ERR" // Network connectivity issue

	// Permanent
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"     // Resource does not exist
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Malformed or invalid input
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"  // Missing or rejected credential
	ErrCodeUnsupported  ErrorCode = "UNSUPPORTED"   // Operation not supported
	ErrCodeCanceled     ErrorCode = "CANCELED"      // Operation was canceled

	// Resource
	ErrCodeRateLimit     ErrorCode = "RATE_LIMITED"   // Rate limit exceeded
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED" // Billing or quota exhausted

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
	ErrCodePanic    ErrorCode = "PANIC"    // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeNetworkErr, ErrCodeToolFailed:
		return CategoryTransient

	case ErrCodeInvalidSources, ErrCodeEmptyAnswer, ErrCodeNotFound, ErrCodeInvalidInput,
		ErrCodeUnauthorized, ErrCodeUnsupported, ErrCodeCanceled:
		return CategoryPermanent

	case ErrCodeNoModelAvailable, ErrCodeRateLimit, ErrCodeQuotaExceeded:
		return CategoryResource

	case ErrCodeAgentExecution, ErrCodeInternal, ErrCodePanic:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeNoModelAvailable: "no model available",
	ErrCodeInvalidSources:   "no recognized sources selected",
	ErrCodeAgentExecution:   "agent execution failed",
	ErrCodeEmptyAnswer:      "agent returned an empty answer",
	ErrCodeToolFailed:       "tool invocation failed",
	ErrCodeTimeout:          "operation timed out",
	ErrCodeUnavailable:      "service temporarily unavailable",
	ErrCodeNetworkErr:       "network connectivity error",
	ErrCodeNotFound:         "resource not found",
	ErrCodeInvalidInput:     "invalid input provided",
	ErrCodeUnauthorized:     "authentication required",
	ErrCodeUnsupported:      "operation not supported",
	ErrCodeCanceled:         "operation canceled",
	ErrCodeRateLimit:        "rate limit exceeded",
	ErrCodeQuotaExceeded:    "quota exceeded",
	ErrCodeInternal:         "internal error",
	ErrCodePanic:            "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// HTTPStatus returns the HTTP status the web API uses for the code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidInput, ErrCodeInvalidSources:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimit, ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnavailable, ErrCodeNoModelAvailable:
		return http.StatusServiceUnavailable
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
