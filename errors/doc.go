// Package errors provides the structured error taxonomy used across nexa.
//
// Every failure that can reach the search entry point is described by an
// ErrorCode and an ErrorCategory. The engine never lets an error escape as a
// panic or an opaque value: it is either returned as an *Error from
// Engine.Search or folded into a failed result by Engine.Run.
//
// # Error Codes
//
//   - NO_MODEL_AVAILABLE: every model candidate was rejected at startup
//   - INVALID_SOURCES: the requested tool set has no recognized member
//   - AGENT_EXECUTION: the agent loop raised an error
//   - EMPTY_ANSWER: the agent loop returned nothing usable
//   - TIMEOUT, CANCELED, INVALID_INPUT, UNAUTHORIZED, RATE_LIMITED, ...
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSources, "no recognized sources")
//
//	wrapped := errors.Wrap(err, "running search")
//
//	if errors.Is(err, errors.ErrCodeNoModelAvailable) {
//	    // fatal at startup
//	}
//
// Errors marshal to JSON so the HTTP layer can return them verbatim.
package errors
