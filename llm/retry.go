package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/nexa/errors"
)

// Retry configuration defaults
const (
	defaultMaxRetries  = 5
	defaultInitBackoff = time.Second
	defaultMaxBackoff  = 60 * time.Second
	backoffFactor      = 2.0
)

// effective returns the retry settings with defaults applied.
func (r RetryConfig) effective() (maxRetries int, initBackoff, maxBackoff time.Duration) {
	maxRetries = r.MaxRetries
	switch {
	case maxRetries < 0:
		maxRetries = 0
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	}
	initBackoff = r.InitBackoff
	if initBackoff <= 0 {
		initBackoff = defaultInitBackoff
	}
	maxBackoff = r.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	return
}

// withRetry runs call until it succeeds, fails permanently or exhausts the
// retry budget. Rate limits and 5xx responses are retried with exponential
// backoff; billing errors never are.
func withRetry[T any](ctx context.Context, name string, cfg RetryConfig, single bool, call func() (T, error)) (T, error) {
	maxRetries, backoff, maxBackoff := cfg.effective()
	if single {
		maxRetries = 0
	}

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if isBillingError(err) {
			return zero, errors.WrapWithCode(err, errors.ErrCodeQuotaExceeded,
				fmt.Sprintf("%s billing/payment error", name))
		}
		if !isRetryableError(err) {
			return zero, fmt.Errorf("%s request failed: %w", name, err)
		}
		if attempt >= maxRetries {
			code := errors.ErrCodeUnavailable
			if isRateLimitError(err) {
				code = errors.ErrCodeRateLimit
			}
			return zero, errors.WrapWithCode(err, code,
				fmt.Sprintf("%s request failed after %d attempts", name, attempt+1))
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// isRateLimitError checks if the error is a rate limit error.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "overloaded")
}

// isServerError checks if the error is a transient server error (5xx).
func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") ||
		strings.Contains(errStr, "temporarily unavailable")
}

// isRetryableError checks if the error is retryable (rate limit or server error).
func isRetryableError(err error) bool {
	return isRateLimitError(err) || isServerError(err)
}

// isBillingError checks if the error is a billing/payment/quota error (fatal, no retry).
func isBillingError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "billing") ||
		strings.Contains(errStr, "payment") ||
		strings.Contains(errStr, "credits") ||
		strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "insufficient") ||
		strings.Contains(errStr, "402")
}

// applyStop truncates content at the first stop sequence.
func applyStop(content string, stop []string) string {
	cut := len(content)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(content, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return content[:cut]
}

// emit delivers a whole reply to a streaming callback.
func emit(req ChatRequest, content string) {
	if req.OnToken != nil && content != "" {
		req.OnToken(content)
	}
}
