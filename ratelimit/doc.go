// Package ratelimit throttles calls to external search backends.
//
// Each backend is a named token bucket:
//
//	limiter := ratelimit.NewMemoryLimiter()
//	limiter.SetCapacity("brave", 30, time.Minute)
//
//	if err := limiter.Acquire(ctx, "brave"); err != nil {
//	    return err
//	}
//
// Tokens refill continuously at capacity/window. When a backend answers
// 429, callers report it with Reduce, which cuts capacity by a quarter until
// a full window passes without another reduction.
package ratelimit
