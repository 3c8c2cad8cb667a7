package middleware

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout bounds a single request. Generous enough for
	// the monthly statistics aggregation, which is the slowest query we run.
	DefaultRequestTimeout = 30 * time.Second
)

// timeoutBody matches the error envelope the handlers write.
const timeoutBody = `{"ok":false,"message":"request timed out"}`

// Timeout cancels the request context and returns 503 once the deadline
// passes. A non-positive timeout falls back to DefaultRequestTimeout.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			handler := http.TimeoutHandler(next, timeout, timeoutBody)
			handler.ServeHTTP(w, r)
		})
	}
}
