package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Timeout bounds every request, including the row-locked transition path.
// The deadline rides on the request context so repository calls abort with
// it, and http.TimeoutHandler writes the error envelope if the handler
// overruns anyway.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    "REQUEST_TIMEOUT",
			"message": "request exceeded the server deadline",
		},
	})

	return func(next http.Handler) http.Handler {
		wrapped := http.TimeoutHandler(next, d, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			wrapped.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
