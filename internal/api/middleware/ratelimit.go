package middleware

import (
	"net/http"

	"github.com/phrazzld/lexi-api/internal/api/shared"
	"golang.org/x/time/rate"
)

// NewRateLimit rejects requests beyond limit with 429. The limiter is shared
// by every caller of the wrapped routes.
func NewRateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
