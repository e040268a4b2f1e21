package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/ratelimiter"
)

// QueueRateLimit rejects mutating requests exceeding the per-queue-type
// budget with 429 rather than queueing them behind the type's lock.
func QueueRateLimit(limiter *ratelimiter.QueueLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			qt := domain.QueueType(chi.URLParam(r, "queueType"))
			if qt.IsValid() && !limiter.Allow(qt) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded for queue, try again shortly"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
