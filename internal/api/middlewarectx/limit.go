package middlewarectx

import (
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"log/slog"
)

var limiter = rate.NewLimiter(20, 40)

// RateLimitMiddleware ограничивает общую частоту запросов к серверу.
func RateLimitMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("rate limit exceeded",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
