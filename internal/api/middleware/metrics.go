package middleware

import (
	"net/http"
	"time"

	"github.com/sydlexius/artistlink/internal/metrics"
)

// Metrics records each request on m, labelled by the matched route pattern.
// It must wrap the ServeMux directly so the pattern is set when it returns.
func Metrics(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTPRequest(r.Method, route, sw.status, time.Since(start))
		})
	}
}
