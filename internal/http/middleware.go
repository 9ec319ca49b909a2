package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	applog "fingestor/internal/log"
)

const (
	requestIDHeader   = "X-Request-ID"
	maxRequestIDChars = 64
	unmatchedRoute    = "unmatched"
)

// requestID keeps a caller supplied id when it is reasonable, otherwise it
// generates one.
func requestID(r *http.Request) string {
	if id := sanitizeInput(r.Header.Get(requestIDHeader)); id != "" && len(id) <= maxRequestIDChars {
		return id
	}
	return uuid.NewString()
}

// routePattern is the chi pattern that matched, so metrics and logs do not
// explode with one label per id.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

// withRequestLogging attaches a request-scoped logger, then records the
// outcome of the request in the log and in the metrics.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := requestID(r)
		w.Header().Set(requestIDHeader, id)
		clientIP := s.clientIPs.ClientIP(r)

		logger := s.logger.With(applog.FieldRequestID, id)
		ctx := applog.NewContext(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		elapsed := time.Since(start)

		s.metrics.observeRequest(r.Method, route, status, elapsed)
		s.requestLog.Finished(ctx, r, route, status, elapsed, clientIP)
	})
}

// onRateLimited answers a refused write in the JSON envelope.
func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIPs.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	write(w, http.StatusTooManyRequests, Response{Error: "rate limit exceeded, please try again later"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusNotFound, Response{Error: "route not found"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
}
