package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/scouttools/basecamp/pkg/httputil"
	"github.com/scouttools/basecamp/pkg/observability"
)

// RequestID assigns each request a UUID, echoes it in the X-Request-ID
// response header, and seeds the context with a logger carrying it. An
// inbound X-Request-ID from a trusted proxy is kept.
func RequestID(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := observability.WithRequestID(r.Context(), requestID)
			if logger != nil {
				ctx = observability.WithLogger(ctx, logger.WithField("request_id", requestID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logging logs each request with its route, status, and duration, and feeds
// the HTTP metrics. The mux route template keeps metric label cardinality
// bounded.
func Logging(logger *observability.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			path := routeTemplate(r)
			if metrics != nil {
				metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, http.StatusText(rw.status)).Inc()
				metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration.Seconds())
			}
			if logger != nil {
				observability.FromContext(r.Context()).WithFields(map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      rw.status,
					"duration_ms": duration.Milliseconds(),
				}).Info("request completed")
			}
		})
	}
}

// Recovery converts panics into 500 responses.
func Recovery(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if logger != nil {
						logger.WithFields(map[string]interface{}{
							"panic": rec,
							"stack": string(debug.Stack()),
							"path":  r.URL.Path,
						}).Error("panic recovered")
					}
					httputil.WriteInternalError(w, errors.New("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
