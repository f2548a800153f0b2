package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/pkg/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestContext tags each request with correlation, request and
// operator ids, then logs and times it.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.NewRequestContext(r.Context(), r.Header.Get(HeaderCorrelationID))
		w.Header().Set(HeaderCorrelationID, observability.CorrelationIDFromContext(ctx))
		w.Header().Set(HeaderRequestID, observability.RequestIDFromContext(ctx))

		if raw := r.Header.Get(HeaderOperatorID); raw != "" {
			operatorID, err := uuid.Parse(raw)
			if err != nil {
				writeBadRequest(w, "operator_id", "the operator id must be a UUID")
				return
			}
			ctx = observability.WithOperatorID(ctx, operatorID)
		}
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := observability.StartTimer(s.metrics, observability.MetricHTTP, observability.T("method", r.Method))
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		duration := timer.Stop(
			observability.T("route", route),
			observability.T("status", strconv.Itoa(rec.status)),
		)

		log := s.logger.DebugContext
		if rec.status >= http.StatusInternalServerError {
			log = s.logger.WarnContext
		}
		log(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		)
	})
}
