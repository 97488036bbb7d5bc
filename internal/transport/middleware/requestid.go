package middleware

import (
	"net/http"

	"github.com/ariachen2020/timerecord/pkg/logger"

	"github.com/google/uuid"
)

// RequestID attaches a trace ID to the context logger and echoes it back to
// the caller.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "traceID", traceID)
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
