package handlers

import (
	"net/http"
	"time"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/utils"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger attaches a request-scoped logger to the context and logs one
// line per request once it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := utils.ContentHash([]byte(r.Method), []byte(r.URL.String()), []byte(r.RemoteAddr), []byte(start.Format(time.RFC3339Nano)))
		reqLogger := logger.L.With("requestID", requestID, "method", r.Method, "path", r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context(), reqLogger)))

		reqLogger.Info("Request completed", "status", rec.status, "duration", time.Since(start), "remoteAddr", r.RemoteAddr)
	})
}
