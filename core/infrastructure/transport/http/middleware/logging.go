package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/falkordb/falkordb-mcp/core/logger"
	"github.com/falkordb/falkordb-mcp/core/observability"
	sharedctx "github.com/falkordb/falkordb-mcp/core/shared/context"
)

// RequestLogger logs one line per request through the tagged logger. It also
// copies the request ID into the context for downstream loggers.
func RequestLogger(next http.Handler) http.Handler {
	log := logger.New("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		requestID := chimiddleware.GetReqID(r.Context())
		r = r.WithContext(sharedctx.WithRequestID(r.Context(), requestID))

		next.ServeHTTP(ww, r)

		reqLog := log.With("request_id", requestID)
		if traceID, _ := observability.TraceIDs(r.Context()); traceID != "" {
			reqLog = reqLog.With(observability.AttrTraceID, traceID)
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		switch {
		case status >= http.StatusInternalServerError:
			reqLog.Errorf("%s %s %d %s", r.Method, r.URL.Path, status, duration)
		case status >= http.StatusBadRequest:
			reqLog.Warnf("%s %s %d %s", r.Method, r.URL.Path, status, duration)
		default:
			reqLog.Debugf("%s %s %d %s", r.Method, r.URL.Path, status, duration)
		}
	})
}
