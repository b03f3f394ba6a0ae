package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var untracedPaths = map[string]struct{}{
	"/health":         {},
	"/api/mcp/health": {},
	"/metrics":        {},
}

// Tracing starts a server span per request. Probe and scrape endpoints are
// not traced.
func Tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(
		next,
		"http.server",
		otelhttp.WithPropagators(otel.GetTextMapPropagator()),
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			_, skip := untracedPaths[r.URL.Path]
			return !skip
		}),
	)
}
