package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const (
	AttrTraceID        = "trace_id"
	AttrSpanID         = "span_id"
	AttrGraphName      = "db.falkordb.graph"
	AttrDBSystem       = "db.system"
	AttrDBOperation    = "db.operation"
	AttrEventType      = "mcp.event.type"
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
)

var secretKeySubstrings = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
}

// RedactAttributeValue masks values for known-sensitive keys.
func RedactAttributeValue(key string, value string) string {
	lower := strings.ToLower(key)
	for _, needle := range secretKeySubstrings {
		if strings.Contains(lower, needle) {
			return "[REDACTED]"
		}
	}
	return value
}

// TraceIDs returns the trace and span IDs carried by ctx, or empty strings
// when ctx has no valid span.
func TraceIDs(ctx context.Context) (traceID, spanID string) {
	if ctx == nil {
		return "", ""
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}
