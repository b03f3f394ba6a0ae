package observability

import (
	"os"
	"strconv"
	"strings"
)

// Config controls OpenTelemetry export. Export is off unless explicitly
// enabled.
type Config struct {
	Enabled           bool
	TracesEnabled     bool
	MetricsEnabled    bool
	ServiceName       string
	ServiceVersion    string
	Environment       string
	OTLPEndpoint      string
	TraceSamplingRate float64
}

// DefaultConfig returns the configuration used when no MCP_OTEL_* variable is
// set.
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		TracesEnabled:     true,
		MetricsEnabled:    true,
		ServiceName:       "falkordb-mcp",
		ServiceVersion:    "dev",
		Environment:       "production",
		OTLPEndpoint:      "localhost:4317",
		TraceSamplingRate: 1.0,
	}
}

// ResolveConfig applies MCP_OTEL_* overrides on top of base.
func ResolveConfig(base Config) Config {
	cfg := base

	overrideBool("MCP_OTEL_ENABLED", &cfg.Enabled)
	overrideBool("MCP_OTEL_TRACES_ENABLED", &cfg.TracesEnabled)
	overrideBool("MCP_OTEL_METRICS_ENABLED", &cfg.MetricsEnabled)
	overrideString("MCP_OTEL_SERVICE_NAME", &cfg.ServiceName)
	overrideString("MCP_OTEL_SERVICE_VERSION", &cfg.ServiceVersion)
	overrideString("MCP_OTEL_ENVIRONMENT", &cfg.Environment)
	overrideString("MCP_OTEL_ENDPOINT", &cfg.OTLPEndpoint)
	overrideFloat("MCP_OTEL_TRACE_SAMPLING_RATIO", &cfg.TraceSamplingRate)

	if cfg.TraceSamplingRate < 0 {
		cfg.TraceSamplingRate = 0
	}
	if cfg.TraceSamplingRate > 1 {
		cfg.TraceSamplingRate = 1
	}
	cfg.OTLPEndpoint = strings.TrimSpace(cfg.OTLPEndpoint)

	return cfg
}

func overrideString(name string, target *string) {
	if value := os.Getenv(name); value != "" {
		*target = value
	}
}

func overrideBool(name string, target *bool) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err == nil {
		*target = parsed
	}
}

func overrideFloat(name string, target *float64) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err == nil {
		*target = parsed
	}
}
