package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type metrics struct {
	httpRequestsTotal    metric.Int64Counter
	httpRequestDuration  metric.Float64Histogram
	queryExecutionsTotal metric.Int64Counter
	queryDuration        metric.Float64Histogram
	storeOpsTotal        metric.Int64Counter
	storeOpDuration      metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	m           metrics
)

func buildMeterProvider(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled || !cfg.MetricsEnabled {
		return sdkmetric.NewMeterProvider(), nil
	}

	exporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter),
		),
	), nil
}

func initInstruments() {
	metricsOnce.Do(func() {
		meter := otel.Meter("falkordb-mcp/gateway")
		m.httpRequestsTotal, _ = meter.Int64Counter("mcp.http.server.requests_total")
		m.httpRequestDuration, _ = meter.Float64Histogram("mcp.http.server.request_duration_ms")
		m.queryExecutionsTotal, _ = meter.Int64Counter("mcp.query.executions_total")
		m.queryDuration, _ = meter.Float64Histogram("mcp.query.execution_duration_ms")
		m.storeOpsTotal, _ = meter.Int64Counter("mcp.store.operations_total")
		m.storeOpDuration, _ = meter.Float64Histogram("mcp.store.operation_duration_ms")
	})
}

func RecordHTTPRequest(ctx context.Context, method, route string, status int, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationMS, attrs)
}

// RecordQueryExecution records one graph query, whether or not it was
// broadcast to stream subscribers.
func RecordQueryExecution(ctx context.Context, graph string, success bool, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrGraphName, graph),
		attribute.Bool("success", success),
	)
	m.queryExecutionsTotal.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, durationMS, attrs)
	recordPromQuery(graph, success, durationMS)
}

// RecordStoreOperation records one round trip to the graph store.
func RecordStoreOperation(ctx context.Context, operation string, success bool, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrDBOperation, operation),
		attribute.Bool("success", success),
	)
	m.storeOpsTotal.Add(ctx, 1, attrs)
	m.storeOpDuration.Record(ctx, durationMS, attrs)
}
