package observability

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/falkordb/falkordb-mcp/core/logger"
)

type Providers struct {
	config        Config
	traceProvider *sdktrace.TracerProvider
	meterProvider *sdkmetric.MeterProvider
}

var (
	providersMu sync.RWMutex
	active      *Providers
)

type otelLoggerErrorHandler struct {
	log logger.Logger
}

func (h otelLoggerErrorHandler) Handle(err error) {
	if err == nil {
		return
	}
	h.log.Warnf("OpenTelemetry warning: %v", err)
}

// Setup installs global trace and meter providers. With export disabled the
// providers are no-op SDK instances, so instrumentation stays cheap.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	traceProvider, err := buildTraceProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	meterProvider, err := buildMeterProvider(ctx, cfg)
	if err != nil {
		_ = traceProvider.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(traceProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetErrorHandler(otelLoggerErrorHandler{log: logger.New("observability")})

	p := &Providers{
		config:        cfg,
		traceProvider: traceProvider,
		meterProvider: meterProvider,
	}

	providersMu.Lock()
	active = p
	providersMu.Unlock()

	return p, nil
}

func ActiveConfig() Config {
	providersMu.RLock()
	defer providersMu.RUnlock()
	if active == nil {
		return Config{}
	}
	return active.config
}

func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.traceProvider != nil {
		errs = append(errs, p.traceProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
