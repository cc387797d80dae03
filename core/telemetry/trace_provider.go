package telemetry

import (
	"context"
	"fmt"
	"sync"

	"github.com/anoideaopen/devicereg/core/config"
	"github.com/anoideaopen/devicereg/core/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var installOnce sync.Once

// InstallTraceProvider sets the global tracer provider once per process.
// Later calls are ignored, the collector settings come from the first Init.
func InstallTraceProvider(settings *config.CollectorEndpoint, serviceName string) {
	installOnce.Do(func() {
		tp, err := NewTraceProvider(settings, serviceName)
		if err != nil {
			logger.Logger().Errorf("installing trace provider: %v", err)
			tp = noop.NewTracerProvider()
		}
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	})
}

// NewTraceProvider returns trace provider based on http otlp exporter.
// Without an endpoint a noop provider is returned.
func NewTraceProvider(settings *config.CollectorEndpoint, serviceName string) (trace.TracerProvider, error) {
	if settings.GetEndpoint() == "" {
		return noop.NewTracerProvider(), nil
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(settings.GetEndpoint()),
	}

	if settings.GetTLSCA() == "" {
		opts = append(opts, otlptracehttp.WithInsecure())
	} else {
		tlsConfig, err := getTLSConfig(settings.GetTLSCA())
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsConfig))
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r)), nil
}
