package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"nem12cli/pkg/contracts"
)

const (
	ServiceName    = "nem12-converter"
	ServiceVersion = contracts.Version
	TracerName     = "nem12cli"
)

// InitializeTracing sets up OpenTelemetry tracing with a stdout span
// exporter and installs the provider globally, so library packages can pick
// up a tracer via otel.Tracer. When tracing is disabled the global provider
// stays a no-op and this is never called.
func InitializeTracing(ctx context.Context, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.InfoContext(ctx, "tracing initialized",
		slog.String("service", ServiceName),
		slog.String("exporter", "stdout"))

	return tp, nil
}

// Tracer returns the tracer for converter spans. Without an installed
// provider it yields no-op spans, so callers never have to branch on
// whether tracing is enabled.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName, trace.WithInstrumentationVersion(ServiceVersion))
}
