// Package telemetry wires the OpenTelemetry tracer used to trace
// ring lookups.
package telemetry

import (
	"context"
	"os"

	"ChordSim/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracer installs the global tracer provider and returns its
// shutdown function.
//
// When tracing is disabled the provider is left untouched and the
// returned shutdown is a no-op. When enabled, spans are exported to
// stderr so traced output never interleaves with command output.
func InitTracer(cfg config.TelemetryConfig, service string) func(context.Context) error {
	if !cfg.Tracing.Enabled {
		return func(context.Context) error { return nil }
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
	)
	if err != nil {
		// Tracing is best-effort; run untraced rather than fail startup.
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", service),
		)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown
}
