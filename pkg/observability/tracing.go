// Package observability wires tracing and metrics for validation runs.
//
// Both are file-based: spans go to a local trace file through the stdout
// exporter, and metrics are written in the node-exporter textfile format.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Mindburn-Labs/cdmcheck/pkg/versioning"
)

// ServiceName identifies cdmcheck in trace resources.
const ServiceName = "cdmcheck"

// Tracing owns the SDK tracer provider for one CLI run.
type Tracing struct {
	Provider *sdktrace.TracerProvider
	logger   *slog.Logger
}

// SetupTracing builds a tracer provider that writes finished spans to w as JSON.
// Spans are exported synchronously so nothing is lost when the process exits.
func SetupTracing(ctx context.Context, w io.Writer) (*Tracing, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(versioning.Version),
	)

	t := &Tracing{
		Provider: sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSyncer(exporter),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		),
		logger: slog.Default().With("component", "observability"),
	}
	t.logger.DebugContext(ctx, "tracing initialized", "service", ServiceName, "version", versioning.Version)
	return t, nil
}

// Shutdown flushes and stops the provider.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if err := t.Provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}
