// Package telemetry configures OpenTelemetry tracing.
//
// Tracing is disabled unless an OTLP endpoint is configured, either through
// [Config] or the standard OTEL_EXPORTER_OTLP_ENDPOINT environment variables.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/rulecat/pkg/version"
)

const serviceName = "rulecat"

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Config configures the OTLP trace exporter.
type Config struct {
	// Endpoint is the OTLP gRPC endpoint, e.g. "localhost:4317".
	Endpoint string `json:"endpoint,omitempty" jsonschema:"title=OTLP Endpoint"`
	// Insecure disables TLS for the exporter connection.
	Insecure bool `json:"insecure,omitempty" jsonschema:"title=Insecure"`
	// SampleRatio is the fraction of traces sampled. Zero samples everything.
	SampleRatio float64 `json:"sampleRatio,omitempty" jsonschema:"title=Sample Ratio,minimum=0,maximum=1"`
}

// Enabled reports whether an exporter endpoint is configured.
func (c Config) Enabled() bool {
	if c.Endpoint != "" {
		return true
	}

	for _, env := range []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"} {
		if os.Getenv(env) != "" {
			return true
		}
	}

	return false
}

// Setup installs a global tracer provider exporting over OTLP/gRPC. When
// tracing is not enabled, the global provider is left untouched and the
// returned [ShutdownFunc] does nothing.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled() {
		return func(context.Context) error { return nil }, nil
	}

	var opts []otlptracegrpc.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := NewProvider(sdktrace.WithBatcher(exporter), sdktrace.WithSampler(sampler(cfg.SampleRatio)))

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// NewProvider creates a tracer provider carrying the service resource.
func NewProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version.GetVersion()),
	)

	return sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...)
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
