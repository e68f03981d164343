// AngelaMos | 2026
// telemetry.go

package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/carterperez-dev/copystudio/internal/config"
)

// Instrumentation scopes for the spans this service emits.
const (
	TracerGeneration = "copystudio/generation"
	TracerBilling    = "copystudio/billing"
)

// Root span names that carry money movement. They are always sampled.
const (
	SpanGenerate = "generation.generate"
	SpanWebhook  = "billing.webhook"
)

const defaultSampleRate = 0.1

type Telemetry struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// NewTelemetry exports spans over OTLP when enabled. Disabled telemetry
// hands out noop tracers so callers never branch on it.
func NewTelemetry(
	ctx context.Context,
	otelCfg config.OtelConfig,
	appCfg config.AppConfig,
	extra ...attribute.KeyValue,
) (*Telemetry, error) {
	if !otelCfg.Enabled || otelCfg.Endpoint == "" {
		return &Telemetry{
			provider: noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	creds := credentials.NewClientTLSFromCert(nil, "")
	if otelCfg.Insecure {
		creds = insecure.NewCredentials()
	}
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otelCfg.Endpoint),
		otlptracegrpc.WithTimeout(5*time.Second),
		otlptracegrpc.WithTLSCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(serviceAttributes(otelCfg, appCfg, extra)...),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			newPrioritySampler(otelCfg.SampleRate, SpanGenerate, SpanWebhook),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Telemetry{provider: tp, shutdown: tp.Shutdown}, nil
}

func serviceAttributes(
	otelCfg config.OtelConfig,
	appCfg config.AppConfig,
	extra []attribute.KeyValue,
) []attribute.KeyValue {
	name := otelCfg.ServiceName
	if name == "" {
		name = appCfg.Name
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(appCfg.Version),
		semconv.DeploymentEnvironment(appCfg.Environment),
	}
	return append(attrs, extra...)
}

func (t *Telemetry) Tracer(scope string) trace.Tracer {
	return t.provider.Tracer(scope)
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := t.shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}

// prioritySampler keeps every named root span and ratio-samples the rest.
type prioritySampler struct {
	always   []string
	fallback sdktrace.Sampler
}

func newPrioritySampler(rate float64, always ...string) sdktrace.Sampler {
	if rate < 0 || rate > 1 {
		rate = defaultSampleRate
	}
	return prioritySampler{
		always:   always,
		fallback: sdktrace.TraceIDRatioBased(rate),
	}
}

func (s prioritySampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if slices.Contains(s.always, p.Name) {
		return sdktrace.SamplingResult{
			Decision:   sdktrace.RecordAndSample,
			Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
		}
	}
	return s.fallback.ShouldSample(p)
}

func (s prioritySampler) Description() string {
	return fmt.Sprintf("PrioritySampler{%v,%s}", s.always, s.fallback.Description())
}
