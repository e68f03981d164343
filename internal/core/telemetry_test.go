// AngelaMos | 2026
// telemetry_test.go

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/copystudio/internal/config"
)

func TestNewTelemetry_DisabledHandsOutNoopTracers(t *testing.T) {
	tel, err := NewTelemetry(context.Background(),
		config.OtelConfig{Enabled: false, Endpoint: "collector:4317"},
		config.AppConfig{Name: "copystudio"},
	)
	require.NoError(t, err)

	_, span := tel.Tracer(TracerGeneration).Start(context.Background(), SpanGenerate)
	assert.False(t, span.SpanContext().IsValid())
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestServiceAttributes(t *testing.T) {
	attrs := serviceAttributes(
		config.OtelConfig{},
		config.AppConfig{Name: "copystudio", Version: "1.4.0", Environment: "staging"},
		[]attribute.KeyValue{attribute.String("copystudio.prompt_version", "v2")},
	)

	assert.Contains(t, attrs, semconv.ServiceName("copystudio"))
	assert.Contains(t, attrs, semconv.ServiceVersion("1.4.0"))
	assert.Contains(t, attrs, semconv.DeploymentEnvironment("staging"))
	assert.Contains(t, attrs, attribute.String("copystudio.prompt_version", "v2"))

	named := serviceAttributes(config.OtelConfig{ServiceName: "copystudio-api"}, config.AppConfig{Name: "copystudio"}, nil)
	assert.Contains(t, named, semconv.ServiceName("copystudio-api"))
}

func TestPrioritySampler(t *testing.T) {
	s := newPrioritySampler(0, SpanGenerate, SpanWebhook)
	traceID := trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 1}

	tests := []struct {
		span string
		want sdktrace.SamplingDecision
	}{
		{SpanGenerate, sdktrace.RecordAndSample},
		{SpanWebhook, sdktrace.RecordAndSample},
		{"GET /v1/profile", sdktrace.Drop},
	}
	for _, tt := range tests {
		res := s.ShouldSample(sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			TraceID:       traceID,
			Name:          tt.span,
		})
		assert.Equal(t, tt.want, res.Decision, tt.span)
	}
}

func TestPrioritySampler_ClampsRate(t *testing.T) {
	s := newPrioritySampler(7)
	assert.Contains(t, s.Description(), "TraceIDRatioBased{0.1}")
}
