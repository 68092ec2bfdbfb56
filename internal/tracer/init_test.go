package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	shutdown := InitTracer(Options{Enabled: false})
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, sdktrace.ParentBased(sdktrace.NeverSample()).Description()},
		{-1, sdktrace.ParentBased(sdktrace.NeverSample()).Description()},
		{1, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sampler(tt.ratio).Description())
	}
}
