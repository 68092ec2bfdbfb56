package tracer

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

type Options struct {
	Enabled     bool
	Endpoint    string // host:port of an OTLP/HTTP collector, e.g. Jaeger on 4318
	ServiceName string
	SampleRatio float64
}

func noop(context.Context) error { return nil }

// sampler keeps the caller's sampling decision and samples new traces at ratio.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// InitTracer installs an OTLP HTTP tracer provider and returns its shutdown
// function. When tracing is disabled the global no-op provider stays in place.
func InitTracer(opts Options) func(context.Context) error {
	if !opts.Enabled {
		log.Println("[INFO] Tracing disabled (set OTEL_ENABLED=true to enable)")
		return noop
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "localhost:4318"
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "survey-assistant-memory"
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(opts.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Printf("[WARN] Failed to create OTLP exporter: %v (tracing disabled)", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler(opts.SampleRatio)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Printf("[INFO] Tracer initialized (endpoint: %s, sample ratio: %.2f)", opts.Endpoint, opts.SampleRatio)
	return tp.Shutdown
}
