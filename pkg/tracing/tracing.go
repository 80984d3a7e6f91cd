package tracing

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is host:port or a full URL such as "https://otel.example.com:4318".
	Endpoint   string
	Insecure   bool
	SampleRate float64
	Enabled    bool
}

// DefaultConfig returns tracing disabled, pointed at a local collector.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// InitTracer installs a global OTLP/HTTP tracer provider and the W3C trace
// context + baggage propagators. When disabled only the propagators are set,
// so incoming trace headers are still forwarded to Kafka and logs.
func InitTracer(ctx context.Context, cfg Config) (Shutdown, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return nil, fmt.Errorf("tracing: sample rate %v outside [0,1]", cfg.SampleRate)
	}

	opts, err := exporterOptions(cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithProcessRuntimeDescription(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// sampler honours the parent's decision and samples root spans by rate.
func sampler(rate float64) sdktrace.Sampler {
	switch rate {
	case 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

func exporterOptions(cfg Config) ([]otlptracehttp.Option, error) {
	endpoint, insecure := cfg.Endpoint, cfg.Insecure
	var opts []otlptracehttp.Option

	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		switch u.Scheme {
		case "http":
			insecure = true
		case "https":
			insecure = false
		default:
			return nil, fmt.Errorf("tracing: unsupported endpoint scheme %q", u.Scheme)
		}
		endpoint = u.Host
		if u.Path != "" && u.Path != "/" {
			opts = append(opts, otlptracehttp.WithURLPath(u.Path))
		}
	}
	if endpoint == "" {
		return nil, fmt.Errorf("tracing: endpoint is required when enabled")
	}

	opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts, nil
}
