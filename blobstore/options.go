package blobstore

import (
	"go.opentelemetry.io/otel/trace"
)

// A TraceOption specifies instrumentation configuration for Traced.
type TraceOption interface {
	apply(*traceConfig)
}

type traceConfig struct {
	tp trace.TracerProvider
}

type traceOptionFunc func(*traceConfig)

func (o traceOptionFunc) apply(c *traceConfig) {
	o(c)
}

// WithTracerProvider specifies a tracer provider to use for creating a
// tracer. If none is specified, the global provider is used (see
// [otel.GetTracerProvider]).
func WithTracerProvider(provider trace.TracerProvider) TraceOption {
	return traceOptionFunc(func(cfg *traceConfig) {
		if provider != nil {
			cfg.tp = provider
		}
	})
}
