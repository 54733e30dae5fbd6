package graph

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/auth"
)

// Option configures an Engine at construction time, in the same
// functional-options style as dynamodb.QueryOption.
type Option func(*Engine)

// WithLogger overrides the Engine's zap logger (defaults to a no-op
// logger).
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer overrides the Engine's tracer (defaults to the global
// otel tracer provider's "gograph" tracer).
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithDefaultAuth sets the auth.Context used by operations that are
// not passed an explicit one, equivalent to calling SetDefaultAuth
// after construction.
func WithDefaultAuth(ctx auth.Context) Option {
	return func(e *Engine) { e.defaultAuth = ctx }
}
