package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/paulb-elastic/synthetics/journey"
)

// tracerName is the instrumentation scope name for synthetics tracing.
const tracerName = "github.com/paulb-elastic/synthetics"

// Tracing returns middleware that wraps step execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: synthetics.step.id, synthetics.step.name,
// synthetics.step.index, synthetics.step.location. On error, the span
// status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided
// tracer. This variant allows injecting a specific TracerProvider for
// testing or when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, s *journey.Step, next Handler) error {
		ctx, span := tracer.Start(ctx, "synthetics.step.execute",
			trace.WithAttributes(
				attribute.String("synthetics.step.id", s.ID.String()),
				attribute.String("synthetics.step.name", s.Name),
				attribute.Int("synthetics.step.index", s.Index),
				attribute.String("synthetics.step.location", s.Location),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
