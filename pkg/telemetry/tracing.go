// Package telemetry wraps request and lifecycle observability behind a
// small seam, pairing go.opentelemetry.io/otel spans with the
// Prometheus metric vocabulary, the way
// _examples/2lar-b2/backend/pkg/observability pairs structured
// recording calls around a request/command boundary and
// _examples/xraph-go-utils/metrics describes metrics in terms of
// counters, gauges, and histograms.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an otel Tracer with the two span shapes loom needs: one
// per inbound request (spanning its whole Request Context lifetime) and
// one per lifecycle phase transition on a single component.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer builds a Tracer using the global otel TracerProvider under
// the given instrumentation name.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartRequest opens a span covering one dispatched request, tagged
// with its method, path, and Request Context id. The returned
// context.Context carries the span; call the returned func when the
// request finishes (typically via defer, alongside Request Context
// cleanup).
func (t *Tracer) StartRequest(ctx context.Context, requestID, method, path string) (context.Context, func(status int, err error)) {
	ctx, span := t.tracer.Start(ctx, "loom.request",
		trace.WithAttributes(
			attribute.String("loom.request_id", requestID),
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	return ctx, func(status int, err error) {
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartPhase opens a span covering one lifecycle phase (post_construct,
// startup, pre_destroy, destroy) for one named component.
func (t *Tracer) StartPhase(ctx context.Context, component, phase string) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, "loom.lifecycle."+phase,
		trace.WithAttributes(attribute.String("loom.component", component)),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
