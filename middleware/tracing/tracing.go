// Package tracing provides OpenTelemetry spans around event store
// operations.
//
// Basic usage:
//
//	tracer := tracing.New(tracing.WithTracerProvider(provider))
//	store := inkwell.New(tracer.WrapAdapter(adapter))
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell-notes/inkwell/adapters"
)

const tracerName = "github.com/inkwell-notes/inkwell/middleware/tracing"

// Span attribute keys.
const (
	AttrStreamID     = "inkwell.stream_id"
	AttrEventCount   = "inkwell.event_count"
	AttrFromVersion  = "inkwell.from_version"
	AttrFromPosition = "inkwell.from_position"
)

// Tracer creates spans for event store operations.
type Tracer struct {
	tracer trace.Tracer
}

// TracerOption configures a Tracer.
type TracerOption func(*tracerOptions)

type tracerOptions struct {
	provider trace.TracerProvider
}

// WithTracerProvider sets the TracerProvider. Defaults to the global
// provider.
func WithTracerProvider(provider trace.TracerProvider) TracerOption {
	return func(o *tracerOptions) {
		if provider != nil {
			o.provider = provider
		}
	}
}

// New creates a Tracer.
func New(opts ...TracerOption) *Tracer {
	o := &tracerOptions{
		provider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Tracer{tracer: o.provider.Tracer(tracerName)}
}

// WrapAdapter wraps an event store adapter so each operation runs inside a
// span carrying the stream ID and result counts.
func (t *Tracer) WrapAdapter(adapter adapters.EventStoreAdapter) adapters.EventStoreAdapter {
	return &tracedAdapter{EventStoreAdapter: adapter, tracer: t.tracer}
}

type tracedAdapter struct {
	adapters.EventStoreAdapter
	tracer trace.Tracer
}

func (a *tracedAdapter) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	ctx, span := a.tracer.Start(ctx, "inkwell.Append",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrStreamID, streamID),
			attribute.Int(AttrEventCount, len(events)),
		),
	)
	defer span.End()

	stored, err := a.EventStoreAdapter.Append(ctx, streamID, events, expectedVersion)
	finishSpan(span, err)
	return stored, err
}

func (a *tracedAdapter) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	ctx, span := a.tracer.Start(ctx, "inkwell.Load",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrStreamID, streamID),
			attribute.Int64(AttrFromVersion, fromVersion),
		),
	)
	defer span.End()

	events, err := a.EventStoreAdapter.Load(ctx, streamID, fromVersion)
	if err == nil {
		span.SetAttributes(attribute.Int(AttrEventCount, len(events)))
	}
	finishSpan(span, err)
	return events, err
}

func (a *tracedAdapter) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	ctx, span := a.tracer.Start(ctx, "inkwell.LoadFromPosition",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrFromPosition, fmt.Sprintf("%d", fromPosition)),
		),
	)
	defer span.End()

	events, err := a.EventStoreAdapter.LoadFromPosition(ctx, fromPosition, limit)
	if err == nil {
		span.SetAttributes(attribute.Int(AttrEventCount, len(events)))
	}
	finishSpan(span, err)
	return events, err
}

func (a *tracedAdapter) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	ctx, span := a.tracer.Start(ctx, "inkwell.GetStreamInfo",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(AttrStreamID, streamID)),
	)
	defer span.End()

	info, err := a.EventStoreAdapter.GetStreamInfo(ctx, streamID)
	finishSpan(span, err)
	return info, err
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
