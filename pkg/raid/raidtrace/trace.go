// Package raidtrace wraps Client.Request/RequestAsync in an OpenTelemetry
// span per etag, grounded on the teacher's internal/telemetry. Entirely
// optional and additive: the CORE exports no spans of its own (spec.md
// §1 Non-goals), this package is a thin client-side decorator a consumer
// opts into.
package raidtrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/glhrmfrts/raid-go/pkg/raid"
)

const instrumentationName = "github.com/glhrmfrts/raid-go/pkg/raid/raidtrace"

// TracedClient decorates a *raid.Client with span-per-request tracing.
type TracedClient struct {
	*raid.Client
	tracer trace.Tracer
}

// Wrap returns a TracedClient using the global otel TracerProvider, or a
// specific one if tp is non-nil.
func Wrap(client *raid.Client, tp trace.TracerProvider) *TracedClient {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracedClient{Client: client, tracer: tp.Tracer(instrumentationName)}
}

// RequestAsync starts a "raid.request" span carrying the action and etag
// as attributes and ends it when cb fires, recording the resulting
// ErrorCode as the span's status.
func (t *TracedClient) RequestAsync(ctx context.Context, action string, w *raid.Writer, cb raid.ResponseCallback) error {
	_, span := t.tracer.Start(ctx, "raid.request",
		trace.WithAttributes(
			attribute.String("raid.action", action),
			attribute.String("raid.etag", w.Etag()),
		))

	err := t.Client.RequestAsync(w, func(reader *raid.Reader, code raid.ErrorCode) {
		if code != raid.CodeSuccess {
			span.SetStatus(codes.Error, code.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		cb(reader, code)
	})
	if err != nil {
		// The callback above never fires when the send itself fails
		// synchronously, so the span must be closed here instead.
		span.SetStatus(codes.Error, err.Error())
		span.End()
	}
	return err
}

// Request starts a span, runs the synchronous request, and ends the
// span with the resulting error recorded.
func (t *TracedClient) Request(ctx context.Context, action string, w *raid.Writer, readerOut *raid.Reader) error {
	_, span := t.tracer.Start(ctx, "raid.request",
		trace.WithAttributes(
			attribute.String("raid.action", action),
			attribute.String("raid.etag", w.Etag()),
		))
	defer span.End()

	err := t.Client.Request(w, readerOut)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}
