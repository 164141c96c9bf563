package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer behind every talendar span.
const TracerName = "github.com/teemow/talendar"

// Span attribute keys.
const (
	SpanAttrService       = "google.service"
	SpanAttrOperation     = "google.operation"
	SpanAttrCalendar      = "calendar.id"
	SpanAttrFullSync      = "sync.full"
	SpanAttrPages         = "sync.pages"
	SpanAttrCalendarCount = "sync.calendars"
)

// tracer is resolved on every call so a provider installed after package
// init is still picked up.
func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. End it with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(append(base, attrs...)...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartCalendarSpan starts the span covering the sync of one calendar.
func StartCalendarSpan(ctx context.Context, calendarID string, fullSync bool) (context.Context, trace.Span) {
	return StartSpan(ctx, "sync.calendar",
		attribute.String(SpanAttrCalendar, calendarID),
		attribute.Bool(SpanAttrFullSync, fullSync),
	)
}

// SetSpanError marks span as failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks span as OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace id of the span in ctx, or "" without one.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
