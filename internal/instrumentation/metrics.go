package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrAction    = "action"
	attrClass     = "class"
	attrKind      = "calendar_kind"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder.
type Metrics struct {
	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Sync metrics
	syncPassesTotal           metric.Int64Counter
	syncPassDuration          metric.Float64Histogram
	syncEventsAppliedTotal    metric.Int64Counter
	syncCalendarFailuresTotal metric.Int64Counter

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// detailedLabels adds the calendar kind to per-calendar metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.syncPassesTotal, err = meter.Int64Counter(
		"sync_passes_total",
		metric.WithDescription("Total number of sync passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_passes_total counter: %w", err)
	}

	m.syncPassDuration, err = meter.Float64Histogram(
		"sync_pass_duration_seconds",
		metric.WithDescription("Sync pass duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_pass_duration_seconds histogram: %w", err)
	}

	m.syncEventsAppliedTotal, err = meter.Int64Counter(
		"sync_events_applied_total",
		metric.WithDescription("Total number of events applied to the cache"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_events_applied_total counter: %w", err)
	}

	m.syncCalendarFailuresTotal, err = meter.Int64Counter(
		"sync_calendar_failures_total",
		metric.WithDescription("Total number of calendars whose sync failed"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_calendar_failures_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	return m, nil
}

// RecordGoogleAPIOperation records a Google API operation with service,
// operation, status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)

	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSyncPass records a completed or failed sync pass.
func (m *Metrics) RecordSyncPass(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.syncPassesTotal == nil || m.syncPassDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.syncPassesTotal.Add(ctx, 1, attrs)
	m.syncPassDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordEventsApplied adds n events for the given action (upsert, remove, skip).
func (m *Metrics) RecordEventsApplied(ctx context.Context, calendarID, action string, n int) {
	if m == nil || m.syncEventsAppliedTotal == nil || n <= 0 {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrAction, action)}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrKind, CalendarKind(calendarID)))
	}
	m.syncEventsAppliedTotal.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

// RecordCalendarFailure records a failed calendar sync by error class.
func (m *Metrics) RecordCalendarFailure(ctx context.Context, calendarID string, transient bool) {
	if m == nil || m.syncCalendarFailuresTotal == nil {
		return
	}

	class := ErrorClassPermanent
	if transient {
		class = ErrorClassTransient
	}
	attrs := []attribute.KeyValue{attribute.String(attrClass, class)}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrKind, CalendarKind(calendarID)))
	}
	m.syncCalendarFailuresTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
