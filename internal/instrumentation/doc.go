// Package instrumentation provides OpenTelemetry instrumentation for talendar.
//
// Instrumentation is off for one-shot commands and enabled by the long-running
// watch command, which serves the Prometheus endpoint.
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// Sync Metrics:
//   - sync_passes_total: Counter of sync passes by status
//   - sync_pass_duration_seconds: Histogram of sync pass durations
//   - sync_events_applied_total: Counter of applied events by action (upsert, remove, skip)
//   - sync_calendar_failures_total: Counter of failed calendars by error class
//
// OAuth Metrics:
//   - oauth_token_refresh_total: Counter of token refreshes by result
//
// # Tracing
//
// Spans are created for each sync pass (sync.pass), each calendar
// (sync.calendar) and each Google API call (google.<service>.<operation>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Force instrumentation on or off
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: talendar)
//
// # Example Usage
//
//	cfg := instrumentation.DefaultConfig()
//	cfg.Enabled = true
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordSyncPass(ctx, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
