// Package server provides the HTTP endpoints of the long-running watch
// command: Prometheus metrics, liveness and readiness probes, and a JSON
// status document describing the last sync pass.
//
// # Endpoints
//
//   - /metrics: Prometheus exposition (only when the prometheus exporter is active)
//   - /healthz: liveness, always ok while the process runs
//   - /readyz: ready once a sync pass has succeeded and the process is not shutting down
//   - /status: last pass time, duration, error and cache size
package server
