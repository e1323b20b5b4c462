// Package metrics exposes Prometheus metrics for the knowledge-base server.
//
// A Registry owns its own prometheus.Registry, so tests and multiple servers
// in one process never collide on the global default registry.
//
//   - kbase_operations_total: Save, Delete and Dump calls (labels: operation, status)
//   - kbase_operation_duration_seconds: call latency (labels: operation)
//   - kbase_reference_warnings_total: records saved with an unknown location
//   - kbase_records: current collection sizes (labels: collection)
//   - kbase_admin_requests_total: HTTP requests (labels: method, path, status)
//
// Registry implements service.Observer:
//
//	reg := metrics.New()
//	svc := service.New(st, service.WithObserver(reg))
//	mux.Handle("GET /metrics", reg.Handler())
package metrics
