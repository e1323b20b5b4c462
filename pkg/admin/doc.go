// Package admin serves the knowledge-base HTTP API.
//
// Endpoints:
//
//	POST /save           upsert a batch of records
//	POST /delete         delete a batch of records by name
//	POST /dump           write the current state to {"path": "..."}
//	GET  /state          current state as JSON
//	GET  /state/stream   WebSocket stream of states, latest first
//	GET  /health         liveness and record counts
//	GET  /metrics        Prometheus metrics
//	GET  /openapi.yaml   OpenAPI description of this API
//
// Save, Delete and Dump answer with a types.StatusResponse. The HTTP status
// mirrors the outcome: 200 for OK, 400 for INVALID_PATH, 404 for
// FILE_NOT_FOUND and 500 for IO_ERROR. Oversized bodies get 413.
package admin
