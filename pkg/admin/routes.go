// Route registration for the HTTP API.

package admin

import "net/http"

func (a *API) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /openapi.yaml", a.handleOpenAPI)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	} else {
		mux.HandleFunc("GET /metrics", a.handleNotConfigured)
	}

	mux.HandleFunc("POST /save", a.handleSave)
	mux.HandleFunc("POST /delete", a.handleDelete)
	mux.HandleFunc("POST /dump", a.handleDump)

	mux.HandleFunc("GET /state", a.handleGetState)
	if a.stream != nil {
		mux.Handle("GET /state/stream", a.stream)
	} else {
		mux.HandleFunc("GET /state/stream", a.handleNotConfigured)
	}
}
