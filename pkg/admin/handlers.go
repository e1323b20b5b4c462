package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, types.ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// httpStatus maps an operation status to an HTTP status code.
func httpStatus(s types.Status) int {
	switch s {
	case types.StatusOK:
		return http.StatusOK
	case types.StatusInvalidPath, types.StatusMalformedDocument:
		return http.StatusBadRequest
	case types.StatusFileNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeResult(w http.ResponseWriter, op service.Operation, res service.Result) {
	if res.Err != nil && res.Status == types.StatusIOError {
		sanitizeError(res.Err, a.log, string(op))
	}
	writeJSON(w, httpStatus(res.Status), res.Response())
}

func decodeBody[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&v)
	return v, err
}

// handleSave handles POST /save.
func (a *API) handleSave(w http.ResponseWriter, r *http.Request) {
	batch, err := decodeBody[entity.Batch](r)
	if err != nil {
		status, code, msg := decodeErrorResponse(err)
		writeError(w, status, code, msg)
		return
	}
	a.writeResult(w, service.OpSave, a.svc.Save(r.Context(), batch))
}

// handleDelete handles POST /delete.
func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	batch, err := decodeBody[entity.Batch](r)
	if err != nil {
		status, code, msg := decodeErrorResponse(err)
		writeError(w, status, code, msg)
		return
	}
	a.writeResult(w, service.OpDelete, a.svc.Delete(r.Context(), batch))
}

// handleDump handles POST /dump.
func (a *API) handleDump(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[types.DumpRequest](r)
	if err != nil {
		status, code, msg := decodeErrorResponse(err)
		writeError(w, status, code, msg)
		return
	}
	a.writeResult(w, service.OpDump, a.svc.Dump(r.Context(), req.Path))
}

// handleGetState handles GET /state.
func (a *API) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.State())
}

// handleHealth handles GET /health.
func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	records := make(map[string]int, len(entity.Kinds))
	for k, n := range a.svc.Counts() {
		records[string(k)] = n
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Uptime:    a.Uptime(),
		Timestamp: time.Now().UTC(),
		Records:   records,
		Snapshot:  a.svc.SnapshotTarget(),
	})
}

func (a *API) handleNotConfigured(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_configured", ErrMsgNotConfigured)
}
