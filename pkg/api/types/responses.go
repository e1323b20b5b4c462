// Package types provides the request and response types shared by the HTTP
// and gRPC transports and their clients.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/getmockd/kbase/pkg/entity"
)

// Status is the outcome of a Save, Delete or Dump call. The numeric values
// double as process exit codes, so 1 is left for generic failures.
type Status int

// Status values.
const (
	StatusOK                Status = 0
	StatusFileNotFound      Status = 2
	StatusInvalidPath       Status = 3
	StatusIOError           Status = 4
	StatusMalformedDocument Status = 5
)

var statusNames = map[Status]string{
	StatusOK:                "OK",
	StatusFileNotFound:      "FILE_NOT_FOUND",
	StatusInvalidPath:       "INVALID_PATH",
	StatusIOError:           "IO_ERROR",
	StatusMalformedDocument: "MALFORMED_DOCUMENT",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", int(s))
}

// ParseStatus converts a status name back to its value.
func ParseStatus(name string) (Status, bool) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, true
		}
	}
	return 0, false
}

// ExitCode returns the process exit code for the status.
func (s Status) ExitCode() int { return int(s) }

// OK reports whether the call succeeded.
func (s Status) OK() bool { return s == StatusOK }

// DumpRequest asks the server to write its current state to Path.
type DumpRequest struct {
	Path string `json:"path"`
}

// StatusResponse answers Save, Delete and Dump.
type StatusResponse struct {
	Status   string   `json:"status"`
	Code     int      `json:"code"`
	Warnings []string `json:"warnings,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// NewStatusResponse builds a StatusResponse for s.
func NewStatusResponse(s Status, warnings []string, message string) StatusResponse {
	return StatusResponse{
		Status:   s.String(),
		Code:     int(s),
		Warnings: warnings,
		Message:  message,
	}
}

// StatusValue returns the typed status carried by the response.
func (r StatusResponse) StatusValue() Status { return Status(r.Code) }

// StateResponse is the full knowledge base.
type StateResponse = entity.State

// ErrorResponse is a standard error response used across all APIs.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse is a simple health check response.
type HealthResponse struct {
	Status    string         `json:"status"`
	Uptime    int            `json:"uptime,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitzero"`
	Records   map[string]int `json:"records,omitempty"`
	Snapshot  string         `json:"snapshot,omitempty"`
}
