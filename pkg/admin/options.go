// Option functions for configuring API.

package admin

import (
	"log/slog"
	"net/http"

	"github.com/getmockd/kbase/pkg/metrics"
)

// DefaultPort is the default HTTP API port.
const DefaultPort = 4390

// DefaultMaxBodyBytes limits request bodies.
const DefaultMaxBodyBytes = 10 << 20

// Option configures an API.
type Option func(*API)

// WithPort sets the listen port. 0 picks a free port.
func WithPort(port int) Option {
	return func(a *API) {
		if port >= 0 {
			a.port = port
		}
	}
}

// WithHost sets the listen host. Empty listens on all interfaces.
func WithHost(host string) Option {
	return func(a *API) {
		a.host = host
	}
}

// WithStream mounts the state stream handler at /state/stream.
func WithStream(h http.Handler) Option {
	return func(a *API) {
		a.stream = h
	}
}

// WithMetrics enables /metrics and request counting.
func WithMetrics(m *metrics.Registry) Option {
	return func(a *API) {
		a.metrics = m
	}
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		a.SetLogger(log)
	}
}
