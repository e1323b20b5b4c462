package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getmockd/kbase/pkg/logging"
	"github.com/getmockd/kbase/pkg/metrics"
	"github.com/getmockd/kbase/pkg/service"
)

// API is the HTTP front end of a service.Service.
type API struct {
	svc          *service.Service
	stream       http.Handler
	metrics      *metrics.Registry
	host         string
	port         int
	maxBodyBytes int64

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	startTime  time.Time
	log        *slog.Logger
}

// NewAPI creates an API for svc.
func NewAPI(svc *service.Service, opts ...Option) *API {
	a := &API{
		svc:          svc,
		port:         DefaultPort,
		maxBodyBytes: DefaultMaxBodyBytes,
		startTime:    time.Now(),
		log:          logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetLogger sets the operational logger for the API.
func (a *API) SetLogger(log *slog.Logger) {
	if log != nil {
		a.log = log
	} else {
		a.log = logging.Nop()
	}
}

// Handler returns the full handler chain.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.registerRoutes(mux)

	var h http.Handler = mux
	h = a.bodyLimitMiddleware(h)
	h = a.loggingMiddleware(h)
	h = a.recoverMiddleware(h)
	h = requestIDMiddleware(h)
	return h
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly.
func (a *API) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer != nil {
		return errors.New("admin API already started")
	}

	addr := net.JoinHostPort(a.host, strconv.Itoa(a.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	a.listener = ln
	a.startTime = time.Now()
	a.httpServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info("starting admin API", "address", ln.Addr().String())
	srv := a.httpServer
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("admin API error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (a *API) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop gracefully shuts down the server.
func (a *API) Stop() error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.listener = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Uptime returns the API uptime in seconds.
func (a *API) Uptime() int {
	return int(time.Since(a.startTime).Seconds())
}
