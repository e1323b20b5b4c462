package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/logging"
	"github.com/getmockd/kbase/pkg/service"
)

// DefaultPort is the default gRPC port.
const DefaultPort = 4391

// Errors returned by Server.
var (
	ErrServerAlreadyRunning = errors.New("gRPC server already running")
)

// Config configures the gRPC server.
type Config struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port" yaml:"port"`
}

// Server serves a service.Service over gRPC.
type Server struct {
	svc    *service.Service
	config Config

	mu         sync.RWMutex
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	running    bool
	log        *slog.Logger
}

var _ KBaseServer = (*Server)(nil)

// NewServer creates a gRPC server for svc.
func NewServer(svc *service.Service, cfg Config) *Server {
	if cfg.Port < 0 {
		cfg.Port = DefaultPort
	}
	return &Server{
		svc:    svc,
		config: cfg,
		log:    logging.Nop(),
	}
}

// SetLogger sets the operational logger.
func (s *Server) SetLogger(log *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log != nil {
		s.log = log
	} else {
		s.log = logging.Nop()
	}
}

// Register registers the kbase and health services on gs.
func (s *Server) Register(gs *grpc.Server) *health.Server {
	RegisterKBaseServer(gs, s)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return hs
}

// NewGRPCServer builds a *grpc.Server with logging and the kbase service.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.loggingInterceptor)}, opts...)
	gs := grpc.NewServer(opts...)
	s.health = s.Register(gs)
	return gs
}

// Start listens and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.grpcServer = s.NewGRPCServer()

	gs := s.grpcServer
	go func() {
		if err := gs.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.log.Error("gRPC server error", "error", err)
		}
	}()

	s.running = true
	s.log.Info("gRPC server listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server, forcing it after timeout.
func (s *Server) Stop(ctx context.Context, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.health != nil {
		s.health.Shutdown()
	}
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.grpcServer.Stop()
	case <-ctx.Done():
		s.grpcServer.Stop()
	}

	s.running = false
	s.listener = nil
	return nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.mu.RLock()
	log := s.log
	s.mu.RUnlock()
	log.Debug("grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

// Save implements KBaseServer.
func (s *Server) Save(ctx context.Context, in *entity.Batch) (*types.StatusResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "missing batch")
	}
	resp := s.svc.Save(ctx, *in).Response()
	return &resp, nil
}

// Delete implements KBaseServer.
func (s *Server) Delete(ctx context.Context, in *entity.Batch) (*types.StatusResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "missing batch")
	}
	resp := s.svc.Delete(ctx, *in).Response()
	return &resp, nil
}

// Dump implements KBaseServer.
func (s *Server) Dump(ctx context.Context, in *types.DumpRequest) (*types.StatusResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "missing dump request")
	}
	resp := s.svc.Dump(ctx, in.Path).Response()
	return &resp, nil
}

// GetState implements KBaseServer.
func (s *Server) GetState(_ context.Context, _ *GetStateRequest) (*entity.State, error) {
	state := s.svc.State()
	return &state, nil
}
