// Package api hosts the monitor-b3 listeners: the dashboard over HTTP and
// the standard gRPC health and reflection services.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"monitorb3/internal/universe"
)

// ServiceName is the gRPC health service name for the dashboard.
const ServiceName = "monitorb3.Dashboard"

// UniverseSource provides the parsed spreadsheet. Health follows its
// success.
type UniverseSource interface {
	Load(ctx context.Context) (*universe.Universe, error)
}

// Server is the main API server that hosts the HTTP and gRPC endpoints.
type Server struct {
	httpAddr string
	grpcAddr string
	universe UniverseSource
	refresh  time.Duration
	log      *slog.Logger

	health     *health.Server
	grpcServer *grpc.Server
	httpServer *http.Server

	mu     sync.Mutex
	httpLn net.Listener
	grpcLn net.Listener
}

// NewServer creates a Server serving handler on httpAddr and gRPC health on
// grpcAddr. The universe is re-checked every refresh interval.
func NewServer(httpAddr, grpcAddr string, handler http.Handler, u UniverseSource, refresh time.Duration) *Server {
	log := slog.Default().With("component", "api")
	s := &Server{
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		universe: u,
		refresh:  refresh,
		log:      log,
		health:   health.NewServer(),
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)

	// Not serving until the first universe load succeeds.
	s.setServing(false)
	return s
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("grpc call", "method", info.FullMethod, "elapsed", time.Since(start), "error", err)
	return resp, err
}

func (s *Server) setServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// CheckUniverse loads the universe and updates the health status.
func (s *Server) CheckUniverse(ctx context.Context) error {
	u, err := s.universe.Load(ctx)
	if err != nil {
		s.setServing(false)
		s.log.Warn("universe check failed", "error", err)
		return err
	}
	s.setServing(true)
	s.log.Debug("universe check ok", "tickers", len(u.Tickers()))
	return nil
}

// watchUniverse re-checks the universe every refresh interval. A zero
// interval disables the periodic check.
func (s *Server) watchUniverse(ctx context.Context) {
	if s.refresh <= 0 {
		return
	}
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckUniverse(ctx)
		}
	}
}

// Listen binds both listeners.
func (s *Server) Listen() error {
	httpLn, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpAddr, err)
	}
	grpcLn, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		httpLn.Close()
		return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
	}
	s.mu.Lock()
	s.httpLn, s.grpcLn = httpLn, grpcLn
	s.mu.Unlock()
	return nil
}

// Addrs returns the bound HTTP and gRPC addresses, or the configured ones
// before Listen.
func (s *Server) Addrs() (httpAddr, grpcAddr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	httpAddr, grpcAddr = s.httpAddr, s.grpcAddr
	if s.httpLn != nil {
		httpAddr = s.httpLn.Addr().String()
	}
	if s.grpcLn != nil {
		grpcAddr = s.grpcLn.Addr().String()
	}
	return httpAddr, grpcAddr
}

// Serve serves on the bound listeners and blocks until the context is
// cancelled or a listener fails.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	httpLn, grpcLn := s.httpLn, s.grpcLn
	s.mu.Unlock()
	if httpLn == nil || grpcLn == nil {
		return errors.New("serve called before listen")
	}

	errc := make(chan error, 2)
	go func() {
		s.log.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := s.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	go func() {
		s.log.Info("gRPC server listening", "addr", grpcLn.Addr().String())
		if err := s.grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errc <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go s.watchUniverse(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

// ListenAndServe starts the HTTP and gRPC listeners, runs the first
// universe check and blocks until the context is cancelled or a fatal error
// occurs. A failing universe is reported through health, not returned.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.CheckUniverse(ctx)
	return s.Serve(ctx)
}

// Shutdown performs a graceful shutdown of the HTTP and gRPC servers.
// gRPC is stopped hard if it has not drained when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
	return err
}
