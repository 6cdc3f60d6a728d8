// Package server wires the pos runtime: SQLite storage, the order ledger and
// inventory services, the kiosk JSON API, and a gRPC health listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tillworks/till/internal/platform/config"
	"github.com/tillworks/till/internal/platform/timeouts"
	poshttp "github.com/tillworks/till/internal/services/pos/api/http"
	"github.com/tillworks/till/internal/services/pos/inventory"
	"github.com/tillworks/till/internal/services/pos/ledger"
	possqlite "github.com/tillworks/till/internal/services/pos/storage/sqlite"
)

type serverEnv struct {
	DBPath string `env:"TILL_POS_DB_PATH"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "pos.db")
	}
	return cfg
}

// Server hosts the kiosk JSON API, the gRPC health endpoint, and the
// storage lifecycle.
type Server struct {
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
	store        *possqlite.Store
}

// NewWithAddrs creates a configured pos server for the provided addresses.
func NewWithAddrs(httpAddr, grpcAddr string) (*Server, error) {
	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpListener.Close()
		return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
	}

	env := loadServerEnv()
	store, err := openStore(env.DBPath)
	if err != nil {
		_ = httpListener.Close()
		_ = grpcListener.Close()
		return nil, err
	}

	ledgerService := ledger.New(store, store)
	inventoryService := inventory.New(store)
	handler := poshttp.NewHandler(ledgerService, inventoryService, store)

	httpServer := &http.Server{
		Handler:           handler.Mux(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		httpListener: httpListener,
		grpcListener: grpcListener,
		httpServer:   httpServer,
		grpcServer:   grpcServer,
		health:       healthServer,
		store:        store,
	}, nil
}

// HTTPAddr returns the kiosk API listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the health listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a pos server until context cancellation.
func Run(ctx context.Context, httpAddr, grpcAddr string) error {
	server, err := NewWithAddrs(httpAddr, grpcAddr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP and gRPC servers until context cancellation or the
// first listener failure.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("pos API listening at %v", s.httpListener.Addr())
	log.Printf("pos health listening at %v", s.grpcListener.Addr())

	serveErr := make(chan error, 2)
	go func() {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()
	go func() {
		serveErr <- s.grpcServer.Serve(s.grpcListener)
	}()

	select {
	case <-ctx.Done():
		s.shutdown()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve pos: %w", err)
	case err := <-serveErr:
		s.shutdown()
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve pos: %w", err)
	}
}

func (s *Server) shutdown() {
	if s.health != nil {
		s.health.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown pos http server: %v", err)
	}
	s.grpcServer.GracefulStop()
}

// Close releases pos server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close pos store: %v", err)
		}
	}
}

func openStore(path string) (*possqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := possqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pos sqlite store: %w", err)
	}
	return store, nil
}
