package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tillworks/till/internal/platform/config"
	"github.com/tillworks/till/internal/platform/timeouts"
	possqlite "github.com/tillworks/till/internal/services/pos/storage/sqlite"
)

type serverEnv struct {
	DBPath string `env:"TILL_DASHBOARD_DB_PATH"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "pos.db")
	}
	return cfg
}

// Server hosts the operator dashboard over the pos database.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *possqlite.Store
}

// NewWithAddr creates a configured dashboard server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := possqlite.Open(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("open pos sqlite store: %w", err)
	}

	handler := NewHandler(store)
	httpServer := &http.Server{
		Handler:           handler.Mux(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a dashboard server until context cancellation.
func Run(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("dashboard listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown dashboard server: %v", err)
		}
		if err := <-serveErr; err != nil {
			return fmt.Errorf("serve dashboard: %w", err)
		}
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve dashboard: %w", err)
		}
		return nil
	}
}

// Close releases dashboard server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close dashboard store: %v", err)
		}
	}
}
