package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BioHazard786/dogfight/internal/config"
	"github.com/BioHazard786/dogfight/internal/signaling"
)

// Server hosts the relay hub behind an HTTP server.
type Server struct {
	hub             *signaling.Hub
	http            *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New builds a server for hub from the server and relay settings.
func New(cfg *config.Config, hub *signaling.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	upgrader := NewUpgrader(cfg.Relay.CheckOrigin)

	return &Server{
		hub: hub,
		http: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           Routes(hub, cfg.Server.Path, upgrader, logger),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:          logger,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Handler exposes the routes, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hub and serves HTTP on ln. When ctx is done it stops
// accepting requests, waits up to the shutdown timeout for them, then
// stops the hub, which closes every websocket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Starting signaling server", "addr", ln.Addr().String())
		serveErr <- s.http.Serve(ln)
	}()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if shutdownErr := s.http.Shutdown(shutdownCtx); shutdownErr != nil {
			err = fmt.Errorf("shutdown: %w", shutdownErr)
		}
	}

	stopHub()
	<-s.hub.Done()
	s.logger.Info("Server stopped")
	return err
}
