// Package server binds and runs the slowpoke HTTP server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Stopper is a background component stopped after the HTTP server has
// drained, e.g. *longrun.Dispatcher.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Config controls a Server.
type Config struct {
	Listen ListenConfig
	// ShutdownTimeout bounds graceful shutdown (default 15s).
	ShutdownTimeout time.Duration
	// ReadHeaderTimeout defaults to 10s.
	ReadHeaderTimeout time.Duration
	Logger            *slog.Logger
}

// Server couples an http.Server with the components that must stop with it.
type Server struct {
	cfg   Config
	http  *http.Server
	stops []Stopper
}

// New returns a Server for h. Each Stopper is stopped, in order, after the
// HTTP server has shut down.
func New(h http.Handler, cfg Config, stops ...Stopper) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Listen.Logger == nil {
		cfg.Listen.Logger = cfg.Logger
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelWarn),
		},
		stops: stops,
	}
}

// Run binds the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := Listen(ctx, s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully: in-flight
// requests get ShutdownTimeout to finish before the stoppers run.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := s.cfg.Logger
	log.Info("server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		log.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(sctx); err != nil {
		log.Error("http shutdown", "err", err)
		serveErr = errors.Join(serveErr, err)
	}
	for _, st := range s.stops {
		if err := st.Stop(sctx); err != nil {
			log.Error("stop component", "err", err)
			serveErr = errors.Join(serveErr, err)
		}
	}
	if serveErr == nil {
		log.Info("server stopped")
	}
	return serveErr
}
