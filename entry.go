// Package slowpoke assembles the slowpoke test server: a deliberately slow
// HTTP server for exercising clients, proxies and tunnels against long,
// abandoned and connection-closing requests.
package slowpoke

import (
	"context"
	"errors"
	"log/slog"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/config"
	"github.com/goflash/slowpoke/ctx"
	"github.com/goflash/slowpoke/handlers"
	"github.com/goflash/slowpoke/longrun"
	"github.com/goflash/slowpoke/middleware"
	"github.com/goflash/slowpoke/server"
)

// App is the router. Re-exported from app.App.
type App = app.App

// Handler is the route handler signature. Re-exported from app.Handler.
type Handler = app.Handler

// Middleware wraps a Handler. Re-exported from app.Middleware.
type Middleware = app.Middleware

// Ctx is the request context. Re-exported from ctx.Ctx.
type Ctx = ctx.Ctx

// Service is a fully wired server: router, long request dispatcher and the
// HTTP server that owns both.
type Service struct {
	App        App
	Dispatcher *longrun.Dispatcher
	Server     *server.Server
}

// New wires a Service from cfg. Nothing is bound or started until Run.
func New(cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	d := longrun.New(longrun.Config{
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		StageDelay:  cfg.StageDelay,
		WaitTimeout: cfg.WaitTimeout,
		Logger:      logger,
	})

	a := app.New()
	a.SetLogger(logger)
	a.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recover(),
		middleware.OTel(cfg.ServiceName),
	)
	middleware.RegisterHealthCheck(a, middleware.HealthCheckConfig{
		ServiceName: cfg.ServiceName,
		HealthCheckFunc: func() error {
			if d.Pool().Closed() {
				return errors.New("worker pool stopped")
			}
			return nil
		},
		Details: func() map[string]any {
			return map[string]any{
				"requests": d.Registry().Stats(),
				"pool":     d.Pool().Stats(),
			}
		},
	})
	handlers.Register(a, d, handlers.Options{
		LongPath:     cfg.LongPath,
		AboutPath:    cfg.AboutPath,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := server.New(a, server.Config{
		Listen: server.ListenConfig{
			Addr:      cfg.Addr(),
			Attempts:  cfg.BindAttempts,
			Backoff:   cfg.BindBackoff,
			KeepAlive: server.DefaultKeepAlive,
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	}, d)

	return &Service{App: a, Dispatcher: d, Server: srv}
}

// Run starts the worker pool and serves until ctx ends. In-flight long
// requests keep running through shutdown until the server's shutdown timeout.
func (s *Service) Run(ctx context.Context) error {
	s.Dispatcher.Start(context.WithoutCancel(ctx))
	err := s.Server.Run(ctx)
	// No-op after a normal shutdown; releases the workers when binding failed.
	_ = s.Dispatcher.Stop(context.Background())
	return err
}
