// Command slowpoke runs the slow HTTP test server.
//
// Configuration comes from SLOWPOKE_* environment variables, for example:
//
//	SLOWPOKE_PORT=9000 SLOWPOKE_STAGE_DELAY=3s SLOWPOKE_TRACING=true slowpoke
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goflash/slowpoke"
	"github.com/goflash/slowpoke/config"
	"github.com/goflash/slowpoke/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "slowpoke:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := server.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	if cfg.Tracing {
		shutdown, err := server.SetupTracing(cfg.ServiceName, os.Stderr)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Error("tracing shutdown", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting slowpoke",
		"addr", cfg.Addr(),
		"long_path", cfg.LongPath,
		"stage_delay", cfg.StageDelay,
		"workers", cfg.Workers,
		"tracing", cfg.Tracing,
	)
	err = slowpoke.New(cfg, logger).Run(ctx)
	var be *server.BindError
	if errors.As(err, &be) {
		logger.Error("address unavailable", "addr", be.Addr, "attempts", be.Attempts)
	}
	return err
}
