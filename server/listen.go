package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"
)

// DefaultKeepAlive is applied to every accepted connection.
var DefaultKeepAlive = net.KeepAliveConfig{
	Enable:   true,
	Idle:     60 * time.Second,
	Interval: 60 * time.Second,
	Count:    5,
}

// BindError is returned when the address stays in use after every attempt.
type BindError struct {
	Addr     string
	Attempts int
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("could not bind %s after %d attempts: %v", e.Addr, e.Attempts, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ListenConfig controls Listen.
type ListenConfig struct {
	Addr string
	// Attempts is the number of bind attempts on EADDRINUSE (minimum 1).
	Attempts int
	// Backoff is the pause between attempts.
	Backoff   time.Duration
	KeepAlive net.KeepAliveConfig
	Logger    *slog.Logger
	// Sleep waits between attempts; tests replace it. It returns early with
	// ctx.Err() when ctx ends.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Listen binds a TCP listener on cfg.Addr. An address already in use is
// retried up to cfg.Attempts times, cfg.Backoff apart, before giving up with
// *BindError. Any other bind error is returned at once.
func Listen(ctx context.Context, cfg ListenConfig) (net.Listener, error) {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	lc := net.ListenConfig{KeepAliveConfig: cfg.KeepAlive}

	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		var ln net.Listener
		ln, err = lc.Listen(ctx, "tcp", cfg.Addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen %s: %w", cfg.Addr, err)
		}
		if attempt == cfg.Attempts {
			break
		}
		cfg.Logger.Warn("address in use, retrying",
			"addr", cfg.Addr,
			"attempt", attempt,
			"attempts", cfg.Attempts,
			"backoff", cfg.Backoff,
		)
		if serr := cfg.Sleep(ctx, cfg.Backoff); serr != nil {
			return nil, serr
		}
	}
	cfg.Logger.Error("could not bind", "addr", cfg.Addr, "attempts", cfg.Attempts)
	return nil, &BindError{Addr: cfg.Addr, Attempts: cfg.Attempts, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
