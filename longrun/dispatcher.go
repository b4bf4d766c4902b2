package longrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultWaitTimeout bounds how long Dispatch waits for a result.
const DefaultWaitTimeout = 60 * time.Second

// Config configures a Dispatcher and the registry, pool and worker it owns.
type Config struct {
	Workers     int
	QueueSize   int
	StageDelay  time.Duration
	WaitTimeout time.Duration
	// Payload overrides the final payload generator.
	Payload func() ([]byte, error)
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// Dispatcher is the process-wide entry point for long requests. It owns the
// Registry, the Pool and the Worker; construct one at startup and hand it to
// the handlers that need it.
type Dispatcher struct {
	reg    *Registry
	pool   *Pool
	worker *Worker
	wait   time.Duration
	logger *slog.Logger
}

// New builds a Dispatcher from cfg. Call Start before dispatching.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	reg := NewRegistry()
	return &Dispatcher{
		reg: reg,
		pool: NewPool(PoolConfig{
			Workers:   cfg.Workers,
			QueueSize: cfg.QueueSize,
			Logger:    cfg.Logger,
		}),
		worker: NewWorker(reg, reg, WorkerConfig{
			Delay:   cfg.StageDelay,
			Payload: cfg.Payload,
			Logger:  cfg.Logger,
			Tracer:  cfg.Tracer,
		}),
		wait:   cfg.WaitTimeout,
		logger: cfg.Logger,
	}
}

// Start starts the worker pool.
func (d *Dispatcher) Start(ctx context.Context) { d.pool.Start(ctx) }

// Stop stops the worker pool; see Pool.Stop.
func (d *Dispatcher) Stop(ctx context.Context) error { return d.pool.Stop(ctx) }

// Registry exposes the request registry, mostly for health reporting.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Pool exposes the worker pool, mostly for health reporting.
func (d *Dispatcher) Pool() *Pool { return d.pool }

// Dispatch registers a new request, queues its processing and waits for the
// result. ctx is the client's request context: when it ends the registration
// is withdrawn, which the worker observes at its next checkpoint.
//
// Errors: ErrClientGone, ErrWaitTimeout, ErrPoolFull, ErrPoolClosed,
// ErrPoolNotStarted (wrapped).
func (d *Dispatcher) Dispatch(ctx context.Context) (RequestID, Result, error) {
	id := NewRequestID()
	ch, err := d.reg.Create(id)
	if err != nil {
		return id, nil, err
	}

	sc := trace.SpanContextFromContext(ctx)
	task := func(poolCtx context.Context) {
		d.worker.Run(trace.ContextWithSpanContext(poolCtx, sc), id)
	}
	if err := d.pool.Submit(task); err != nil {
		d.reg.Remove(id)
		return id, nil, fmt.Errorf("submit %s: %w", id, err)
	}
	d.logger.Debug("long request queued", "request_id", id.String())

	res, err := d.await(ctx, id, ch)
	return id, res, err
}

func (d *Dispatcher) await(ctx context.Context, id RequestID, ch <-chan Result) (Result, error) {
	timer := time.NewTimer(d.wait)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		if d.reg.Remove(id) {
			d.logger.Info("client disconnected, request withdrawn", "request_id", id.String())
		}
		return nil, fmt.Errorf("%w: %w", ErrClientGone, context.Cause(ctx))
	case <-timer.C:
		d.reg.Remove(id)
		d.logger.Warn("timed out waiting for result", "request_id", id.String(), "wait", d.wait)
		return nil, fmt.Errorf("%w after %s", ErrWaitTimeout, d.wait)
	}
}
