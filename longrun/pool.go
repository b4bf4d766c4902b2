package longrun

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	DefaultWorkers   = 10
	DefaultQueueSize = 100
)

// Task is a unit of work run by the Pool. ctx is the pool's lifetime context.
type Task func(ctx context.Context)

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Workers is the number of execution slots. Defaults to DefaultWorkers.
	Workers int
	// QueueSize bounds the tasks waiting for a free slot. Defaults to
	// DefaultQueueSize.
	QueueSize int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// PoolStats is a snapshot of pool occupancy.
type PoolStats struct {
	Workers  int `json:"workers"`
	Busy     int `json:"busy"`
	Queued   int `json:"queued"`
	Capacity int `json:"queue_capacity"`
}

// Pool runs Tasks on a fixed set of workers fed from a bounded queue.
// Submit never blocks; it fails fast when the queue is full.
type Pool struct {
	workers int
	tasks   chan Task
	logger  *slog.Logger

	mu      sync.RWMutex // guards closed and started against Submit
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	busy    atomic.Int64
}

// NewPool returns a Pool that accepts tasks once started.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pool{
		workers: cfg.Workers,
		tasks:   make(chan Task, cfg.QueueSize),
		logger:  cfg.Logger,
	}
}

// Start launches the workers. Tasks receive a context derived from ctx that is
// cancelled when ctx is, or when Stop gives up waiting. Calling Start twice is
// a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}
	p.logger.Info("worker pool started", "workers", p.workers, "queue_capacity", cap(p.tasks))
}

// Submit queues t without blocking. Tasks are only accepted between Start
// and Stop.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	if !p.started {
		return ErrPoolNotStarted
	}
	select {
	case p.tasks <- t:
		return nil
	default:
		return ErrPoolFull
	}
}

// Stop stops accepting tasks and waits for queued and running tasks to finish.
// If ctx ends first, the task context is cancelled and ctx's error returned.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	cancel := p.cancel
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		cancel()
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Closed reports whether Stop has been called.
func (p *Pool) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:  p.workers,
		Busy:     int(p.busy.Load()),
		Queued:   len(p.tasks),
		Capacity: cap(p.tasks),
	}
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(ctx, t)
	}
}

func (p *Pool) run(ctx context.Context, t Task) {
	p.busy.Add(1)
	defer p.busy.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "panic", r)
		}
	}()
	t(ctx)
}
