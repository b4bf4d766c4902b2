package longrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goflash/slowpoke/rows"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goflash/slowpoke/longrun"

// DefaultStageDelay is the simulated duration of stage 1.
const DefaultStageDelay = 10 * time.Second

// Sink receives the outcome of a request and releases its registration.
// *Registry implements it.
type Sink interface {
	Publish(id RequestID, res Result) bool
	Remove(id RequestID) bool
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// Delay is how long stage 1 takes. Defaults to DefaultStageDelay.
	Delay time.Duration
	// Payload computes the final payload. Defaults to rows.Generate.
	Payload func() ([]byte, error)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Tracer defaults to the global otel tracer for this package.
	Tracer trace.Tracer
}

// Worker runs the staged task for one request at a time; a single Worker is
// shared by all pool slots.
type Worker struct {
	live    Liveness
	sink    Sink
	delay   time.Duration
	payload func() ([]byte, error)
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewWorker returns a Worker checking liveness against live and delivering
// into sink.
func NewWorker(live Liveness, sink Sink, cfg WorkerConfig) *Worker {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultStageDelay
	}
	if cfg.Payload == nil {
		cfg.Payload = func() ([]byte, error) { return rows.Generate(), nil }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return &Worker{
		live:    live,
		sink:    sink,
		delay:   cfg.Delay,
		payload: cfg.Payload,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
	}
}

// Run processes id and delivers its Result while the client is connected.
// The registration is removed exactly once before Run returns, whichever way
// processing ends. ctx bounds the stage delay; it is the pool's lifetime, not
// the client's.
func (w *Worker) Run(ctx context.Context, id RequestID) {
	log := w.logger.With("request_id", id.String())
	ctx, span := w.tracer.Start(ctx, "longrun.process",
		trace.WithAttributes(attribute.String("longrun.request_id", id.String())))
	defer span.End()
	defer func() {
		if w.sink.Remove(id) {
			log.Info("cleaned up resources")
		}
	}()

	switch res := w.process(ctx, log, id).(type) {
	case nil:
		log.Info("client disconnected, stopping processing")
		span.AddEvent("client disconnected")
	case Final:
		if !w.sink.Publish(id, res) {
			log.Info("client disconnected, result dropped")
			span.AddEvent("result dropped")
		}
	case Failure:
		log.Error("error in long request", "err", res.Message)
		span.SetStatus(codes.Error, res.Message)
		if !w.sink.Publish(id, res) {
			log.Info("client disconnected, error dropped")
			span.AddEvent("result dropped")
		}
	}
}

// process runs the stages. It returns nil when a checkpoint finds the client
// gone, Final on success and Failure on error or panic.
func (w *Worker) process(ctx context.Context, log *slog.Logger, id RequestID) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = failure(fmt.Errorf("panic: %v", p))
		}
	}()

	log.Info("processing request")
	if !w.checkpoint(ctx, id) {
		return nil
	}

	if err := w.stage(ctx, 1, w.sleep); err != nil {
		return failure(err)
	}
	log.Info("stage 1 complete")
	if !w.checkpoint(ctx, id) {
		return nil
	}

	for _, n := range []int{2, 3} {
		if err := w.stage(ctx, n, nil); err != nil {
			return failure(err)
		}
		log.Info(fmt.Sprintf("stage %d complete", n))
	}

	payload, err := w.payload()
	if err != nil {
		return failure(err)
	}
	if !w.checkpoint(ctx, id) {
		return nil
	}
	return Final{Payload: payload}
}

func (w *Worker) checkpoint(ctx context.Context, id RequestID) bool {
	ok := w.live.IsConnected(id)
	trace.SpanFromContext(ctx).AddEvent("checkpoint", trace.WithAttributes(attribute.Bool("connected", ok)))
	return ok
}

// stage runs fn inside its own span. A nil fn is a placeholder stage.
func (w *Worker) stage(ctx context.Context, n int, fn func(context.Context) error) error {
	ctx, span := w.tracer.Start(ctx, fmt.Sprintf("longrun.stage%d", n))
	defer span.End()
	if fn == nil {
		return nil
	}
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("stage %d: %w", n, err)
	}
	return nil
}

func (w *Worker) sleep(ctx context.Context) error {
	t := time.NewTimer(w.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func failure(err error) Failure {
	return Failure{Message: "Error: " + err.Error()}
}
