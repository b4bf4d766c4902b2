package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

type stopFunc func(ctx context.Context) error

func (f stopFunc) Stop(ctx context.Context) error { return f(ctx) }

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	stopped := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "ok") })
	s := New(h, Config{Logger: quietLogger(), ShutdownTimeout: time.Second},
		stopFunc(func(context.Context) error { close(stopped); return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(b))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	select {
	case <-stopped:
	default:
		t.Fatal("stopper was not called")
	}
}

func TestServeReportsStopperErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	boom := errors.New("boom")
	s := New(http.NotFoundHandler(), Config{Logger: quietLogger()},
		stopFunc(func(context.Context) error { return boom }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Serve(ctx, ln), boom)
}

func TestRunReturnsBindError(t *testing.T) {
	busy := occupy(t)
	s := New(http.NotFoundHandler(), Config{
		Logger: quietLogger(),
		Listen: ListenConfig{
			Addr:     busy.Addr().String(),
			Attempts: 2,
			Sleep:    func(context.Context, time.Duration) error { return nil },
		},
	})
	var be *BindError
	assert.True(t, errors.As(s.Run(context.Background()), &be))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "text", "debug")
	l.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	l = NewLogger(&buf, "json", "warn")
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	NewLogger(&buf, "json", "nonsense").Info("defaults to info")
	assert.Contains(t, buf.String(), "defaults to info")
}

func TestSetupTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing("slowpoke-test", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	_, span := otel.Tracer("test").Start(context.Background(), "stage 1")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.True(t, strings.Contains(out, `"Name":"stage 1"`), out)
	assert.Contains(t, out, "slowpoke-test")
}
