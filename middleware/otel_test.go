package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingTracer() (trace.Tracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return tp.Tracer("test"), sr
}

func TestOTelMiddlewareDoesNotBlock(t *testing.T) {
	a := app.New()
	a.Use(OTel("test-svc"))
	a.GET("/", func(c app.Ctx) error { return c.String(http.StatusOK, "ok") })
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOTelRecordsServerSpan(t *testing.T) {
	tracer, sr := recordingTracer()
	a := app.New()
	a.Use(OTelWithConfig(OTelConfig{
		Tracer:          tracer,
		ServiceName:     "svc",
		RecordDuration:  true,
		ExtraAttributes: []attribute.KeyValue{attribute.String("env", "test")},
	}))
	var inner trace.SpanContext
	a.GET("/long", func(c app.Ctx) error {
		inner = trace.SpanContextFromContext(c.Context())
		return c.String(http.StatusOK, "ok")
	})

	a.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/long", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "GET /long", s.Name())
	assert.Equal(t, trace.SpanKindServer, s.SpanKind())
	assert.Equal(t, s.SpanContext().SpanID(), inner.SpanID(), "handler sees the server span")

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(200), got["http.response.status_code"].AsInt64())
	assert.Equal(t, "/long", got["http.route"].AsString())
	assert.Equal(t, "test", got["env"].AsString())
	_, hasDur := got["http.server.duration_ms"]
	assert.True(t, hasDur)
}

func TestOTelErrorBranch(t *testing.T) {
	tracer, sr := recordingTracer()
	a := app.New()
	a.Use(OTelWithConfig(OTelConfig{Tracer: tracer}))
	a.GET("/u/:id", func(c app.Ctx) error { return errors.New("boom") })
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/u/1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)
}

func TestOTelFilterAndSpanNameOverride(t *testing.T) {
	tracer, sr := recordingTracer()
	a := app.New()
	a.Use(OTelWithConfig(OTelConfig{
		Tracer:     tracer,
		Propagator: propagation.TraceContext{},
		Filter:     func(c ctx.Ctx) bool { return c.Path() == "/healthz" },
		SpanName:   func(c ctx.Ctx) string { return "CUSTOM" },
		Attributes: func(c ctx.Ctx) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("custom.attr", "v")}
		},
	}))
	a.GET("/healthz", func(c app.Ctx) error { return c.String(http.StatusOK, "ok") })
	a.Fallback(func(c app.Ctx) error { return nil })

	a.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, sr.Ended(), "filtered request must not be traced")

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	a.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "CUSTOM", spans[0].Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}
