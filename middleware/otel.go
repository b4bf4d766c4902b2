package middleware

import (
	"net/http"
	"time"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const otelInstrumentation = "github.com/goflash/slowpoke/middleware"

// OTelConfig configures the tracing middleware. Zero values fall back to the
// global tracer provider and propagator.
type OTelConfig struct {
	Tracer      trace.Tracer
	Propagator  propagation.TextMapPropagator
	ServiceName string
	// Filter skips tracing for requests it returns true for.
	Filter func(ctx.Ctx) bool
	// SpanName overrides the default "METHOD route" name; "" keeps the default.
	SpanName func(ctx.Ctx) string
	// Attributes adds per-request attributes.
	Attributes      func(ctx.Ctx) []attribute.KeyValue
	ExtraAttributes []attribute.KeyValue
	// Status maps the final HTTP status and handler error to a span status.
	Status func(code int, err error) (codes.Code, string)
	// RecordDuration adds http.server.duration_ms to the span.
	RecordDuration bool
}

// OTel returns tracing middleware with default settings.
func OTel(serviceName string) app.Middleware {
	return OTelWithConfig(OTelConfig{ServiceName: serviceName})
}

// OTelWithConfig returns middleware that opens a server span per request,
// extracting any incoming trace context, and stores the span in the request
// context so downstream work (including queued long requests) joins the
// trace.
func OTelWithConfig(cfg OTelConfig) app.Middleware {
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(otelInstrumentation)
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.Status == nil {
		cfg.Status = defaultSpanStatus
	}

	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			if cfg.Filter != nil && cfg.Filter(c) {
				return next(c)
			}

			r := c.Request()
			parent := cfg.Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			name := ""
			if cfg.SpanName != nil {
				name = cfg.SpanName(c)
			}
			if name == "" {
				route := c.Route()
				if route == "" {
					route = c.Path()
				}
				name = c.Method() + " " + route
			}

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
				attribute.String("client.address", r.RemoteAddr),
			}
			if rt := c.Route(); rt != "" {
				attrs = append(attrs, attribute.String("http.route", rt))
			}
			if cfg.ServiceName != "" {
				attrs = append(attrs, attribute.String("service.name", cfg.ServiceName))
			}
			if cfg.Attributes != nil {
				attrs = append(attrs, cfg.Attributes(c)...)
			}
			attrs = append(attrs, cfg.ExtraAttributes...)

			spanCtx, span := cfg.Tracer.Start(parent, name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()
			c.SetRequest(r.WithContext(spanCtx))

			start := time.Now()
			err := next(c)

			code := c.StatusCode()
			if code == 0 {
				code = http.StatusOK
			}
			span.SetAttributes(attribute.Int("http.response.status_code", code))
			if cfg.RecordDuration {
				span.SetAttributes(attribute.Float64("http.server.duration_ms", float64(time.Since(start).Microseconds())/1000.0))
			}
			if err != nil {
				span.RecordError(err)
			}
			if sc, desc := cfg.Status(code, err); sc != codes.Unset {
				span.SetStatus(sc, desc)
			}
			return err
		}
	}
}

func defaultSpanStatus(code int, err error) (codes.Code, string) {
	if err != nil || code >= http.StatusInternalServerError {
		return codes.Error, http.StatusText(code)
	}
	return codes.Unset, ""
}
