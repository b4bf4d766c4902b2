package middleware

import (
	"context"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
	"github.com/google/uuid"
)

// RequestIDConfig configures the RequestID middleware.
// Header sets the request/response header name (default: X-Request-ID).
type RequestIDConfig struct {
	Header string
}

type ridKey struct{}

// RequestID returns middleware that tags each request with an ID. An incoming
// header value is reused; otherwise a UUID is generated. The ID is echoed in
// the response header, stored in the request context and added to the
// request-scoped logger.
func RequestID(cfgs ...RequestIDConfig) app.Middleware {
	cfg := RequestIDConfig{Header: "X-Request-ID"}
	if len(cfgs) > 0 && cfgs[0].Header != "" {
		cfg.Header = cfgs[0].Header
	}
	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			id := c.Request().Header.Get(cfg.Header)
			if id == "" {
				id = uuid.NewString()
			}
			c.Header(cfg.Header, id)
			rc := context.WithValue(c.Context(), ridKey{}, id)
			rc = ctx.ContextWithLogger(rc, ctx.LoggerFromContext(rc).With("http_request_id", id))
			c.SetRequest(c.Request().WithContext(rc))
			return next(c)
		}
	}
}

// RequestIDFromContext returns the request ID from the context, if available.
func RequestIDFromContext(c context.Context) (string, bool) {
	s, ok := c.Value(ridKey{}).(string)
	return s, ok
}
