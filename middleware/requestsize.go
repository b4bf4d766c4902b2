package middleware

import (
	"net/http"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
)

// RequestSizeConfig configures the request size limiting middleware.
//
// MaxSize is the maximum allowed request body size in bytes; 0 or negative
// disables the limit. ErrorResponse customizes the 413 response for requests
// whose Content-Length already exceeds the limit.
type RequestSizeConfig struct {
	MaxSize       int64
	ErrorResponse func(c ctx.Ctx, size, limit int64) error
}

// RequestSize returns middleware that limits request bodies.
//
// A declared Content-Length above MaxSize is rejected with 413 before the
// body is touched. Bodies without a length (chunked) are wrapped in
// http.MaxBytesReader, so reading past the limit fails with
// *http.MaxBytesError for the handler to report.
//
//	a.POST("/echo", Echo, middleware.RequestSize(middleware.RequestSizeConfig{MaxSize: 1 << 20}))
func RequestSize(cfg RequestSizeConfig) app.Middleware {
	if cfg.MaxSize <= 0 {
		return func(next app.Handler) app.Handler { return next }
	}

	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			r := c.Request()
			if r.ContentLength > cfg.MaxSize {
				ctx.LoggerFromContext(c.Context()).Warn("request size limit exceeded",
					"size", r.ContentLength,
					"limit", cfg.MaxSize,
					"path", c.Path(),
				)
				if cfg.ErrorResponse != nil {
					return cfg.ErrorResponse(c, r.ContentLength, cfg.MaxSize)
				}
				c.Header("X-Content-Type-Options", "nosniff")
				return c.Status(http.StatusRequestEntityTooLarge).JSON(map[string]any{
					"error": "Request entity too large",
					"code":  "REQUEST_TOO_LARGE",
					"limit": cfg.MaxSize,
				})
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(c.ResponseWriter(), r.Body, cfg.MaxSize)
			}
			return next(c)
		}
	}
}
