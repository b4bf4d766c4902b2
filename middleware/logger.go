package middleware

import (
	"net/http"
	"time"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
)

// Logger returns middleware that writes one access log line per request using
// the request-scoped slog logger: method, path, route, status, duration,
// remote address and user agent, plus request_id when RequestID ran first.
//
// A request whose client went away before anything was written is logged with
// status 0 and aborted=true.
func Logger() app.Middleware {
	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			r := c.Request()
			attrs := []any{
				"method", c.Method(),
				"path", c.Path(),
				"route", c.Route(),
			}

			status := c.StatusCode()
			if status == 0 {
				if r.Context().Err() != nil {
					attrs = append(attrs, "aborted", true)
				} else {
					status = http.StatusOK
				}
			}
			attrs = append(attrs,
				"status", status,
				"bytes", c.BytesWritten(),
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
			if rid, ok := RequestIDFromContext(c.Context()); ok {
				attrs = append(attrs, "request_id", rid)
			}

			ctx.LoggerFromContext(c.Context()).Info("request", attrs...)
			return err
		}
	}
}
