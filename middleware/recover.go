package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
)

// RecoverConfig configures the panic recovery middleware.
//
// EnableStack logs the goroutine stack with the panic. OnPanic replaces the
// default log line. ErrorResponse replaces the default 500 response. Panic
// details are never written to the client by default.
type RecoverConfig struct {
	EnableStack   bool
	OnPanic       func(ctx.Ctx, any)
	ErrorResponse func(ctx.Ctx, any) error
}

// Recover returns middleware that turns a handler panic into a 500 response
// so one bad request never takes the server down.
//
//	a.Use(middleware.RequestID(), middleware.Logger(), middleware.Recover())
func Recover(cfgs ...RecoverConfig) app.Middleware {
	var cfg RecoverConfig
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if cfg.OnPanic != nil {
					cfg.OnPanic(c, r)
				} else {
					attrs := []any{"panic", fmt.Sprint(r), "method", c.Method(), "path", c.Path()}
					if cfg.EnableStack {
						attrs = append(attrs, "stack", string(debug.Stack()))
					}
					ctx.LoggerFromContext(c.Context()).Error("panic recovered", attrs...)
				}

				if cfg.ErrorResponse != nil {
					err = cfg.ErrorResponse(c, r)
					return
				}
				if c.WroteHeader() {
					return
				}
				c.Header("X-Content-Type-Options", "nosniff")
				err = c.InternalServerError()
			}()
			return next(c)
		}
	}
}
