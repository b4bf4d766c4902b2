package app

import (
	"log/slog"
	"net/http"

	"github.com/goflash/slowpoke/ctx"
)

// Handler is the function signature for route handlers (and the output of
// composed middleware). Returning a non-nil error delegates to the App's
// ErrorHandler.
type Handler func(ctx.Ctx) error

// Middleware transforms a Handler. Global middleware registered via Use runs
// first, in the order added, then route-specific middleware, then the
// handler. A middleware short-circuits by returning without calling next.
type Middleware func(Handler) Handler

// ErrorHandler translates a handler error into a response. It is called only
// when a handler (or middleware) returns a non-nil error.
type ErrorHandler func(ctx.Ctx, error)

// Ctx is re-exported for package-local convenience.
type Ctx = ctx.Ctx

// App defines the public surface of the router, suitable for mocking.
// Implemented by *DefaultApp.
type App interface {
	Use(mw ...Middleware)

	GET(path string, h Handler, mws ...Middleware)
	POST(path string, h Handler, mws ...Middleware)
	Handle(method, path string, h Handler, mws ...Middleware)
	// Fallback handles every request no route matched, whatever its method.
	Fallback(h Handler, mws ...Middleware)

	ServeHTTP(w http.ResponseWriter, r *http.Request)

	SetLogger(l *slog.Logger)
	Logger() *slog.Logger

	SetErrorHandler(h ErrorHandler)
	ErrorHandler() ErrorHandler
}
