package app

import (
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/goflash/slowpoke/ctx"
	"github.com/julienschmidt/httprouter"
)

// DefaultApp is the router used by the server. It implements http.Handler and
// manages routing, middleware, error handling and the application logger.
//
// A sync.Pool is used for context reuse: each request acquires a
// ctx.DefaultContext from the pool and returns it after completion.
type DefaultApp struct {
	router     *httprouter.Router // underlying router
	middleware []Middleware       // global middleware
	pool       sync.Pool          // context pooling
	onError    ErrorHandler       // error handler
	logger     *slog.Logger       // application logger
}

// New creates a DefaultApp with sensible defaults:
//   - JSON slog logger at info level to stdout
//   - plain 404 and 405 responses until a Fallback is registered
//   - a default ErrorHandler writing 500
//
// Example:
//
//	a := app.New()
//	a.GET("/about", About)
//	_ = http.ListenAndServe(":8000", a)
func New() App {
	a := &DefaultApp{router: httprouter.New()}
	a.pool.New = func() any { return &ctx.DefaultContext{} }

	a.router.HandleMethodNotAllowed = true
	a.router.MethodNotAllowed = methodNotAllowedHandler()
	a.SetErrorHandler(defaultErrorHandler)
	a.SetLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	return a
}

// SetLogger sets the application logger injected into every request context.
func (a *DefaultApp) SetLogger(l *slog.Logger) { a.logger = l }

// Logger returns the configured application logger, or slog.Default if none is set.
func (a *DefaultApp) Logger() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

// Use registers global middleware. Middleware is composed at registration
// time, so Use must be called before the routes it should wrap.
func (a *DefaultApp) Use(mw ...Middleware) {
	if len(mw) == 0 {
		return
	}
	a.middleware = append(a.middleware, mw...)
}

// ServeHTTP implements http.Handler by delegating to the internal router.
func (a *DefaultApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *DefaultApp) SetErrorHandler(h ErrorHandler) { a.onError = h }
func (a *DefaultApp) ErrorHandler() ErrorHandler     { return a.onError }
