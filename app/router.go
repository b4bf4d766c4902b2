package app

import (
	"net/http"

	"github.com/goflash/slowpoke/ctx"
	"github.com/julienschmidt/httprouter"
)

// GET registers a handler for HTTP GET requests on the given path.
//
// Example:
//
//	a.GET("/about", About, NoStore)
func (a *DefaultApp) GET(path string, h Handler, mws ...Middleware) {
	a.handle(http.MethodGet, path, h, mws...)
}

// POST registers a handler for HTTP POST requests on the given path.
func (a *DefaultApp) POST(path string, h Handler, mws ...Middleware) {
	a.handle(http.MethodPost, path, h, mws...)
}

// Handle registers a handler for any HTTP method on the given path.
func (a *DefaultApp) Handle(method, path string, h Handler, mws ...Middleware) {
	a.handle(method, path, h, mws...)
}

// Fallback registers the handler for requests that match no route. Once a
// fallback exists the router stops answering 405 on its own, so a POST to a
// GET-only path reaches the fallback as well; the fallback decides which
// methods it serves. Trailing-slash and case-correcting redirects are also
// disabled: a path that is not an exact route match belongs to the fallback.
//
// Example:
//
//	a.Fallback(func(c app.Ctx) error {
//		switch c.Method() {
//		case http.MethodGet:
//			return Greeting(c)
//		case http.MethodPost:
//			return Echo(c)
//		}
//		return c.MethodNotAllowed()
//	})
func (a *DefaultApp) Fallback(h Handler, mws ...Middleware) {
	serve := a.adapt(a.compose(h, mws), "")
	a.router.HandleMethodNotAllowed = false
	a.router.RedirectTrailingSlash = false
	a.router.RedirectFixedPath = false
	a.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, nil)
	})
}

// handle composes the middleware chain and registers the adapted handler.
//
// Composition order: route-specific middleware wraps the handler
// (right-to-left), then global middleware wraps that. The resulting call
// order at runtime is global (left-to-right) -> route (left-to-right) ->
// handler.
func (a *DefaultApp) handle(method, path string, h Handler, mws ...Middleware) {
	a.router.Handle(method, path, a.adapt(a.compose(h, mws), path))
}

func (a *DefaultApp) compose(h Handler, mws []Middleware) Handler {
	final := h
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}
	for i := len(a.middleware) - 1; i >= 0; i-- {
		final = a.middleware[i](final)
	}
	return final
}

// adapt turns a composed Handler into an httprouter.Handle and manages the
// pooled context lifecycle: acquire, Reset, call, ErrorHandler on error,
// Finish, release.
func (a *DefaultApp) adapt(final Handler, pattern string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r = r.WithContext(ctx.ContextWithLogger(r.Context(), a.Logger()))
		concrete := a.pool.Get().(*ctx.DefaultContext)
		concrete.Reset(w, r, ps, pattern)
		if err := final(concrete); err != nil {
			a.ErrorHandler()(concrete, err)
		}
		concrete.Finish()
		a.pool.Put(concrete)
	}
}
