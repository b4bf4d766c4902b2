package ctx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"

	router "github.com/julienschmidt/httprouter"
)

// Ctx is the request/response context exposed to handlers and middleware.
// It is implemented by *DefaultContext.
//
// Typical usage inside a handler:
//
//	a.GET("/about", func(c ctx.Ctx) error {
//	    c.Header("Cache-Control", "no-store")
//	    _, err := c.Send(http.StatusOK, "text/html; charset=utf-8", page)
//	    return err
//	})
//
// Concurrency: Ctx is not safe for concurrent writes to the underlying
// http.ResponseWriter. Only the goroutine running the handler may respond.
type Ctx interface {
	// Request returns the underlying *http.Request.
	Request() *http.Request
	// SetRequest replaces the underlying *http.Request, typically to attach
	// a derived context.
	SetRequest(*http.Request)
	// ResponseWriter returns the underlying http.ResponseWriter.
	ResponseWriter() http.ResponseWriter
	// SetResponseWriter replaces the underlying http.ResponseWriter.
	SetResponseWriter(http.ResponseWriter)

	// Context returns the request-scoped context.Context. It is cancelled
	// when the client connection goes away.
	Context() context.Context
	Method() string
	Path() string
	// Route returns the registered route pattern, or "" for fallback routes.
	Route() string
	Param(name string) string
	Query(key string) string

	// Header sets a response header key/value.
	Header(key, value string)
	// Status stages the HTTP status code to be written.
	Status(code int) Ctx
	// StatusCode returns the status that will be written (or 200 after header
	// write, or 0 if unset).
	StatusCode() int
	// JSON serializes v and writes it with an application/json Content-Type.
	JSON(v any) error
	// String writes a text/plain body with the provided status code.
	String(status int, body string) error
	// Send writes raw bytes with a specific status and content type.
	Send(status int, contentType string, b []byte) (int, error)
	// WroteHeader reports whether the header has already been written.
	WroteHeader() bool
	// BytesWritten reports how many body bytes were written.
	BytesWritten() int

	InternalServerError(message ...string) error
	ServiceUnavailable(message ...string) error
	GatewayTimeout(message ...string) error
	MethodNotAllowed() error

	// Get retrieves a value from the request context by key, with optional default.
	Get(key any, def ...any) any
	// Set stores a value into a derived request context.
	Set(key, value any) Ctx
}

// DefaultContext is the concrete implementation of Ctx. It wraps the
// http.ResponseWriter and *http.Request and tracks route, status and
// response state for one request. Instances are pooled by the app.
type DefaultContext struct {
	w           http.ResponseWriter // underlying response writer
	r           *http.Request       // underlying request
	params      router.Params       // route parameters
	status      int                 // status code to write
	wroteHeader bool                // whether header was written
	wroteBytes  int                 // number of bytes written
	route       string              // route pattern (e.g., /long)
}

// Reset prepares the context for a new request. Used internally by the app.
func (c *DefaultContext) Reset(w http.ResponseWriter, r *http.Request, ps router.Params, route string) {
	c.w = w
	c.r = r
	c.params = ps
	c.status = 0
	c.wroteHeader = false
	c.wroteBytes = 0
	c.route = route
}

// Finish drops references to the request and writer so a pooled context does
// not pin them between requests.
func (c *DefaultContext) Finish() {
	c.w = nil
	c.r = nil
	c.params = nil
}

func (c *DefaultContext) Request() *http.Request                  { return c.r }
func (c *DefaultContext) SetRequest(r *http.Request)              { c.r = r }
func (c *DefaultContext) ResponseWriter() http.ResponseWriter     { return c.w }
func (c *DefaultContext) SetResponseWriter(w http.ResponseWriter) { c.w = w }
func (c *DefaultContext) WroteHeader() bool                       { return c.wroteHeader }
func (c *DefaultContext) BytesWritten() int                       { return c.wroteBytes }
func (c *DefaultContext) Context() context.Context                { return c.r.Context() }
func (c *DefaultContext) Method() string                          { return c.r.Method }
func (c *DefaultContext) Path() string                            { return c.r.URL.Path }
func (c *DefaultContext) Route() string                           { return c.route }

// Param returns a path parameter by name. Returns "" if not found.
func (c *DefaultContext) Param(name string) string { return c.params.ByName(name) }

// Query returns a query string parameter by key. Returns "" if not found.
func (c *DefaultContext) Query(key string) string { return c.r.URL.Query().Get(key) }

// Set stores a value in the request context and replaces the request with a
// clone carrying the new context. Prefer an unexported key type.
func (c *DefaultContext) Set(key, value any) Ctx {
	ctx := context.WithValue(c.Context(), key, value)
	c.SetRequest(c.Request().WithContext(ctx))
	return c
}

// Get returns a value from the request context by key, or the provided
// default when the key is absent.
func (c *DefaultContext) Get(key any, def ...any) any {
	if v := c.Context().Value(key); v != nil {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return nil
}

// Status stages the response status code without writing the header.
//
// Example:
//
//	return c.Status(http.StatusServiceUnavailable).JSON(report)
func (c *DefaultContext) Status(code int) Ctx {
	c.status = code
	return c
}

// StatusCode returns the status code that will be written.
// If not set yet and header hasn't been written, returns 0. If the header has
// already been written without an explicit status, returns 200.
func (c *DefaultContext) StatusCode() int {
	if c.status != 0 {
		return c.status
	}
	if c.wroteHeader {
		return http.StatusOK
	}
	return 0
}

// Header sets a header on the response.
// Has no effect after the header is written.
func (c *DefaultContext) Header(key, value string) { c.w.Header().Set(key, value) }

var jsonBufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// JSON serializes the provided value as JSON and writes the response.
// If Status() has not been called yet, it defaults to 200 OK.
func (c *DefaultContext) JSON(v any) error {
	buf := jsonBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		if !c.wroteHeader {
			c.writeHeader(http.StatusInternalServerError)
		}
		return err
	}
	b := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	_, err := c.Send(status, "application/json; charset=utf-8", b)
	return err
}

// String writes a plain text response with the given status and body.
//
// Example:
//
//	return c.String(http.StatusOK, "pong")
func (c *DefaultContext) String(status int, body string) error {
	if !c.wroteHeader {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Content-Length", strconv.Itoa(len(body)))
		c.writeHeader(status)
	}
	n, err := io.WriteString(c.w, body)
	c.wroteBytes += n
	return err
}

// Send writes raw bytes with the given status and content type.
// If contentType is empty, no Content-Type header is set.
func (c *DefaultContext) Send(status int, contentType string, b []byte) (int, error) {
	if !c.wroteHeader {
		if contentType != "" {
			c.Header("Content-Type", contentType)
		}
		c.Header("Content-Length", strconv.Itoa(len(b)))
		c.writeHeader(status)
	}
	n, err := c.w.Write(b)
	c.wroteBytes += n
	return n, err
}

// InternalServerError sends a 500 response with an optional message.
func (c *DefaultContext) InternalServerError(message ...string) error {
	return c.String(http.StatusInternalServerError, pick(message, http.StatusInternalServerError))
}

// ServiceUnavailable sends a 503 response with an optional message.
func (c *DefaultContext) ServiceUnavailable(message ...string) error {
	return c.String(http.StatusServiceUnavailable, pick(message, http.StatusServiceUnavailable))
}

// GatewayTimeout sends a 504 response with an optional message.
func (c *DefaultContext) GatewayTimeout(message ...string) error {
	return c.String(http.StatusGatewayTimeout, pick(message, http.StatusGatewayTimeout))
}

// MethodNotAllowed sends a bare 405 response.
func (c *DefaultContext) MethodNotAllowed() error {
	return c.String(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

func (c *DefaultContext) writeHeader(status int) {
	c.status = status
	c.w.WriteHeader(status)
	c.wroteHeader = true
}

func pick(message []string, status int) string {
	if len(message) > 0 {
		return message[0]
	}
	return http.StatusText(status)
}
