// Package handlers implements the slowpoke HTTP endpoints.
package handlers

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
	"github.com/goflash/slowpoke/longrun"
	"github.com/goflash/slowpoke/middleware"
	"github.com/goflash/slowpoke/rows"
)

const (
	textPlain = "text/plain; charset=utf-8"
	textHTML  = "text/html; charset=utf-8"

	// Greeting prefixes the rows returned for any unrouted GET.
	Greeting = "Hello from test server!\n"
	// EchoPrefix prefixes the body echoed back for any POST.
	EchoPrefix = "Received POST data: "
)

//go:embed about.html
var aboutPage []byte

// Dispatcher runs one long request to completion. *longrun.Dispatcher
// implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context) (longrun.RequestID, longrun.Result, error)
}

// Options configures Register.
type Options struct {
	LongPath  string
	AboutPath string
	// MaxBodyBytes caps POST bodies; 0 disables the limit.
	MaxBodyBytes int64
}

// Register wires every endpoint onto a. Unrouted GETs get the greeting and
// POSTs on any path are echoed.
func Register(a app.App, d Dispatcher, o Options) {
	if o.LongPath == "" {
		o.LongPath = "/long"
	}
	if o.AboutPath == "" {
		o.AboutPath = "/about"
	}
	a.GET(o.LongPath, Long(d))
	a.GET(o.AboutPath, About)
	a.Fallback(Fallback, middleware.RequestSize(middleware.RequestSizeConfig{MaxSize: o.MaxBodyBytes}))
}

// Long returns the handler for the long-running endpoint.
//
// A delivered Final is written as 200 text/plain and a Failure as 500 with its
// message. When the client has gone away nothing is written.
func Long(d Dispatcher) app.Handler {
	return func(c ctx.Ctx) error {
		log := ctx.LoggerFromContext(c.Context())
		id, res, err := d.Dispatch(c.Context())
		if err != nil {
			switch {
			case errors.Is(err, longrun.ErrClientGone):
				log.Info("long request abandoned by client", "request_id", id.String())
				return nil
			case errors.Is(err, longrun.ErrWaitTimeout):
				return c.GatewayTimeout()
			case errors.Is(err, longrun.ErrPoolFull),
				errors.Is(err, longrun.ErrPoolClosed),
				errors.Is(err, longrun.ErrPoolNotStarted):
				log.Warn("long request rejected", "request_id", id.String(), "err", err)
				return c.ServiceUnavailable()
			}
			return err
		}

		switch r := res.(type) {
		case longrun.Final:
			if _, err := c.Send(http.StatusOK, textPlain, r.Payload); err != nil {
				log.Error("write long response", "request_id", id.String(), "err", err)
			}
			return nil
		case longrun.Failure:
			return c.String(http.StatusInternalServerError, r.Message)
		default:
			return fmt.Errorf("long request %s: unexpected result %T", id, res)
		}
	}
}

// About serves the static about page and closes the connection afterwards.
func About(c ctx.Ctx) error {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "close")
	_, err := c.Send(http.StatusOK, textHTML, aboutPage)
	return err
}

// Hello writes the greeting followed by a fresh set of rows.
func Hello(c ctx.Ctx) error {
	return c.String(http.StatusOK, Greeting+string(rows.Generate()))
}

// Echo writes back the request body. Bodies over the configured limit are
// answered with 413; unreadable or non-UTF-8 bodies with 500.
func Echo(c ctx.Ctx) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return c.String(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", tooBig.Limit))
		}
		return internalError(c, err)
	}
	if !utf8.Valid(body) {
		return internalError(c, errors.New("request body is not valid UTF-8"))
	}
	ctx.LoggerFromContext(c.Context()).Debug("post received", "bytes", len(body))
	c.Header("Connection", "close")
	return c.String(http.StatusOK, EchoPrefix+string(body))
}

// Fallback serves every request that matches no route.
func Fallback(c ctx.Ctx) error {
	switch c.Method() {
	case http.MethodGet:
		return Hello(c)
	case http.MethodPost:
		return Echo(c)
	}
	c.Header("Allow", "GET, POST")
	return c.MethodNotAllowed()
}

func internalError(c ctx.Ctx, err error) error {
	ctx.LoggerFromContext(c.Context()).Error("post failed", "err", err)
	return c.String(http.StatusInternalServerError, "Internal error: "+err.Error())
}
