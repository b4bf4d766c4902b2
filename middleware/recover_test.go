package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
	"github.com/stretchr/testify/assert"
)

func TestRecoverMiddleware(t *testing.T) {
	a := app.New()
	a.Use(Recover(RecoverConfig{EnableStack: true}))
	a.GET("/panic", func(c app.Ctx) error { panic("boom") })
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRecoverCustomHooks(t *testing.T) {
	var got any
	a := app.New()
	a.Use(Recover(RecoverConfig{
		OnPanic:       func(c ctx.Ctx, r any) { got = r },
		ErrorResponse: func(c ctx.Ctx, r any) error { return c.String(599, "custom") },
	}))
	a.GET("/panic", func(c app.Ctx) error { panic("boom") })
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, 599, rec.Code)
	assert.Equal(t, "custom", rec.Body.String())
	assert.Equal(t, "boom", got)
}

func TestRecoverAfterPartialWriteKeepsResponse(t *testing.T) {
	a := app.New()
	a.Use(Recover())
	a.GET("/half", func(c app.Ctx) error {
		_ = c.String(http.StatusOK, "partial")
		panic("late")
	})
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/half", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}
