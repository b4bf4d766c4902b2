package ctx

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

// ContextWithLogger returns a new context carrying the provided slog.Logger.
//
// The app injects its logger into every request context. Middleware can
// enrich it with request-scoped fields and re-attach it:
//
//	l := ctx.LoggerFromContext(c.Context()).With("request_id", id)
//	c.SetRequest(c.Request().WithContext(ctx.ContextWithLogger(c.Context(), l)))
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// LoggerFromContext returns the slog.Logger stored in ctx, or slog.Default if
// none is found, so callers can always log.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if v := ctx.Value(loggerContextKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
