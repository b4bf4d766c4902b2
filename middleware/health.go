package middleware

import (
	"net/http"
	"time"

	"github.com/goflash/slowpoke/app"
	"github.com/goflash/slowpoke/ctx"
)

// HealthCheckFunc reports an error when the service is unhealthy.
type HealthCheckFunc func() error

// HealthCheckConfig configures the health endpoint.
type HealthCheckConfig struct {
	// Path defaults to "/healthz".
	Path string
	// HealthCheckFunc is optional; nil means always healthy.
	HealthCheckFunc HealthCheckFunc
	// Details adds extra fields to the report, e.g. in-flight request counts.
	Details func() map[string]any
	// ServiceName defaults to "slowpoke".
	ServiceName string
}

func (cfg *HealthCheckConfig) defaults() {
	if cfg.Path == "" {
		cfg.Path = "/healthz"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "slowpoke"
	}
}

func healthCheckHandler(cfg HealthCheckConfig) app.Handler {
	return func(c ctx.Ctx) error {
		var err error
		if cfg.HealthCheckFunc != nil {
			err = cfg.HealthCheckFunc()
		}

		report := map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   cfg.ServiceName,
		}
		if cfg.Details != nil {
			for k, v := range cfg.Details() {
				report[k] = v
			}
		}

		code := http.StatusOK
		if err != nil {
			code = http.StatusServiceUnavailable
			report["status"] = "unhealthy"
			report["error"] = err.Error()
			ctx.LoggerFromContext(c.Context()).Error("health check failed", "error", err)
		}
		c.Header("Cache-Control", "no-store")
		return c.Status(code).JSON(report)
	}
}

// RegisterHealthCheck registers a GET health endpoint on a.
func RegisterHealthCheck(a app.App, cfg HealthCheckConfig) {
	cfg.defaults()
	a.GET(cfg.Path, healthCheckHandler(cfg))
}
