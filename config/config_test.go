package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Addr())
	assert.Equal(t, "/long", cfg.LongPath)
	assert.Equal(t, "/about", cfg.AboutPath)
	assert.Equal(t, 10*time.Second, cfg.StageDelay)
	assert.Equal(t, 60*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 10, cfg.Workers)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 3, cfg.BindAttempts)
	assert.Equal(t, 5*time.Second, cfg.BindBackoff)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.Tracing)
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := LoadFrom([]string{
		"PATH=/usr/bin",
		"SLOWPOKE_PORT=9090",
		"SLOWPOKE_HOST=0.0.0.0",
		"SLOWPOKE_STAGE_DELAY=250ms",
		"SLOWPOKE_WORKERS=4",
		"SLOWPOKE_TRACING=true",
		"SLOWPOKE_LOG_FORMAT=text",
		"SLOWPOKE_LONG_PATH=/slow",
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, 250*time.Millisecond, cfg.StageDelay)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Tracing)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/slow", cfg.LongPath)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := LoadFrom([]string{"SLOWPOKE_WORKRES=4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workres")
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	_, err := LoadFrom([]string{"SLOWPOKE_STAGE_DELAY=soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage_delay")
}

func TestValidateReportsEveryField(t *testing.T) {
	_, err := LoadFrom([]string{
		"SLOWPOKE_WORKERS=0",
		"SLOWPOKE_LOG_LEVEL=loud",
		"SLOWPOKE_ABOUT_PATH=/long",
	})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)

	got := map[string]string{}
	for _, f := range ve.Fields {
		got[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{
		"SLOWPOKE_WORKERS":    "gte",
		"SLOWPOKE_LOG_LEVEL":  "oneof",
		"SLOWPOKE_ABOUT_PATH": "nefield",
	}, got)
	assert.Contains(t, err.Error(), "SLOWPOKE_WORKERS")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "SLOWPOKE_MAX_BODY_BYTES", envName("MaxBodyBytes"))
	assert.Equal(t, "SLOWPOKE_HOST", envName("Host"))
}
