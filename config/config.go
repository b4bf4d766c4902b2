// Package config loads slowpoke settings from SLOWPOKE_* environment
// variables on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	ms "github.com/mitchellh/mapstructure"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SLOWPOKE_"

// Config is the full server configuration. Field tags name the environment
// key (upper-cased, prefixed with EnvPrefix) and its validation rules.
type Config struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"gte=0,lte=65535"`

	LongPath  string `mapstructure:"long_path" validate:"required,startswith=/"`
	AboutPath string `mapstructure:"about_path" validate:"required,startswith=/,nefield=LongPath"`

	StageDelay  time.Duration `mapstructure:"stage_delay" validate:"gt=0"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout" validate:"gt=0"`
	Workers     int           `mapstructure:"workers" validate:"gte=1,lte=1024"`
	QueueSize   int           `mapstructure:"queue_size" validate:"gte=1"`

	BindAttempts int           `mapstructure:"bind_attempts" validate:"gte=1"`
	BindBackoff  time.Duration `mapstructure:"bind_backoff" validate:"gte=0"`

	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format" validate:"oneof=json text"`
	ServiceName string `mapstructure:"service_name" validate:"required"`
	Tracing     bool   `mapstructure:"tracing"`
}

// Addr returns host:port.
func (c Config) Addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

// Defaults returns the settings used when no environment overrides exist.
func Defaults() map[string]any {
	return map[string]any{
		"host":             "127.0.0.1",
		"port":             8000,
		"long_path":        "/long",
		"about_path":       "/about",
		"stage_delay":      "10s",
		"wait_timeout":     "60s",
		"workers":          10,
		"queue_size":       100,
		"bind_attempts":    3,
		"bind_backoff":     "5s",
		"max_body_bytes":   1 << 20,
		"shutdown_timeout": "15s",
		"log_level":        "info",
		"log_format":       "json",
		"service_name":     "slowpoke",
		"tracing":          false,
	}
}

// Load reads the process environment. See LoadFrom.
func Load() (Config, error) { return LoadFrom(os.Environ()) }

// LoadFrom builds a Config from Defaults overlaid with SLOWPOKE_* entries of
// environ (KEY=value form), then validates it. Unknown SLOWPOKE_* keys are
// rejected so typos do not pass silently.
func LoadFrom(environ []string) (Config, error) {
	m := Defaults()
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		m[strings.ToLower(strings.TrimPrefix(k, EnvPrefix))] = v
	}

	var cfg Config
	if err := Decode(m, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode converts a loosely typed map into cfg. Strings are accepted for
// numbers, booleans and durations.
func Decode(m map[string]any, cfg *Config) error {
	dec, err := ms.NewDecoder(&ms.DecoderConfig{
		TagName:          "mapstructure",
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       ms.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes one invalid setting.
type FieldError struct {
	Field string
	Rule  string
	Value any
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: failed %q (value %v)", e.Field, e.Rule, e.Value)
}

// ValidationError collects every invalid setting found by Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "config: invalid " + strings.Join(parts, "; ")
}

// Validate checks cfg against its struct tags. It returns *ValidationError
// when one or more fields are invalid.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("config: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		out.Fields = append(out.Fields, FieldError{
			Field: envName(fe.StructField()),
			Rule:  fe.Tag(),
			Value: fe.Value(),
		})
	}
	return out
}

// envName maps a Config field name to its environment variable.
func envName(field string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
