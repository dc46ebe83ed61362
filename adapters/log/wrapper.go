package log

import (
	"time"

	"go.uber.org/zap"
)

// Field aliases zap.Field so callers do not import zap directly.
type Field = zap.Field

// String creates a single Field (string) for a given key-value pair.
func String(key string, value string) Field {
	return zap.String(key, value)
}

// Int creates a single Field (int) for a given key-value pair.
func Int(key string, value int) Field {
	return zap.Int(key, value)
}

// Int64 creates a single Field (int64) for a given key-value pair.
func Int64(key string, value int64) Field {
	return zap.Int64(key, value)
}

// Float64 creates a single Field (float64) for a given key-value pair.
func Float64(key string, value float64) Field {
	return zap.Float64(key, value)
}

// Bool creates a single Field (bool) for a given key-value pair.
func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

// Time creates a single Field (time.Time) for a given key-value pair.
func Time(key string, value time.Time) Field {
	return zap.Time(key, value)
}

// Duration creates a single Field (time.Duration) for a given key-value pair.
func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Any creates a single Field for any value.
func Any(key string, value any) Field {
	return zap.Any(key, value)
}

// Err creates a Field for an error value.
func Err(err error) Field {
	return zap.Error(err)
}

// LoggerConfig holds the logger construction settings.
type LoggerConfig struct {
	IsProd       bool
	ServiceName  string
	Environment  string
	RotationPath string
	ZapOptions   []zap.Option
}

// LoggerOption defines a function that modifies LoggerConfig.
type LoggerOption func(*LoggerConfig)

// NewLoggerConfig creates a new LoggerConfig with default values.
func NewLoggerConfig(isProd bool, opts ...LoggerOption) *LoggerConfig {
	cfg := &LoggerConfig{
		IsProd:      isProd,
		ServiceName: "imgvault",
		Environment: "dev",
	}
	if isProd {
		cfg.Environment = "prod"
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithServiceName sets the service name attached to every entry.
func WithServiceName(name string) LoggerOption {
	return func(c *LoggerConfig) {
		c.ServiceName = name
	}
}

// WithEnvironment sets the environment attached to every entry.
func WithEnvironment(env string) LoggerOption {
	return func(c *LoggerConfig) {
		c.Environment = env
	}
}

// WithRotation enables file logging with rotation at the given path.
func WithRotation(path string) LoggerOption {
	return func(c *LoggerConfig) {
		c.RotationPath = path
	}
}

// WithZapOptions appends raw zap options.
func WithZapOptions(opts ...zap.Option) LoggerOption {
	return func(c *LoggerConfig) {
		c.ZapOptions = append(c.ZapOptions, opts...)
	}
}
