// Package config loads the service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Environment string `mapstructure:"environment" validate:"required,oneof=dev staging prod"`

	Server struct {
		Addr            string        `mapstructure:"addr" validate:"required"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Auth struct {
		Secret   string        `mapstructure:"secret" validate:"required,min=16"`
		TokenTTL time.Duration `mapstructure:"token_ttl" validate:"required"`
	} `mapstructure:"auth"`

	Telegram struct {
		Token         string        `mapstructure:"token" validate:"required"`
		ChatID        string        `mapstructure:"chat_id" validate:"required"`
		BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
		Timeout       time.Duration `mapstructure:"timeout"`
		RatePerSecond int           `mapstructure:"rate_per_second" validate:"gte=0"`
	} `mapstructure:"telegram"`

	Redis struct {
		Addr     string `mapstructure:"addr" validate:"required"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db" validate:"gte=0"`
	} `mapstructure:"redis"`

	Upload struct {
		Concurrency      int           `mapstructure:"concurrency" validate:"gte=1"`
		Retries          int           `mapstructure:"retries" validate:"gte=1"`
		BaseDelay        time.Duration `mapstructure:"base_delay"`
		ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
		MaxSizeMB        int           `mapstructure:"max_size_mb" validate:"gte=1"`
	} `mapstructure:"upload"`

	Log struct {
		RotateFile string `mapstructure:"rotate_file"`
	} `mapstructure:"log"`
}

// IsProd reports whether the service runs in the prod environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.timeout", 60*time.Second)
	v.SetDefault("telegram.rate_per_second", 25)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("upload.concurrency", 3)
	v.SetDefault("upload.retries", 3)
	v.SetDefault("upload.base_delay", 500*time.Millisecond)
	v.SetDefault("upload.throttle_interval", 100*time.Millisecond)
	v.SetDefault("upload.max_size_mb", 20)
}

// Load reads the named config file from configPath, applies IMGVAULT_*
// environment overrides, and validates the result. A missing file is not an
// error so a pure-env deployment works.
func Load(configName, configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(strings.TrimSuffix(configPath, "/"))

	v.SetEnvPrefix("IMGVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("error reading configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the unmarshalled struct and collects every violation into
// one error so operators see the full list at once.
func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("config validation failed: %w", err)
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}
