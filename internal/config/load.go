package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file; absence is not an error.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables use the VOLTLAB_ prefix with underscores for
	// nesting, e.g. VOLTLAB_AUTH_JWT_SECRET.
	v.SetEnvPrefix("VOLTLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.frontend_base_url", "")

	// Keys without a meaningful default still need registering so that
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("vision.gemini_api_key", "")
	v.SetDefault("vision.preload_url", "")
	v.SetDefault("sms.gateway_url", "")
	v.SetDefault("sms.template_register", "")
	v.SetDefault("sms.template_reset_password", "")

	v.SetDefault("auth.token_lifetime_minutes", 60*24*7)
	v.SetDefault("auth.code_length", 6)
	v.SetDefault("auth.code_expire_minutes", 5)
	v.SetDefault("auth.code_cooldown_seconds", 60)

	v.SetDefault("admission.max_sessions", 5)
	v.SetDefault("admission.max_waiters", 32)
	v.SetDefault("admission.worker_count", 10)
	v.SetDefault("admission.unit_timeout_seconds", 0)

	v.SetDefault("vision.model_name", "gemini-2.0-flash")

	v.SetDefault("sms.sign_name", "VoltLab")

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_bytes", 10<<20)
}
