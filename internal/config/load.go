package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. LEXI_SERVER_PORT.
const EnvPrefix = "LEXI"

// defaults lists every key so viper can unmarshal values that only exist in
// the environment.
var defaults = map[string]any{
	"server.port":                 8080,
	"server.log_level":            "info",
	"server.timezone":             "UTC",
	"database.driver":             "sqlite",
	"database.url":                "file:lexi.db?_pragma=foreign_keys(1)&_time_format=sqlite",
	"database.max_open_conns":     10,
	"auth.jwt_secret":             "",
	"auth.access_key_hash":        "",
	"auth.token_lifetime_minutes": 1440,
	"llm.provider":                "none",
	"llm.gemini_api_key":          "",
	"llm.openai_api_key":          "",
	"llm.openai_base_url":         "",
	"llm.model_name":              "",
	"llm.max_retries":             3,
	"llm.retry_delay_seconds":     2,
	"llm.requests_per_minute":     30,
	"study.exam_question_count":   10,
	"study.exam_concurrency":      4,
	"reminder.enabled":            true,
	"reminder.start_hour":         8,
	"reminder.end_hour":           22,
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory to search for config.yaml.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the struct validation rules on cfg.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
