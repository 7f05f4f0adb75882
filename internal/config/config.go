package config

import (
	"errors"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Study    StudyConfig    `mapstructure:"study"    validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	Timezone string `mapstructure:"timezone"  validate:"required,timezone"` // start and end of a study day
}

// Location resolves Timezone, defaulting to UTC.
func (s ServerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"         validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"omitempty,min=32"`
	AccessKeyHash        string `mapstructure:"access_key_hash"` // bcrypt
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=1"`
}

// ErrAuthNotConfigured is returned by RequireServing when the HTTP API
// cannot issue tokens.
var ErrAuthNotConfigured = errors.New("auth.jwt_secret and auth.access_key_hash are required to serve the API")

// RequireServing checks the settings only the HTTP server needs. CLI
// maintenance commands run without them.
func (a AuthConfig) RequireServing() error {
	if a.JWTSecret == "" || a.AccessKeyHash == "" {
		return ErrAuthNotConfigured
	}
	return nil
}

// TokenLifetime converts TokenLifetimeMinutes to a duration.
func (a AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(a.TokenLifetimeMinutes) * time.Minute
}

// LLMConfig contains the content generator settings.
type LLMConfig struct {
	// Provider "none" runs on the local fallback generators only.
	Provider          string `mapstructure:"provider"            validate:"required,oneof=none gemini openai"`
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required_if=Provider gemini"`
	OpenAIAPIKey      string `mapstructure:"openai_api_key"      validate:"required_if=Provider openai"`
	OpenAIBaseURL     string `mapstructure:"openai_base_url"     validate:"omitempty,url"`
	ModelName         string `mapstructure:"model_name"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"gte=1"`
}

// StudyConfig contains session settings.
type StudyConfig struct {
	ExamQuestionCount int `mapstructure:"exam_question_count" validate:"gte=1,lte=50"`
	ExamConcurrency   int `mapstructure:"exam_concurrency"    validate:"gte=1,lte=16"`
}

// ReminderConfig controls the notification scheduler. Reminders are only
// sent between StartHour and EndHour local time.
type ReminderConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	StartHour int  `mapstructure:"start_hour" validate:"gte=0,lte=23"`
	EndHour   int  `mapstructure:"end_hour"   validate:"gte=0,lte=23,gtefield=StartHour"`
}
