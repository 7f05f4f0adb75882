// Package config handles configuration loading, parsing, and validation
// from environment variables (LEXI_ prefix) and an optional config.yaml.
// It provides type-safe access to the settings needed by the store, the
// content generators, study sessions and the reminder scheduler.
package config
