// Package logger provides structured logging functionality for the application.
//
// It builds on the standard library log/slog package: JSON output with a
// configurable level, and helpers that carry a request-scoped logger through
// context.Context so stores and services log with the caller's trace id.
package logger
