// Package mocks holds hand-written test doubles shared across packages.
// Each mock has a function field per method for per-test behaviour and
// falls back to fixed values when the field is nil.
package mocks
