// Package store defines the persistence contracts for flashcards, the
// installation user and the exam history, plus the transaction helper
// that keeps each card mutation atomic. Implementations live under
// internal/platform/sqlstore.
package store
