// Package domain contains the core vocabulary entities of the application:
// flashcards with their Leitner scheduling state, the single installation
// user and the exam history. It is independent of storage and delivery.
package domain
