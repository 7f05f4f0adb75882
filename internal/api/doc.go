// Package api exposes the deck, study session, progress and transfer
// services over HTTP. Handlers decode and validate requests, call the
// services and map their errors to status codes and safe messages.
package api
