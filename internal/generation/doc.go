// Package generation defines the boundary between the vocabulary engine and
// the AI services that write word content, exam questions and CEFR levels.
//
// ContentGenerator, QuestionGenerator and LevelClassifier are implemented by
// the Gemini and OpenAI adapters under internal/platform and by the offline
// LocalGenerator in this package. Resilient wraps any provider with request
// throttling, duplicate-call suppression and a mandatory fallback to the
// local generator, so callers always receive usable content.
//
// Errors from providers are reported with the sentinel taxonomy in errors.go:
// ErrInvalidConfig, ErrAuthRequired, ErrRateLimited, ErrNetwork, ErrDecode and
// ErrServer.
package generation
