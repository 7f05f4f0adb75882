// Package gemini provides an implementation of the generation.Provider
// interface that uses Google's Gemini API to write word content, exam
// questions and CEFR levels.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to Google's external Gemini AI
// service without exposing the details of the service to the core.
//
// Key components:
//
// 1. Generator:
//   - Implements generation.Provider on the google.golang.org/genai client
//   - Requests JSON responses and decodes them with generation.DecodeJSON
//
// 2. Error Handling:
//   - Retries rate limits, network and server failures with exponential
//     backoff and jitter (generation.Retry)
//   - Translates genai.APIError status codes into the generation error taxonomy
//   - Reports safety blocks as generation.ErrDecode, which is not retried
package gemini
