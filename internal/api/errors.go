package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/lexi-api/internal/api/shared"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/service/auth"
	"github.com/phrazzld/lexi-api/internal/service/deck"
	"github.com/phrazzld/lexi-api/internal/service/progress"
	"github.com/phrazzld/lexi-api/internal/service/session"
	"github.com/phrazzld/lexi-api/internal/store"
	"github.com/phrazzld/lexi-api/internal/transfer"
)

// ErrUnauthorized is reported when a protected handler runs without an
// authenticated user in the request context.
var ErrUnauthorized = errors.New("unauthorized")

// badRequest lists errors caused by the request itself.
var badRequest = []error{
	domain.ErrValidation,
	domain.ErrInvalidID,
	domain.ErrInvalidOutcome,
	domain.ErrInvalidSessionMode,
	domain.ErrInvalidLanguage,
	domain.ErrEmptyWord,
	domain.ErrEmptySourceLanguage,
	domain.ErrEmptyTargetLanguage,
	domain.ErrInvalidCEFRLevel,
	domain.ErrInvalidTag,
	domain.ErrInvalidDailyGoal,
	domain.ErrInvalidReminderTime,
	domain.ErrEmptyUserName,
	session.ErrInvalidChoice,
	progress.ErrInvalidOutcome,
	transfer.ErrUnsupportedFormat,
	store.ErrInvalidEntity,
	shared.ErrEmptyBody,
}

func isBadRequest(err error) bool {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// MapErrorToStatusCode picks the HTTP status for err without exposing it.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidAccessKey):
		return http.StatusUnauthorized

	case errors.Is(err, deck.ErrCardNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, deck.ErrDuplicateWord),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, session.ErrNotInProgress),
		errors.Is(err, session.ErrWrongMode):
		return http.StatusConflict

	case isBadRequest(err):
		return http.StatusBadRequest

	case errors.Is(err, generation.ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, generation.ErrAuthRequired),
		errors.Is(err, generation.ErrNetwork),
		errors.Is(err, generation.ErrServer),
		errors.Is(err, generation.ErrDecode):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"
	case errors.Is(err, auth.ErrInvalidAccessKey):
		return "Invalid access key"
	case errors.Is(err, ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, deck.ErrCardNotFound), errors.Is(err, store.ErrFlashcardNotFound):
		return "Card not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, deck.ErrDuplicateWord), errors.Is(err, store.ErrWordExists):
		return "Word already exists in this language"

	case errors.Is(err, session.ErrNotInProgress):
		return "No session in progress"
	case errors.Is(err, session.ErrWrongMode):
		return "Not supported in this session mode"
	case errors.Is(err, session.ErrInvalidChoice):
		return "Selected option must be between 0 and 3"
	case errors.Is(err, session.ErrPersistence):
		return "Answer recorded but could not be saved"

	case errors.Is(err, transfer.ErrUnsupportedFormat):
		return "Format must be json, csv or xlsx"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.As(err, &verrs):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case isBadRequest(err):
		return sentenceCase(domainCause(err))

	case errors.Is(err, generation.ErrRateLimited):
		return "Content generator is busy, try again later"
	case MapErrorToStatusCode(err) == http.StatusBadGateway:
		return "Content generator unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// domainCause returns the message of the first known validation sentinel
// that err wraps. Sentinel messages carry no request data.
func domainCause(err error) string {
	for _, target := range badRequest {
		if target == domain.ErrValidation {
			continue
		}
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid request"
}

func sentenceCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SanitizeValidationError turns validator output into "Invalid <field>: <reason>".
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	first := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", first.Field(), validationTagMessage(first.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "datetime":
		return "invalid date"
	case "excludesall":
		return "invalid character"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted cause. defaultMsg replaces the generic 500 message when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}
