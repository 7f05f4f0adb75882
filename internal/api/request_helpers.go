package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
)

// DefaultExamHistoryLimit caps GET /api/exams when no limit is given.
const DefaultExamHistoryLimit = 50

// getPathUUID parses the chi path parameter name as a UUID.
func getPathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, name)
	}
	return id, nil
}

// queryTags reads ?tags=a,b. Repeated parameters are merged.
func queryTags(r *http.Request) []string {
	var tags []string
	for _, raw := range r.URL.Query()["tags"] {
		tags = append(tags, domain.SplitTags(raw)...)
	}
	return domain.NormalizeTags(tags)
}

// queryDate reads ?date=YYYY-MM-DD as midnight in loc, or returns fallback
// when the parameter is absent.
func queryDate(r *http.Request, loc *time.Location, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return fallback, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	return day, nil
}

// queryLimit reads a positive ?limit, defaulting to def.
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", domain.ErrValidation)
	}
	return n, nil
}
