package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/lexi-api/internal/api/shared"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/service/progress"
)

// ProgressService is implemented by progress.Service.
type ProgressService interface {
	Snapshot(ctx context.Context) (*progress.Snapshot, error)
	UpdateProfile(ctx context.Context, update progress.ProfileUpdate) (*domain.User, error)
	ExamHistory(ctx context.Context, limit int) ([]*domain.ExamSession, error)
	ExamStatistics(ctx context.Context) (domain.ExamStatistics, error)
}

// ReminderScheduler reschedules the daily reminder after a profile change.
type ReminderScheduler interface {
	ScheduleDaily(ctx context.Context) error
}

// ProgressHandler serves progress, profile and exam history.
type ProgressHandler struct {
	progress  ProgressService
	reminders ReminderScheduler
	logger    *slog.Logger
}

// NewProgressHandler creates a ProgressHandler. reminders may be nil.
func NewProgressHandler(svc ProgressService, reminders ReminderScheduler, logger *slog.Logger) *ProgressHandler {
	if svc == nil {
		panic("progress service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHandler{
		progress:  svc,
		reminders: reminders,
		logger:    logger.With(slog.String("component", "progress_handler")),
	}
}

// Progress handles GET /api/progress.
func (h *ProgressHandler) Progress(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.progress.Snapshot(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load progress")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

// UpdateProfile handles PUT /api/profile.
func (h *ProgressHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ProfileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	user, err := h.progress.UpdateProfile(r.Context(), progress.ProfileUpdate{
		Name:                 req.Name,
		SourceLanguage:       req.SourceLanguage,
		TargetLanguage:       req.TargetLanguage,
		DailyGoal:            req.DailyGoal,
		NotificationsEnabled: req.NotificationsEnabled,
		ReminderTime:         req.ReminderTime,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update profile")
		return
	}

	if h.reminders != nil && (req.ReminderTime != nil || req.NotificationsEnabled != nil) {
		if err := h.reminders.ScheduleDaily(r.Context()); err != nil {
			log.Error("failed to reschedule daily reminder", slog.String("error", err.Error()))
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// Exams handles GET /api/exams?limit=n.
func (h *ProgressHandler) Exams(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, DefaultExamHistoryLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	exams, err := h.progress.ExamHistory(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load exam history")
		return
	}
	if exams == nil {
		exams = []*domain.ExamSession{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ExamListResponse{Exams: exams, Count: len(exams)})
}

// ExamStats handles GET /api/exams/stats.
func (h *ProgressHandler) ExamStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.progress.ExamStatistics(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load exam statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
