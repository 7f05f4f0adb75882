package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/lexi-api/internal/api/shared"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/service/session"
)

// SessionHandler serves /api/session. The installation has one session,
// owned by the manager.
type SessionHandler struct {
	manager           *session.Manager
	examQuestionCount int
	logger            *slog.Logger
}

// NewSessionHandler creates a SessionHandler. examQuestionCount is used when
// an exam start request gives no count.
func NewSessionHandler(manager *session.Manager, examQuestionCount int, logger *slog.Logger) *SessionHandler {
	if manager == nil {
		panic("manager cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		manager:           manager,
		examQuestionCount: examQuestionCount,
		logger:            logger.With(slog.String("component", "session_handler")),
	}
}

// Start handles POST /api/session/start.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	mode := domain.SessionMode(req.Mode)
	var selector session.Selector
	switch mode {
	case domain.ModeDueReview:
		selector = session.DueSelector
	case domain.ModeFullReview:
		selector = session.AllSelector(req.Tags)
	case domain.ModeExam:
		count := req.Count
		if count == 0 {
			count = h.examQuestionCount
		}
		selector = session.ExamSelector(count)
	}

	view, err := h.manager.Start(r.Context(), mode, selector)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	log.Debug("session started via API", slog.String("mode", req.Mode))
	shared.RespondWithJSON(w, r, http.StatusCreated, newSessionResponse(view))
}

// Current handles GET /api/session.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, newSessionResponse(h.manager.Current()))
}

// Reveal handles POST /api/session/reveal.
func (h *SessionHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, newSessionResponse(h.manager.Reveal()))
}

// Answer handles POST /api/session/answer.
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	view, err := h.manager.Answer(r.Context(), domain.AnswerOutcome(req.Outcome))
	h.respond(w, r, view, err)
}

// Choice handles POST /api/session/choice.
func (h *SessionHandler) Choice(w http.ResponseWriter, r *http.Request) {
	var req ChoiceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	view, err := h.manager.AnswerChoice(r.Context(), *req.SelectedIndex)
	h.respond(w, r, view, err)
}

// Skip handles POST /api/session/skip.
func (h *SessionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	view, err := h.manager.Skip(r.Context())
	h.respond(w, r, view, err)
}

// Reset handles POST /api/session/reset.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, newSessionResponse(h.manager.Reset()))
}

// respond writes the view after a state change. A persistence failure still
// returns the view, with a warning, because the session moved on.
func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, view *session.View, err error) {
	if err != nil && !errors.Is(err, session.ErrPersistence) {
		HandleAPIError(w, r, err, "Failed to update session")
		return
	}

	resp := newSessionResponse(view)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("session progress not saved",
			slog.String("error", err.Error()))
		resp.Warning = GetSafeErrorMessage(err)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
