package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/api/shared"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/service/deck"
)

// CardService is the deck as seen by the card endpoints, implemented by
// deck.Service.
type CardService interface {
	Now() time.Time
	Location() *time.Location
	AddWord(ctx context.Context, req deck.AddWordRequest) (*domain.Flashcard, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)
	Update(ctx context.Context, id uuid.UUID, req deck.UpdateRequest) (*domain.Flashcard, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AllCards(ctx context.Context, tags []string) ([]*domain.Flashcard, error)
	DueCards(ctx context.Context, asOf time.Time) ([]*domain.Flashcard, error)
	Tags(ctx context.Context) ([]string, error)
}

// CardHandler serves /api/cards.
type CardHandler struct {
	cards  CardService
	users  UserSource
	logger *slog.Logger
}

// NewCardHandler creates a CardHandler.
func NewCardHandler(cards CardService, users UserSource, logger *slog.Logger) *CardHandler {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if users == nil {
		panic("users cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		cards:  cards,
		users:  users,
		logger: logger.With(slog.String("component", "card_handler")),
	}
}

// List handles GET /api/cards?tags=a,b.
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.AllCards(r.Context(), queryTags(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CardListResponse{Cards: nonNil(cards), Count: len(cards)})
}

// Due handles GET /api/cards/due?date=YYYY-MM-DD. Without a date the
// current study day is used.
func (h *CardHandler) Due(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, h.cards.Location(), h.cards.Now())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	cards, err := h.cards.DueCards(r.Context(), asOf)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list due cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CardListResponse{Cards: nonNil(cards), Count: len(cards)})
}

// Tags handles GET /api/tags.
func (h *CardHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.cards.Tags(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tags")
		return
	}
	if tags == nil {
		tags = []string{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TagListResponse{Tags: tags})
}

// Create handles POST /api/cards.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if req.SourceLanguage == "" || req.TargetLanguage == "" {
		user, err := h.users.CurrentUser(r.Context())
		if err != nil {
			HandleAPIError(w, r, err, "Failed to load user")
			return
		}
		if req.SourceLanguage == "" {
			req.SourceLanguage = user.SourceLanguage
		}
		if req.TargetLanguage == "" {
			req.TargetLanguage = user.TargetLanguage
		}
	}

	add := deck.AddWordRequest{
		Word:           req.Word,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Tags:           req.Tags,
	}
	if req.CEFRLevel != nil {
		level := domain.CEFRLevel(*req.CEFRLevel)
		add.CEFRLevel = &level
	}

	card, err := h.cards.AddWord(r.Context(), add)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add word")
		return
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, card)
}

// Get handles GET /api/cards/{id}.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	card, err := h.cards.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// Update handles PUT /api/cards/{id}. Scheduling fields cannot be edited.
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	update := deck.UpdateRequest{
		Definition:      req.Definition,
		ShortDefinition: req.ShortDefinition,
		Translation:     req.Translation,
		Example:         req.Example,
		Phonetics:       req.Phonetics,
		Tags:            req.Tags,
	}
	if req.CEFRLevel != nil {
		level := domain.CEFRLevel(*req.CEFRLevel)
		update.CEFRLevel = &level
	}

	card, err := h.cards.Update(r.Context(), id, update)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// Delete handles DELETE /api/cards/{id}.
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.cards.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(cards []*domain.Flashcard) []*domain.Flashcard {
	if cards == nil {
		return []*domain.Flashcard{}
	}
	return cards
}
