package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/lexi-api/internal/api/shared"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/service/auth"
)

// UserSource returns the installation user, creating it on first use.
type UserSource interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// AuthHandler exchanges the installation access key for a bearer token.
type AuthHandler struct {
	users         UserSource
	jwtService    auth.JWTService
	verifier      auth.PasswordVerifier
	accessKeyHash string
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. accessKeyHash is the bcrypt hash
// from auth.access_key_hash.
func NewAuthHandler(
	users UserSource,
	jwtService auth.JWTService,
	verifier auth.PasswordVerifier,
	accessKeyHash string,
	logger *slog.Logger,
) *AuthHandler {
	if users == nil || jwtService == nil || verifier == nil {
		panic("auth handler dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:         users,
		jwtService:    jwtService,
		verifier:      verifier,
		accessKeyHash: accessKeyHash,
		logger:        logger.With(slog.String("component", "auth_handler")),
	}
}

// Token handles POST /api/auth/token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req TokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if err := h.verifier.Compare(h.accessKeyHash, req.AccessKey); err != nil {
		log.Warn("rejected access key", slog.String("remote_addr", r.RemoteAddr))
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid access key", err,
			shared.WithElevatedLogLevel())
		return
	}

	user, err := h.users.CurrentUser(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	log.Info("token issued", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		UserID:      user.ID,
		AccessToken: token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}
