package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/lexi-api/internal/api"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/mocks"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFunc func(ctx context.Context) (*domain.User, error)

func (f userFunc) CurrentUser(ctx context.Context) (*domain.User, error) { return f(ctx) }

func TestAuthHandler_Token(t *testing.T) {
	t.Parallel()

	user := domain.NewUser(testNow)
	expires := testNow.Add(time.Hour)

	tests := []struct {
		name       string
		body       string
		verifier   *mocks.MockPasswordVerifier
		jwt        *mocks.MockJWTService
		userErr    error
		wantStatus int
		wantError  string
	}{
		{
			name:       "token issued",
			body:       `{"access_key":"correct-horse"}`,
			verifier:   &mocks.MockPasswordVerifier{ShouldSucceed: true},
			jwt:        &mocks.MockJWTService{Token: "signed.jwt.token", ExpiresAt: expires},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong key",
			body:       `{"access_key":"wrong-horse"}`,
			verifier:   &mocks.MockPasswordVerifier{},
			jwt:        &mocks.MockJWTService{},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid access key",
		},
		{
			name:       "malformed body",
			body:       `{"access_key":`,
			verifier:   &mocks.MockPasswordVerifier{ShouldSucceed: true},
			jwt:        &mocks.MockJWTService{},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "unknown field",
			body:       `{"access_key":"correct-horse","admin":true}`,
			verifier:   &mocks.MockPasswordVerifier{ShouldSucceed: true},
			jwt:        &mocks.MockJWTService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "signing fails",
			body:       `{"access_key":"correct-horse"}`,
			verifier:   &mocks.MockPasswordVerifier{ShouldSucceed: true},
			jwt:        &mocks.MockJWTService{Err: errors.New("key material unavailable")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to generate authentication token",
		},
		{
			name:       "user store fails",
			body:       `{"access_key":"correct-horse"}`,
			verifier:   &mocks.MockPasswordVerifier{ShouldSucceed: true},
			jwt:        &mocks.MockJWTService{},
			userErr:    errors.New("database is locked"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to load user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			log, buf := logger.NewTestLogger()
			users := userFunc(func(context.Context) (*domain.User, error) { return user, tt.userErr })
			h := api.NewAuthHandler(users, tt.jwt, tt.verifier, "$2a$hash", log)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/token", bytes.NewBufferString(tt.body))
			req = req.WithContext(logger.WithLogger(req.Context(), log))
			rr := httptest.NewRecorder()
			h.Token(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.NotContains(t, buf.String(), "correct-horse")

			if tt.wantStatus == http.StatusOK {
				var resp api.TokenResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, user.ID, resp.UserID)
				assert.Equal(t, "signed.jwt.token", resp.AccessToken)
				assert.Equal(t, expires.Format(time.RFC3339), resp.ExpiresAt)
				assert.Equal(t, "$2a$hash", tt.verifier.CompareCalledWith.HashedPassword)
				return
			}
			if tt.wantError != "" {
				assert.Contains(t, rr.Body.String(), tt.wantError)
			}
			assert.NotContains(t, rr.Body.String(), "key material")
			assert.NotContains(t, rr.Body.String(), "database is locked")
		})
	}
}
