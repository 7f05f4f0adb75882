package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/lexi-api/internal/api/middleware"
	"golang.org/x/time/rate"
)

// Handlers groups the endpoints served by NewRouter.
type Handlers struct {
	Auth     *AuthHandler
	Cards    *CardHandler
	Session  *SessionHandler
	Progress *ProgressHandler
	Transfer *TransferHandler
}

// Token requests are limited to one per second with a burst of five.
const (
	tokenRate  = rate.Limit(1)
	tokenBurst = 5
)

// NewRouter wires every route. Everything under /api except the token
// endpoint requires a bearer token.
func NewRouter(h Handlers, auth *middleware.AuthMiddleware, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewTraceMiddleware(logger))
	r.Use(chimw.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.NewRateLimit(tokenRate, tokenBurst)).Post("/auth/token", h.Auth.Token)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Get("/cards", h.Cards.List)
			r.Post("/cards", h.Cards.Create)
			r.Get("/cards/due", h.Cards.Due)
			r.Get("/cards/{id}", h.Cards.Get)
			r.Put("/cards/{id}", h.Cards.Update)
			r.Delete("/cards/{id}", h.Cards.Delete)
			r.Get("/tags", h.Cards.Tags)

			r.Route("/session", func(r chi.Router) {
				r.Get("/", h.Session.Current)
				r.Post("/start", h.Session.Start)
				r.Post("/reveal", h.Session.Reveal)
				r.Post("/answer", h.Session.Answer)
				r.Post("/choice", h.Session.Choice)
				r.Post("/skip", h.Session.Skip)
				r.Post("/reset", h.Session.Reset)
			})

			r.Get("/progress", h.Progress.Progress)
			r.Put("/profile", h.Progress.UpdateProfile)
			r.Get("/exams", h.Progress.Exams)
			r.Get("/exams/stats", h.Progress.ExamStats)

			r.Get("/export", h.Transfer.Export)
			r.Post("/import", h.Transfer.Import)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
