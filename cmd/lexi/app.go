package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/lexi-api/internal/api"
	"github.com/phrazzld/lexi-api/internal/api/middleware"
	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/domain/leitner"
	"github.com/phrazzld/lexi-api/internal/events"
	"github.com/phrazzld/lexi-api/internal/exam"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/platform/gemini"
	"github.com/phrazzld/lexi-api/internal/platform/openai"
	"github.com/phrazzld/lexi-api/internal/platform/sqlstore"
	"github.com/phrazzld/lexi-api/internal/reminder"
	"github.com/phrazzld/lexi-api/internal/service/auth"
	"github.com/phrazzld/lexi-api/internal/service/deck"
	"github.com/phrazzld/lexi-api/internal/service/progress"
	"github.com/phrazzld/lexi-api/internal/service/session"
	"github.com/phrazzld/lexi-api/internal/transfer"
	"golang.org/x/time/rate"
)

// application holds the shared dependencies of every command and closes
// them on cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	generator generation.Provider
	deck      *deck.Service
	progress  *progress.Service
	questions *exam.Generator
	emitter   *events.InMemoryEventEmitter
	reminders *reminder.Scheduler
	sessions  *session.Manager
	transfer  *transfer.Service
}

// newApplication wires stores, services and the content generator on top of
// an open database.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}
	loc := cfg.Server.Location()

	var err error
	app.generator, err = newProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	cards := sqlstore.NewFlashcardStore(db, logger)
	app.deck = deck.NewService(db, cards, leitner.NewDefaultService(), app.generator, logger, deck.WithLocation(loc))
	app.progress = progress.NewService(db,
		sqlstore.NewUserStore(db, logger),
		cards,
		sqlstore.NewExamSessionStore(db, logger),
		logger,
		progress.WithLocation(loc))

	app.questions = exam.NewGenerator(app.generator, generation.NewLocalGenerator(nil), exam.NewBuilder(nil), logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.reminders = reminder.NewScheduler(cfg.Reminder, app.progress, app.deck, nil, loc, logger)
	app.emitter.RegisterHandler(app.reminders)

	controller := session.NewController(app.deck, app.progress, app.questions, app.emitter, logger,
		session.WithExamConcurrency(cfg.Study.ExamConcurrency))
	app.sessions = session.NewManager(controller)
	app.transfer = transfer.NewService(app.deck, logger)

	logger.Info("application initialized",
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("timezone", loc.String()))
	return app, nil
}

// newProvider builds the configured remote generator behind the throttled,
// deduplicating wrapper. Provider "none" serves everything locally.
func newProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*generation.Resilient, error) {
	var primary generation.Provider
	switch cfg.Provider {
	case "gemini":
		g, err := gemini.NewGenerator(ctx, logger.With(slog.String("component", "gemini_generator")), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini generator: %w", err)
		}
		primary = g
	case "openai":
		g, err := openai.NewGenerator(logger.With(slog.String("component", "openai_generator")), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI generator: %w", err)
		}
		primary = g
	case "", "none":
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return generation.NewResilient(primary, generation.NewLocalGenerator(nil), limiter, logger), nil
}

// handler builds the HTTP API. It needs auth settings the maintenance
// commands do not.
func (app *application) handler() (http.Handler, error) {
	if err := app.config.Auth.RequireServing(); err != nil {
		return nil, err
	}

	jwtService, err := auth.NewJWTService(app.config.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", app.config.Auth.TokenLifetimeMinutes))

	handlers := api.Handlers{
		Auth: api.NewAuthHandler(app.progress, jwtService, auth.NewBcryptVerifier(),
			app.config.Auth.AccessKeyHash, app.logger),
		Cards:    api.NewCardHandler(app.deck, app.progress, app.logger),
		Session:  api.NewSessionHandler(app.sessions, app.config.Study.ExamQuestionCount, app.logger),
		Progress: api.NewProgressHandler(app.progress, app.reminders, app.logger),
		Transfer: api.NewTransferHandler(app.transfer, app.progress, app.logger),
	}
	return api.NewRouter(handlers, middleware.NewAuthMiddleware(jwtService), app.logger), nil
}

// cleanup stops background jobs and closes the database.
func (app *application) cleanup() {
	if app.reminders != nil {
		app.reminders.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Debug("application shutdown completed")
}
