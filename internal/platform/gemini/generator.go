package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// contentModel is the subset of genai.Models used by the generator.
type contentModel interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Provider using the Gemini API.
type Generator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// models issues GenerateContent calls
	models contentModel

	// model is the name of the Gemini model to use
	model string

	// retry controls backoff for transient failures
	retry generation.RetryPolicy
}

// Ensure Generator implements generation.Provider
var _ generation.Provider = (*Generator)(nil)

// NewGenerator creates a Gemini-backed generator.
//
// Parameters:
//   - ctx: Context for client initialisation
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing the API key, model name and retry settings
//
// Returns:
//   - A ready Generator, or an error wrapping generation.ErrInvalidConfig
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, client.Models, cfg), nil
}

func newGenerator(logger *slog.Logger, models contentModel, cfg config.LLMConfig) *Generator {
	model := cfg.ModelName
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		logger: logger.With(slog.String("component", "gemini_generator"), slog.String("model", model)),
		models: models,
		model:  model,
		retry: generation.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		},
	}
}

// GenerateDefinition implements generation.ContentGenerator.
func (g *Generator) GenerateDefinition(
	ctx context.Context,
	word, sourceLanguage, targetLanguage string,
) (*generation.WordDefinition, error) {
	prompt, err := generation.DefinitionPrompt(word, sourceLanguage, targetLanguage)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx, generation.DefinitionSystemPrompt, prompt, true, 0.7)
	if err != nil {
		return nil, err
	}

	return generation.DecodeDefinition(text, word)
}

// GenerateQuestion implements generation.QuestionGenerator.
func (g *Generator) GenerateQuestion(
	ctx context.Context,
	card *domain.Flashcard,
	kind generation.QuestionKind,
	pool []*domain.Flashcard,
) (*generation.QuestionDraft, error) {
	prompt, err := generation.QuestionPrompt(card, kind, pool)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx, generation.QuestionSystemPrompt, prompt, true, 0.8)
	if err != nil {
		return nil, err
	}

	return generation.DecodeQuestion(text, kind)
}

// ClassifyLevel implements generation.LevelClassifier.
func (g *Generator) ClassifyLevel(ctx context.Context, word, sourceLanguage string) (domain.CEFRLevel, error) {
	prompt, err := generation.LevelPrompt(word, sourceLanguage)
	if err != nil {
		return "", err
	}

	text, err := g.generate(ctx, generation.LevelSystemPrompt, prompt, false, 0.3)
	if err != nil {
		return "", err
	}

	return generation.ParseLevel(text)
}

// generate sends one prompt with retries and returns the response text.
func (g *Generator) generate(
	ctx context.Context,
	system, prompt string,
	jsonResponse bool,
	temperature float32,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(temperature),
	}
	if jsonResponse {
		cfg.ResponseMIMEType = "application/json"
	}

	var text string
	err := generation.Retry(ctx, log, g.retry, func(ctx context.Context) error {
		start := time.Now()
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			log.Error("Gemini API call error",
				slog.String("error", err.Error()),
				slog.Duration("latency", time.Since(start)))
			return classifyError(err)
		}

		out, err := responseText(resp)
		if err != nil {
			return err
		}

		log.Debug("Gemini API call successful",
			slog.Int("response_length", len(out)),
			slog.Duration("latency", time.Since(start)))
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// responseText extracts the first candidate's text, rejecting blocked or empty output.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrDecode)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no content generated", generation.ErrDecode)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrDecode)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrDecode)
	}
	return text, nil
}

// classifyError maps a genai error to the generation taxonomy.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return generation.FromStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return generation.FromStatus(apiErrPtr.Code, err)
	}
	return generation.FromTransport(err)
}
