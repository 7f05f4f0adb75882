// Package openai implements generation.Provider on any OpenAI-compatible
// chat completions endpoint.
package openai

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
	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gpt-4o-mini"

// requestTimeout bounds a single completion attempt.
const requestTimeout = 30 * time.Second

// Generator implements generation.Provider with chat completions.
type Generator struct {
	client *goopenai.Client
	model  string
	retry  generation.RetryPolicy
	logger *slog.Logger
}

// Ensure Generator implements generation.Provider
var _ generation.Provider = (*Generator)(nil)

// NewGenerator creates an OpenAI-backed generator. OpenAIBaseURL may point
// at any compatible server.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := goopenai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}

	model := cfg.ModelName
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  model,
		retry: generation.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		},
		logger: logger.With(slog.String("component", "openai_generator"), slog.String("model", model)),
	}, nil
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

	text, err := g.complete(ctx, completion{
		system:      generation.DefinitionSystemPrompt,
		prompt:      prompt,
		jsonObject:  true,
		maxTokens:   400,
		temperature: 0.7,
	})
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

	text, err := g.complete(ctx, completion{
		system:      generation.QuestionSystemPrompt,
		prompt:      prompt,
		jsonObject:  true,
		maxTokens:   350,
		temperature: 0.8,
	})
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

	text, err := g.complete(ctx, completion{
		system:      generation.LevelSystemPrompt,
		prompt:      prompt,
		maxTokens:   10,
		temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	return generation.ParseLevel(text)
}

type completion struct {
	system      string
	prompt      string
	jsonObject  bool
	maxTokens   int
	temperature float32
}

// complete runs one chat completion with retries and returns the reply text.
func (g *Generator) complete(ctx context.Context, c completion) (string, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	req := goopenai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: c.system},
			{Role: goopenai.ChatMessageRoleUser, Content: c.prompt},
		},
	}
	if c.jsonObject {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var text string
	err := generation.Retry(ctx, log, g.retry, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		start := time.Now()
		resp, err := g.client.CreateChatCompletion(attemptCtx, req)
		latency := time.Since(start)
		if err != nil {
			log.Error("chat completion request failed",
				slog.String("error", err.Error()),
				slog.Int64("latency_ms", latency.Milliseconds()))
			return classifyError(err)
		}

		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: empty chat response", generation.ErrDecode)
		}
		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return fmt.Errorf("%w: empty message content", generation.ErrDecode)
		}

		log.Debug("chat completion succeeded",
			slog.Int64("latency_ms", latency.Milliseconds()),
			slog.Int("tokens", resp.Usage.TotalTokens))
		text = content
		return nil
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// classifyError maps go-openai errors to the generation taxonomy.
func classifyError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return generation.FromStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return generation.FromStatus(reqErr.HTTPStatusCode, err)
	}

	return generation.FromTransport(err)
}
