package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/generation"
)

// MockProvider implements generation.Provider.
type MockProvider struct {
	GenerateDefinitionFn func(ctx context.Context, word, sourceLanguage, targetLanguage string) (*generation.WordDefinition, error)
	GenerateQuestionFn   func(ctx context.Context, card *domain.Flashcard, kind generation.QuestionKind, pool []*domain.Flashcard) (*generation.QuestionDraft, error)
	ClassifyLevelFn      func(ctx context.Context, word, sourceLanguage string) (domain.CEFRLevel, error)

	// Used when the matching function field is nil. A nil Definition is
	// replaced by one echoing the word.
	Definition *generation.WordDefinition
	Draft      *generation.QuestionDraft
	Level      domain.CEFRLevel
	Err        error

	mu    sync.Mutex
	calls map[string]int
	words []string
}

var _ generation.Provider = (*MockProvider)(nil)

func (m *MockProvider) record(method, word string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
	if word != "" {
		m.words = append(m.words, word)
	}
}

// Calls returns how many times method was called.
func (m *MockProvider) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Words returns every word passed to the provider, in call order.
func (m *MockProvider) Words() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.words...)
}

// GenerateDefinition implements generation.ContentGenerator.
func (m *MockProvider) GenerateDefinition(
	ctx context.Context,
	word, sourceLanguage, targetLanguage string,
) (*generation.WordDefinition, error) {
	m.record("GenerateDefinition", word)
	if m.GenerateDefinitionFn != nil {
		return m.GenerateDefinitionFn(ctx, word, sourceLanguage, targetLanguage)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Definition != nil {
		def := *m.Definition
		return &def, nil
	}
	return &generation.WordDefinition{
		Word:        word,
		Definition:  "definition of " + word,
		Translation: "translation of " + word,
	}, nil
}

// GenerateQuestion implements generation.QuestionGenerator.
func (m *MockProvider) GenerateQuestion(
	ctx context.Context,
	card *domain.Flashcard,
	kind generation.QuestionKind,
	pool []*domain.Flashcard,
) (*generation.QuestionDraft, error) {
	word := ""
	if card != nil {
		word = card.Word
	}
	m.record("GenerateQuestion", word)
	if m.GenerateQuestionFn != nil {
		return m.GenerateQuestionFn(ctx, card, kind, pool)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Draft == nil {
		return nil, generation.ErrDecode
	}
	draft := *m.Draft
	draft.Options = append([]string(nil), m.Draft.Options...)
	draft.Kind = kind
	return &draft, nil
}

// ClassifyLevel implements generation.LevelClassifier.
func (m *MockProvider) ClassifyLevel(ctx context.Context, word, sourceLanguage string) (domain.CEFRLevel, error) {
	m.record("ClassifyLevel", word)
	if m.ClassifyLevelFn != nil {
		return m.ClassifyLevelFn(ctx, word, sourceLanguage)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Level == "" {
		return domain.CEFRB1, nil
	}
	return m.Level, nil
}
