package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/lexi-api/internal/domain"
)

var payloadValidator = validator.New()

// DecodeJSON parses the first JSON object in text into v and validates its
// struct tags. Models often wrap JSON in prose or code fences, so everything
// outside the outermost braces is ignored.
func DecodeJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in response", ErrDecode)
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: failed to parse JSON response: %v", ErrDecode, err)
	}

	if err := payloadValidator.Struct(v); err != nil {
		return fmt.Errorf("%w: incomplete response: %v", ErrDecode, err)
	}

	return nil
}

// DecodeDefinition parses a definition payload, filling the word when the
// model omitted it.
func DecodeDefinition(text, word string) (*WordDefinition, error) {
	def := WordDefinition{Word: word}
	if err := DecodeJSON(text, &def); err != nil {
		return nil, err
	}
	def.Word = strings.TrimSpace(def.Word)
	return &def, nil
}

// DecodeQuestion parses a question payload and checks that its answer index
// points at a real option.
func DecodeQuestion(text string, kind QuestionKind) (*QuestionDraft, error) {
	var draft QuestionDraft
	if err := DecodeJSON(text, &draft); err != nil {
		return nil, err
	}
	draft.Kind = kind
	if _, err := draft.Answer(); err != nil {
		return nil, err
	}
	return &draft, nil
}

// ParseLevel extracts a CEFR level from a short model reply such as "B2" or "Level: b2.".
func ParseLevel(text string) (domain.CEFRLevel, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(text))
	for _, level := range domain.CEFRLevels {
		if cleaned == string(level) {
			return level, nil
		}
	}
	for _, field := range strings.FieldsFunc(cleaned, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) {
		if level := domain.CEFRLevel(field); level.Valid() {
			return level, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a CEFR level", ErrDecode, text)
}
