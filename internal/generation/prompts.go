package generation

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// System instructions sent alongside the user prompts.
const (
	DefinitionSystemPrompt = "You are a lexicographer writing flashcards for language learners. Respond with JSON only."
	QuestionSystemPrompt   = "You are an expert language tutor. Generate educational exam questions. Respond with JSON only."
	LevelSystemPrompt      = "You are a language learning expert that classifies words by CEFR level. Respond with only the level (A1, A2, B1, B2, C1, or C2)."
)

var definitionTemplate = template.Must(template.New("definition").Parse(
	`Generate a comprehensive flashcard for the word "{{.Word}}" in {{.SourceLanguage}} with translation to {{.TargetLanguage}}.

Respond with a JSON object in this format:
{
    "word": "{{.Word}}",
    "definition": "A clear, detailed definition in {{.SourceLanguage}}",
    "shortDefinition": "A brief, one-word or short phrase definition",
    "translation": "Translation to {{.TargetLanguage}}",
    "example": "A natural example sentence using the word in context",
    "phonetics": "IPA phonetic transcription in /phonetics/ format"
}

The content must be accurate for the specified languages and suitable for a flashcard.`))

var questionTemplate = template.Must(template.New("question").Parse(
	`{{.Instruction}}
Word: "{{.Word}}"
Definition: "{{.Definition}}"
{{- if .Example}}
Example: "{{.Example}}"
{{- end}}
{{- if .Others}}
Other words in this exam: {{.Others}}
{{- end}}

Respond with a JSON object in this format:
{
    "question": "{{.QuestionShape}}",
    "options": ["{{.AnswerShape}}", "wrong1", "wrong2", "wrong3"],
    "correctAnswerIndex": 0,
    "tip": "Short tip (max 40 words) explaining the correct answer"
}

Requirements:
- Exactly 4 options (no more, no less), all different
- Tip must be under 40 words and concise`))

var levelTemplate = template.Must(template.New("level").Parse(
	`Determine the CEFR (Common European Framework of Reference) level for the word "{{.Word}}" in {{.SourceLanguage}}.
Return ONLY one of the following levels: A1, A2, B1, B2, C1, C2
Respond with just the level (e.g., "A1" or "B2"), nothing else.`))

type questionPromptData struct {
	Instruction   string
	Word          string
	Definition    string
	Example       string
	Others        string
	QuestionShape string
	AnswerShape   string
}

// DefinitionPrompt renders the prompt for GenerateDefinition.
func DefinitionPrompt(word, sourceLanguage, targetLanguage string) (string, error) {
	return render(definitionTemplate, struct {
		Word, SourceLanguage, TargetLanguage string
	}{word, sourceLanguage, targetLanguage})
}

// LevelPrompt renders the prompt for ClassifyLevel.
func LevelPrompt(word, sourceLanguage string) (string, error) {
	return render(levelTemplate, struct {
		Word, SourceLanguage string
	}{word, sourceLanguage})
}

// QuestionPrompt renders the prompt for GenerateQuestion.
func QuestionPrompt(card *domain.Flashcard, kind QuestionKind, pool []*domain.Flashcard) (string, error) {
	data := questionPromptData{
		Word:       card.Word,
		Definition: card.Definition,
		Example:    card.Example,
		Others:     strings.Join(otherWords(card, pool, 6), ", "),
	}

	switch kind {
	case KindDefinition:
		data.Instruction = fmt.Sprintf("Create a multiple choice question asking for the meaning of the word %q.", card.Word)
		data.QuestionShape = fmt.Sprintf("What is the meaning of '%s'?", card.Word)
		data.AnswerShape = "correct definition"
	case KindWordDifferent:
		data.Instruction = fmt.Sprintf("Create a question asking which word has a clearly different meaning from %q. The correct option is the odd one out.", card.Word)
		data.QuestionShape = fmt.Sprintf("Which word is most different in meaning from '%s'?", card.Word)
		data.AnswerShape = "unrelated word"
	case KindWordSimilar:
		data.Instruction = fmt.Sprintf("Create a question asking which word is closest in meaning to %q. The correct option is a synonym.", card.Word)
		data.QuestionShape = fmt.Sprintf("Which word is most similar to '%s'?", card.Word)
		data.AnswerShape = "synonym"
	case KindContextScenario:
		data.Instruction = fmt.Sprintf("Create a context-based question for the word %q. Describe a short scenario where this word would be used.", card.Word)
		data.QuestionShape = "Which word would be used to say '[scenario]'?"
		data.AnswerShape = card.Word
	case KindFillInBlank:
		data.Instruction = fmt.Sprintf("Create a fill-in-the-blank question for the word %q. Write a sentence where the word is replaced with %q.", card.Word, Blank)
		data.QuestionShape = "Complete the sentence: '[sentence with " + Blank + "]'"
		data.AnswerShape = card.Word
	default:
		return "", fmt.Errorf("%w: unknown question kind %q", ErrInvalidConfig, kind)
	}

	return render(questionTemplate, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s prompt template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// otherWords returns up to limit words from pool, excluding card.
func otherWords(card *domain.Flashcard, pool []*domain.Flashcard, limit int) []string {
	words := make([]string, 0, limit)
	for _, other := range pool {
		if len(words) == limit {
			break
		}
		if other == nil || other.ID == card.ID || strings.EqualFold(other.Word, card.Word) {
			continue
		}
		words = append(words, other.Word)
	}
	return words
}
