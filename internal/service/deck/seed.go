package deck

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
)

// SampleWord is a starter card with ready-made content.
type SampleWord struct {
	Content        generation.WordDefinition
	SourceLanguage string
	TargetLanguage string
}

// SampleWords is the starter deck added by Seed.
var SampleWords = []SampleWord{
	sample("Hello", "A greeting used when meeting someone", "greeting", "hola", "Hello, how are you today?", "/həˈloʊ/"),
	sample("Book", "A written work consisting of pages bound together", "written work", "libro", "I'm reading an interesting book about history.", "/bʊk/"),
	sample("Water", "A colorless, transparent liquid essential for life", "liquid", "agua", "Please drink more water to stay hydrated.", "/ˈwɔːtər/"),
	sample("Beautiful", "Pleasing to the senses or mind aesthetically", "pleasing", "hermoso", "The sunset was absolutely beautiful tonight.", "/ˈbjuːtɪfəl/"),
	sample("Friend", "A person with whom one has mutual affection", "companion", "amigo", "She is my best friend from college.", "/frɛnd/"),
	sample("Goodbye", "A farewell expression used when parting", "bye", "adiós", "Goodbye, see you tomorrow!", "/ˌɡʊdˈbaɪ/"),
	sample("Thank you", "An expression of gratitude", "thanks", "gracias", "Thank you for your help.", "/ˈθæŋk ju/"),
	sample("Sorry", "An expression of apology or regret", "apology", "lo siento", "I'm sorry for being late.", "/ˈsɑri/"),
}

func sample(word, definition, short, translation, example, phonetics string) SampleWord {
	return SampleWord{
		Content: generation.WordDefinition{
			Word:            word,
			Definition:      definition,
			ShortDefinition: short,
			Translation:     translation,
			Example:         example,
			Phonetics:       phonetics,
		},
		SourceLanguage: "English",
		TargetLanguage: "Spanish",
	}
}

// Seed adds SampleWords to the deck, skipping words that are already there,
// and returns how many cards were created. Seeding twice adds nothing.
func (s *Service) Seed(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	created := 0
	for _, w := range SampleWords {
		content := w.Content
		_, err := s.AddWord(ctx, AddWordRequest{
			Word:           content.Word,
			SourceLanguage: w.SourceLanguage,
			TargetLanguage: w.TargetLanguage,
			Content:        &content,
		})
		if errors.Is(err, ErrDuplicateWord) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}

	log.Info("sample words seeded", slog.Int("created", created))
	return created, nil
}
