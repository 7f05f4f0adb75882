package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Leitner box bounds.
const (
	MinBox = 1
	MaxBox = 5
)

// MasteryThreshold is the success rate a box-5 card needs to become mastered.
const MasteryThreshold = 0.8

// Flashcard-specific validation errors
var (
	ErrFlashcardIDEmpty     = errors.New("flashcard ID cannot be empty")
	ErrEmptyWord            = errors.New("word cannot be empty")
	ErrEmptySourceLanguage  = errors.New("source language cannot be empty")
	ErrEmptyTargetLanguage  = errors.New("target language cannot be empty")
	ErrBoxOutOfRange        = errors.New("leitner box must be between 1 and 5")
	ErrNegativeStudyCount   = errors.New("study count cannot be negative")
	ErrCorrectExceedsStudy  = errors.New("correct count must be between 0 and study count")
	ErrInvalidCEFRLevel     = errors.New("invalid CEFR level")
	ErrNextReviewAtRequired = errors.New("next review time is required")
	ErrInvalidTag           = errors.New("tags cannot contain commas")
)

// CEFRLevel is one of the six Common European Framework proficiency tiers.
type CEFRLevel string

// CEFR levels
const (
	CEFRA1 CEFRLevel = "A1"
	CEFRA2 CEFRLevel = "A2"
	CEFRB1 CEFRLevel = "B1"
	CEFRB2 CEFRLevel = "B2"
	CEFRC1 CEFRLevel = "C1"
	CEFRC2 CEFRLevel = "C2"
)

// CEFRLevels lists the levels from easiest to hardest.
var CEFRLevels = []CEFRLevel{CEFRA1, CEFRA2, CEFRB1, CEFRB2, CEFRC1, CEFRC2}

// ParseCEFRLevel accepts a level in any case, e.g. "b2".
func ParseCEFRLevel(s string) (CEFRLevel, error) {
	level := CEFRLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !level.Valid() {
		return "", ErrInvalidCEFRLevel
	}
	return level, nil
}

// Valid reports whether l is a known CEFR level.
func (l CEFRLevel) Valid() bool {
	for _, known := range CEFRLevels {
		if l == known {
			return true
		}
	}
	return false
}

// Flashcard is a single vocabulary item together with its Leitner scheduling state.
type Flashcard struct {
	ID             uuid.UUID `json:"id"`
	Word           string    `json:"word"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`

	Definition      string     `json:"definition"`
	ShortDefinition string     `json:"short_definition"`
	Translation     string     `json:"translation"`
	Example         string     `json:"example"`
	Phonetics       string     `json:"phonetics"`
	AudioURL        *string    `json:"audio_url,omitempty"`
	CEFRLevel       *CEFRLevel `json:"cefr_level,omitempty"`
	Tags            []string   `json:"tags"`

	Box           int        `json:"box"`
	NextReviewAt  time.Time  `json:"next_review_at"`
	LastStudiedAt *time.Time `json:"last_studied_at,omitempty"`
	StudyCount    int        `json:"study_count"`
	CorrectCount  int        `json:"correct_count"`
	Mastered      bool       `json:"mastered"`
	Difficulty    int        `json:"difficulty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FlashcardParams carries the learner-supplied and generated content of a new card.
type FlashcardParams struct {
	Word            string
	SourceLanguage  string
	TargetLanguage  string
	Definition      string
	ShortDefinition string
	Translation     string
	Example         string
	Phonetics       string
	AudioURL        *string
	CEFRLevel       *CEFRLevel
	Tags            []string
}

// NewFlashcard creates a card in box 1 that is due immediately.
// Returns an error if validation fails.
func NewFlashcard(p FlashcardParams, now time.Time) (*Flashcard, error) {
	now = now.UTC()
	card := &Flashcard{
		ID:              uuid.New(),
		Word:            strings.TrimSpace(p.Word),
		SourceLanguage:  strings.TrimSpace(p.SourceLanguage),
		TargetLanguage:  strings.TrimSpace(p.TargetLanguage),
		Definition:      p.Definition,
		ShortDefinition: p.ShortDefinition,
		Translation:     p.Translation,
		Example:         p.Example,
		Phonetics:       p.Phonetics,
		AudioURL:        p.AudioURL,
		CEFRLevel:       p.CEFRLevel,
		Tags:            NormalizeTags(p.Tags),
		Box:             MinBox,
		NextReviewAt:    now,
		Difficulty:      1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks the card's identity, content and scheduling invariants.
func (f *Flashcard) Validate() error {
	if f.ID == uuid.Nil {
		return ErrFlashcardIDEmpty
	}
	if strings.TrimSpace(f.Word) == "" {
		return ErrEmptyWord
	}
	if strings.TrimSpace(f.SourceLanguage) == "" {
		return ErrEmptySourceLanguage
	}
	if strings.TrimSpace(f.TargetLanguage) == "" {
		return ErrEmptyTargetLanguage
	}
	if f.Box < MinBox || f.Box > MaxBox {
		return ErrBoxOutOfRange
	}
	if f.StudyCount < 0 {
		return ErrNegativeStudyCount
	}
	if f.CorrectCount < 0 || f.CorrectCount > f.StudyCount {
		return ErrCorrectExceedsStudy
	}
	if f.CEFRLevel != nil && !f.CEFRLevel.Valid() {
		return ErrInvalidCEFRLevel
	}
	if f.NextReviewAt.IsZero() {
		return ErrNextReviewAtRequired
	}
	for _, tag := range f.Tags {
		if strings.Contains(tag, TagSeparator) {
			return ErrInvalidTag
		}
	}
	return nil
}

// SuccessRate is CorrectCount / StudyCount, or 0 for a card never studied.
func (f *Flashcard) SuccessRate() float64 {
	if f.StudyCount == 0 {
		return 0
	}
	return float64(f.CorrectCount) / float64(f.StudyCount)
}

// HasAnyTag reports whether the card carries at least one of tags.
// An empty filter matches every card.
func (f *Flashcard) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range NormalizeTags(tags) {
		for _, have := range f.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy so callers can derive a new state without
// touching the original.
func (f *Flashcard) Clone() *Flashcard {
	c := *f
	if f.Tags != nil {
		c.Tags = append([]string(nil), f.Tags...)
	}
	if f.AudioURL != nil {
		u := *f.AudioURL
		c.AudioURL = &u
	}
	if f.CEFRLevel != nil {
		l := *f.CEFRLevel
		c.CEFRLevel = &l
	}
	if f.LastStudiedAt != nil {
		t := *f.LastStudiedAt
		c.LastStudiedAt = &t
	}
	return &c
}

// NormalizeTags trims, lowercases and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TagSeparator joins tags in storage, export and query strings, so it may
// not appear inside a tag.
const TagSeparator = ","

// JoinTags renders tags as the comma-separated form used for storage and export.
func JoinTags(tags []string) string {
	return strings.Join(tags, TagSeparator)
}

// SplitTags parses the comma-separated form produced by JoinTags.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, TagSeparator))
}
