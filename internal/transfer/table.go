package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// Columns is the header row of CSV and Excel exports.
var Columns = []string{
	"word",
	"source_language",
	"target_language",
	"definition",
	"short_definition",
	"translation",
	"example",
	"phonetics",
	"cefr_level",
	"tags",
	"box",
	"next_review_at",
	"last_studied_at",
	"study_count",
	"correct_count",
	"mastered",
}

// headerless files are read as word, translation, definition.
var headerlessColumns = []string{"word", "translation", "definition"}

func cardRow(card *domain.Flashcard) []string {
	level := ""
	if card.CEFRLevel != nil {
		level = string(*card.CEFRLevel)
	}
	lastStudied := ""
	if card.LastStudiedAt != nil {
		lastStudied = card.LastStudiedAt.UTC().Format(time.RFC3339)
	}

	return []string{
		card.Word,
		card.SourceLanguage,
		card.TargetLanguage,
		card.Definition,
		card.ShortDefinition,
		card.Translation,
		card.Example,
		card.Phonetics,
		level,
		domain.JoinTags(card.Tags),
		strconv.Itoa(card.Box),
		card.NextReviewAt.UTC().Format(time.RFC3339),
		lastStudied,
		strconv.Itoa(card.StudyCount),
		strconv.Itoa(card.CorrectCount),
		strconv.FormatBool(card.Mastered),
	}
}

func writeCSV(w io.Writer, cards []*domain.Flashcard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, card := range cards {
		if err := cw.Write(cardRow(card)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// headerIndex maps column names to positions. The second result is false
// when the first row is not a header.
func headerIndex(first []string) (map[string]int, bool) {
	index := make(map[string]int, len(first))
	for i, name := range first {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
		if key != "" {
			index[key] = i
		}
	}
	if _, ok := index["word"]; ok {
		return index, true
	}

	index = make(map[string]int, len(headerlessColumns))
	for i, name := range headerlessColumns {
		index[name] = i
	}
	return index, false
}

// entriesFromRows turns table rows into cards. Rows that cannot become a card
// are returned as RowErrors; blank rows are ignored.
func entriesFromRows(rows [][]string, opts ImportOptions, now time.Time) ([]entry, []RowError, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("file has no rows")
	}

	index, hasHeader := headerIndex(rows[0])
	start := 0
	if hasHeader {
		start = 1
	}

	var entries []entry
	var rowErrs []RowError
	for i := start; i < len(rows); i++ {
		get := func(col string) string {
			pos, ok := index[col]
			if !ok || pos >= len(rows[i]) {
				return ""
			}
			return strings.TrimSpace(rows[i][pos])
		}

		if isBlank(rows[i]) {
			continue
		}

		card, err := parseRow(get, opts, now)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Word: get("word"), Message: err.Error()})
			continue
		}
		entries = append(entries, entry{row: i + 1, card: card})
	}
	return entries, rowErrs, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRow(get func(string) string, opts ImportOptions, now time.Time) (*domain.Flashcard, error) {
	params := domain.FlashcardParams{
		Word:            get("word"),
		SourceLanguage:  orDefault(get("source_language"), opts.SourceLanguage),
		TargetLanguage:  orDefault(get("target_language"), opts.TargetLanguage),
		Definition:      get("definition"),
		ShortDefinition: get("short_definition"),
		Translation:     get("translation"),
		Example:         get("example"),
		Phonetics:       get("phonetics"),
		Tags:            opts.Tags,
	}
	if tags := get("tags"); tags != "" {
		params.Tags = domain.SplitTags(tags)
	}
	if raw := get("cefr_level"); raw != "" {
		level, err := domain.ParseCEFRLevel(raw)
		if err != nil {
			return nil, err
		}
		params.CEFRLevel = &level
	}

	card, err := domain.NewFlashcard(params, now)
	if err != nil {
		return nil, err
	}

	if raw := get("box"); raw != "" {
		if card.Box, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("invalid box %q", raw)
		}
	}
	if raw := get("study_count"); raw != "" {
		if card.StudyCount, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("invalid study count %q", raw)
		}
	}
	if raw := get("correct_count"); raw != "" {
		if card.CorrectCount, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("invalid correct count %q", raw)
		}
	}
	if raw := get("mastered"); raw != "" {
		if card.Mastered, err = strconv.ParseBool(raw); err != nil {
			return nil, fmt.Errorf("invalid mastered flag %q", raw)
		}
	}
	if raw := get("next_review_at"); raw != "" {
		if card.NextReviewAt, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, fmt.Errorf("invalid next review time %q", raw)
		}
	}
	if raw := get("last_studied_at"); raw != "" {
		studied, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid last studied time %q", raw)
		}
		card.LastStudiedAt = &studied
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
