// Package transfer moves a deck in and out of the service as JSON, CSV or
// Excel workbooks. Exports carry scheduling state, so a deck exported and
// imported again resumes where it left off.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/service/deck"
)

// Format is a file format for import and export.
type Format string

// Supported formats
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DocumentVersion is written into JSON exports.
const DocumentVersion = 1

// ErrUnsupportedFormat indicates a format other than json, csv or xlsx.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Document is the JSON export layout.
type Document struct {
	Version    int                 `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Cards      []*domain.Flashcard `json:"cards"`
}

// Deck is the card side of a transfer, implemented by deck.Service.
type Deck interface {
	Now() time.Time
	AllCards(ctx context.Context, tags []string) ([]*domain.Flashcard, error)
	AddCard(ctx context.Context, card *domain.Flashcard) error
}

// entry is a parsed card and the row it came from.
type entry struct {
	row  int
	card *domain.Flashcard
}

// ImportOptions fills values missing from imported rows.
type ImportOptions struct {
	SourceLanguage string
	TargetLanguage string
	Tags           []string
}

// RowError describes one rejected row.
type RowError struct {
	Row     int    `json:"row"`
	Word    string `json:"word,omitempty"`
	Message string `json:"message"`
}

// ImportResult counts what an import did.
type ImportResult struct {
	Processed int        `json:"processed"`
	Created   int        `json:"created"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors"`
}

// Service exports and imports decks.
type Service struct {
	deck   Deck
	logger *slog.Logger
}

// NewService creates a transfer service.
func NewService(deck Deck, logger *slog.Logger) *Service {
	if deck == nil {
		panic("deck cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deck: deck, logger: logger.With(slog.String("component", "transfer"))}
}

// Export writes every card to w.
func (s *Service) Export(ctx context.Context, w io.Writer, format Format) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards, err := s.deck.AllCards(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to load cards: %w", err)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(Document{Version: DocumentVersion, ExportedAt: s.deck.Now().UTC(), Cards: cards})
	case FormatCSV:
		err = writeCSV(w, cards)
	case FormatXLSX:
		err = writeXLSX(w, cards)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		log.Error("export failed",
			slog.String("error", err.Error()),
			slog.String("format", string(format)))
		return 0, fmt.Errorf("failed to write %s export: %w", format, err)
	}

	log.Info("deck exported",
		slog.String("format", string(format)),
		slog.Int("cards", len(cards)))
	return len(cards), nil
}

// Import reads cards from r and adds the ones not already in the deck.
// Bad rows are reported in the result and do not stop the import.
func (s *Service) Import(ctx context.Context, r io.Reader, format Format, opts ImportOptions) (*ImportResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var entries []entry
	result := &ImportResult{Errors: []RowError{}}

	switch format {
	case FormatJSON:
		var doc Document
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON import: %w", err)
		}
		for i, card := range doc.Cards {
			if card == nil {
				result.Processed++
				result.Errors = append(result.Errors, RowError{Row: i + 1, Message: "empty card"})
				continue
			}
			applyDefaults(card, opts, s.deck.Now())
			entries = append(entries, entry{row: i + 1, card: card})
		}
	case FormatCSV, FormatXLSX:
		var rows [][]string
		var err error
		if format == FormatCSV {
			rows, err = readCSV(r)
		} else {
			rows, err = readXLSX(r)
		}
		if err != nil {
			return nil, err
		}
		var rowErrs []RowError
		entries, rowErrs, err = entriesFromRows(rows, opts, s.deck.Now())
		if err != nil {
			return nil, err
		}
		result.Processed += len(rowErrs)
		result.Errors = append(result.Errors, rowErrs...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		err := s.deck.AddCard(ctx, e.card)
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, deck.ErrDuplicateWord):
			result.Skipped++
		default:
			result.Errors = append(result.Errors, RowError{Row: e.row, Word: e.card.Word, Message: err.Error()})
		}
	}

	log.Info("deck imported",
		slog.String("format", string(format)),
		slog.Int("processed", result.Processed),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)))
	return result, nil
}

// applyDefaults fills identity and language fields a hand-written JSON file
// may omit.
func applyDefaults(card *domain.Flashcard, opts ImportOptions, now time.Time) {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	if card.SourceLanguage == "" {
		card.SourceLanguage = opts.SourceLanguage
	}
	if card.TargetLanguage == "" {
		card.TargetLanguage = opts.TargetLanguage
	}
	if len(card.Tags) == 0 {
		card.Tags = domain.NormalizeTags(opts.Tags)
	}
	if card.Box == 0 {
		card.Box = domain.MinBox
	}
	if card.Difficulty == 0 {
		card.Difficulty = 1
	}
	if card.NextReviewAt.IsZero() {
		card.NextReviewAt = now.UTC()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now.UTC()
	}
	if card.UpdatedAt.IsZero() {
		card.UpdatedAt = card.CreatedAt
	}
}
