package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/lexi-api/internal/api/shared"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/transfer"
)

// MaxUploadBytes caps import uploads.
const MaxUploadBytes = 10 << 20

// TransferService is implemented by transfer.Service.
type TransferService interface {
	Export(ctx context.Context, w io.Writer, format transfer.Format) (int, error)
	Import(ctx context.Context, r io.Reader, format transfer.Format, opts transfer.ImportOptions) (*transfer.ImportResult, error)
}

// TransferHandler serves deck export and import.
type TransferHandler struct {
	transfer TransferService
	users    UserSource
	logger   *slog.Logger
}

// NewTransferHandler creates a TransferHandler.
func NewTransferHandler(svc TransferService, users UserSource, logger *slog.Logger) *TransferHandler {
	if svc == nil {
		panic("transfer service cannot be nil")
	}
	if users == nil {
		panic("users cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TransferHandler{
		transfer: svc,
		users:    users,
		logger:   logger.With(slog.String("component", "transfer_handler")),
	}
}

// Export handles GET /api/export?format=json|csv|xlsx. JSON is the default.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(transfer.FormatJSON)
	}
	format, err := transfer.ParseFormat(raw)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	filename := fmt.Sprintf("lexi-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	n, err := h.transfer.Export(r.Context(), w, format)
	if err != nil {
		// Headers may already be sent; the client sees a truncated file.
		logger.FromContextOrDefault(r.Context(), h.logger).Error("export failed",
			slog.String("error", err.Error()),
			slog.String("format", string(format)))
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("export sent", slog.Int("cards", n))
}

// Import handles POST /api/import. The body is either a multipart form with
// a "file" field or the raw file; the format comes from ?format, the file
// name or the Content-Type. Optional ?tags apply to rows without tags.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	body := io.Reader(r.Body)
	format, formatErr := formatFromRequest(r, "")

	if isMultipart(r) {
		file, header, err := r.FormFile("file")
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Missing upload field \"file\"", err)
			return
		}
		defer func() { _ = file.Close() }()
		body = file
		format, formatErr = formatFromRequest(r, header.Filename)
	}
	if formatErr != nil {
		HandleAPIError(w, r, formatErr, "")
		return
	}

	user, err := h.users.CurrentUser(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}

	result, err := h.transfer.Import(r.Context(), body, format, transfer.ImportOptions{
		SourceLanguage: user.SourceLanguage,
		TargetLanguage: user.TargetLanguage,
		Tags:           queryTags(r),
	})
	if err != nil {
		log.Warn("import rejected", slog.String("error", err.Error()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Could not read import file", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func formatFromRequest(r *http.Request, filename string) (transfer.Format, error) {
	if raw := r.URL.Query().Get("format"); raw != "" {
		return transfer.ParseFormat(raw)
	}
	if filename != "" {
		return transfer.FormatFromPath(filename)
	}
	for _, f := range []transfer.Format{transfer.FormatJSON, transfer.FormatCSV, transfer.FormatXLSX} {
		if r.Header.Get("Content-Type") == f.ContentType() {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: cannot tell the file format", domain.ErrValidation)
}
