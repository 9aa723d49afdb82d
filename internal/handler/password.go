package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/passvault/passvault/internal/encryption"
	"github.com/passvault/passvault/internal/handler/dto"
)

// Generated password length bounds.
const (
	DefaultGeneratedLength = 16
	MinGeneratedLength     = 8
	MaxGeneratedLength     = 64
)

// PasswordHandler serves the password generator.
type PasswordHandler struct {
	logger *slog.Logger
}

// NewPasswordHandler creates a new PasswordHandler.
func NewPasswordHandler(logger *slog.Logger) *PasswordHandler {
	return &PasswordHandler{logger: logger}
}

// Generate handles GET /api/generate-password?length=N.
func (h *PasswordHandler) Generate(w http.ResponseWriter, r *http.Request) {
	pw, err := encryption.GeneratePassword(generatedLength(r.URL.Query().Get("length")))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "password generation failed", slog.Any("error", err))
		writeMessage(w, http.StatusInternalServerError, "Failed to generate password")
		return
	}
	writeJSON(w, http.StatusOK, dto.GeneratedPasswordResponse{Success: true, Password: pw})
}

// generatedLength clamps the requested length. A missing value selects
// the default; an unparsable one counts as zero and clamps to the minimum.
func generatedLength(raw string) int {
	if raw == "" {
		return DefaultGeneratedLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		n = 0
	}
	return max(MinGeneratedLength, min(MaxGeneratedLength, n))
}
