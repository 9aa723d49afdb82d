package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/passvault/passvault/internal/auth"
	"github.com/passvault/passvault/internal/handler/dto"
	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/vault"
)

// EntryHandler handles HTTP requests for vault entries. Every route sits
// behind the session middleware.
type EntryHandler struct {
	svc    *vault.Service
	logger *slog.Logger
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(svc *vault.Service, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/entries.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.EntryFilter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
	}

	entries, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), filter)
	if err != nil {
		h.handleVaultError(w, r, err, "Failed to load entries")
		return
	}
	writeJSON(w, http.StatusOK, dto.ToEntryListResponse(entries))
}

// Create handles POST /api/entries.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), req.ToNewEntry())
	if err != nil {
		h.handleVaultError(w, r, err, "Failed to create entry")
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryCreatedResponse{
		Success: true,
		Message: "Entry created",
		ID:      id,
	})
}

// Get handles GET /api/entries/{id}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.handleVaultError(w, r, err, "Failed to load entry")
		return
	}
	writeJSON(w, http.StatusOK, dto.EntryGetResponse{
		Success: true,
		Entry:   dto.ToEntryResponse(entry),
	})
}

// Update handles PUT /api/entries/{id}.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	upd := req.ToUpdate()
	if upd.IsEmpty() {
		writeMessage(w, http.StatusBadRequest, "No fields to update")
		return
	}

	updated, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, upd)
	if err != nil {
		h.handleVaultError(w, r, err, "Failed to update entry")
		return
	}
	if !updated {
		writeMessage(w, http.StatusNotFound, "Entry not found")
		return
	}
	writeMessage(w, http.StatusOK, "Entry updated")
}

// Delete handles DELETE /api/entries/{id}.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	deleted, err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.handleVaultError(w, r, err, "Failed to delete entry")
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "Entry not found")
		return
	}
	writeMessage(w, http.StatusOK, "Entry deleted")
}

// Categories handles GET /api/categories.
func (h *EntryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleVaultError(w, r, err, "Failed to load categories")
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCategoriesResponse(stats))
}

// entryID parses the {id} URL parameter, writing a 400 when it is not a
// positive integer.
func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid entry ID")
		return 0, false
	}
	return id, true
}

// handleVaultError maps vault errors to HTTP responses. Storage and
// decryption failures share one generic message.
func (h *EntryHandler) handleVaultError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, vault.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Entry not found")
	case errors.Is(err, vault.ErrCorrupted):
		h.logger.ErrorContext(r.Context(), "entry could not be decrypted",
			slog.Int64("user_id", auth.UserIDFromContext(r.Context())),
			slog.Any("error", err),
		)
		writeMessage(w, http.StatusInternalServerError, msg)
	default:
		h.logger.ErrorContext(r.Context(), "vault operation failed",
			slog.Int64("user_id", auth.UserIDFromContext(r.Context())),
			slog.Any("error", err),
		)
		writeMessage(w, http.StatusInternalServerError, msg)
	}
}
