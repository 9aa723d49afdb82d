package dto

import (
	"time"

	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/vault"
)

// CreateEntryRequest represents the request body for creating an entry.
type CreateEntryRequest struct {
	Title    string `json:"title"`
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
	Notes    string `json:"notes"`
	Category string `json:"category"`
}

// ToNewEntry converts the request to vault input.
func (r CreateEntryRequest) ToNewEntry() vault.NewEntry {
	return vault.NewEntry{
		Title:    r.Title,
		Username: r.Username,
		Password: r.Password,
		URL:      r.URL,
		Notes:    r.Notes,
		Category: r.Category,
	}
}

// UpdateEntryRequest is a partial update: absent fields stay unchanged.
type UpdateEntryRequest struct {
	Title    *string `json:"title,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	URL      *string `json:"url,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Category *string `json:"category,omitempty"`
}

// ToUpdate converts the request to a model update.
func (r UpdateEntryRequest) ToUpdate() model.EntryUpdate {
	return model.EntryUpdate{
		Title:    r.Title,
		Username: r.Username,
		Password: r.Password,
		URL:      r.URL,
		Notes:    r.Notes,
		Category: r.Category,
	}
}

// EntryResponse represents a decrypted entry in API responses.
type EntryResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	URL       string    `json:"url"`
	Notes     string    `json:"notes"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryListResponse wraps a listing.
type EntryListResponse struct {
	Success bool            `json:"success"`
	Entries []EntryResponse `json:"entries"`
}

// EntryGetResponse wraps a single entry.
type EntryGetResponse struct {
	Success bool           `json:"success"`
	Entry   *EntryResponse `json:"entry"`
}

// EntryCreatedResponse carries the new entry's ID.
type EntryCreatedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// CategoriesResponse carries the vault aggregates.
type CategoriesResponse struct {
	Success    bool                  `json:"success"`
	Categories []string              `json:"categories"`
	Counts     []model.CategoryCount `json:"counts"`
	Total      int64                 `json:"total"`
}

// GeneratedPasswordResponse carries a freshly generated password.
type GeneratedPasswordResponse struct {
	Success  bool   `json:"success"`
	Password string `json:"password"`
}

// ToEntryResponse converts an Entry model to EntryResponse DTO.
func ToEntryResponse(e *model.Entry) *EntryResponse {
	return &EntryResponse{
		ID:        e.ID,
		Title:     e.Title,
		Username:  e.Username,
		Password:  e.Password,
		URL:       e.URL,
		Notes:     e.Notes,
		Category:  e.Category,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// ToEntryListResponse converts entries, never returning a null list.
func ToEntryListResponse(entries []*model.Entry) *EntryListResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, *ToEntryResponse(e))
	}
	return &EntryListResponse{Success: true, Entries: out}
}

// ToCategoriesResponse converts vault stats, never returning null lists.
func ToCategoriesResponse(s *vault.Stats) *CategoriesResponse {
	cats := s.Categories
	if cats == nil {
		cats = []string{}
	}
	counts := s.Counts
	if counts == nil {
		counts = []model.CategoryCount{}
	}
	return &CategoriesResponse{
		Success:    true,
		Categories: cats,
		Counts:     counts,
		Total:      s.Total,
	}
}
