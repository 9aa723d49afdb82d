package model

import "time"

const (
	// DefaultCategory is assigned when an entry is created without one.
	DefaultCategory = "general"
	// CategoryAll disables category filtering when listing.
	CategoryAll = "all"
)

// Entry is a single vault record. When read from storage, Password and
// Notes hold ciphertext; the vault service decrypts them before they
// leave the package.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	URL       string    `json:"url"`
	Notes     string    `json:"notes"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryUpdate is a partial update. A nil field is left unchanged; a
// pointer to "" clears the field.
type EntryUpdate struct {
	Title    *string `json:"title,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	URL      *string `json:"url,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Category *string `json:"category,omitempty"`
}

// IsEmpty reports whether the update names no fields.
func (u EntryUpdate) IsEmpty() bool {
	return u.Title == nil && u.Username == nil && u.Password == nil &&
		u.URL == nil && u.Notes == nil && u.Category == nil
}

// EntryFilter narrows a listing. Empty values match everything.
type EntryFilter struct {
	Category string
	Search   string
}

// HasCategory reports whether the filter restricts by category.
func (f EntryFilter) HasCategory() bool {
	return f.Category != "" && f.Category != CategoryAll
}

// CategoryCount is the number of entries a user holds in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
