// Package vault implements user-scoped storage of credential entries.
// Secret fields are encrypted before they reach the store and decrypted
// only on the way out.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/passvault/passvault/internal/clock"
	"github.com/passvault/passvault/internal/metrics"
	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/repository"
)

// Service errors.
var (
	// ErrNotFound covers both missing entries and entries owned by
	// someone else.
	ErrNotFound = errors.New("entry not found")
	// ErrCorrupted is returned when a stored secret cannot be decrypted,
	// e.g. after the encryption key was changed.
	ErrCorrupted = errors.New("stored entry could not be decrypted")
)

// FieldCipher encrypts and decrypts individual secret fields.
type FieldCipher interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(blob string) (string, error)
}

// EntryStore persists entries. Every method is scoped to one owner.
type EntryStore interface {
	CreateEntry(ctx context.Context, userID int64, e *model.Entry) (int64, error)
	ListEntries(ctx context.Context, userID int64, filter model.EntryFilter) ([]*model.Entry, error)
	GetEntry(ctx context.Context, userID, id int64) (*model.Entry, error)
	EntryExists(ctx context.Context, userID, id int64) (bool, error)
	UpdateEntry(ctx context.Context, userID, id int64, upd model.EntryUpdate, at time.Time) (bool, error)
	DeleteEntry(ctx context.Context, userID, id int64) (bool, error)
	ListCategories(ctx context.Context, userID int64) ([]string, error)
	CountByCategory(ctx context.Context, userID int64) ([]model.CategoryCount, error)
	CountEntries(ctx context.Context, userID int64) (int64, error)
}

// NewEntry is the input for Create.
type NewEntry struct {
	Title    string
	Username string
	Password string
	URL      string
	Notes    string
	Category string
}

// Stats summarises a user's vault.
type Stats struct {
	Categories []string              `json:"categories"`
	Counts     []model.CategoryCount `json:"counts"`
	Total      int64                 `json:"total"`
}

// Service provides vault operations.
type Service struct {
	store   EntryStore
	cipher  FieldCipher
	clock   clock.Clock
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewService creates a vault service. A nil clock, logger or recorder
// selects the default.
func NewService(store EntryStore, cipher FieldCipher, clk clock.Clock, logger *slog.Logger, recorder metrics.Recorder) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Service{
		store:   store,
		cipher:  cipher,
		clock:   clk,
		logger:  logger,
		metrics: recorder,
	}
}

// Create stores a new entry for userID and returns its ID. An empty
// category becomes model.DefaultCategory.
func (s *Service) Create(ctx context.Context, userID int64, in NewEntry) (int64, error) {
	password, err := s.encrypt(in.Password)
	if err != nil {
		return 0, err
	}
	notes, err := s.sealNotes(in.Notes)
	if err != nil {
		return 0, err
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = model.DefaultCategory
	}

	now := s.clock.Now()
	id, err := s.store.CreateEntry(ctx, userID, &model.Entry{
		Title:     in.Title,
		Username:  in.Username,
		Password:  password,
		URL:       in.URL,
		Notes:     notes,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return 0, fmt.Errorf("create entry: %w", err)
	}

	s.metrics.IncEntryCreated()
	s.logger.InfoContext(ctx, "entry created",
		slog.Int64("user_id", userID),
		slog.Int64("entry_id", id),
	)
	return id, nil
}

// List returns the user's entries with secrets decrypted, most recently
// updated first. A category of "" or "all" disables category filtering.
func (s *Service) List(ctx context.Context, userID int64, filter model.EntryFilter) ([]*model.Entry, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveVaultListDuration(time.Since(start))
	}()

	filter.Search = strings.TrimSpace(filter.Search)

	entries, err := s.store.ListEntries(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	for _, e := range entries {
		if err := s.open(ctx, e); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Get returns one entry with secrets decrypted.
func (s *Service) Get(ctx context.Context, userID, id int64) (*model.Entry, error) {
	e, err := s.store.GetEntry(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if err := s.open(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update applies the non-nil fields of upd. It returns false when the
// entry is not the user's or when upd names no fields. A changed
// password or notes value is encrypted under a fresh IV.
func (s *Service) Update(ctx context.Context, userID, id int64, upd model.EntryUpdate) (bool, error) {
	exists, err := s.store.EntryExists(ctx, userID, id)
	if err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	if !exists || upd.IsEmpty() {
		return false, nil
	}

	if upd.Password != nil {
		sealed, err := s.encrypt(*upd.Password)
		if err != nil {
			return false, err
		}
		upd.Password = &sealed
	}
	if upd.Notes != nil {
		sealed, err := s.sealNotes(*upd.Notes)
		if err != nil {
			return false, err
		}
		upd.Notes = &sealed
	}

	ok, err := s.store.UpdateEntry(ctx, userID, id, upd, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("update entry: %w", err)
	}
	if ok {
		s.metrics.IncEntryUpdated()
	}
	return ok, nil
}

// Delete removes the entry. It returns false when the entry is not the
// user's.
func (s *Service) Delete(ctx context.Context, userID, id int64) (bool, error) {
	ok, err := s.store.DeleteEntry(ctx, userID, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	if ok {
		s.metrics.IncEntryDeleted()
		s.logger.InfoContext(ctx, "entry deleted",
			slog.Int64("user_id", userID),
			slog.Int64("entry_id", id),
		)
	}
	return ok, nil
}

// Categories returns the user's distinct categories in ascending order.
func (s *Service) Categories(ctx context.Context, userID int64) ([]string, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// CountByCategory returns entry counts per category in ascending order.
func (s *Service) CountByCategory(ctx context.Context, userID int64) ([]model.CategoryCount, error) {
	counts, err := s.store.CountByCategory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	return counts, nil
}

// TotalCount returns the number of entries the user holds.
func (s *Service) TotalCount(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.CountEntries(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Stats gathers categories, per-category counts and the total in one call.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	cats, err := s.Categories(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.CountByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.TotalCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{Categories: cats, Counts: counts, Total: total}, nil
}

// sealNotes encrypts notes. Empty notes are stored empty.
func (s *Service) sealNotes(notes string) (string, error) {
	if notes == "" {
		return "", nil
	}
	return s.encrypt(notes)
}

func (s *Service) encrypt(plaintext string) (string, error) {
	blob, err := s.cipher.EncryptString(plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypt field: %w", err)
	}
	return blob, nil
}

// open decrypts the secret fields of e in place. Empty stored values
// read back as empty.
func (s *Service) open(ctx context.Context, e *model.Entry) error {
	for _, field := range []*string{&e.Password, &e.Notes} {
		if *field == "" {
			continue
		}
		plain, err := s.cipher.DecryptString(*field)
		if err != nil {
			s.metrics.IncDecryptFailure()
			s.logger.ErrorContext(ctx, "failed to decrypt entry",
				slog.Int64("user_id", e.UserID),
				slog.Int64("entry_id", e.ID),
				slog.Any("error", err),
			)
			return fmt.Errorf("%w: entry %d: %w", ErrCorrupted, e.ID, err)
		}
		*field = plain
	}
	return nil
}
