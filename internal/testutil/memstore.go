package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/repository"
)

// MemoryUserStore is an in-memory stand-in for the user repository with
// the same error contract. Set Err to make every call fail.
type MemoryUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
	Err    error
}

// NewMemoryUserStore returns an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[int64]*model.User)}
}

func (s *MemoryUserStore) CreateUser(_ context.Context, u *model.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return 0, repository.ErrUsernameExists
		}
		if existing.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	s.nextID++
	stored := *u
	stored.ID = s.nextID
	s.users[stored.ID] = &stored
	return stored.ID, nil
}

func (s *MemoryUserStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == id })
}

func (s *MemoryUserStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == username })
}

func (s *MemoryUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Email == email })
}

func (s *MemoryUserStore) UsernameTaken(_ context.Context, username string, excludeID int64) (bool, error) {
	u, err := s.find(func(u *model.User) bool { return u.Username == username && u.ID != excludeID })
	return u != nil, ignoreNotFound(err)
}

func (s *MemoryUserStore) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	u, err := s.find(func(u *model.User) bool { return u.Email == email && u.ID != excludeID })
	return u != nil, ignoreNotFound(err)
}

func (s *MemoryUserStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	return s.update(id, func(u *model.User) error {
		u.LastLogin = &at
		return nil
	})
}

func (s *MemoryUserStore) UpdatePasswordHash(_ context.Context, id int64, hash string, at time.Time) error {
	return s.update(id, func(u *model.User) error {
		u.PasswordHash = hash
		u.UpdatedAt = &at
		return nil
	})
}

func (s *MemoryUserStore) UpdateProfile(_ context.Context, id int64, username, email string, at time.Time) error {
	return s.update(id, func(u *model.User) error {
		for _, other := range s.users {
			if other.ID == id {
				continue
			}
			if other.Username == username {
				return repository.ErrUsernameExists
			}
			if other.Email == email {
				return repository.ErrEmailExists
			}
		}
		u.Username = username
		u.Email = email
		u.UpdatedAt = &at
		return nil
	})
}

func (s *MemoryUserStore) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *MemoryUserStore) update(id int64, fn func(*model.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	return fn(u)
}

func ignoreNotFound(err error) error {
	if err == repository.ErrUserNotFound {
		return nil
	}
	return err
}

// MemoryEntryStore is an in-memory stand-in for the entry repository.
// It stores whatever it is given, so tests can inspect ciphertext.
type MemoryEntryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*model.Entry
	Err     error
}

// NewMemoryEntryStore returns an empty store.
func NewMemoryEntryStore() *MemoryEntryStore {
	return &MemoryEntryStore{entries: make(map[int64]*model.Entry)}
}

// Raw returns the stored row regardless of owner, for assertions.
func (s *MemoryEntryStore) Raw(id int64) (*model.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// Corrupt overwrites the stored password ciphertext of id.
func (s *MemoryEntryStore) Corrupt(id int64, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.Password = value
	}
}

func (s *MemoryEntryStore) CreateEntry(_ context.Context, userID int64, e *model.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.nextID++
	stored := *e
	stored.ID = s.nextID
	stored.UserID = userID
	s.entries[stored.ID] = &stored
	return stored.ID, nil
}

func (s *MemoryEntryStore) ListEntries(_ context.Context, userID int64, filter model.EntryFilter) ([]*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	needle := strings.ToLower(filter.Search)
	out := []*model.Entry{}
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if filter.HasCategory() && e.Category != filter.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Username), needle) &&
			!strings.Contains(strings.ToLower(e.URL), needle) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryEntryStore) GetEntry(_ context.Context, userID, id int64) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return nil, repository.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryEntryStore) EntryExists(ctx context.Context, userID, id int64) (bool, error) {
	_, err := s.GetEntry(ctx, userID, id)
	if err == repository.ErrEntryNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *MemoryEntryStore) UpdateEntry(_ context.Context, userID, id int64, upd model.EntryUpdate, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	e, ok := s.entries[id]
	if !ok || e.UserID != userID || upd.IsEmpty() {
		return false, nil
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&e.Title, upd.Title)
	apply(&e.Username, upd.Username)
	apply(&e.Password, upd.Password)
	apply(&e.URL, upd.URL)
	apply(&e.Notes, upd.Notes)
	apply(&e.Category, upd.Category)
	e.UpdatedAt = at
	return true, nil
}

func (s *MemoryEntryStore) DeleteEntry(_ context.Context, userID, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *MemoryEntryStore) ListCategories(ctx context.Context, userID int64) ([]string, error) {
	counts, err := s.CountByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(counts))
	for _, c := range counts {
		out = append(out, c.Category)
	}
	return out, nil
}

func (s *MemoryEntryStore) CountByCategory(_ context.Context, userID int64) ([]model.CategoryCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	byCat := map[string]int64{}
	for _, e := range s.entries {
		if e.UserID == userID {
			byCat[e.Category]++
		}
	}
	out := make([]model.CategoryCount, 0, len(byCat))
	for cat, n := range byCat {
		out = append(out, model.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *MemoryEntryStore) CountEntries(ctx context.Context, userID int64) (int64, error) {
	counts, err := s.CountByCategory(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	return total, nil
}
