//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/repository"
	"github.com/passvault/passvault/internal/testutil"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_CreateAndLookup(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	id := mustCreateUser(t, ctx, repo, "alice", "alice@example.com")

	byID, err := repo.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.Nil(t, byID.LastLogin)

	byName, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, id, byName.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, id, byEmail.ID)

	_, err = repo.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestIntegrationUserRepository_UniqueConstraints(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	mustCreateUser(t, ctx, repo, "alice", "alice@example.com")

	_, err := repo.CreateUser(ctx, &model.User{Username: "alice", Email: "other@example.com", PasswordHash: "h", CreatedAt: time.Now()})
	require.ErrorIs(t, err, repository.ErrUsernameExists)

	_, err = repo.CreateUser(ctx, &model.User{Username: "other", Email: "alice@example.com", PasswordHash: "h", CreatedAt: time.Now()})
	require.ErrorIs(t, err, repository.ErrEmailExists)
}

func TestIntegrationUserRepository_TakenExcludesSelf(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	alice := mustCreateUser(t, ctx, repo, "alice", "alice@example.com")
	bob := mustCreateUser(t, ctx, repo, "bob", "bob@example.com")

	taken, err := repo.UsernameTaken(ctx, "alice", alice)
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = repo.UsernameTaken(ctx, "alice", bob)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.EmailTaken(ctx, "bob@example.com", 0)
	require.NoError(t, err)
	require.True(t, taken)
}

func TestIntegrationUserRepository_Updates(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	id := mustCreateUser(t, ctx, repo, "alice", "alice@example.com")
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.UpdateLastLogin(ctx, id, now))
	require.NoError(t, repo.UpdatePasswordHash(ctx, id, "new-hash", now))
	require.NoError(t, repo.UpdateProfile(ctx, id, "alice2", "alice2@example.com", now))

	u, err := repo.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "alice2", u.Username)
	require.Equal(t, "new-hash", u.PasswordHash)
	require.NotNil(t, u.LastLogin)
	require.NotNil(t, u.UpdatedAt)

	require.ErrorIs(t, repo.UpdateLastLogin(ctx, id+1000, now), repository.ErrUserNotFound)
}

// ============================================================================
// Entry Repository Integration Tests
// ============================================================================

func TestIntegrationEntryRepository_CRUD(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := mustCreateUser(t, ctx, repo, "alice", "alice@example.com")

	id := mustCreateEntry(t, ctx, repo, owner, "GitHub", "work", time.Now())

	e, err := repo.GetEntry(ctx, owner, id)
	require.NoError(t, err)
	require.Equal(t, "GitHub", e.Title)
	require.Equal(t, owner, e.UserID)

	title := "GitHub Enterprise"
	empty := ""
	ok, err := repo.UpdateEntry(ctx, owner, id, model.EntryUpdate{Title: &title, Notes: &empty}, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	e, err = repo.GetEntry(ctx, owner, id)
	require.NoError(t, err)
	require.Equal(t, "GitHub Enterprise", e.Title)
	require.Equal(t, "", e.Notes)
	require.Equal(t, "work", e.Category)

	ok, err = repo.UpdateEntry(ctx, owner, id, model.EntryUpdate{}, time.Now())
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.DeleteEntry(ctx, owner, id)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.GetEntry(ctx, owner, id)
	require.ErrorIs(t, err, repository.ErrEntryNotFound)
}

func TestIntegrationEntryRepository_OwnershipIsolation(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	alice := mustCreateUser(t, ctx, repo, "alice", "alice@example.com")
	bob := mustCreateUser(t, ctx, repo, "bob", "bob@example.com")

	id := mustCreateEntry(t, ctx, repo, alice, "Bank", "finance", time.Now())

	_, err := repo.GetEntry(ctx, bob, id)
	require.True(t, errors.Is(err, repository.ErrEntryNotFound))

	exists, err := repo.EntryExists(ctx, bob, id)
	require.NoError(t, err)
	require.False(t, exists)

	title := "hijacked"
	ok, err := repo.UpdateEntry(ctx, bob, id, model.EntryUpdate{Title: &title}, time.Now())
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.DeleteEntry(ctx, bob, id)
	require.NoError(t, err)
	require.False(t, ok)

	list, err := repo.ListEntries(ctx, bob, model.EntryFilter{})
	require.NoError(t, err)
	require.Empty(t, list)

	e, err := repo.GetEntry(ctx, alice, id)
	require.NoError(t, err)
	require.Equal(t, "Bank", e.Title)
}

func TestIntegrationEntryRepository_ListFilterAndOrder(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := mustCreateUser(t, ctx, repo, "alice", "alice@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	mustCreateEntry(t, ctx, repo, owner, "GitHub", "work", base)
	mustCreateEntry(t, ctx, repo, owner, "Gmail", "personal", base.Add(time.Minute))
	mustCreateEntry(t, ctx, repo, owner, "100% Club", "personal", base.Add(2*time.Minute))

	all, err := repo.ListEntries(ctx, owner, model.EntryFilter{Category: "all"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "100% Club", all[0].Title)
	require.Equal(t, "GitHub", all[2].Title)

	personal, err := repo.ListEntries(ctx, owner, model.EntryFilter{Category: "personal"})
	require.NoError(t, err)
	require.Len(t, personal, 2)

	search, err := repo.ListEntries(ctx, owner, model.EntryFilter{Search: "gIt"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	require.Equal(t, "GitHub", search[0].Title)

	literal, err := repo.ListEntries(ctx, owner, model.EntryFilter{Search: "%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)

	cats, err := repo.ListCategories(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, []string{"personal", "work"}, cats)

	counts, err := repo.CountByCategory(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, []model.CategoryCount{{Category: "personal", Count: 2}, {Category: "work", Count: 1}}, counts)

	total, err := repo.CountEntries(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
}

func TestIntegrationMigration_SchemaVersion(t *testing.T) {
	ctx, _ := newRepoTestEnv(t)

	version, err := repository.SchemaVersion(ctx, testutil.RequireEnv(t, "DATABASE_URL"))
	require.NoError(t, err)
	require.EqualValues(t, 1, version)
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newRepoTestEnv(t *testing.T) (context.Context, *repository.Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := repository.New(ctx, dbURL, repository.PoolOptions{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := repository.ResetSchema(ctx, dbURL); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}

func mustCreateUser(t *testing.T, ctx context.Context, repo *repository.Repository, username, email string) int64 {
	t.Helper()
	id, err := repo.CreateUser(ctx, &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$placeholder",
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func mustCreateEntry(t *testing.T, ctx context.Context, repo *repository.Repository, owner int64, title, category string, at time.Time) int64 {
	t.Helper()
	id, err := repo.CreateEntry(ctx, owner, &model.Entry{
		Title:     title,
		Username:  "user@example.com",
		Password:  "ciphertext",
		URL:       "https://example.com",
		Notes:     "notes",
		Category:  category,
		CreatedAt: at,
		UpdatedAt: at,
	})
	require.NoError(t, err)
	return id
}
