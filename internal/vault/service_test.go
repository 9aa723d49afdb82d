package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/passvault/passvault/internal/encryption"
	"github.com/passvault/passvault/internal/metrics"
	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/testutil"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

type testEnv struct {
	svc     *Service
	store   *testutil.MemoryEntryStore
	cipher  *encryption.Cipher
	clock   *testutil.StubClock
	metrics *metrics.InMemoryRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	c, err := encryption.NewCipher(encryption.DefaultMethod, "test-secret")
	require.NoError(t, err)

	env := &testEnv{
		store:   testutil.NewMemoryEntryStore(),
		cipher:  c,
		clock:   testutil.FixedClock(),
		metrics: metrics.NewInMemory(),
	}
	env.svc = NewService(env.store, c, env.clock, nil, env.metrics)
	return env
}

func (e *testEnv) create(t *testing.T, owner int64, in NewEntry) int64 {
	t.Helper()
	id, err := e.svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	return id
}

func strPtr(s string) *string { return &s }

func TestCreate_EncryptsSecretsAtRest(t *testing.T) {
	env := newTestEnv(t)

	id := env.create(t, alice, NewEntry{
		Title:    "GitHub",
		Username: "alice@example.com",
		Password: "hunter2",
		URL:      "https://github.com",
		Notes:    "recovery codes in safe",
		Category: "work",
	})

	raw, ok := env.store.Raw(id)
	require.True(t, ok)
	require.NotEqual(t, "hunter2", raw.Password)
	require.NotContains(t, raw.Password, "hunter2")
	require.NotEqual(t, "recovery codes in safe", raw.Notes)
	require.Equal(t, "GitHub", raw.Title, "non-secret fields are stored verbatim")

	plain, err := env.cipher.DecryptString(raw.Password)
	require.NoError(t, err)
	require.Equal(t, "hunter2", plain)
	require.EqualValues(t, 1, env.metrics.Snapshot().EntriesCreated)
}

func TestCreate_Defaults(t *testing.T) {
	env := newTestEnv(t)

	id := env.create(t, alice, NewEntry{Title: "Wifi", Password: ""})

	raw, _ := env.store.Raw(id)
	require.Equal(t, model.DefaultCategory, raw.Category)
	require.Empty(t, raw.Notes, "empty notes are stored empty")
	require.NotEmpty(t, raw.Password, "the secret is encrypted even when empty")

	got, err := env.svc.Get(context.Background(), alice, id)
	require.NoError(t, err)
	require.Equal(t, "", got.Password)
	require.Equal(t, "", got.Notes)
}

func TestCreate_SamePasswordDifferentCiphertext(t *testing.T) {
	env := newTestEnv(t)

	a := env.create(t, alice, NewEntry{Title: "a", Password: "same"})
	b := env.create(t, alice, NewEntry{Title: "b", Password: "same"})

	rawA, _ := env.store.Raw(a)
	rawB, _ := env.store.Raw(b)
	require.NotEqual(t, rawA.Password, rawB.Password)
}

func TestGet_DecryptsAndScopes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, alice, NewEntry{Title: "Bank", Password: "s3cret", Notes: "pin 1234"})

	got, err := env.svc.Get(ctx, alice, id)
	require.NoError(t, err)
	require.Equal(t, "s3cret", got.Password)
	require.Equal(t, "pin 1234", got.Notes)

	_, err = env.svc.Get(ctx, bob, id)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Get(ctx, alice, id+100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_FilterSearchOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.create(t, alice, NewEntry{Title: "GitHub", Username: "alice", URL: "https://github.com", Password: "p1", Category: "work"})
	env.create(t, alice, NewEntry{Title: "Gmail", Username: "alice@gmail.com", Password: "p2", Category: "personal"})
	env.create(t, alice, NewEntry{Title: "Bank", Username: "a123", Password: "github-in-secret", Notes: "github", Category: "finance"})
	env.create(t, bob, NewEntry{Title: "Bob's GitHub", Password: "p4", Category: "work"})

	all, err := env.svc.List(ctx, alice, model.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"Bank", "Gmail", "GitHub"}, titles(all))
	require.Equal(t, "github-in-secret", all[0].Password)

	sentinel, err := env.svc.List(ctx, alice, model.EntryFilter{Category: model.CategoryAll})
	require.NoError(t, err)
	require.Len(t, sentinel, 3)

	work, err := env.svc.List(ctx, alice, model.EntryFilter{Category: "work"})
	require.NoError(t, err)
	require.Equal(t, []string{"GitHub"}, titles(work))

	search, err := env.svc.List(ctx, alice, model.EntryFilter{Search: "  GITHUB "})
	require.NoError(t, err)
	require.Equal(t, []string{"GitHub"}, titles(search), "secrets and notes are never searched")

	byUsername, err := env.svc.List(ctx, alice, model.EntryFilter{Search: "gmail.com"})
	require.NoError(t, err)
	require.Equal(t, []string{"Gmail"}, titles(byUsername))

	combined, err := env.svc.List(ctx, alice, model.EntryFilter{Category: "personal", Search: "git"})
	require.NoError(t, err)
	require.Empty(t, combined)
}

func TestList_CorruptedEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, alice, NewEntry{Title: "x", Password: "p"})
	env.store.Corrupt(id, "!!not-base64!!")

	_, err := env.svc.List(ctx, alice, model.EntryFilter{})
	require.ErrorIs(t, err, ErrCorrupted)
	require.ErrorIs(t, err, encryption.ErrDecryption)

	_, err = env.svc.Get(ctx, alice, id)
	require.ErrorIs(t, err, ErrCorrupted)
	require.EqualValues(t, 2, env.metrics.Snapshot().DecryptFailures)
}

func TestList_WrongKeyNeverReturnsPlaintext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, NewEntry{Title: "x", Password: "p"})

	// A blob sealed under another key is rejected or yields garbage, but
	// must never round-trip to the original secret.
	other, err := encryption.NewCipher(encryption.DefaultMethod, "other-secret")
	require.NoError(t, err)
	rotated := NewService(env.store, other, env.clock, nil, nil)

	got, err := rotated.Get(ctx, alice, id)
	if err == nil {
		require.NotEqual(t, "p", got.Password)
	} else {
		require.ErrorIs(t, err, ErrCorrupted)
	}
}

func TestUpdate_Partial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, alice, NewEntry{Title: "GitHub", Username: "alice", Password: "old", URL: "https://github.com", Notes: "n", Category: "work"})
	before, _ := env.store.Raw(id)

	ok, err := env.svc.Update(ctx, alice, id, model.EntryUpdate{Password: strPtr("new"), Notes: strPtr("")})
	require.NoError(t, err)
	require.True(t, ok)

	after, _ := env.store.Raw(id)
	require.NotEqual(t, before.Password, after.Password)
	require.Empty(t, after.Notes)
	require.True(t, after.UpdatedAt.After(before.UpdatedAt))

	got, err := env.svc.Get(ctx, alice, id)
	require.NoError(t, err)
	require.Equal(t, "new", got.Password)
	require.Equal(t, "GitHub", got.Title)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, "https://github.com", got.URL)
	require.Equal(t, "work", got.Category)
	require.EqualValues(t, 1, env.metrics.Snapshot().EntriesUpdated)
}

func TestUpdate_SamePasswordGetsFreshCiphertext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, alice, NewEntry{Title: "x", Password: "same"})
	before, _ := env.store.Raw(id)

	ok, err := env.svc.Update(ctx, alice, id, model.EntryUpdate{Password: strPtr("same")})
	require.NoError(t, err)
	require.True(t, ok)

	after, _ := env.store.Raw(id)
	require.NotEqual(t, before.Password, after.Password)
}

func TestUpdate_RejectsForeignAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, alice, NewEntry{Title: "mine", Password: "p"})

	ok, err := env.svc.Update(ctx, bob, id, model.EntryUpdate{Title: strPtr("stolen")})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = env.svc.Update(ctx, alice, id, model.EntryUpdate{})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = env.svc.Update(ctx, alice, id+1, model.EntryUpdate{Title: strPtr("ghost")})
	require.NoError(t, err)
	require.False(t, ok)

	raw, _ := env.store.Raw(id)
	require.Equal(t, "mine", raw.Title)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, alice, NewEntry{Title: "x", Password: "p"})

	ok, err := env.svc.Delete(ctx, bob, id)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = env.svc.Delete(ctx, alice, id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = env.svc.Delete(ctx, alice, id)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = env.svc.Get(ctx, alice, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	empty, err := env.svc.Stats(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, empty.Categories)
	require.Zero(t, empty.Total)

	env.create(t, alice, NewEntry{Title: "a", Category: "work"})
	env.create(t, alice, NewEntry{Title: "b", Category: "personal"})
	env.create(t, alice, NewEntry{Title: "c", Category: "work"})
	env.create(t, bob, NewEntry{Title: "d", Category: "secret-project"})

	stats, err := env.svc.Stats(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []string{"personal", "work"}, stats.Categories)
	require.Equal(t, []model.CategoryCount{{Category: "personal", Count: 1}, {Category: "work", Count: 2}}, stats.Counts)
	require.EqualValues(t, 3, stats.Total)
}

func TestStorageErrorsPropagate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	boom := errors.New("connection reset")
	env.store.Err = boom

	_, err := env.svc.Create(ctx, alice, NewEntry{Title: "x"})
	require.ErrorIs(t, err, boom)

	_, err = env.svc.List(ctx, alice, model.EntryFilter{})
	require.ErrorIs(t, err, boom)

	_, err = env.svc.Get(ctx, alice, 1)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Update(ctx, alice, 1, model.EntryUpdate{Title: strPtr("x")})
	require.ErrorIs(t, err, boom)

	_, err = env.svc.Stats(ctx, alice)
	require.ErrorIs(t, err, boom)
}

func titles(entries []*model.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Title)
	}
	return out
}
