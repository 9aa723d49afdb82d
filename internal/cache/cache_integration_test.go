//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/testutil"
)

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	c, err := New(ctx, testutil.RequireEnv(t, "REDIS_URL"), Options{KeyPrefix: "passvault-test:"})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return ctx, c
}

func TestIntegrationSessionStore_RoundTrip(t *testing.T) {
	ctx, c := newCacheTestEnv(t)
	store := NewSessionStore(c, 30*time.Minute)

	got, err := store.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", got, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	sess := &model.Session{ID: "s1", UserID: 9, Username: "alice", Authenticated: true, CreatedAt: now, LastActivity: now}
	if err := store.Put(ctx, "k1", sess); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != 9 || !got.LastActivity.Equal(now) {
		t.Errorf("Get() = %+v", got)
	}

	ttl := c.Client().TTL(ctx, c.key(sessionPrefix, "k1")).Val()
	if ttl <= 30*time.Minute {
		t.Errorf("TTL = %v, want beyond the idle timeout", ttl)
	}

	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, "k1"); got != nil {
		t.Error("session still present after Delete")
	}
}

func TestIntegrationLoginRateLimit_Burst(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	for i := 0; i < 3; i++ {
		if res := c.CheckLoginRateLimit(ctx, "203.0.113.7", 1, 3); !res.Allowed {
			t.Fatalf("attempt %d denied within burst", i+1)
		}
	}
	res := c.CheckLoginRateLimit(ctx, "203.0.113.7", 1, 3)
	if res.Allowed {
		t.Fatal("attempt beyond burst allowed")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive", res.RetryAfter)
	}

	if res := c.CheckLoginRateLimit(ctx, "203.0.113.8", 1, 3); !res.Allowed {
		t.Error("a different IP should have its own bucket")
	}
}
