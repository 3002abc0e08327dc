package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type countingResolver struct {
	orgs  map[string]uuid.UUID
	calls int
}

var errUnknownKey = errors.New("unknown key")

func (r *countingResolver) OrgForAPIKey(_ context.Context, keyHash string) (uuid.UUID, error) {
	r.calls++
	id, ok := r.orgs[keyHash]
	if !ok {
		return uuid.Nil, errUnknownKey
	}
	return id, nil
}

func TestCachedKeyResolver(t *testing.T) {
	org := uuid.New()
	next := &countingResolver{orgs: map[string]uuid.UUID{"h1": org}}
	c := NewCachedKeyResolver(next, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.OrgForAPIKey(ctx, "h1")
		if err != nil || got != org {
			t.Fatalf("lookup %d: %v, %v", i, got, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("backing resolver called %d times, want 1", next.calls)
	}

	// Misses are not cached.
	for i := 0; i < 2; i++ {
		if _, err := c.OrgForAPIKey(ctx, "h2"); !errors.Is(err, errUnknownKey) {
			t.Fatalf("miss: %v", err)
		}
	}
	if next.calls != 3 {
		t.Errorf("calls after misses = %d, want 3", next.calls)
	}

	now = now.Add(2 * time.Minute)
	if n := c.Evict(); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if _, err := c.OrgForAPIKey(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if next.calls != 4 {
		t.Errorf("expired entry was served from cache")
	}

	c.Invalidate("h1")
	if _, err := c.OrgForAPIKey(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if next.calls != 5 {
		t.Errorf("invalidated entry was served from cache")
	}
}
