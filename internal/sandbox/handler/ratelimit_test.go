package handler

import (
	"context"
	"testing"
	"time"
)

func TestLimiterSet_sweepDropsIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	set := newLimiterSet(1, 1)
	set.now = func() time.Time { return now }

	set.allow("key:old")
	now = now.Add(11 * time.Minute)
	set.allow("key:new")

	set.sweep(limiterIdleTTL)
	if n := set.size(); n != 1 {
		t.Fatalf("size after sweep = %d, want 1", n)
	}
	if _, ok := set.limiters["key:new"]; !ok {
		t.Error("recent caller was swept")
	}
}

func TestLimiterSet_bucketPerCaller(t *testing.T) {
	set := newLimiterSet(1, 1)
	if !set.allow("key:a") || set.allow("key:a") {
		t.Error("burst of 1 should allow exactly one request")
	}
	if !set.allow("key:b") {
		t.Error("a second caller has its own bucket")
	}
}

func TestLimiterSet_runStopsWithContext(t *testing.T) {
	set := newLimiterSet(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		set.run(ctx, time.Millisecond, limiterIdleTTL)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper still running after cancel")
	}
}
