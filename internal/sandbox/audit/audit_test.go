package audit_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/audit"
)

var ctx = context.Background()

func record(org uuid.UUID, eventType, resourceID string) audit.Record {
	return audit.Record{
		OrgID:        org,
		EventType:    eventType,
		ActorID:      "key123",
		ActorType:    "api_key",
		ResourceType: "acp_job",
		ResourceID:   resourceID,
		Details:      map[string]any{"phase": "funded", "amount_usdc": 12.5},
		IPAddress:    "10.0.0.1",
	}
}

func TestAppend_chainsFromGenesis(t *testing.T) {
	l := audit.NewMemoryLedger()
	org := uuid.New()

	e1, err := l.Append(ctx, record(org, "acp.job.created", "j1"))
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Append(ctx, record(org, "acp.job.funded", "j1"))
	if err != nil {
		t.Fatal(err)
	}

	if e1.Index != 0 || e1.PrevHash != audit.GenesisHash {
		t.Errorf("first event: index %d prev %q", e1.Index, e1.PrevHash)
	}
	if e2.PrevHash != e1.Hash {
		t.Errorf("chain broken: e2.PrevHash=%q, want %q", e2.PrevHash, e1.Hash)
	}
	if e2.IPAddress == nil || *e2.IPAddress != "10.0.0.1" {
		t.Errorf("ip_address = %v", e2.IPAddress)
	}

	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != e2.Hash {
		t.Errorf("Root() = %q, want %q", root, e2.Hash)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() on valid chain: %v", err)
	}
}

func TestRoot_emptyIsGenesis(t *testing.T) {
	l := audit.NewMemoryLedger()
	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != audit.GenesisHash {
		t.Errorf("Root() on empty ledger = %q", root)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() on empty ledger: %v", err)
	}
}

func TestAppend_returnsCopies(t *testing.T) {
	l := audit.NewMemoryLedger()
	org := uuid.New()

	e, err := l.Append(ctx, record(org, "acp.job.created", "j1"))
	if err != nil {
		t.Fatal(err)
	}
	e.Details["phase"] = "tampered"
	page, _, err := l.List(ctx, org, audit.Filter{}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	page[0].Details["amount_usdc"] = 0

	if err := l.Verify(ctx); err != nil {
		t.Errorf("mutating returned events changed the ledger: %v", err)
	}
}

func TestList_scopesAndFilters(t *testing.T) {
	l := audit.NewMemoryLedger()
	org, other := uuid.New(), uuid.New()

	for _, r := range []audit.Record{
		record(org, "acp.job.created", "j1"),
		record(org, "acp.job.funded", "j1"),
		record(org, "acp.job.created", "j2"),
		record(other, "acp.job.created", "j9"),
	} {
		if _, err := l.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	events, total, err := l.List(ctx, org, audit.Filter{}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(events) != 3 {
		t.Fatalf("org events: total %d len %d, want 3", total, len(events))
	}
	if events[0].ResourceID != "j2" {
		t.Errorf("events should be newest first, got %s first", events[0].ResourceID)
	}

	events, total, _ = l.List(ctx, org, audit.Filter{EventType: "acp.job.created"}, 10, 0)
	if total != 2 {
		t.Errorf("event_type filter: total %d, want 2", total)
	}
	for _, e := range events {
		if e.EventType != "acp.job.created" {
			t.Errorf("unexpected event %s", e.EventType)
		}
	}

	_, total, _ = l.List(ctx, org, audit.Filter{ResourceID: "j1"}, 10, 0)
	if total != 2 {
		t.Errorf("resource_id filter: total %d, want 2", total)
	}

	events, total, _ = l.List(ctx, org, audit.Filter{}, 1, 1)
	if total != 3 || len(events) != 1 || events[0].EventType != "acp.job.funded" {
		t.Errorf("paging: total %d events %v", total, events)
	}

	events, _, _ = l.List(ctx, org, audit.Filter{}, 10, 5)
	if events == nil || len(events) != 0 {
		t.Errorf("offset past end should give an empty page, got %v", events)
	}
}

func TestAppend_concurrentKeepsChain(t *testing.T) {
	l := audit.NewMemoryLedger()
	org := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Append(ctx, record(org, "agent.created", uuid.NewString())); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() after concurrent appends: %v", err)
	}
	_, total, _ := l.List(ctx, org, audit.Filter{}, 1, 0)
	if total != 50 {
		t.Errorf("total = %d, want 50", total)
	}
}
