package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/audit"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/service"
)

type dispatched struct {
	org       uuid.UUID
	eventType string
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []dispatched
}

func (d *recordingDispatcher) Dispatch(_ context.Context, orgID uuid.UUID, eventType string, _ any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, dispatched{org: orgID, eventType: eventType})
}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	for i, e := range d.events {
		out[i] = e.eventType
	}
	return out
}

func TestEvents_jobLifecycle(t *testing.T) {
	f := newFixture(t)
	ledger := audit.NewMemoryLedger()
	disp := &recordingDispatcher{}
	f.svc.SetAuditLedger(ledger)
	f.svc.SetDispatcher(disp)

	ctx := auth.WithCaller(context.Background(), auth.Caller{Type: auth.CallerAPIKey, ID: "abc123", IP: "10.0.0.7"})
	job := f.createJob(t, nil)
	if _, err := f.svc.Negotiate(ctx, f.org, job.ID, f.seller, service.NegotiateInput{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Fund(ctx, f.org, job.ID, f.buyer); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SendMemo(ctx, f.org, job.ID, f.buyer, service.SendMemoInput{MemoType: "general"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Deliver(ctx, f.org, job.ID, f.seller, service.DeliverInput{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Evaluate(ctx, f.org, job.ID, f.buyer, service.EvaluateInput{Approved: ptr(false)}); err != nil {
		t.Fatal(err)
	}

	want := []string{
		model.EventJobCreated, model.EventJobNegotiated, model.EventJobFunded,
		model.EventMemoCreated, model.EventJobDelivered, model.EventJobDisputed,
	}
	got := disp.types()
	if len(got) != len(want) {
		t.Fatalf("dispatched %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}

	events, total, err := f.svc.AuditLog(ctx, f.org, audit.Filter{ResourceID: job.ID.String()}, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Fatalf("job audit total = %d, want 5", total)
	}
	latest := events[0]
	if latest.EventType != model.EventJobDisputed || latest.ActorType != auth.CallerAgent || latest.ActorID != f.buyer.String() {
		t.Errorf("latest event = %+v", latest)
	}
	if latest.IPAddress == nil || *latest.IPAddress != "10.0.0.7" {
		t.Errorf("ip = %v", latest.IPAddress)
	}
	if latest.Details["phase"] != "disputed" {
		t.Errorf("details phase = %v", latest.Details["phase"])
	}
	if err := ledger.Verify(ctx); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestEvents_failedTransitionNotRecorded(t *testing.T) {
	f := newFixture(t)
	disp := &recordingDispatcher{}
	f.svc.SetDispatcher(disp)
	job := f.createJob(t, nil)

	if _, err := f.svc.Fund(context.Background(), f.org, job.ID, f.buyer); err == nil {
		t.Fatal("fund before negotiate succeeded")
	}
	if got := disp.types(); len(got) != 1 || got[0] != model.EventJobCreated {
		t.Errorf("dispatched %v", got)
	}
}

func TestEvents_agentAttributedToCaller(t *testing.T) {
	f := newFixture(t)
	f.svc.SetAuditLedger(audit.NewMemoryLedger())
	ctx := auth.WithCaller(context.Background(), auth.Caller{Type: auth.CallerUser, ID: "op-1"})

	a, err := f.svc.CreateAgent(ctx, f.org, service.CreateAgentInput{Name: "audited"})
	if err != nil {
		t.Fatal(err)
	}
	events, _, err := f.svc.AuditLog(ctx, f.org, audit.Filter{EventType: model.EventAgentCreated}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ResourceID != a.ID.String() || events[0].ActorID != "op-1" || events[0].ActorType != auth.CallerUser {
		t.Errorf("events = %+v", events)
	}
}

func TestAuditLog_withoutLedger(t *testing.T) {
	f := newFixture(t)
	events, total, err := f.svc.AuditLog(context.Background(), f.org, audit.Filter{}, 10, 0)
	if err != nil || total != 0 || len(events) != 0 {
		t.Errorf("got %v, %d, %v", events, total, err)
	}
}
