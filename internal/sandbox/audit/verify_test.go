package audit

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func seeded(t *testing.T) *MemoryLedger {
	t.Helper()
	l := NewMemoryLedger()
	org := uuid.New()
	for _, typ := range []string{"acp.job.created", "acp.job.negotiated", "acp.job.funded"} {
		if _, err := l.Append(context.Background(), Record{
			OrgID: org, EventType: typ, ActorType: "agent", ActorID: "a1",
			ResourceType: "acp_job", ResourceID: "j1",
			Details: map[string]any{"phase": typ},
		}); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func TestVerify_detectsTampering(t *testing.T) {
	cases := []struct {
		name   string
		tamper func(l *MemoryLedger)
		want   string
	}{
		{"details", func(l *MemoryLedger) { l.events[1].Details["phase"] = "evaluated" }, "details were modified"},
		{"event type", func(l *MemoryLedger) { l.events[1].EventType = "acp.job.disputed" }, "invalid hash"},
		{"prev hash", func(l *MemoryLedger) { l.events[2].PrevHash = GenesisHash }, "chain broken"},
		{"removed event", func(l *MemoryLedger) { l.events = append(l.events[:1], l.events[2:]...) }, "gap"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := seeded(t)
			tc.tamper(l)
			err := l.Verify(context.Background())
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Verify() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}
