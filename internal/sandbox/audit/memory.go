package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory, thread-safe Ledger.
type MemoryLedger struct {
	mu     sync.RWMutex
	events []*Event
	now    func() time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{now: time.Now}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, r Record) (*Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevIdx, prevHash := -1, GenesisHash
	if n := len(l.events); n > 0 {
		prevIdx, prevHash = l.events[n-1].Index, l.events[n-1].Hash
	}
	e, err := newEvent(r, prevIdx, prevHash, l.now())
	if err != nil {
		return nil, err
	}
	l.events = append(l.events, e)
	return clone(e), nil
}

// List implements Ledger.
func (l *MemoryLedger) List(_ context.Context, orgID uuid.UUID, f Filter, limit, offset int) ([]*Event, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []*Event
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.OrgID == orgID && f.match(e) {
			matched = append(matched, e)
		}
	}
	total := len(matched)
	if offset >= total {
		return []*Event{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	out := make([]*Event, len(matched))
	for i, e := range matched {
		out[i] = clone(e)
	}
	return out, total, nil
}

// Verify implements Ledger.
func (l *MemoryLedger) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v := newChainVerifier()
	for _, e := range l.events {
		if err := v.check(e); err != nil {
			return err
		}
	}
	return nil
}

// Root implements Ledger.
func (l *MemoryLedger) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.events) == 0 {
		return GenesisHash, nil
	}
	return l.events[len(l.events)-1].Hash, nil
}

func clone(e *Event) *Event {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	if e.IPAddress != nil {
		ip := *e.IPAddress
		cp.IPAddress = &ip
	}
	return &cp
}
