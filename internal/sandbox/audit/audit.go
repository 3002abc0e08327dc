// Package audit keeps an append-only, hash-chained log of state changes.
//
// Every event records the SHA-256 of its predecessor; the first event chains
// from GenesisHash. Tampering with any stored event, its details included,
// is detected by Verify.
//
// Two implementations of Ledger are provided:
//   - MemoryLedger: in-process, for tests and the in-memory sandbox.
//   - PostgresLedger: durable, used with the Postgres store.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the PrevHash of the first event in the chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Event is a single audit record.
type Event struct {
	Index        int            `json:"index"`
	ID           uuid.UUID      `json:"id"`
	OrgID        uuid.UUID      `json:"org_id"`
	EventType    string         `json:"event_type"`
	ActorID      string         `json:"actor_id"`
	ActorType    string         `json:"actor_type"` // user, agent, api_key, system
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      map[string]any `json:"details"`
	IPAddress    *string        `json:"ip_address"`
	CreatedAt    time.Time      `json:"created_at"`
	DataHash     string         `json:"data_hash"` // SHA-256 of Details as JSON
	PrevHash     string         `json:"prev_hash"`
	Hash         string         `json:"hash"`
}

// Record is the caller-supplied part of an Event.
type Record struct {
	OrgID        uuid.UUID
	EventType    string
	ActorID      string
	ActorType    string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IPAddress    string
}

// Filter narrows List. Empty fields apply no filter.
type Filter struct {
	EventType    string
	ResourceType string
	ResourceID   string
}

func (f Filter) match(e *Event) bool {
	return (f.EventType == "" || e.EventType == f.EventType) &&
		(f.ResourceType == "" || e.ResourceType == f.ResourceType) &&
		(f.ResourceID == "" || e.ResourceID == f.ResourceID)
}

// Ledger is the append-only audit log.
type Ledger interface {
	// Append adds an event chained to the current tip.
	Append(ctx context.Context, r Record) (*Event, error)

	// List returns a page of orgID's events, newest first, and the unpaged
	// total.
	List(ctx context.Context, orgID uuid.UUID, f Filter, limit, offset int) ([]*Event, int, error)

	// Verify walks the whole chain and returns nil if it is intact.
	Verify(ctx context.Context) error

	// Root returns the hash of the newest event, or GenesisHash when empty.
	Root(ctx context.Context) (string, error)
}

// newEvent builds the event that follows a tip with index prevIdx and hash
// prevHash.
func newEvent(r Record, prevIdx int, prevHash string, now time.Time) (*Event, error) {
	details := r.Details
	if details == nil {
		details = map[string]any{}
	}
	dataHash, err := hashDetails(details)
	if err != nil {
		return nil, err
	}
	e := &Event{
		Index:        prevIdx + 1,
		ID:           uuid.New(),
		OrgID:        r.OrgID,
		EventType:    r.EventType,
		ActorID:      r.ActorID,
		ActorType:    r.ActorType,
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Details:      details,
		// Postgres keeps microseconds; hash what will be read back.
		CreatedAt: now.UTC().Truncate(time.Microsecond),
		DataHash:  dataHash,
		PrevHash:  prevHash,
	}
	if r.IPAddress != "" {
		ip := r.IPAddress
		e.IPAddress = &ip
	}
	e.Hash = hashEvent(e)
	return e, nil
}

// hashEvent computes a deterministic SHA-256 over an event's fields.
func hashEvent(e *Event) string {
	ip := ""
	if e.IPAddress != nil {
		ip = *e.IPAddress
	}
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		e.Index, e.ID, e.CreatedAt.Format(time.RFC3339Nano), e.OrgID,
		e.EventType, e.ActorType, e.ActorID, e.ResourceType, e.ResourceID,
		ip, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func hashDetails(details map[string]any) (string, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// chainVerifier checks events one at a time in index order.
type chainVerifier struct {
	prevHash string
	prevIdx  int
}

func newChainVerifier() *chainVerifier {
	return &chainVerifier{prevHash: GenesisHash, prevIdx: -1}
}

func (v *chainVerifier) check(e *Event) error {
	if e.Index != v.prevIdx+1 {
		return fmt.Errorf("gap in audit chain before index %d", e.Index)
	}
	if e.PrevHash != v.prevHash {
		return fmt.Errorf("audit chain broken at index %d", e.Index)
	}
	dataHash, err := hashDetails(e.Details)
	if err != nil {
		return err
	}
	if dataHash != e.DataHash {
		return fmt.Errorf("audit event %d details were modified", e.Index)
	}
	if e.Hash != hashEvent(e) {
		return fmt.Errorf("audit event %d has invalid hash", e.Index)
	}
	v.prevHash, v.prevIdx = e.Hash, e.Index
	return nil
}
