package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
)

// MemoryStore is an in-memory, thread-safe Store. State is lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	orgs      map[uuid.UUID]*model.Org
	keys      map[string]uuid.UUID
	operators map[string]*model.Operator // by lower-cased email
	agents    map[uuid.UUID]*model.Agent
	agentIDs  []uuid.UUID // insertion order
	jobs      map[uuid.UUID]*model.Job
	jobIDs    []uuid.UUID
	memos     map[uuid.UUID][]*model.Memo
	offerings []*model.Offering
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:      make(map[uuid.UUID]*model.Org),
		keys:      make(map[string]uuid.UUID),
		operators: make(map[string]*model.Operator),
		agents:    make(map[uuid.UUID]*model.Agent),
		jobs:      make(map[uuid.UUID]*model.Job),
		memos:     make(map[uuid.UUID][]*model.Memo),
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateOrg implements Store.
func (s *MemoryStore) CreateOrg(_ context.Context, org *model.Org) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

// PutAPIKey implements Store.
func (s *MemoryStore) PutAPIKey(_ context.Context, orgID uuid.UUID, keyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[orgID]; !ok {
		return ErrNotFound
	}
	s.keys[keyHash] = orgID
	return nil
}

// OrgForAPIKey implements Store.
func (s *MemoryStore) OrgForAPIKey(_ context.Context, keyHash string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[keyHash]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

// CreateOperator implements Store.
func (s *MemoryStore) CreateOperator(_ context.Context, op *model.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(op.Email)
	if _, ok := s.operators[key]; ok {
		return ErrConflict
	}
	cp := *op
	s.operators[key] = &cp
	return nil
}

// OperatorByEmail implements Store.
func (s *MemoryStore) OperatorByEmail(_ context.Context, email string) (*model.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *op
	return &cp, nil
}

// CreateAgent implements Store.
func (s *MemoryStore) CreateAgent(_ context.Context, agent *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *agent
	s.agents[agent.ID] = &cp
	s.agentIDs = append(s.agentIDs, agent.ID)
	return nil
}

// GetAgent implements Store.
func (s *MemoryStore) GetAgent(_ context.Context, orgID, id uuid.UUID) (*model.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok || a.OrgID != orgID {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// ListAgents implements Store. Newest agents come first.
func (s *MemoryStore) ListAgents(_ context.Context, orgID uuid.UUID, status model.AgentStatus, limit, offset int) ([]*model.Agent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Agent
	for i := len(s.agentIDs) - 1; i >= 0; i-- {
		a := s.agents[s.agentIDs[i]]
		if a.OrgID != orgID || (status != "" && a.Status != status) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return page(out, limit, offset), len(out), nil
}

// UpdateAgent implements Store.
func (s *MemoryStore) UpdateAgent(_ context.Context, agent *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.agents[agent.ID]
	if !ok || existing.OrgID != agent.OrgID {
		return ErrNotFound
	}
	cp := *agent
	s.agents[agent.ID] = &cp
	return nil
}

// CreateJob implements Store.
func (s *MemoryStore) CreateJob(_ context.Context, job *model.Job, memo *model.Memo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	s.jobIDs = append(s.jobIDs, job.ID)
	if memo != nil {
		cp := *memo
		s.memos[job.ID] = append(s.memos[job.ID], &cp)
	}
	return nil
}

// GetJob implements Store.
func (s *MemoryStore) GetJob(_ context.Context, orgID, id uuid.UUID) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok || j.OrgID != orgID {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// ListJobs implements Store. Newest jobs come first.
func (s *MemoryStore) ListJobs(_ context.Context, orgID uuid.UUID, f model.JobFilter, limit, offset int) ([]*model.Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Job
	for i := len(s.jobIDs) - 1; i >= 0; i-- {
		j := s.jobs[s.jobIDs[i]]
		if j.OrgID != orgID || !f.Match(j) {
			continue
		}
		out = append(out, j.Clone())
	}
	return page(out, limit, offset), len(out), nil
}

// MutateJob implements Store. The write lock is held for the whole call,
// so fn runs against the latest state.
func (s *MemoryStore) MutateJob(_ context.Context, orgID, id uuid.UUID, fn MutateFunc) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[id]
	if !ok || current.OrgID != orgID {
		return nil, ErrNotFound
	}
	work := current.Clone()
	memo, err := fn(work)
	if err != nil {
		return nil, err
	}
	s.jobs[id] = work.Clone()
	if memo != nil {
		cp := *memo
		s.memos[id] = append(s.memos[id], &cp)
	}
	return work, nil
}

// AppendMemo implements Store.
func (s *MemoryStore) AppendMemo(_ context.Context, memo *model.Memo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[memo.JobID]; !ok {
		return ErrNotFound
	}
	cp := *memo
	s.memos[memo.JobID] = append(s.memos[memo.JobID], &cp)
	return nil
}

// ListMemos implements Store. Memos are returned in append order.
func (s *MemoryStore) ListMemos(_ context.Context, jobID uuid.UUID) ([]*model.Memo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Memo, 0, len(s.memos[jobID]))
	for _, m := range s.memos[jobID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// CreateOffering implements Store.
func (s *MemoryStore) CreateOffering(_ context.Context, o *model.Offering) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.offerings = append(s.offerings, &cp)
	return nil
}

// ListOfferings implements Store. Only active offerings are listed.
func (s *MemoryStore) ListOfferings(_ context.Context, orgID uuid.UUID, agentID *uuid.UUID, limit, offset int) ([]*model.Offering, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Offering
	for _, o := range s.offerings {
		if o.OrgID != orgID || !o.IsActive || (agentID != nil && o.AgentID != *agentID) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return page(out, limit, offset), len(out), nil
}
