package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

func newJob(orgID uuid.UUID) *model.Job {
	now := time.Now().UTC()
	return &model.Job{
		ID:            uuid.New(),
		OrgID:         orgID,
		BuyerAgentID:  uuid.New(),
		SellerAgentID: uuid.New(),
		Title:         "job",
		Phase:         acp.PhaseCreated,
		Status:        acp.StatusOpen,
		Requirements:  map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestMemoryStore_MutateJobSerializes(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	org := uuid.New()
	job := newJob(org)
	if err := s.CreateJob(ctx, job, nil); err != nil {
		t.Fatal(err)
	}

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MutateJob(ctx, org, job.ID, func(j *model.Job) (*model.Memo, error) {
				n, _ := j.Requirements["n"].(int)
				j.Requirements["n"] = n + 1
				return &model.Memo{ID: uuid.New(), JobID: j.ID, MemoType: acp.MemoGeneral}, nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := s.GetJob(ctx, org, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Requirements["n"] != writers {
		t.Errorf("lost updates: n=%v, want %d", got.Requirements["n"], writers)
	}
	memos, _ := s.ListMemos(ctx, job.ID)
	if len(memos) != writers {
		t.Errorf("expected %d memos, got %d", writers, len(memos))
	}
}

func TestMemoryStore_MutateJobErrorDiscardsChanges(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	org := uuid.New()
	job := newJob(org)
	if err := s.CreateJob(ctx, job, nil); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	_, err := s.MutateJob(ctx, org, job.ID, func(j *model.Job) (*model.Memo, error) {
		j.Phase = acp.PhaseFunded
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.GetJob(ctx, org, job.ID)
	if got.Phase != acp.PhaseCreated {
		t.Errorf("failed mutation leaked: phase=%s", got.Phase)
	}
}

func TestMemoryStore_orgScoping(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	org := uuid.New()
	job := newJob(org)
	if err := s.CreateJob(ctx, job, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetJob(ctx, uuid.New(), job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetJob: expected ErrNotFound, got %v", err)
	}
	_, err := s.MutateJob(ctx, uuid.New(), job.ID, func(*model.Job) (*model.Memo, error) { return nil, nil })
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("MutateJob: expected ErrNotFound, got %v", err)
	}
	_, total, err := s.ListJobs(ctx, uuid.New(), model.JobFilter{}, 10, 0)
	if err != nil || total != 0 {
		t.Errorf("ListJobs: total=%d err=%v", total, err)
	}
}

func TestMemoryStore_ListJobsPaging(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	org := uuid.New()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		j := newJob(org)
		ids = append(ids, j.ID)
		if err := s.CreateJob(ctx, j, nil); err != nil {
			t.Fatal(err)
		}
	}

	jobs, total, err := s.ListJobs(ctx, org, model.JobFilter{}, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(jobs) != 2 {
		t.Fatalf("got %d jobs of %d", len(jobs), total)
	}
	// Newest first: offset 1 skips the last created job.
	if jobs[0].ID != ids[3] || jobs[1].ID != ids[2] {
		t.Errorf("unexpected order")
	}

	jobs, _, _ = s.ListJobs(ctx, org, model.JobFilter{}, 10, 10)
	if jobs == nil || len(jobs) != 0 {
		t.Errorf("offset past the end should return an empty page, got %v", jobs)
	}
}

func TestMemoryStore_GetJobReturnsCopy(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	org := uuid.New()
	job := newJob(org)
	if err := s.CreateJob(ctx, job, nil); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetJob(ctx, org, job.ID)
	got.Requirements["mutated"] = true
	got.Phase = acp.PhaseFunded

	again, _ := s.GetJob(ctx, org, job.ID)
	if again.Phase != acp.PhaseCreated || again.Requirements["mutated"] != nil {
		t.Error("callers must not be able to mutate stored jobs")
	}
}
