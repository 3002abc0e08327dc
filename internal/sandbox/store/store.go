// Package store persists sandbox records. MemoryStore backs tests and
// single-process runs; PostgresStore backs shared deployments.
package store

import (
	"context"
	"embed"
	"errors"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
)

// ErrNotFound is returned when a record does not exist in the caller's org.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique field (operator email) is taken.
var ErrConflict = errors.New("already exists")

// Migrations holds the Postgres schema, applied in filename order by
// Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MutateFunc edits a locked job in place and returns the memo to append in
// the same write, or nil. Returning an error aborts the write.
type MutateFunc func(job *model.Job) (*model.Memo, error)

// Store is implemented by MemoryStore and PostgresStore. Lookups are scoped
// to an org: a record in another org is reported as ErrNotFound.
type Store interface {
	CreateOrg(ctx context.Context, org *model.Org) error
	// PutAPIKey associates a hashed API key with an org.
	PutAPIKey(ctx context.Context, orgID uuid.UUID, keyHash string) error
	OrgForAPIKey(ctx context.Context, keyHash string) (uuid.UUID, error)

	CreateOperator(ctx context.Context, op *model.Operator) error
	OperatorByEmail(ctx context.Context, email string) (*model.Operator, error)

	CreateAgent(ctx context.Context, agent *model.Agent) error
	GetAgent(ctx context.Context, orgID, id uuid.UUID) (*model.Agent, error)
	ListAgents(ctx context.Context, orgID uuid.UUID, status model.AgentStatus, limit, offset int) ([]*model.Agent, int, error)
	UpdateAgent(ctx context.Context, agent *model.Agent) error

	// CreateJob inserts job together with its opening memo.
	CreateJob(ctx context.Context, job *model.Job, memo *model.Memo) error
	GetJob(ctx context.Context, orgID, id uuid.UUID) (*model.Job, error)
	ListJobs(ctx context.Context, orgID uuid.UUID, f model.JobFilter, limit, offset int) ([]*model.Job, int, error)
	// MutateJob serializes concurrent writers on one job: fn sees the
	// latest committed state and its changes are stored atomically with
	// the memo it returns.
	MutateJob(ctx context.Context, orgID, id uuid.UUID, fn MutateFunc) (*model.Job, error)

	AppendMemo(ctx context.Context, memo *model.Memo) error
	ListMemos(ctx context.Context, jobID uuid.UUID) ([]*model.Memo, error)

	CreateOffering(ctx context.Context, o *model.Offering) error
	ListOfferings(ctx context.Context, orgID uuid.UUID, agentID *uuid.UUID, limit, offset int) ([]*model.Offering, int, error)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
