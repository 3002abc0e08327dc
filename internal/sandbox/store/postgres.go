package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

// PostgresStore persists sandbox records to PostgreSQL. The schema lives in
// Migrations.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

var _ Store = (*PostgresStore)(nil)

const uniqueViolation = "23505"

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func marshalJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalJSON(raw []byte) (map[string]any, error) {
	if raw == nil {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateOrg implements Store.
func (s *PostgresStore) CreateOrg(ctx context.Context, org *model.Org) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orgs (id, name, created_at) VALUES ($1, $2, $3)`,
		org.ID, org.Name, org.CreatedAt)
	return err
}

// PutAPIKey implements Store.
func (s *PostgresStore) PutAPIKey(ctx context.Context, orgID uuid.UUID, keyHash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (key_hash, org_id) VALUES ($1, $2)
		 ON CONFLICT (key_hash) DO UPDATE SET org_id = EXCLUDED.org_id`,
		keyHash, orgID)
	return err
}

// OrgForAPIKey implements Store.
func (s *PostgresStore) OrgForAPIKey(ctx context.Context, keyHash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT org_id FROM api_keys WHERE key_hash = $1`, keyHash).Scan(&id)
	return id, notFound(err)
}

// CreateOperator implements Store.
func (s *PostgresStore) CreateOperator(ctx context.Context, op *model.Operator) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO operators (id, org_id, email, password_hash, created_at)
		 VALUES ($1, $2, lower($3), $4, $5)`,
		op.ID, op.OrgID, op.Email, op.PasswordHash, op.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// OperatorByEmail implements Store.
func (s *PostgresStore) OperatorByEmail(ctx context.Context, email string) (*model.Operator, error) {
	var op model.Operator
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, email, password_hash, created_at FROM operators WHERE email = lower($1)`,
		email).Scan(&op.ID, &op.OrgID, &op.Email, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

// ── Agents ───────────────────────────────────────────────────────────────────

const agentColumns = `id, org_id, name, description, capabilities, is_public, status, metadata, created_at, updated_at`

// CreateAgent implements Store.
func (s *PostgresStore) CreateAgent(ctx context.Context, a *model.Agent) error {
	meta, err := marshalJSON(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO agents (`+agentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.OrgID, a.Name, a.Description, a.Capabilities, a.IsPublic,
		a.Status, meta, a.CreatedAt, a.UpdatedAt)
	return err
}

// GetAgent implements Store.
func (s *PostgresStore) GetAgent(ctx context.Context, orgID, id uuid.UUID) (*model.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1 AND org_id = $2`, id, orgID)
	a, err := scanAgent(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// ListAgents implements Store.
func (s *PostgresStore) ListAgents(ctx context.Context, orgID uuid.UUID, status model.AgentStatus, limit, offset int) ([]*model.Agent, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM agents WHERE org_id = $1 AND ($2 = '' OR status = $2)`,
		orgID, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents
		 WHERE org_id = $1 AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		orgID, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	agents := []*model.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, 0, err
		}
		agents = append(agents, a)
	}
	return agents, total, rows.Err()
}

// UpdateAgent implements Store.
func (s *PostgresStore) UpdateAgent(ctx context.Context, a *model.Agent) error {
	meta, err := marshalJSON(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET name = $3, description = $4, capabilities = $5, is_public = $6,
		        status = $7, metadata = $8, updated_at = $9
		 WHERE id = $1 AND org_id = $2`,
		a.ID, a.OrgID, a.Name, a.Description, a.Capabilities, a.IsPublic,
		a.Status, meta, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAgent(row pgx.Row) (*model.Agent, error) {
	var a model.Agent
	var meta []byte
	if err := row.Scan(&a.ID, &a.OrgID, &a.Name, &a.Description, &a.Capabilities,
		&a.IsPublic, &a.Status, &meta, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Metadata, err = unmarshalJSON(meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if a.Capabilities == nil {
		a.Capabilities = []string{}
	}
	return &a, nil
}

// ── Jobs ─────────────────────────────────────────────────────────────────────

const jobColumns = `id, org_id, buyer_agent_id, seller_agent_id, evaluator_agent_id, service_id,
	title, description, price_usdc, agreed_price_usdc, phase, status,
	requirements, deliverables, agreed_terms, result_data,
	evaluation_notes, evaluation_approved, rating, fund_transfer, principal_amount_usdc,
	created_at, updated_at, negotiated_at, funded_at, delivered_at, evaluated_at`

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func jobArgs(j *model.Job) ([]any, error) {
	var raw [4][]byte
	for i, m := range []map[string]any{j.Requirements, j.Deliverables, j.AgreedTerms, j.ResultData} {
		b, err := marshalJSON(m)
		if err != nil {
			return nil, fmt.Errorf("marshal job json: %w", err)
		}
		raw[i] = b
	}
	return []any{
		j.ID, j.OrgID, j.BuyerAgentID, j.SellerAgentID, j.EvaluatorAgentID, j.ServiceID,
		j.Title, j.Description, j.PriceUSDC, j.AgreedPriceUSDC, string(j.Phase), string(j.Status),
		raw[0], raw[1], raw[2], raw[3],
		j.EvaluationNotes, j.EvaluationApproved, j.Rating, j.FundTransfer, j.PrincipalAmountUSDC,
		j.CreatedAt, j.UpdatedAt, j.NegotiatedAt, j.FundedAt, j.DeliveredAt, j.EvaluatedAt,
	}, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var phase, status string
	var req, del, terms, result []byte
	if err := row.Scan(
		&j.ID, &j.OrgID, &j.BuyerAgentID, &j.SellerAgentID, &j.EvaluatorAgentID, &j.ServiceID,
		&j.Title, &j.Description, &j.PriceUSDC, &j.AgreedPriceUSDC, &phase, &status,
		&req, &del, &terms, &result,
		&j.EvaluationNotes, &j.EvaluationApproved, &j.Rating, &j.FundTransfer, &j.PrincipalAmountUSDC,
		&j.CreatedAt, &j.UpdatedAt, &j.NegotiatedAt, &j.FundedAt, &j.DeliveredAt, &j.EvaluatedAt,
	); err != nil {
		return nil, err
	}
	j.Phase = acp.Phase(phase)
	j.Status = acp.Status(status)

	var err error
	for _, f := range []struct {
		raw []byte
		dst *map[string]any
	}{{req, &j.Requirements}, {del, &j.Deliverables}, {terms, &j.AgreedTerms}, {result, &j.ResultData}} {
		if *f.dst, err = unmarshalJSON(f.raw); err != nil {
			return nil, fmt.Errorf("decode job json: %w", err)
		}
	}
	return &j, nil
}

func insertMemo(ctx context.Context, q querier, m *model.Memo) error {
	content, err := marshalJSON(m.Content)
	if err != nil {
		return fmt.Errorf("marshal memo content: %w", err)
	}
	_, err = q.Exec(ctx,
		`INSERT INTO acp_memos (id, job_id, sender_agent_id, memo_type, content, signature, advances_phase, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.JobID, m.SenderAgentID, string(m.MemoType), content, m.Signature, m.AdvancesPhase, m.CreatedAt)
	return err
}

// CreateJob implements Store.
func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job, memo *model.Memo) error {
	args, err := jobArgs(job)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO acp_jobs (`+jobColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`,
		args...); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if memo != nil {
		if err := insertMemo(ctx, tx, memo); err != nil {
			return fmt.Errorf("insert opening memo: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetJob implements Store.
func (s *PostgresStore) GetJob(ctx context.Context, orgID, id uuid.UUID) (*model.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM acp_jobs WHERE id = $1 AND org_id = $2`, id, orgID))
	if err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

// ListJobs implements Store.
func (s *PostgresStore) ListJobs(ctx context.Context, orgID uuid.UUID, f model.JobFilter, limit, offset int) ([]*model.Job, int, error) {
	const where = `WHERE org_id = $1
		AND ($2::uuid IS NULL OR buyer_agent_id = $2 OR seller_agent_id = $2 OR evaluator_agent_id = $2)
		AND ($3 = '' OR phase = $3)`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM acp_jobs `+where,
		orgID, f.AgentID, string(f.Phase)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM acp_jobs `+where+` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		orgID, f.AgentID, string(f.Phase), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	jobs := []*model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// MutateJob implements Store. The row is locked with SELECT ... FOR UPDATE
// for the duration of the transaction.
func (s *PostgresStore) MutateJob(ctx context.Context, orgID, id uuid.UUID, fn MutateFunc) (*model.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	job, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM acp_jobs WHERE id = $1 AND org_id = $2 FOR UPDATE`, id, orgID))
	if err != nil {
		return nil, notFound(err)
	}

	memo, err := fn(job)
	if err != nil {
		return nil, err
	}

	terms, err := marshalJSON(job.AgreedTerms)
	if err != nil {
		return nil, fmt.Errorf("marshal agreed terms: %w", err)
	}
	result, err := marshalJSON(job.ResultData)
	if err != nil {
		return nil, fmt.Errorf("marshal result data: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE acp_jobs SET
			agreed_price_usdc = $3, phase = $4, status = $5,
			agreed_terms = $6, result_data = $7,
			evaluation_notes = $8, evaluation_approved = $9, rating = $10,
			updated_at = $11, negotiated_at = $12, funded_at = $13, delivered_at = $14, evaluated_at = $15
		 WHERE id = $1 AND org_id = $2`,
		job.ID, job.OrgID,
		job.AgreedPriceUSDC, string(job.Phase), string(job.Status),
		terms, result,
		job.EvaluationNotes, job.EvaluationApproved, job.Rating,
		job.UpdatedAt, job.NegotiatedAt, job.FundedAt, job.DeliveredAt, job.EvaluatedAt,
	); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if memo != nil {
		if err := insertMemo(ctx, tx, memo); err != nil {
			return nil, fmt.Errorf("insert transition memo: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return job, nil
}

// ── Memos ────────────────────────────────────────────────────────────────────

// AppendMemo implements Store.
func (s *PostgresStore) AppendMemo(ctx context.Context, m *model.Memo) error {
	return insertMemo(ctx, s.pool, m)
}

// ListMemos implements Store.
func (s *PostgresStore) ListMemos(ctx context.Context, jobID uuid.UUID) ([]*model.Memo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, sender_agent_id, memo_type, content, signature, advances_phase, created_at
		 FROM acp_memos WHERE job_id = $1 ORDER BY seq`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memos := []*model.Memo{}
	for rows.Next() {
		var m model.Memo
		var memoType string
		var content []byte
		if err := rows.Scan(&m.ID, &m.JobID, &m.SenderAgentID, &memoType, &content,
			&m.Signature, &m.AdvancesPhase, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MemoType = acp.MemoType(memoType)
		if m.Content, err = unmarshalJSON(content); err != nil {
			return nil, fmt.Errorf("decode memo content: %w", err)
		}
		memos = append(memos, &m)
	}
	return memos, rows.Err()
}

// ── Offerings ────────────────────────────────────────────────────────────────

// CreateOffering implements Store.
func (s *PostgresStore) CreateOffering(ctx context.Context, o *model.Offering) error {
	params, err := marshalJSON(o.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	schema, err := marshalJSON(o.ResponseSchema)
	if err != nil {
		return fmt.Errorf("marshal response schema: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO acp_offerings (id, agent_id, org_id, name, description, endpoint_path,
		                            parameters, response_schema, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.AgentID, o.OrgID, o.Name, o.Description, o.EndpointPath,
		params, schema, o.IsActive, o.CreatedAt)
	return err
}

// ListOfferings implements Store.
func (s *PostgresStore) ListOfferings(ctx context.Context, orgID uuid.UUID, agentID *uuid.UUID, limit, offset int) ([]*model.Offering, int, error) {
	const where = `WHERE org_id = $1 AND is_active AND ($2::uuid IS NULL OR agent_id = $2)`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM acp_offerings `+where, orgID, agentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, org_id, name, description, endpoint_path, parameters, response_schema, is_active, created_at
		 FROM acp_offerings `+where+` ORDER BY created_at LIMIT $3 OFFSET $4`,
		orgID, agentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*model.Offering{}
	for rows.Next() {
		var o model.Offering
		var params, schema []byte
		if err := rows.Scan(&o.ID, &o.AgentID, &o.OrgID, &o.Name, &o.Description, &o.EndpointPath,
			&params, &schema, &o.IsActive, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		if o.Parameters, err = unmarshalJSON(params); err != nil {
			return nil, 0, fmt.Errorf("decode parameters: %w", err)
		}
		if o.ResponseSchema, err = unmarshalJSON(schema); err != nil {
			return nil, 0, fmt.Errorf("decode response schema: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	s.logger.Debug("listed offerings", zap.Int("count", len(out)), zap.Int("total", total))
	return out, total, nil
}
