package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey serialises Append across sandbox instances sharing a
// database.
const advisoryLockKey = int64(2_118_470_331)

const eventColumns = `idx, id, org_id, event_type, actor_id, actor_type, resource_type,
	resource_id, details, ip_address, created_at, data_hash, prev_hash, hash`

// PostgresLedger persists the audit chain in the audit_events table.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// Append implements Ledger. The tip is read and the new event inserted in
// one transaction holding an advisory lock.
func (l *PostgresLedger) Append(ctx context.Context, r Record) (*Event, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	prevIdx, prevHash := -1, GenesisHash
	err = tx.QueryRow(ctx, "SELECT idx, hash FROM audit_events ORDER BY idx DESC LIMIT 1").Scan(&prevIdx, &prevHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("read audit tip: %w", err)
	}

	e, err := newEvent(r, prevIdx, prevHash, time.Now())
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO audit_events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.Index, e.ID, e.OrgID, e.EventType, e.ActorID, e.ActorType, e.ResourceType,
		e.ResourceID, e.Details, e.IPAddress, e.CreatedAt, e.DataHash, e.PrevHash, e.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert audit event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit audit tx: %w", err)
	}

	l.logger.Debug("audit event appended",
		zap.Int("idx", e.Index),
		zap.String("event_type", e.EventType),
		zap.String("resource_id", e.ResourceID),
	)
	return e, nil
}

// List implements Ledger.
func (l *PostgresLedger) List(ctx context.Context, orgID uuid.UUID, f Filter, limit, offset int) ([]*Event, int, error) {
	where := []string{"org_id = $1"}
	args := []any{orgID}
	for col, val := range map[string]string{
		"event_type":    f.EventType,
		"resource_type": f.ResourceType,
		"resource_id":   f.ResourceID,
	} {
		if val != "" {
			args = append(args, val)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_events WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := l.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM audit_events WHERE %s ORDER BY idx DESC LIMIT $%d OFFSET $%d",
		eventColumns, cond, len(args)-1, len(args),
	), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// Verify implements Ledger. It streams every row in index order.
func (l *PostgresLedger) Verify(ctx context.Context) error {
	rows, err := l.pool.Query(ctx, "SELECT "+eventColumns+" FROM audit_events ORDER BY idx ASC")
	if err != nil {
		return fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	v := newChainVerifier()
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return err
		}
		if err := v.check(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Root implements Ledger.
func (l *PostgresLedger) Root(ctx context.Context) (string, error) {
	var hash string
	err := l.pool.QueryRow(ctx, "SELECT hash FROM audit_events ORDER BY idx DESC LIMIT 1").Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("get audit root: %w", err)
	}
	return hash, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	e := &Event{}
	if err := row.Scan(
		&e.Index, &e.ID, &e.OrgID, &e.EventType, &e.ActorID, &e.ActorType, &e.ResourceType,
		&e.ResourceID, &e.Details, &e.IPAddress, &e.CreatedAt, &e.DataHash, &e.PrevHash, &e.Hash,
	); err != nil {
		return nil, fmt.Errorf("scan audit event: %w", err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	return e, nil
}
