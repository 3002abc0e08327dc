package webhooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const webhookColumns = `id, org_id, url, events, secret, is_active, created_at`

// PostgresRepository stores webhooks in the webhooks and
// webhook_deliveries tables.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, w *Webhook) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO webhooks (`+webhookColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.OrgID, w.URL, w.Events, w.Secret, w.IsActive, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, orgID, id uuid.UUID) (*Webhook, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = $1 AND org_id = $2`, id, orgID)
	return scanWebhook(row)
}

func (r *PostgresRepository) List(ctx context.Context, orgID uuid.UUID) ([]*Webhook, error) {
	return r.query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE org_id = $1 ORDER BY created_at`, orgID)
}

func (r *PostgresRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*Webhook, error) {
	return r.query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE org_id = $1 AND is_active ORDER BY created_at`, orgID)
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]*Webhook, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	out := []*Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, w *Webhook) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE webhooks SET url = $3, events = $4, is_active = $5 WHERE id = $1 AND org_id = $2`,
		w.ID, w.OrgID, w.URL, w.Events, w.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM webhooks WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDelivery inserts an attempt. Attempts for a webhook deleted in the
// meantime are dropped.
func (r *PostgresRepository) RecordDelivery(ctx context.Context, d *Delivery) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO webhook_deliveries
		   (id, webhook_id, event_id, event_type, status_code, attempt, success, error_message, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		 WHERE EXISTS (SELECT 1 FROM webhooks WHERE id = $2)`,
		d.ID, d.WebhookID, d.EventID, d.EventType, d.StatusCode, d.Attempt, d.Success, d.ErrorMessage, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListDeliveries(ctx context.Context, webhookID uuid.UUID, limit int) ([]*Delivery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, webhook_id, event_id, event_type, status_code, attempt, success, error_message, created_at
		 FROM webhook_deliveries WHERE webhook_id = $1 ORDER BY created_at DESC LIMIT $2`,
		webhookID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	out := []*Delivery{}
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.EventID, &d.EventType, &d.StatusCode,
			&d.Attempt, &d.Success, &d.ErrorMessage, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func scanWebhook(row pgx.Row) (*Webhook, error) {
	var w Webhook
	err := row.Scan(&w.ID, &w.OrgID, &w.URL, &w.Events, &w.Secret, &w.IsActive, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan webhook: %w", err)
	}
	return &w, nil
}
