package webhooks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a webhook does not exist in the caller's org.
var ErrNotFound = errors.New("webhook not found")

// Repository persists webhooks and their delivery log. Lookups are scoped
// to an org.
type Repository interface {
	Create(ctx context.Context, w *Webhook) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*Webhook, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*Webhook, error)
	Update(ctx context.Context, w *Webhook) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	// ListActive returns orgID's active webhooks.
	ListActive(ctx context.Context, orgID uuid.UUID) ([]*Webhook, error)

	RecordDelivery(ctx context.Context, d *Delivery) error
	// ListDeliveries returns a webhook's attempts, newest first.
	ListDeliveries(ctx context.Context, webhookID uuid.UUID, limit int) ([]*Delivery, error)
}

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu         sync.RWMutex
	webhooks   map[uuid.UUID]*Webhook
	deliveries map[uuid.UUID][]*Delivery
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		webhooks:   make(map[uuid.UUID]*Webhook),
		deliveries: make(map[uuid.UUID][]*Delivery),
	}
}

func (r *MemoryRepository) Create(_ context.Context, w *Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks[w.ID] = cloneWebhook(w)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, orgID, id uuid.UUID) (*Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.webhooks[id]
	if !ok || w.OrgID != orgID {
		return nil, ErrNotFound
	}
	return cloneWebhook(w), nil
}

func (r *MemoryRepository) List(_ context.Context, orgID uuid.UUID) ([]*Webhook, error) {
	return r.list(orgID, false), nil
}

func (r *MemoryRepository) ListActive(_ context.Context, orgID uuid.UUID) ([]*Webhook, error) {
	return r.list(orgID, true), nil
}

func (r *MemoryRepository) list(orgID uuid.UUID, activeOnly bool) []*Webhook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Webhook{}
	for _, w := range r.webhooks {
		if w.OrgID == orgID && (!activeOnly || w.IsActive) {
			out = append(out, cloneWebhook(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *MemoryRepository) Update(_ context.Context, w *Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.webhooks[w.ID]
	if !ok || cur.OrgID != w.OrgID {
		return ErrNotFound
	}
	r.webhooks[w.ID] = cloneWebhook(w)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, orgID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.webhooks[id]
	if !ok || w.OrgID != orgID {
		return ErrNotFound
	}
	delete(r.webhooks, id)
	delete(r.deliveries, id)
	return nil
}

func (r *MemoryRepository) RecordDelivery(_ context.Context, d *Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.webhooks[d.WebhookID]; !ok {
		// Deleted while a delivery was in flight.
		return nil
	}
	cp := *d
	r.deliveries[d.WebhookID] = append(r.deliveries[d.WebhookID], &cp)
	return nil
}

func (r *MemoryRepository) ListDeliveries(_ context.Context, webhookID uuid.UUID, limit int) ([]*Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.deliveries[webhookID]
	out := []*Delivery{}
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

func cloneWebhook(w *Webhook) *Webhook {
	cp := *w
	cp.Events = append([]string(nil), w.Events...)
	return &cp
}
