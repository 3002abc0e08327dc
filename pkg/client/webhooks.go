package client

import (
	"context"
	"time"
)

// Webhook is an HTTP endpoint subscribed to account events.
type Webhook struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	// Secret signs deliveries. It is only returned by Create.
	Secret string `json:"secret,omitempty"`
}

// WebhookDelivery is one attempt to deliver an event.
type WebhookDelivery struct {
	ID           string    `json:"id"`
	WebhookID    string    `json:"webhook_id"`
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	StatusCode   int       `json:"status_code"`
	Attempt      int       `json:"attempt"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpdateWebhookParams changes a webhook; nil fields are left unchanged.
type UpdateWebhookParams struct {
	URL      *string  `json:"url,omitempty"`
	Events   []string `json:"events,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}

// WebhooksResource manages webhook subscriptions. Deliveries carry an
// X-AgentWallet-Signature header: "sha256=" and the hex HMAC-SHA256 of the
// body keyed by the webhook's secret.
type WebhooksResource struct{ c *Client }

// Create subscribes url to events ("*" for all). Store the returned Secret;
// it is not shown again.
func (r *WebhooksResource) Create(ctx context.Context, url string, events []string) (*Webhook, error) {
	if url == "" {
		return nil, missing("url")
	}
	if len(events) == 0 {
		return nil, missing("events")
	}
	var out Webhook
	if err := r.c.post(ctx, "/webhooks", map[string]any{"url": url, "events": events}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the organization's webhooks.
func (r *WebhooksResource) List(ctx context.Context) (*ListResponse[Webhook], error) {
	return getList[Webhook](ctx, r.c, "/webhooks", "data", nil)
}

// Update applies p to a webhook.
func (r *WebhooksResource) Update(ctx context.Context, webhookID string, p UpdateWebhookParams) (*Webhook, error) {
	path, err := route("/webhooks", seg("webhook id", webhookID))
	if err != nil {
		return nil, err
	}
	var out Webhook
	if err := r.c.patch(ctx, path, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a webhook.
func (r *WebhooksResource) Delete(ctx context.Context, webhookID string) error {
	path, err := route("/webhooks", seg("webhook id", webhookID))
	if err != nil {
		return err
	}
	return r.c.delete(ctx, path)
}

// Deliveries returns a webhook's recent delivery attempts, newest first.
func (r *WebhooksResource) Deliveries(ctx context.Context, webhookID string, limit int) (*ListResponse[WebhookDelivery], error) {
	path, err := route("/webhooks", seg("webhook id", webhookID), lit("deliveries"))
	if err != nil {
		return nil, err
	}
	var params Params
	if limit > 0 {
		params = Params{"limit": limit}
	}
	return getList[WebhookDelivery](ctx, r.c, path, "data", params)
}
