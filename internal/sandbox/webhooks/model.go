// Package webhooks lets an org subscribe HTTP endpoints to sandbox events
// and delivers each event as a signed POST with retries.
package webhooks

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
)

// Delivery headers.
const (
	SignatureHeader = "X-AgentWallet-Signature"
	EventHeader     = "X-AgentWallet-Event"
	DeliveryHeader  = "X-AgentWallet-Delivery"
)

// Webhook is an org's subscription to a set of event types.
type Webhook struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscribed reports whether w wants events of type eventType.
func (w *Webhook) Subscribed(eventType string) bool {
	if !w.IsActive {
		return false
	}
	for _, e := range w.Events {
		if e == eventType || e == model.EventWildcard {
			return true
		}
	}
	return false
}

// WithSecret is returned once, on creation, so the caller can store the
// signing secret.
type WithSecret struct {
	*Webhook
	Secret string `json:"secret"`
}

// Event is the JSON body POSTed to subscribers.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	OrgID     uuid.UUID `json:"org_id"`
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data"`
}

// Delivery records the outcome of one delivery attempt.
type Delivery struct {
	ID           uuid.UUID `json:"id"`
	WebhookID    uuid.UUID `json:"webhook_id"`
	EventID      uuid.UUID `json:"event_id"`
	EventType    string    `json:"event_type"`
	StatusCode   int       `json:"status_code"`
	Attempt      int       `json:"attempt"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateInput is the payload for creating a webhook.
type CreateInput struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// Patch holds the fields Update changes; nil means unchanged.
type Patch struct {
	URL      *string  `json:"url"`
	Events   []string `json:"events"`
	IsActive *bool    `json:"is_active"`
}
