package model

import "github.com/agentwallet/agentwallet-go/pkg/acp"

// Event types written to the audit log and delivered to webhooks.
const (
	EventAgentCreated    = "agent.created"
	EventAgentUpdated    = "agent.updated"
	EventJobCreated      = "acp.job.created"
	EventJobNegotiated   = "acp.job.negotiated"
	EventJobFunded       = "acp.job.funded"
	EventJobDelivered    = "acp.job.delivered"
	EventJobEvaluated    = "acp.job.evaluated"
	EventJobDisputed     = "acp.job.disputed"
	EventMemoCreated     = "acp.memo.created"
	EventOfferingCreated = "acp.offering.created"
	EventWebhookCreated  = "webhook.created"
	EventWebhookDeleted  = "webhook.deleted"
	EventWildcard        = "*"
)

// EventTypes lists every event a webhook can subscribe to.
var EventTypes = []string{
	EventAgentCreated,
	EventAgentUpdated,
	EventJobCreated,
	EventJobNegotiated,
	EventJobFunded,
	EventJobDelivered,
	EventJobEvaluated,
	EventJobDisputed,
	EventMemoCreated,
	EventOfferingCreated,
	EventWebhookCreated,
	EventWebhookDeleted,
}

// KnownEvent reports whether t is in EventTypes or is the wildcard.
func KnownEvent(t string) bool {
	if t == EventWildcard {
		return true
	}
	for _, e := range EventTypes {
		if e == t {
			return true
		}
	}
	return false
}

// EventForPhase names the event emitted when a job enters p.
func EventForPhase(p acp.Phase) string {
	switch p {
	case acp.PhaseNegotiating:
		return EventJobNegotiated
	case acp.PhaseFunded:
		return EventJobFunded
	case acp.PhaseDelivered:
		return EventJobDelivered
	case acp.PhaseEvaluated:
		return EventJobEvaluated
	case acp.PhaseDisputed:
		return EventJobDisputed
	default:
		return EventJobCreated
	}
}
