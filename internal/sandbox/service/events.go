package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/audit"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
)

// Dispatcher delivers events to an org's webhooks. Dispatch must not block
// on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, orgID uuid.UUID, eventType string, data any)
}

// SetAuditLedger configures where state changes are recorded. Without one
// nothing is audited.
func (s *Service) SetAuditLedger(l audit.Ledger) { s.ledger = l }

// SetDispatcher configures webhook delivery.
func (s *Service) SetDispatcher(d Dispatcher) { s.dispatcher = d }

// Record audits and dispatches an event raised outside Service, such as a
// webhook being created.
func (s *Service) Record(ctx context.Context, orgID uuid.UUID, eventType, resourceType string, resourceID uuid.UUID, data any) {
	s.emit(ctx, orgID, eventType, resourceType, resourceID, auth.CallerFrom(ctx), data)
}

// emit appends to the audit ledger and notifies webhooks. Failures are
// logged and never fail the operation that raised the event.
func (s *Service) emit(ctx context.Context, orgID uuid.UUID, eventType, resourceType string, resourceID uuid.UUID, actor auth.Caller, data any) {
	if s.ledger != nil {
		_, err := s.ledger.Append(ctx, audit.Record{
			OrgID:        orgID,
			EventType:    eventType,
			ActorID:      actor.ID,
			ActorType:    actor.Type,
			ResourceType: resourceType,
			ResourceID:   resourceID.String(),
			Details:      details(data),
			IPAddress:    actor.IP,
		})
		if err != nil {
			s.logger.Warn("audit append failed",
				zap.String("event_type", eventType),
				zap.String("resource_id", resourceID.String()),
				zap.Error(err),
			)
		}
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, orgID, eventType, data)
	}
}

// agentCaller attributes an event to the agent acting on a job, keeping the
// request's IP.
func agentCaller(ctx context.Context, agentID uuid.UUID) auth.Caller {
	c := auth.CallerFrom(ctx)
	return auth.Caller{Type: auth.CallerAgent, ID: agentID.String(), IP: c.IP}
}

// details converts data to the JSON object stored with an audit event.
func details(data any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	if m, ok := data.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{"value": json.RawMessage(raw)}
	}
	return out
}

// AuditLog returns a page of orgID's audit events, newest first.
func (s *Service) AuditLog(ctx context.Context, orgID uuid.UUID, f audit.Filter, limit, offset int) ([]*audit.Event, int, error) {
	if s.ledger == nil {
		return []*audit.Event{}, 0, nil
	}
	return s.ledger.List(ctx, orgID, f, limit, offset)
}
