package client

import (
	"context"
	"time"
)

// AuditEvent is an entry in the organization's hash-chained audit log.
type AuditEvent struct {
	Index        int        `json:"index"`
	ID           string     `json:"id"`
	OrgID        string     `json:"org_id"`
	EventType    string     `json:"event_type"`
	ActorID      string     `json:"actor_id"`
	ActorType    string     `json:"actor_type"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	Details      JSONObject `json:"details"`
	IPAddress    *string    `json:"ip_address"`
	CreatedAt    time.Time  `json:"created_at"`
	PrevHash     string     `json:"prev_hash"`
	Hash         string     `json:"hash"`
}

// AuditLogOptions filters ComplianceResource.AuditLog. Limit defaults to 50.
type AuditLogOptions struct {
	EventType    string
	ResourceType string
	ResourceID   string
	Limit        int
	Offset       int
}

// ComplianceResource reads the audit log.
type ComplianceResource struct{ c *Client }

// AuditLog returns audit events, newest first.
func (r *ComplianceResource) AuditLog(ctx context.Context, opts AuditLogOptions) (*ListResponse[AuditEvent], error) {
	params := pageParams(opts.Limit, opts.Offset, 50)
	params["event_type"] = opts.EventType
	params["resource_type"] = opts.ResourceType
	params["resource_id"] = opts.ResourceID
	return getList[AuditEvent](ctx, r.c, "/compliance/audit-log", "data", params)
}
