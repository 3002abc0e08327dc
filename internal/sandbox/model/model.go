// Package model holds the records the sandbox stores and serves. JSON tags
// match the AgentWallet wire format.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

// Org is a tenant. Every other record belongs to exactly one Org.
type Org struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Operator is a human dashboard user who signs in with email and password.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	OrgID        uuid.UUID `json:"org_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusPaused   AgentStatus = "paused"
	AgentStatusDisabled AgentStatus = "disabled"
)

// Valid reports whether s is a known status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusPaused, AgentStatusDisabled:
		return true
	}
	return false
}

// Agent is an AI agent registered to an org.
type Agent struct {
	ID           uuid.UUID      `json:"id"`
	OrgID        uuid.UUID      `json:"org_id"`
	Name         string         `json:"name"`
	Description  *string        `json:"description"`
	Capabilities []string       `json:"capabilities"`
	IsPublic     bool           `json:"is_public"`
	Status       AgentStatus    `json:"status"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Job is an ACP job. Optional fields stay nil until the transition that
// sets them.
type Job struct {
	ID                  uuid.UUID      `json:"id"`
	OrgID               uuid.UUID      `json:"org_id"`
	BuyerAgentID        uuid.UUID      `json:"buyer_agent_id"`
	SellerAgentID       uuid.UUID      `json:"seller_agent_id"`
	EvaluatorAgentID    *uuid.UUID     `json:"evaluator_agent_id"`
	ServiceID           *uuid.UUID     `json:"service_id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	PriceUSDC           float64        `json:"price_usdc"`
	AgreedPriceUSDC     *float64       `json:"agreed_price_usdc"`
	Phase               acp.Phase      `json:"phase"`
	Status              acp.Status     `json:"status"`
	Requirements        map[string]any `json:"requirements"`
	Deliverables        map[string]any `json:"deliverables"`
	AgreedTerms         map[string]any `json:"agreed_terms"`
	ResultData          map[string]any `json:"result_data"`
	EvaluationNotes     *string        `json:"evaluation_notes"`
	EvaluationApproved  *bool          `json:"evaluation_approved"`
	Rating              *int           `json:"rating"`
	FundTransfer        bool           `json:"fund_transfer"`
	PrincipalAmountUSDC *float64       `json:"principal_amount_usdc"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	NegotiatedAt        *time.Time     `json:"negotiated_at"`
	FundedAt            *time.Time     `json:"funded_at"`
	DeliveredAt         *time.Time     `json:"delivered_at"`
	EvaluatedAt         *time.Time     `json:"evaluated_at"`
}

// Clone returns a copy of j that shares no pointers with it. JSON payloads
// are copied at every depth.
func (j *Job) Clone() *Job {
	cp := *j
	cp.EvaluatorAgentID = clonePtr(j.EvaluatorAgentID)
	cp.ServiceID = clonePtr(j.ServiceID)
	cp.AgreedPriceUSDC = clonePtr(j.AgreedPriceUSDC)
	cp.EvaluationNotes = clonePtr(j.EvaluationNotes)
	cp.EvaluationApproved = clonePtr(j.EvaluationApproved)
	cp.Rating = clonePtr(j.Rating)
	cp.PrincipalAmountUSDC = clonePtr(j.PrincipalAmountUSDC)
	cp.NegotiatedAt = clonePtr(j.NegotiatedAt)
	cp.FundedAt = clonePtr(j.FundedAt)
	cp.DeliveredAt = clonePtr(j.DeliveredAt)
	cp.EvaluatedAt = clonePtr(j.EvaluatedAt)
	cp.Requirements = cloneMap(j.Requirements)
	cp.Deliverables = cloneMap(j.Deliverables)
	cp.AgreedTerms = cloneMap(j.AgreedTerms)
	cp.ResultData = cloneMap(j.ResultData)
	return &cp
}

// Participant reports whether agentID is the buyer, seller or evaluator.
func (j *Job) Participant(agentID uuid.UUID) bool {
	if agentID == j.BuyerAgentID || agentID == j.SellerAgentID {
		return true
	}
	return j.EvaluatorAgentID != nil && *j.EvaluatorAgentID == agentID
}

// Memo is an entry in a job's append-only log.
type Memo struct {
	ID            uuid.UUID      `json:"id"`
	JobID         uuid.UUID      `json:"job_id"`
	SenderAgentID uuid.UUID      `json:"sender_agent_id"`
	MemoType      acp.MemoType   `json:"memo_type"`
	Content       map[string]any `json:"content"`
	Signature     *string        `json:"signature"`
	AdvancesPhase bool           `json:"advances_phase"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Offering advertises a callable capability of an agent.
type Offering struct {
	ID             uuid.UUID      `json:"id"`
	AgentID        uuid.UUID      `json:"agent_id"`
	OrgID          uuid.UUID      `json:"org_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	EndpointPath   string         `json:"endpoint_path"`
	Parameters     map[string]any `json:"parameters"`
	ResponseSchema map[string]any `json:"response_schema"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
}

// JobFilter narrows ListJobs. Zero values apply no filter.
type JobFilter struct {
	AgentID *uuid.UUID // buyer, seller or evaluator
	Phase   acp.Phase
}

// Match reports whether j passes the filter.
func (f JobFilter) Match(j *Job) bool {
	if f.AgentID != nil && !j.Participant(*f.AgentID) {
		return false
	}
	return f.Phase == "" || j.Phase == f.Phase
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the containers a decoded JSON value can hold.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
