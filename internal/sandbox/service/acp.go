package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

// CreateJobInput is the payload for CreateJob.
type CreateJobInput struct {
	BuyerAgentID        uuid.UUID      `json:"buyer_agent_id"`
	SellerAgentID       uuid.UUID      `json:"seller_agent_id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	PriceUSDC           float64        `json:"price_usdc"`
	ServiceID           *uuid.UUID     `json:"service_id"`
	EvaluatorAgentID    *uuid.UUID     `json:"evaluator_agent_id"`
	Requirements        map[string]any `json:"requirements"`
	Deliverables        map[string]any `json:"deliverables"`
	FundTransfer        bool           `json:"fund_transfer"`
	PrincipalAmountUSDC *float64       `json:"principal_amount_usdc"`
}

// CreateJob opens a job in the created phase and records the buyer's
// job_request memo with it.
func (s *Service) CreateJob(ctx context.Context, orgID uuid.UUID, in CreateJobInput) (*model.Job, error) {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return nil, invalid("title is required")
	case strings.TrimSpace(in.Description) == "":
		return nil, invalid("description is required")
	case in.PriceUSDC < 0:
		return nil, invalid("price_usdc must not be negative")
	case in.PrincipalAmountUSDC != nil && *in.PrincipalAmountUSDC < 0:
		return nil, invalid("principal_amount_usdc must not be negative")
	}

	participants := map[string]*uuid.UUID{
		"buyer_agent_id":  &in.BuyerAgentID,
		"seller_agent_id": &in.SellerAgentID,
	}
	if in.EvaluatorAgentID != nil {
		participants["evaluator_agent_id"] = in.EvaluatorAgentID
	}
	for field, id := range participants {
		if *id == uuid.Nil {
			return nil, invalid("%s is required", field)
		}
		if _, err := s.store.GetAgent(ctx, orgID, *id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("%s: agent %s not found", field, *id)
			}
			return nil, err
		}
	}

	now := s.now()
	job := &model.Job{
		ID:                  uuid.New(),
		OrgID:               orgID,
		BuyerAgentID:        in.BuyerAgentID,
		SellerAgentID:       in.SellerAgentID,
		EvaluatorAgentID:    in.EvaluatorAgentID,
		ServiceID:           in.ServiceID,
		Title:               in.Title,
		Description:         in.Description,
		PriceUSDC:           in.PriceUSDC,
		Phase:               acp.PhaseCreated,
		Status:              acp.StatusOpen,
		Requirements:        in.Requirements,
		Deliverables:        in.Deliverables,
		FundTransfer:        in.FundTransfer,
		PrincipalAmountUSDC: in.PrincipalAmountUSDC,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if job.Requirements == nil {
		job.Requirements = map[string]any{}
	}
	if job.Deliverables == nil {
		job.Deliverables = map[string]any{}
	}
	memo := &model.Memo{
		ID:            uuid.New(),
		JobID:         job.ID,
		SenderAgentID: in.BuyerAgentID,
		MemoType:      acp.MemoJobRequest,
		Content:       map[string]any{"title": in.Title, "description": in.Description, "price_usdc": in.PriceUSDC},
		CreatedAt:     now,
	}
	if err := s.store.CreateJob(ctx, job, memo); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info("acp job created",
		zap.String("job_id", job.ID.String()),
		zap.String("buyer", job.BuyerAgentID.String()),
		zap.String("seller", job.SellerAgentID.String()),
	)
	s.emit(ctx, orgID, model.EventJobCreated, "acp_job", job.ID, agentCaller(ctx, job.BuyerAgentID), job)
	return job, nil
}

// GetJob returns a job of orgID.
func (s *Service) GetJob(ctx context.Context, orgID, id uuid.UUID) (*model.Job, error) {
	j, err := s.store.GetJob(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err, "acp job", id)
	}
	return j, nil
}

// ListJobs returns a page of orgID's jobs and the unpaged total.
func (s *Service) ListJobs(ctx context.Context, orgID uuid.UUID, f model.JobFilter, limit, offset int) ([]*model.Job, int, error) {
	if f.Phase != "" && !f.Phase.Valid() {
		return nil, 0, invalid("unknown phase %q", f.Phase)
	}
	return s.store.ListJobs(ctx, orgID, f, limit, offset)
}

// authorize reports whether actor may perform t on j. The evaluator may be
// the designated evaluator or, as a fallback, the buyer.
func authorize(j *model.Job, t acp.Transition, actor uuid.UUID) error {
	role, err := acp.RoleFor(t)
	if err != nil {
		return err
	}
	var ok bool
	switch role {
	case acp.RoleSeller:
		ok = actor == j.SellerAgentID
	case acp.RoleBuyer:
		ok = actor == j.BuyerAgentID
	case acp.RoleEvaluator:
		ok = actor == j.BuyerAgentID || (j.EvaluatorAgentID != nil && actor == *j.EvaluatorAgentID)
	}
	if !ok {
		return fmt.Errorf("%w: only the job's %s may %s", ErrForbiddenRole, role, t)
	}
	return nil
}

// applyFunc records a transition's payload on the job and returns the
// content of the memo that documents it.
type applyFunc func(j *model.Job, now time.Time) map[string]any

// transition moves a job through t under the store's per-job lock. The
// phase is checked before the role, so an out-of-order call is always
// reported as ErrInvalidTransition.
func (s *Service) transition(ctx context.Context, orgID, jobID uuid.UUID, t acp.Transition, actor uuid.UUID, approved bool, apply applyFunc) (*model.Job, error) {
	memoType, err := acp.MemoFor(t)
	if err != nil {
		return nil, err
	}

	job, err := s.store.MutateJob(ctx, orgID, jobID, func(j *model.Job) (*model.Memo, error) {
		next, err := acp.Next(j.Phase, t, approved)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		if err := authorize(j, t, actor); err != nil {
			return nil, err
		}

		now := s.now()
		content := apply(j, now)
		j.Phase = next
		j.UpdatedAt = now
		if next.IsTerminal() {
			j.Status = acp.StatusClosed
		}
		return &model.Memo{
			ID:            uuid.New(),
			JobID:         j.ID,
			SenderAgentID: actor,
			MemoType:      memoType,
			Content:       content,
			AdvancesPhase: true,
			CreatedAt:     now,
		}, nil
	})
	if err != nil {
		return nil, notFound(err, "acp job", jobID)
	}

	s.logger.Info("acp job transitioned",
		zap.String("job_id", job.ID.String()),
		zap.String("transition", string(t)),
		zap.String("phase", string(job.Phase)),
	)
	s.emit(ctx, orgID, model.EventForPhase(job.Phase), "acp_job", job.ID, agentCaller(ctx, actor), job)
	return job, nil
}

// NegotiateInput is the body of a negotiate call.
type NegotiateInput struct {
	AgreedTerms     map[string]any `json:"agreed_terms"`
	AgreedPriceUSDC *float64       `json:"agreed_price_usdc"`
}

// Negotiate records the seller's terms.
func (s *Service) Negotiate(ctx context.Context, orgID, jobID, seller uuid.UUID, in NegotiateInput) (*model.Job, error) {
	if in.AgreedPriceUSDC != nil && *in.AgreedPriceUSDC < 0 {
		return nil, invalid("agreed_price_usdc must not be negative")
	}
	terms := in.AgreedTerms
	if terms == nil {
		terms = map[string]any{}
	}
	return s.transition(ctx, orgID, jobID, acp.TransitionNegotiate, seller, true, func(j *model.Job, now time.Time) map[string]any {
		j.AgreedTerms = terms
		if in.AgreedPriceUSDC != nil {
			j.AgreedPriceUSDC = in.AgreedPriceUSDC
		}
		j.NegotiatedAt = &now
		return terms
	})
}

// Fund locks the buyer's funds. The sandbox only records the fact.
func (s *Service) Fund(ctx context.Context, orgID, jobID, buyer uuid.UUID) (*model.Job, error) {
	return s.transition(ctx, orgID, jobID, acp.TransitionFund, buyer, true, func(j *model.Job, now time.Time) map[string]any {
		amount := j.PriceUSDC
		if j.AgreedPriceUSDC != nil {
			amount = *j.AgreedPriceUSDC
		}
		j.FundedAt = &now
		return map[string]any{"funded": true, "amount_usdc": amount}
	})
}

// DeliverInput is the body of a deliver call.
type DeliverInput struct {
	ResultData map[string]any `json:"result_data"`
	Notes      *string        `json:"notes"`
}

// Deliver attaches the seller's result.
func (s *Service) Deliver(ctx context.Context, orgID, jobID, seller uuid.UUID, in DeliverInput) (*model.Job, error) {
	result := in.ResultData
	if result == nil {
		result = map[string]any{}
	}
	return s.transition(ctx, orgID, jobID, acp.TransitionDeliver, seller, true, func(j *model.Job, now time.Time) map[string]any {
		j.ResultData = result
		j.DeliveredAt = &now
		return map[string]any{"result": result, "notes": in.Notes}
	})
}

// EvaluateInput is the body of an evaluate call. Approved is required.
type EvaluateInput struct {
	Approved        *bool   `json:"approved"`
	EvaluationNotes *string `json:"evaluation_notes"`
	Rating          *int    `json:"rating"`
}

// Evaluate closes the job as evaluated or, when rejected, disputed.
func (s *Service) Evaluate(ctx context.Context, orgID, jobID, evaluator uuid.UUID, in EvaluateInput) (*model.Job, error) {
	if in.Approved == nil {
		return nil, invalid("approved is required")
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, invalid("rating must be between 1 and 5")
	}
	approved := *in.Approved
	return s.transition(ctx, orgID, jobID, acp.TransitionEvaluate, evaluator, approved, func(j *model.Job, now time.Time) map[string]any {
		j.EvaluationApproved = &approved
		j.EvaluationNotes = in.EvaluationNotes
		j.Rating = in.Rating
		j.EvaluatedAt = &now
		return map[string]any{"approved": approved, "notes": in.EvaluationNotes, "rating": in.Rating}
	})
}

// SendMemoInput is the body of a memo.
type SendMemoInput struct {
	MemoType  acp.MemoType   `json:"memo_type"`
	Content   map[string]any `json:"content"`
	Signature *string        `json:"signature"`
}

// SendMemo appends a memo from one of the job's participants. The job
// itself is not modified.
func (s *Service) SendMemo(ctx context.Context, orgID, jobID, sender uuid.UUID, in SendMemoInput) (*model.Memo, error) {
	if !in.MemoType.Valid() {
		return nil, invalid("unknown memo_type %q", in.MemoType)
	}
	job, err := s.GetJob(ctx, orgID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Participant(sender) {
		return nil, fmt.Errorf("%w: sender is not a participant of this job", ErrForbiddenRole)
	}
	m := &model.Memo{
		ID:            uuid.New(),
		JobID:         jobID,
		SenderAgentID: sender,
		MemoType:      in.MemoType,
		Content:       in.Content,
		Signature:     in.Signature,
		CreatedAt:     s.now(),
	}
	if m.Content == nil {
		m.Content = map[string]any{}
	}
	if err := s.store.AppendMemo(ctx, m); err != nil {
		return nil, notFound(err, "acp job", jobID)
	}
	s.emit(ctx, orgID, model.EventMemoCreated, "acp_memo", m.ID, agentCaller(ctx, sender), m)
	return m, nil
}

// ListMemos returns a job's memos in append order.
func (s *Service) ListMemos(ctx context.Context, orgID, jobID uuid.UUID) ([]*model.Memo, error) {
	if _, err := s.GetJob(ctx, orgID, jobID); err != nil {
		return nil, err
	}
	return s.store.ListMemos(ctx, jobID)
}

// CreateOfferingInput is the payload for CreateOffering.
type CreateOfferingInput struct {
	AgentID        uuid.UUID      `json:"agent_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	EndpointPath   string         `json:"endpoint_path"`
	Parameters     map[string]any `json:"parameters"`
	ResponseSchema map[string]any `json:"response_schema"`
}

// CreateOffering publishes an offering for one of orgID's agents.
// Parameters and ResponseSchema must compile as JSON Schema documents.
func (s *Service) CreateOffering(ctx context.Context, orgID uuid.UUID, in CreateOfferingInput) (*model.Offering, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name is required")
	}
	if in.EndpointPath != "" && !strings.HasPrefix(in.EndpointPath, "/") {
		return nil, invalid("endpoint_path must start with /")
	}
	if _, err := s.GetAgent(ctx, orgID, in.AgentID); err != nil {
		return nil, err
	}
	if in.Parameters == nil {
		in.Parameters = map[string]any{}
	}
	if in.ResponseSchema == nil {
		in.ResponseSchema = map[string]any{}
	}
	if err := compileSchema("parameters", in.Parameters); err != nil {
		return nil, err
	}
	if err := compileSchema("response_schema", in.ResponseSchema); err != nil {
		return nil, err
	}

	o := &model.Offering{
		ID:             uuid.New(),
		AgentID:        in.AgentID,
		OrgID:          orgID,
		Name:           in.Name,
		Description:    in.Description,
		EndpointPath:   in.EndpointPath,
		Parameters:     in.Parameters,
		ResponseSchema: in.ResponseSchema,
		IsActive:       true,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateOffering(ctx, o); err != nil {
		return nil, err
	}
	s.emit(ctx, orgID, model.EventOfferingCreated, "acp_offering", o.ID, agentCaller(ctx, o.AgentID), o)
	return o, nil
}

// ListOfferings returns a page of orgID's active offerings.
func (s *Service) ListOfferings(ctx context.Context, orgID uuid.UUID, agentID *uuid.UUID, limit, offset int) ([]*model.Offering, int, error) {
	return s.store.ListOfferings(ctx, orgID, agentID, limit, offset)
}

func compileSchema(field string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return invalid("%s: %v", field, err)
	}
	url := "mem://offering/" + field + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return invalid("%s: %v", field, err)
	}
	if _, err := c.Compile(url); err != nil {
		return invalid("%s is not a valid JSON Schema: %v", field, err)
	}
	return nil
}
