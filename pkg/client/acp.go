package client

import (
	"context"
	"net/http"

	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

// ACPResource drives Agent Commerce Protocol jobs, their memo logs, and
// resource offerings.
//
// Each transition method sends the acting agent's ID as a query parameter
// named after its role (seller_agent_id, buyer_agent_id, evaluator_agent_id)
// and returns the job snapshot the server produced. The SDK never checks
// the job's phase itself: calling a transition out of order is reported by
// the server as a validation error, and acting as the wrong role as an
// authentication error.
type ACPResource struct{ c *Client }

// CreateJob opens a job in the created phase on behalf of the buyer.
func (r *ACPResource) CreateJob(ctx context.Context, p CreateJobParams) (*AcpJob, error) {
	switch {
	case p.BuyerAgentID == "":
		return nil, missing("buyer_agent_id")
	case p.SellerAgentID == "":
		return nil, missing("seller_agent_id")
	case p.Title == "":
		return nil, missing("title")
	case p.Description == "":
		return nil, missing("description")
	}
	var out AcpJob
	if err := r.c.post(ctx, "/acp/jobs", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob fetches the current snapshot of a job.
func (r *ACPResource) GetJob(ctx context.Context, jobID string) (*AcpJob, error) {
	p, err := route("/acp/jobs", seg("job id", jobID))
	if err != nil {
		return nil, err
	}
	var out AcpJob
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobsOptions filters ACPResource.ListJobs. AgentID matches any
// participant. Limit defaults to 20.
type ListJobsOptions struct {
	AgentID string
	Phase   acp.Phase
	Limit   int
	Offset  int
}

// ListJobs returns jobs matching opts.
func (r *ACPResource) ListJobs(ctx context.Context, opts ListJobsOptions) (*ListResponse[AcpJob], error) {
	params := pageParams(opts.Limit, opts.Offset, 20)
	params["agent_id"] = opts.AgentID
	params["phase"] = opts.Phase
	return getList[AcpJob](ctx, r.c, "/acp/jobs", "jobs", params)
}

// Negotiate records the seller's terms and moves the job to negotiating.
func (r *ACPResource) Negotiate(ctx context.Context, jobID, sellerAgentID string, p NegotiateParams) (*AcpJob, error) {
	if p.AgreedTerms == nil {
		p.AgreedTerms = JSONObject{}
	}
	return r.transition(ctx, jobID, acp.TransitionNegotiate, sellerAgentID, p)
}

// Fund locks the buyer's funds and moves the job to funded.
func (r *ACPResource) Fund(ctx context.Context, jobID, buyerAgentID string) (*AcpJob, error) {
	return r.transition(ctx, jobID, acp.TransitionFund, buyerAgentID, nil)
}

// Deliver attaches the seller's result and moves the job to delivered.
func (r *ACPResource) Deliver(ctx context.Context, jobID, sellerAgentID string, p DeliverParams) (*AcpJob, error) {
	if p.ResultData == nil {
		p.ResultData = JSONObject{}
	}
	return r.transition(ctx, jobID, acp.TransitionDeliver, sellerAgentID, p)
}

// Evaluate closes the job: evaluated when approved, disputed otherwise.
func (r *ACPResource) Evaluate(ctx context.Context, jobID, evaluatorAgentID string, p EvaluateParams) (*AcpJob, error) {
	return r.transition(ctx, jobID, acp.TransitionEvaluate, evaluatorAgentID, p)
}

func (r *ACPResource) transition(ctx context.Context, jobID string, t acp.Transition, agentID string, body any) (*AcpJob, error) {
	role, err := acp.RoleFor(t)
	if err != nil {
		return nil, err
	}
	p, err := route("/acp/jobs", seg("job id", jobID), lit(string(t)))
	if err != nil {
		return nil, err
	}
	if agentID == "" {
		return nil, missing(role.QueryParam())
	}

	var out AcpJob
	opts := RequestOptions{JSON: body, Params: Params{role.QueryParam(): agentID}}
	if err := r.c.Do(ctx, http.MethodPost, p, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMemo appends a memo to a job's log. It never changes the job.
func (r *ACPResource) SendMemo(ctx context.Context, jobID, senderAgentID string, p SendMemoParams) (*AcpMemo, error) {
	path, err := route("/acp/jobs", seg("job id", jobID), lit("memos"))
	if err != nil {
		return nil, err
	}
	if senderAgentID == "" {
		return nil, missing(acp.RoleSender.QueryParam())
	}
	if p.MemoType == "" {
		return nil, missing("memo_type")
	}
	if p.Content == nil {
		p.Content = JSONObject{}
	}

	var out AcpMemo
	opts := RequestOptions{JSON: p, Params: Params{acp.RoleSender.QueryParam(): senderAgentID}}
	if err := r.c.Do(ctx, http.MethodPost, path, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMemos returns a job's memos in the order the server recorded them.
func (r *ACPResource) ListMemos(ctx context.Context, jobID string) (*ListResponse[AcpMemo], error) {
	p, err := route("/acp/jobs", seg("job id", jobID), lit("memos"))
	if err != nil {
		return nil, err
	}
	return getList[AcpMemo](ctx, r.c, p, "memos", nil)
}

// CreateOffering advertises a capability of an agent. Nil schemas are sent
// as empty objects.
func (r *ACPResource) CreateOffering(ctx context.Context, p CreateOfferingParams) (*ResourceOffering, error) {
	if p.AgentID == "" {
		return nil, missing("agent_id")
	}
	if p.Name == "" {
		return nil, missing("name")
	}
	if p.Parameters == nil {
		p.Parameters = JSONObject{}
	}
	if p.ResponseSchema == nil {
		p.ResponseSchema = JSONObject{}
	}
	var out ResourceOffering
	if err := r.c.post(ctx, "/acp/offerings", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOfferingsOptions filters ACPResource.ListOfferings. Limit defaults to 20.
type ListOfferingsOptions struct {
	AgentID string
	Limit   int
	Offset  int
}

// ListOfferings returns offerings matching opts.
func (r *ACPResource) ListOfferings(ctx context.Context, opts ListOfferingsOptions) (*ListResponse[ResourceOffering], error) {
	params := pageParams(opts.Limit, opts.Offset, 20)
	params["agent_id"] = opts.AgentID
	return getList[ResourceOffering](ctx, r.c, "/acp/offerings", "offerings", params)
}
