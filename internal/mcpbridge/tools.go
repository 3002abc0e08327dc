package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentwallet/agentwallet-go/pkg/acp"
	"github.com/agentwallet/agentwallet-go/pkg/client"
)

// ToolDefinition is the MCP tool descriptor sent in tools/list responses.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolFunc func(ctx context.Context, args json.RawMessage) (string, bool)

type tool struct {
	def    ToolDefinition
	schema *jsonschema.Schema
	call   toolFunc
}

func ok(v any) (string, bool) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return failf("encode result: %v", err)
	}
	return string(out), false
}

func fail(text string) (string, bool) { return text, true }
func failf(format string, a ...any) (string, bool) {
	return fmt.Sprintf(format, a...), true
}

// apiFail renders an SDK error for the model, keeping the error kind so it
// can tell a wrong phase from a missing job.
func apiFail(op string, err error) (string, bool) {
	if k := client.KindOf(err); k != client.KindUnknown {
		return failf("%s failed (%s): %v", op, k, err)
	}
	return failf("%s failed: %v", op, err)
}

// ToolRegistry holds the AgentWallet client and the definitions/handlers for
// all tools. Arguments are validated against each tool's input schema before
// its handler runs.
type ToolRegistry struct {
	c     *client.Client
	tools map[string]*tool
	order []string
}

func str(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// NewToolRegistry creates a ToolRegistry backed by the given client.
func NewToolRegistry(c *client.Client) (*ToolRegistry, error) {
	r := &ToolRegistry{c: c, tools: make(map[string]*tool)}

	phases := make([]string, 0, len(acp.Phases))
	for _, p := range acp.Phases {
		phases = append(phases, string(p))
	}

	defs := []struct {
		def  ToolDefinition
		call toolFunc
	}{
		{ToolDefinition{
			Name:        "list_agents",
			Description: "List the organization's AI agents with their status and capabilities.",
			InputSchema: object(map[string]any{
				"status": map[string]any{"type": "string", "enum": []string{"active", "paused", "disabled"}},
				"limit":  map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
			}),
		}, r.listAgents},
		{ToolDefinition{
			Name:        "create_agent",
			Description: "Register a new AI agent. Returns the agent with its ID.",
			InputSchema: object(map[string]any{
				"name":         str("Display name of the agent"),
				"description":  str("What the agent does"),
				"capabilities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			}, "name"),
		}, r.createAgent},
		{ToolDefinition{
			Name:        "get_wallet_balance",
			Description: "Fetch the SOL and token balances of a wallet.",
			InputSchema: object(map[string]any{"wallet_id": str("Wallet ID")}, "wallet_id"),
		}, r.walletBalance},
		{ToolDefinition{
			Name:        "analytics_summary",
			Description: "Summarize transaction volume and spend over the last N days.",
			InputSchema: object(map[string]any{
				"days": map[string]any{"type": "integer", "minimum": 1, "maximum": 365},
			}),
		}, r.analyticsSummary},
		{ToolDefinition{
			Name: "create_acp_job",
			Description: "Open an Agent Commerce Protocol job in which a buyer agent hires a seller agent. " +
				"The job then moves through negotiate, fund, deliver and evaluate.",
			InputSchema: object(map[string]any{
				"buyer_agent_id":     str("Agent paying for the work"),
				"seller_agent_id":    str("Agent doing the work"),
				"evaluator_agent_id": str("Agent judging the delivery. Defaults to the buyer."),
				"title":              str("Short job title"),
				"description":        str("What must be delivered"),
				"price_usdc":         map[string]any{"type": "number", "minimum": 0},
				"requirements":       map[string]any{"type": "object"},
			}, "buyer_agent_id", "seller_agent_id", "title", "description", "price_usdc"),
		}, r.createJob},
		{ToolDefinition{
			Name:        "get_acp_job",
			Description: "Fetch the current state of an ACP job, including its phase.",
			InputSchema: object(map[string]any{"job_id": str("Job ID")}, "job_id"),
		}, r.getJob},
		{ToolDefinition{
			Name:        "list_acp_jobs",
			Description: "List ACP jobs, optionally only those an agent takes part in or those in one phase.",
			InputSchema: object(map[string]any{
				"agent_id": str("Buyer, seller or evaluator agent ID"),
				"phase":    map[string]any{"type": "string", "enum": phases},
				"limit":    map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
			}),
		}, r.listJobs},
		{ToolDefinition{
			Name: "advance_acp_job",
			Description: "Move an ACP job to its next phase. negotiate and deliver are done by the seller, " +
				"fund by the buyer, evaluate by the evaluator. Transitions must happen in that order.",
			InputSchema: object(map[string]any{
				"job_id":            str("Job ID"),
				"transition":        map[string]any{"type": "string", "enum": []string{"negotiate", "fund", "deliver", "evaluate"}},
				"agent_id":          str("ID of the agent acting in the transition's role"),
				"agreed_terms":      map[string]any{"type": "object"},
				"agreed_price_usdc": map[string]any{"type": "number", "minimum": 0},
				"result_data":       map[string]any{"type": "object"},
				"notes":             str("Delivery or evaluation notes"),
				"approved":          map[string]any{"type": "boolean"},
				"rating":            map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
			}, "job_id", "transition", "agent_id"),
		}, r.advanceJob},
		{ToolDefinition{
			Name:        "send_acp_memo",
			Description: "Attach a message to an ACP job's memo log without changing the job.",
			InputSchema: object(map[string]any{
				"job_id":          str("Job ID"),
				"sender_agent_id": str("Participant sending the memo"),
				"memo_type": map[string]any{"type": "string", "enum": []string{
					"job_request", "agreement", "transaction", "deliverable", "evaluation", "general",
				}},
				"content": map[string]any{"type": "object"},
			}, "job_id", "sender_agent_id", "memo_type"),
		}, r.sendMemo},
		{ToolDefinition{
			Name:        "list_acp_memos",
			Description: "List the memo log of an ACP job in order.",
			InputSchema: object(map[string]any{"job_id": str("Job ID")}, "job_id"),
		}, r.listMemos},
		{ToolDefinition{
			Name:        "list_acp_offerings",
			Description: "List the services agents offer through ACP.",
			InputSchema: object(map[string]any{"agent_id": str("Only offerings of this agent")}),
		}, r.listOfferings},
		{ToolDefinition{
			Name:        "get_audit_log",
			Description: "Read the organization's audit log, newest first. Filter by event type or by the job, agent or webhook it concerns.",
			InputSchema: object(map[string]any{
				"event_type":  str("e.g. acp.job.funded"),
				"resource_id": str("ID of the job, agent or webhook"),
				"limit":       map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
			}),
		}, r.auditLog},
	}

	for _, d := range defs {
		schema, err := compileInputSchema(d.def)
		if err != nil {
			return nil, err
		}
		r.tools[d.def.Name] = &tool{def: d.def, schema: schema, call: d.call}
		r.order = append(r.order, d.def.Name)
	}
	return r, nil
}

func compileInputSchema(def ToolDefinition) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(def.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("tool %s: encode schema: %w", def.Name, err)
	}
	url := "mem://tools/" + def.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("tool %s: %w", def.Name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile schema: %w", def.Name, err)
	}
	return schema, nil
}

// Definitions returns the list of tool definitions for tools/list responses.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Call validates args and dispatches a tool call by name. It returns the
// output text and whether it reports an error.
func (r *ToolRegistry) Call(ctx context.Context, name string, args json.RawMessage) (string, bool) {
	t, found := r.tools[name]
	if !found {
		return failf("unknown tool: %q", name)
	}
	if len(bytes.TrimSpace(args)) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return failf("arguments are not valid JSON: %v", err)
	}
	if err := t.schema.Validate(v); err != nil {
		return failf("invalid arguments for %s: %v", name, err)
	}
	return t.call(ctx, args)
}

// ── tool handlers ────────────────────────────────────────────────────────────

func (r *ToolRegistry) listAgents(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		Status string `json:"status"`
		Limit  int    `json:"limit"`
	}
	_ = json.Unmarshal(args, &in)

	list, err := r.c.Agents.List(ctx, client.ListAgentsOptions{Status: in.Status, Limit: in.Limit})
	if err != nil {
		return apiFail("list agents", err)
	}
	if len(list.Data) == 0 {
		return "No agents found matching the given filters.", false
	}
	return ok(list)
}

func (r *ToolRegistry) createAgent(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		Capabilities []string `json:"capabilities"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail("invalid arguments")
	}
	p := client.CreateAgentParams{Name: in.Name, Capabilities: in.Capabilities}
	if in.Description != "" {
		p.Description = &in.Description
	}
	agent, err := r.c.Agents.Create(ctx, p)
	if err != nil {
		return apiFail("create agent", err)
	}
	return ok(agent)
}

func (r *ToolRegistry) walletBalance(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		WalletID string `json:"wallet_id"`
	}
	_ = json.Unmarshal(args, &in)
	bal, err := r.c.Wallets.Balance(ctx, in.WalletID)
	if err != nil {
		return apiFail("get balance", err)
	}
	return ok(bal)
}

func (r *ToolRegistry) analyticsSummary(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		Days int `json:"days"`
	}
	_ = json.Unmarshal(args, &in)
	sum, err := r.c.Analytics.Summary(ctx, in.Days)
	if err != nil {
		return apiFail("analytics summary", err)
	}
	return ok(sum)
}

func (r *ToolRegistry) createJob(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		BuyerAgentID     string            `json:"buyer_agent_id"`
		SellerAgentID    string            `json:"seller_agent_id"`
		EvaluatorAgentID string            `json:"evaluator_agent_id"`
		Title            string            `json:"title"`
		Description      string            `json:"description"`
		PriceUSDC        float64           `json:"price_usdc"`
		Requirements     client.JSONObject `json:"requirements"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail("invalid arguments")
	}
	job, err := r.c.ACP.CreateJob(ctx, client.CreateJobParams{
		BuyerAgentID:     in.BuyerAgentID,
		SellerAgentID:    in.SellerAgentID,
		EvaluatorAgentID: in.EvaluatorAgentID,
		Title:            in.Title,
		Description:      in.Description,
		PriceUSDC:        in.PriceUSDC,
		Requirements:     in.Requirements,
	})
	if err != nil {
		return apiFail("create job", err)
	}
	return ok(job)
}

func (r *ToolRegistry) getJob(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(args, &in)
	job, err := r.c.ACP.GetJob(ctx, in.JobID)
	if err != nil {
		return apiFail("get job", err)
	}
	return ok(job)
}

func (r *ToolRegistry) listJobs(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		AgentID string    `json:"agent_id"`
		Phase   acp.Phase `json:"phase"`
		Limit   int       `json:"limit"`
	}
	_ = json.Unmarshal(args, &in)
	list, err := r.c.ACP.ListJobs(ctx, client.ListJobsOptions{AgentID: in.AgentID, Phase: in.Phase, Limit: in.Limit})
	if err != nil {
		return apiFail("list jobs", err)
	}
	if len(list.Data) == 0 {
		return "No jobs found matching the given filters.", false
	}
	return ok(list)
}

func (r *ToolRegistry) advanceJob(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		JobID           string            `json:"job_id"`
		Transition      acp.Transition    `json:"transition"`
		AgentID         string            `json:"agent_id"`
		AgreedTerms     client.JSONObject `json:"agreed_terms"`
		AgreedPriceUSDC *float64          `json:"agreed_price_usdc"`
		ResultData      client.JSONObject `json:"result_data"`
		Notes           string            `json:"notes"`
		Approved        *bool             `json:"approved"`
		Rating          *int              `json:"rating"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail("invalid arguments")
	}

	var (
		job *client.AcpJob
		err error
	)
	switch in.Transition {
	case acp.TransitionNegotiate:
		job, err = r.c.ACP.Negotiate(ctx, in.JobID, in.AgentID, client.NegotiateParams{
			AgreedTerms:     in.AgreedTerms,
			AgreedPriceUSDC: in.AgreedPriceUSDC,
		})
	case acp.TransitionFund:
		job, err = r.c.ACP.Fund(ctx, in.JobID, in.AgentID)
	case acp.TransitionDeliver:
		job, err = r.c.ACP.Deliver(ctx, in.JobID, in.AgentID, client.DeliverParams{
			ResultData: in.ResultData,
			Notes:      in.Notes,
		})
	case acp.TransitionEvaluate:
		if in.Approved == nil {
			return fail("approved is required to evaluate")
		}
		job, err = r.c.ACP.Evaluate(ctx, in.JobID, in.AgentID, client.EvaluateParams{
			Approved:        *in.Approved,
			EvaluationNotes: in.Notes,
			Rating:          in.Rating,
		})
	default:
		return failf("unknown transition %q", in.Transition)
	}
	if err != nil {
		return apiFail(strings.ToLower(string(in.Transition)), err)
	}
	return ok(job)
}

func (r *ToolRegistry) sendMemo(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		JobID         string            `json:"job_id"`
		SenderAgentID string            `json:"sender_agent_id"`
		MemoType      acp.MemoType      `json:"memo_type"`
		Content       client.JSONObject `json:"content"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail("invalid arguments")
	}
	memo, err := r.c.ACP.SendMemo(ctx, in.JobID, in.SenderAgentID, client.SendMemoParams{
		MemoType: in.MemoType,
		Content:  in.Content,
	})
	if err != nil {
		return apiFail("send memo", err)
	}
	return ok(memo)
}

func (r *ToolRegistry) listMemos(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(args, &in)
	list, err := r.c.ACP.ListMemos(ctx, in.JobID)
	if err != nil {
		return apiFail("list memos", err)
	}
	return ok(list)
}

func (r *ToolRegistry) listOfferings(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		AgentID string `json:"agent_id"`
	}
	_ = json.Unmarshal(args, &in)
	list, err := r.c.ACP.ListOfferings(ctx, client.ListOfferingsOptions{AgentID: in.AgentID})
	if err != nil {
		return apiFail("list offerings", err)
	}
	if len(list.Data) == 0 {
		return "No offerings found.", false
	}
	return ok(list)
}

func (r *ToolRegistry) auditLog(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		EventType  string `json:"event_type"`
		ResourceID string `json:"resource_id"`
		Limit      int    `json:"limit"`
	}
	_ = json.Unmarshal(args, &in)
	list, err := r.c.Compliance.AuditLog(ctx, client.AuditLogOptions{
		EventType:  in.EventType,
		ResourceID: in.ResourceID,
		Limit:      in.Limit,
	})
	if err != nil {
		return apiFail("read audit log", err)
	}
	if len(list.Data) == 0 {
		return "No audit events found.", false
	}
	return ok(list)
}
