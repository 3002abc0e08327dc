package client

import "context"

// AgentsResource manages AI agents.
type AgentsResource struct{ c *Client }

// Create registers a new agent. Capabilities and Metadata default to empty
// values rather than null.
func (r *AgentsResource) Create(ctx context.Context, p CreateAgentParams) (*Agent, error) {
	if p.Name == "" {
		return nil, missing("name")
	}
	capabilities := p.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}
	metadata := p.Metadata
	if metadata == nil {
		metadata = JSONObject{}
	}
	body := map[string]any{
		"name":         p.Name,
		"description":  p.Description,
		"capabilities": capabilities,
		"is_public":    p.IsPublic,
		"metadata":     metadata,
	}
	var out Agent
	if err := r.c.post(ctx, "/agents", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches an agent by ID.
func (r *AgentsResource) Get(ctx context.Context, agentID string) (*Agent, error) {
	p, err := route("/agents", seg("agent id", agentID))
	if err != nil {
		return nil, err
	}
	var out Agent
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAgentsOptions filters AgentsResource.List. Limit defaults to 50.
type ListAgentsOptions struct {
	Status string
	Limit  int
	Offset int
}

// List returns the organization's agents.
func (r *AgentsResource) List(ctx context.Context, opts ListAgentsOptions) (*ListResponse[Agent], error) {
	params := pageParams(opts.Limit, opts.Offset, 50)
	params["status"] = opts.Status
	return getList[Agent](ctx, r.c, "/agents", "data", params)
}

// Update changes the fields set in p.
func (r *AgentsResource) Update(ctx context.Context, agentID string, p UpdateAgentParams) (*Agent, error) {
	path, err := route("/agents", seg("agent id", agentID))
	if err != nil {
		return nil, err
	}
	var out Agent
	if err := r.c.patch(ctx, path, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
