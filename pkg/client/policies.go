package client

import "context"

// PoliciesResource manages spending policies. Rules are opaque to the SDK.
type PoliciesResource struct{ c *Client }

// Create adds a policy. ScopeType defaults to "org" and Priority to 100.
func (r *PoliciesResource) Create(ctx context.Context, p CreatePolicyParams) (*Policy, error) {
	if p.Name == "" {
		return nil, missing("name")
	}
	scope := p.ScopeType
	if scope == "" {
		scope = "org"
	}
	priority := p.Priority
	if priority == 0 {
		priority = 100
	}
	body := map[string]any{
		"name":       p.Name,
		"rules":      p.Rules,
		"scope_type": scope,
		"scope_id":   p.ScopeID,
		"priority":   priority,
	}
	var out Policy
	if err := r.c.post(ctx, "/policies", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a policy by ID.
func (r *PoliciesResource) Get(ctx context.Context, policyID string) (*Policy, error) {
	p, err := route("/policies", seg("policy id", policyID))
	if err != nil {
		return nil, err
	}
	var out Policy
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns policies. limit defaults to 50 when <= 0.
func (r *PoliciesResource) List(ctx context.Context, limit, offset int) (*ListResponse[Policy], error) {
	return getList[Policy](ctx, r.c, "/policies", "data", pageParams(limit, offset, 50))
}

// Update changes the fields set in p.
func (r *PoliciesResource) Update(ctx context.Context, policyID string, p UpdatePolicyParams) (*Policy, error) {
	path, err := route("/policies", seg("policy id", policyID))
	if err != nil {
		return nil, err
	}
	var out Policy
	if err := r.c.patch(ctx, path, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a policy.
func (r *PoliciesResource) Delete(ctx context.Context, policyID string) error {
	p, err := route("/policies", seg("policy id", policyID))
	if err != nil {
		return err
	}
	return r.c.delete(ctx, p)
}
