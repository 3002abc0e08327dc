package client

import "context"

// AnalyticsResource reports usage. A days value <= 0 means 30.
type AnalyticsResource struct{ c *Client }

func days(d int) int {
	if d <= 0 {
		return 30
	}
	return d
}

// Summary aggregates activity over the last days.
func (r *AnalyticsResource) Summary(ctx context.Context, d int) (*AnalyticsSummary, error) {
	var out AnalyticsSummary
	if err := r.c.get(ctx, "/analytics/summary", Params{"days": days(d)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Daily returns one row per day, optionally restricted to one agent.
func (r *AnalyticsResource) Daily(ctx context.Context, d int, agentID string) ([]JSONObject, error) {
	var out []JSONObject
	if err := r.c.get(ctx, "/analytics/daily", Params{"days": days(d), "agent_id": agentID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByAgent returns one row per agent.
func (r *AnalyticsResource) ByAgent(ctx context.Context, d int) ([]JSONObject, error) {
	var out []JSONObject
	if err := r.c.get(ctx, "/analytics/agents", Params{"days": days(d)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
