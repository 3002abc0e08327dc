package client

import "context"

// EscrowResource manages escrow contracts. Release, refund and dispute are
// executed by the backend; the SDK only requests them.
type EscrowResource struct{ c *Client }

// Create opens an escrow. ExpiresInHours defaults to 24.
func (r *EscrowResource) Create(ctx context.Context, p CreateEscrowParams) (*Escrow, error) {
	if p.FunderWalletID == "" {
		return nil, missing("funder_wallet_id")
	}
	if p.RecipientAddress == "" {
		return nil, missing("recipient_address")
	}
	conditions := p.Conditions
	if conditions == nil {
		conditions = JSONObject{}
	}
	hours := p.ExpiresInHours
	if hours <= 0 {
		hours = 24
	}
	body := map[string]any{
		"funder_wallet_id":  p.FunderWalletID,
		"recipient_address": p.RecipientAddress,
		"amount_sol":        p.AmountSol,
		"token_mint":        p.TokenMint,
		"arbiter_address":   p.ArbiterAddress,
		"conditions":        conditions,
		"expires_in_hours":  hours,
	}
	var out Escrow
	if err := r.c.post(ctx, "/escrow", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches an escrow by ID.
func (r *EscrowResource) Get(ctx context.Context, escrowID string) (*Escrow, error) {
	p, err := route("/escrow", seg("escrow id", escrowID))
	if err != nil {
		return nil, err
	}
	var out Escrow
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEscrowOptions filters EscrowResource.List. Limit defaults to 50.
type ListEscrowOptions struct {
	Status string
	Limit  int
	Offset int
}

// List returns escrows matching opts.
func (r *EscrowResource) List(ctx context.Context, opts ListEscrowOptions) (*ListResponse[Escrow], error) {
	params := pageParams(opts.Limit, opts.Offset, 50)
	params["status"] = opts.Status
	return getList[Escrow](ctx, r.c, "/escrow", "data", params)
}

// Release pays the escrowed funds to the recipient.
func (r *EscrowResource) Release(ctx context.Context, escrowID string) (*Escrow, error) {
	return r.action(ctx, escrowID, map[string]any{"action": "release"})
}

// Refund returns the escrowed funds to the funder.
func (r *EscrowResource) Refund(ctx context.Context, escrowID string) (*Escrow, error) {
	return r.action(ctx, escrowID, map[string]any{"action": "refund"})
}

// Dispute flags the escrow for arbitration.
func (r *EscrowResource) Dispute(ctx context.Context, escrowID, reason string) (*Escrow, error) {
	return r.action(ctx, escrowID, map[string]any{"action": "dispute", "reason": reason})
}

func (r *EscrowResource) action(ctx context.Context, escrowID string, body map[string]any) (*Escrow, error) {
	p, err := route("/escrow", seg("escrow id", escrowID), lit("action"))
	if err != nil {
		return nil, err
	}
	var out Escrow
	if err := r.c.post(ctx, p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
