package client

import "context"

// PDAWalletsResource manages program-derived-address wallets. Spending limits
// are enforced on-chain; the SDK passes them through.
type PDAWalletsResource struct{ c *Client }

// Create derives and initializes a PDA wallet under an authority wallet.
func (r *PDAWalletsResource) Create(ctx context.Context, p CreatePDAWalletParams) (*PDAWallet, error) {
	if p.AuthorityWalletID == "" {
		return nil, missing("authority_wallet_id")
	}
	if p.AgentIDSeed == "" {
		return nil, missing("agent_id_seed")
	}
	var out PDAWallet
	if err := r.c.post(ctx, "/pda-wallets", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns PDA wallets. limit defaults to 50 when <= 0.
func (r *PDAWalletsResource) List(ctx context.Context, limit, offset int) (*ListResponse[PDAWallet], error) {
	return getList[PDAWallet](ctx, r.c, "/pda-wallets", "data", pageParams(limit, offset, 50))
}

// Get fetches a PDA wallet by ID.
func (r *PDAWalletsResource) Get(ctx context.Context, id string) (*PDAWallet, error) {
	p, err := route("/pda-wallets", seg("pda wallet id", id))
	if err != nil {
		return nil, err
	}
	var out PDAWallet
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// State reads the wallet's on-chain account.
func (r *PDAWalletsResource) State(ctx context.Context, id string) (*PDAWalletState, error) {
	p, err := route("/pda-wallets", seg("pda wallet id", id), lit("state"))
	if err != nil {
		return nil, err
	}
	var out PDAWalletState
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transfer sends lamports from the PDA wallet to recipient.
func (r *PDAWalletsResource) Transfer(ctx context.Context, id, recipient string, amountLamports int64) (*PDATransferResult, error) {
	p, err := route("/pda-wallets", seg("pda wallet id", id), lit("transfer"))
	if err != nil {
		return nil, err
	}
	if recipient == "" {
		return nil, missing("recipient")
	}
	body := map[string]any{"recipient": recipient, "amount_lamports": amountLamports}
	var out PDATransferResult
	if err := r.c.post(ctx, p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLimits changes the limits set in p.
func (r *PDAWalletsResource) UpdateLimits(ctx context.Context, id string, p UpdatePDALimitsParams) (*PDAWallet, error) {
	path, err := route("/pda-wallets", seg("pda wallet id", id), lit("limits"))
	if err != nil {
		return nil, err
	}
	var out PDAWallet
	if err := r.c.patch(ctx, path, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeriveAddress computes the PDA for an organization key and agent seed
// without creating anything.
func (r *PDAWalletsResource) DeriveAddress(ctx context.Context, orgPubkey, agentIDSeed string) (*PDADeriveResult, error) {
	if orgPubkey == "" {
		return nil, missing("org_pubkey")
	}
	if agentIDSeed == "" {
		return nil, missing("agent_id_seed")
	}
	body := map[string]any{"org_pubkey": orgPubkey, "agent_id_seed": agentIDSeed}
	var out PDADeriveResult
	if err := r.c.post(ctx, "/pda-wallets/derive", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
