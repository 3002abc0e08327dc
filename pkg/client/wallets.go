package client

import "context"

// WalletsResource manages custodial Solana wallets.
type WalletsResource struct{ c *Client }

// Create provisions a wallet. An empty WalletType means "agent".
func (r *WalletsResource) Create(ctx context.Context, p CreateWalletParams) (*Wallet, error) {
	walletType := p.WalletType
	if walletType == "" {
		walletType = "agent"
	}
	body := map[string]any{
		"agent_id":    p.AgentID,
		"wallet_type": walletType,
		"label":       p.Label,
	}
	var out Wallet
	if err := r.c.post(ctx, "/wallets", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a wallet by ID.
func (r *WalletsResource) Get(ctx context.Context, walletID string) (*Wallet, error) {
	p, err := route("/wallets", seg("wallet id", walletID))
	if err != nil {
		return nil, err
	}
	var out Wallet
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWalletsOptions filters WalletsResource.List. Limit defaults to 50.
type ListWalletsOptions struct {
	AgentID    string
	WalletType string
	Limit      int
	Offset     int
}

// List returns wallets matching opts.
func (r *WalletsResource) List(ctx context.Context, opts ListWalletsOptions) (*ListResponse[Wallet], error) {
	params := pageParams(opts.Limit, opts.Offset, 50)
	params["agent_id"] = opts.AgentID
	params["wallet_type"] = opts.WalletType
	return getList[Wallet](ctx, r.c, "/wallets", "data", params)
}

// Balance returns the on-chain balance of a wallet.
func (r *WalletsResource) Balance(ctx context.Context, walletID string) (*WalletBalance, error) {
	p, err := route("/wallets", seg("wallet id", walletID), lit("balance"))
	if err != nil {
		return nil, err
	}
	var out WalletBalance
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
