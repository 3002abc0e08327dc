package client

import "context"

// TransactionsResource transfers SOL and reads the transaction history.
type TransactionsResource struct{ c *Client }

// TransferSol sends SOL from one of the organization's wallets. Policy checks
// happen server-side; a rejected transfer surfaces as an *Error.
func (r *TransactionsResource) TransferSol(ctx context.Context, p TransferSolParams) (*Transaction, error) {
	if p.FromWalletID == "" {
		return nil, missing("from_wallet_id")
	}
	if p.ToAddress == "" {
		return nil, missing("to_address")
	}
	var out Transaction
	if err := r.c.post(ctx, "/transactions/transfer-sol", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchTransfer submits several transfers in one request.
func (r *TransactionsResource) BatchTransfer(ctx context.Context, transfers []BatchTransferItem) ([]Transaction, error) {
	if len(transfers) == 0 {
		return nil, missing("transfers")
	}
	var out []Transaction
	if err := r.c.post(ctx, "/transactions/batch-transfer", map[string]any{"transfers": transfers}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a transaction by ID.
func (r *TransactionsResource) Get(ctx context.Context, txID string) (*Transaction, error) {
	p, err := route("/transactions", seg("transaction id", txID))
	if err != nil {
		return nil, err
	}
	var out Transaction
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTransactionsOptions filters TransactionsResource.List. Limit defaults
// to 50.
type ListTransactionsOptions struct {
	AgentID  string
	WalletID string
	Status   string
	Limit    int
	Offset   int
}

// List returns transactions matching opts.
func (r *TransactionsResource) List(ctx context.Context, opts ListTransactionsOptions) (*ListResponse[Transaction], error) {
	params := pageParams(opts.Limit, opts.Offset, 50)
	params["agent_id"] = opts.AgentID
	params["wallet_id"] = opts.WalletID
	params["status"] = opts.Status
	return getList[Transaction](ctx, r.c, "/transactions", "data", params)
}
