package client

import (
	"time"

	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

// JSONObject is free-form structured data (metadata, terms, results, schemas).
type JSONObject = map[string]any

// ── Agents ───────────────────────────────────────────────────────────────────

// Agent is an AI agent registered to an organization.
type Agent struct {
	ID           string     `json:"id"`
	OrgID        string     `json:"org_id"`
	Name         string     `json:"name"`
	Description  *string    `json:"description"`
	Capabilities []string   `json:"capabilities"`
	IsPublic     bool       `json:"is_public"`
	Status       string     `json:"status"`
	Metadata     JSONObject `json:"metadata"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateAgentParams is the payload for AgentsResource.Create. Only Name is
// required.
type CreateAgentParams struct {
	Name         string
	Description  *string
	Capabilities []string
	IsPublic     bool
	Metadata     JSONObject
}

// UpdateAgentParams holds the fields to change; nil fields are not sent.
type UpdateAgentParams struct {
	Name         *string    `json:"name,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Capabilities []string   `json:"capabilities,omitempty"`
	IsPublic     *bool      `json:"is_public,omitempty"`
	Metadata     JSONObject `json:"metadata,omitempty"`
	Status       *string    `json:"status,omitempty"`
}

// ── Wallets ──────────────────────────────────────────────────────────────────

// Wallet is a custodial Solana wallet.
type Wallet struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"org_id"`
	AgentID    *string   `json:"agent_id"`
	WalletType string    `json:"wallet_type"`
	Label      *string   `json:"label"`
	SolAddress string    `json:"sol_address"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateWalletParams is the payload for WalletsResource.Create. All fields
// are optional; WalletType defaults to "agent".
type CreateWalletParams struct {
	AgentID    *string
	WalletType string
	Label      *string
}

// WalletBalance is the on-chain balance of a wallet.
type WalletBalance struct {
	WalletID        string  `json:"wallet_id"`
	SolAddress      string  `json:"sol_address"`
	BalanceSol      float64 `json:"balance_sol"`
	BalanceLamports int64   `json:"balance_lamports"`
}

// ── Transactions ─────────────────────────────────────────────────────────────

// Transaction is a transfer recorded by the platform.
type Transaction struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"org_id"`
	FromWalletID   string    `json:"from_wallet_id"`
	ToAddress      string    `json:"to_address"`
	AmountSol      float64   `json:"amount_sol"`
	AmountLamports int64     `json:"amount_lamports"`
	TxType         string    `json:"tx_type"`
	Status         string    `json:"status"`
	Signature      *string   `json:"signature"`
	Memo           *string   `json:"memo"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransferSolParams is the payload for TransactionsResource.TransferSol.
type TransferSolParams struct {
	FromWalletID   string  `json:"from_wallet_id"`
	ToAddress      string  `json:"to_address"`
	AmountSol      float64 `json:"amount_sol"`
	Memo           string  `json:"memo,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// BatchTransferItem is one transfer in a batch.
type BatchTransferItem struct {
	FromWalletID string  `json:"from_wallet_id"`
	ToAddress    string  `json:"to_address"`
	AmountSol    float64 `json:"amount_sol"`
	Memo         string  `json:"memo,omitempty"`
}

// ── Escrow ───────────────────────────────────────────────────────────────────

// Escrow is an escrow contract between a funder wallet and a recipient.
type Escrow struct {
	ID               string     `json:"id"`
	OrgID            string     `json:"org_id"`
	FunderWalletID   string     `json:"funder_wallet_id"`
	RecipientAddress string     `json:"recipient_address"`
	AmountSol        float64    `json:"amount_sol"`
	Status           string     `json:"status"`
	TokenMint        *string    `json:"token_mint"`
	ArbiterAddress   *string    `json:"arbiter_address"`
	Conditions       JSONObject `json:"conditions"`
	ExpiresAt        time.Time  `json:"expires_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreateEscrowParams is the payload for EscrowResource.Create.
// ExpiresInHours defaults to 24.
type CreateEscrowParams struct {
	FunderWalletID   string
	RecipientAddress string
	AmountSol        float64
	TokenMint        *string
	ArbiterAddress   *string
	Conditions       JSONObject
	ExpiresInHours   int
}

// ── Policies ─────────────────────────────────────────────────────────────────

// Policy is a spending policy. Rules are evaluated server-side.
type Policy struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"org_id"`
	Name      string     `json:"name"`
	Rules     JSONObject `json:"rules"`
	ScopeType string     `json:"scope_type"`
	ScopeID   *string    `json:"scope_id"`
	Priority  int        `json:"priority"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreatePolicyParams is the payload for PoliciesResource.Create.
// ScopeType defaults to "org" and Priority to 100.
type CreatePolicyParams struct {
	Name      string
	Rules     JSONObject
	ScopeType string
	ScopeID   *string
	Priority  int
}

// UpdatePolicyParams holds the fields to change; nil fields are not sent.
type UpdatePolicyParams struct {
	Name      *string    `json:"name,omitempty"`
	Rules     JSONObject `json:"rules,omitempty"`
	ScopeType *string    `json:"scope_type,omitempty"`
	ScopeID   *string    `json:"scope_id,omitempty"`
	Priority  *int       `json:"priority,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}

// ── Analytics ────────────────────────────────────────────────────────────────

// AnalyticsSummary aggregates an organization's activity over PeriodDays.
type AnalyticsSummary struct {
	TotalAgents       int     `json:"total_agents"`
	TotalWallets      int     `json:"total_wallets"`
	TotalTransactions int     `json:"total_transactions"`
	TotalVolumeSol    float64 `json:"total_volume_sol"`
	ActiveEscrows     int     `json:"active_escrows"`
	PeriodDays        int     `json:"period_days"`
}

// ── ACP ──────────────────────────────────────────────────────────────────────

// AcpJob is the server's authoritative snapshot of an ACP job. Every
// transition call returns a fresh AcpJob; callers replace, never patch, their
// copy.
type AcpJob struct {
	ID                  string     `json:"id"`
	OrgID               string     `json:"org_id"`
	BuyerAgentID        string     `json:"buyer_agent_id"`
	SellerAgentID       string     `json:"seller_agent_id"`
	EvaluatorAgentID    *string    `json:"evaluator_agent_id"`
	ServiceID           *string    `json:"service_id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	PriceUSDC           float64    `json:"price_usdc"`
	AgreedPriceUSDC     *float64   `json:"agreed_price_usdc"`
	Phase               acp.Phase  `json:"phase"`
	Status              acp.Status `json:"status"`
	Requirements        JSONObject `json:"requirements"`
	Deliverables        JSONObject `json:"deliverables"`
	AgreedTerms         JSONObject `json:"agreed_terms"`
	ResultData          JSONObject `json:"result_data"`
	EvaluationNotes     *string    `json:"evaluation_notes"`
	EvaluationApproved  *bool      `json:"evaluation_approved"`
	Rating              *int       `json:"rating"`
	FundTransfer        bool       `json:"fund_transfer"`
	PrincipalAmountUSDC *float64   `json:"principal_amount_usdc"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	NegotiatedAt        *time.Time `json:"negotiated_at"`
	FundedAt            *time.Time `json:"funded_at"`
	DeliveredAt         *time.Time `json:"delivered_at"`
	EvaluatedAt         *time.Time `json:"evaluated_at"`
}

// CreateJobParams is the payload for ACPResource.CreateJob. The buyer and
// seller IDs, Title, Description and PriceUSDC are required.
//
// PriceUSDC is always sent, so a zero price goes out as 0 and opens a free
// job. CreateJob cannot tell an unset price from 0; negative prices are
// rejected by the server.
type CreateJobParams struct {
	BuyerAgentID        string     `json:"buyer_agent_id"`
	SellerAgentID       string     `json:"seller_agent_id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	PriceUSDC           float64    `json:"price_usdc"`
	ServiceID           string     `json:"service_id,omitempty"`
	EvaluatorAgentID    string     `json:"evaluator_agent_id,omitempty"`
	Requirements        JSONObject `json:"requirements,omitempty"`
	Deliverables        JSONObject `json:"deliverables,omitempty"`
	FundTransfer        bool       `json:"fund_transfer"`
	PrincipalAmountUSDC *float64   `json:"principal_amount_usdc,omitempty"`
}

// NegotiateParams carries the seller's proposed terms.
type NegotiateParams struct {
	AgreedTerms     JSONObject `json:"agreed_terms"`
	AgreedPriceUSDC *float64   `json:"agreed_price_usdc,omitempty"`
}

// DeliverParams carries the seller's result payload.
type DeliverParams struct {
	ResultData JSONObject `json:"result_data"`
	Notes      string     `json:"notes,omitempty"`
}

// EvaluateParams carries the evaluator's verdict. Approved is always sent.
type EvaluateParams struct {
	Approved        bool   `json:"approved"`
	EvaluationNotes string `json:"evaluation_notes,omitempty"`
	Rating          *int   `json:"rating,omitempty"`
}

// AcpMemo is an entry in a job's append-only memo log.
type AcpMemo struct {
	ID            string       `json:"id"`
	JobID         string       `json:"job_id"`
	SenderAgentID string       `json:"sender_agent_id"`
	MemoType      acp.MemoType `json:"memo_type"`
	Content       JSONObject   `json:"content"`
	Signature     *string      `json:"signature"`
	AdvancesPhase bool         `json:"advances_phase"`
	CreatedAt     time.Time    `json:"created_at"`
}

// SendMemoParams is the payload for ACPResource.SendMemo.
type SendMemoParams struct {
	MemoType  acp.MemoType `json:"memo_type"`
	Content   JSONObject   `json:"content"`
	Signature string       `json:"signature,omitempty"`
}

// ResourceOffering advertises a callable capability of an agent.
type ResourceOffering struct {
	ID             string     `json:"id"`
	AgentID        string     `json:"agent_id"`
	OrgID          string     `json:"org_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	EndpointPath   string     `json:"endpoint_path"`
	Parameters     JSONObject `json:"parameters"`
	ResponseSchema JSONObject `json:"response_schema"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreateOfferingParams is the payload for ACPResource.CreateOffering.
type CreateOfferingParams struct {
	AgentID        string     `json:"agent_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	EndpointPath   string     `json:"endpoint_path"`
	Parameters     JSONObject `json:"parameters"`
	ResponseSchema JSONObject `json:"response_schema"`
}

// ── Swarms ───────────────────────────────────────────────────────────────────

// Swarm is a cluster of agents coordinated by an orchestrator.
type Swarm struct {
	ID                  string     `json:"id"`
	OrgID               string     `json:"org_id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	OrchestratorAgentID string     `json:"orchestrator_agent_id"`
	SwarmType           string     `json:"swarm_type"`
	Status              string     `json:"status"`
	MaxMembers          int        `json:"max_members"`
	IsPublic            bool       `json:"is_public"`
	Config              JSONObject `json:"config"`
	CreatedAt           time.Time  `json:"created_at"`
}

// CreateSwarmParams is the payload for SwarmsResource.Create. SwarmType
// defaults to "general" and MaxMembers to 10.
type CreateSwarmParams struct {
	Name                string
	Description         string
	OrchestratorAgentID string
	SwarmType           string
	MaxMembers          int
	IsPublic            bool
	Config              JSONObject
}

// SwarmMember is an agent's membership in a swarm.
type SwarmMember struct {
	ID             string    `json:"id"`
	SwarmID        string    `json:"swarm_id"`
	AgentID        string    `json:"agent_id"`
	Role           string    `json:"role"`
	Specialization *string   `json:"specialization"`
	IsContestable  bool      `json:"is_contestable"`
	Status         string    `json:"status"`
	JoinedAt       time.Time `json:"joined_at"`
}

// SwarmTask is a unit of work split into subtasks across swarm members.
type SwarmTask struct {
	ID            string       `json:"id"`
	SwarmID       string       `json:"swarm_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	TaskType      string       `json:"task_type"`
	Status        string       `json:"status"`
	ClientAgentID *string      `json:"client_agent_id"`
	Subtasks      []JSONObject `json:"subtasks"`
	Result        JSONObject   `json:"result"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ── PDA wallets ──────────────────────────────────────────────────────────────

// PDAWallet is a program-derived-address wallet with on-chain spending limits.
type PDAWallet struct {
	ID                 string    `json:"id"`
	OrgID              string    `json:"org_id"`
	PDAAddress         string    `json:"pda_address"`
	AuthorityWalletID  string    `json:"authority_wallet_id"`
	AgentID            *string   `json:"agent_id"`
	AgentIDSeed        string    `json:"agent_id_seed"`
	SpendingLimitPerTx int64     `json:"spending_limit_per_tx"`
	DailyLimit         int64     `json:"daily_limit"`
	Bump               int       `json:"bump"`
	IsActive           bool      `json:"is_active"`
	TxSignature        *string   `json:"tx_signature"`
	CreatedAt          time.Time `json:"created_at"`
}

// CreatePDAWalletParams is the payload for PDAWalletsResource.Create.
type CreatePDAWalletParams struct {
	AuthorityWalletID  string  `json:"authority_wallet_id"`
	AgentIDSeed        string  `json:"agent_id_seed"`
	SpendingLimitPerTx int64   `json:"spending_limit_per_tx"`
	DailyLimit         int64   `json:"daily_limit"`
	AgentID            *string `json:"agent_id"`
}

// UpdatePDALimitsParams holds the limits to change; nil fields are not sent.
type UpdatePDALimitsParams struct {
	SpendingLimitPerTx *int64 `json:"spending_limit_per_tx,omitempty"`
	DailyLimit         *int64 `json:"daily_limit,omitempty"`
	IsActive           *bool  `json:"is_active,omitempty"`
}

// PDAWalletState is the decoded on-chain account of a PDA wallet.
type PDAWalletState struct {
	PDAAddress         string  `json:"pda_address"`
	Authority          string  `json:"authority"`
	Org                string  `json:"org"`
	AgentID            string  `json:"agent_id"`
	SpendingLimitPerTx int64   `json:"spending_limit_per_tx"`
	DailyLimit         int64   `json:"daily_limit"`
	DailySpent         int64   `json:"daily_spent"`
	LastResetDay       int64   `json:"last_reset_day"`
	IsActive           bool    `json:"is_active"`
	Bump               int     `json:"bump"`
	SolBalance         float64 `json:"sol_balance"`
}

// PDATransferResult is the outcome of a PDA wallet transfer.
type PDATransferResult struct {
	Signature string `json:"signature"`
	Confirmed bool   `json:"confirmed"`
}

// PDADeriveResult is a derived PDA address and its bump seed.
type PDADeriveResult struct {
	PDAAddress string `json:"pda_address"`
	Bump       int    `json:"bump"`
}

// ── Auth ─────────────────────────────────────────────────────────────────────

// Session is an operator session token returned by AuthResource.Login.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	OrgID       string `json:"org_id"`
}
