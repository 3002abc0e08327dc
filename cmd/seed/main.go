// seed populates a running sandbox with demo data through the SDK: two
// agents, an offering, one completed job and one disputed job.
//
// Running twice is safe for agents and offerings, which are matched by name.
// Jobs are always created fresh.
//
// Usage:
//
//	go run ./cmd/seed
//	AGENTWALLET_BASE_URL=http://localhost:8080/v1 AGENTWALLET_API_KEY=aw_test_sandbox go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

const (
	defaultBaseURL = "http://localhost:8080/v1"
	defaultAPIKey  = "aw_test_sandbox"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

type seedAgent struct {
	name         string
	description  string
	capabilities []string
}

var seedAgents = []seedAgent{
	{"research-buyer", "Commissions market research reports", []string{"research", "payments"}},
	{"report-writer", "Writes structured research reports on demand", []string{"writing", "analysis"}},
}

func run(logger *zap.Logger) error {
	c, err := client.New(envOr("AGENTWALLET_API_KEY", defaultAPIKey),
		client.WithBaseURL(envOr("AGENTWALLET_BASE_URL", defaultBaseURL)),
		client.WithLogger(logger.Named("client")),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	agents := make(map[string]*client.Agent, len(seedAgents))
	for _, a := range seedAgents {
		agent, err := ensureAgent(ctx, c, a)
		if err != nil {
			return fmt.Errorf("seed agent %s: %w", a.name, err)
		}
		agents[a.name] = agent
		logger.Info("agent ready", zap.String("name", agent.Name), zap.String("id", agent.ID))
	}
	buyer, seller := agents["research-buyer"], agents["report-writer"]

	if err := ensureOffering(ctx, c, seller); err != nil {
		return fmt.Errorf("seed offering: %w", err)
	}

	done, err := runJob(ctx, c, buyer, seller, true)
	if err != nil {
		return fmt.Errorf("completed job: %w", err)
	}
	logger.Info("job evaluated", zap.String("id", done.ID), zap.String("phase", string(done.Phase)))

	disputed, err := runJob(ctx, c, buyer, seller, false)
	if err != nil {
		return fmt.Errorf("disputed job: %w", err)
	}
	logger.Info("job disputed", zap.String("id", disputed.ID), zap.String("phase", string(disputed.Phase)))

	logger.Info("seed complete")
	return nil
}

func ensureAgent(ctx context.Context, c *client.Client, a seedAgent) (*client.Agent, error) {
	existing, err := c.Agents.List(ctx, client.ListAgentsOptions{Limit: 100})
	if err != nil {
		return nil, err
	}
	for i := range existing.Data {
		if existing.Data[i].Name == a.name {
			return &existing.Data[i], nil
		}
	}
	desc := a.description
	return c.Agents.Create(ctx, client.CreateAgentParams{
		Name:         a.name,
		Description:  &desc,
		Capabilities: a.capabilities,
		IsPublic:     true,
	})
}

func ensureOffering(ctx context.Context, c *client.Client, seller *client.Agent) error {
	existing, err := c.ACP.ListOfferings(ctx, client.ListOfferingsOptions{AgentID: seller.ID})
	if err != nil {
		return err
	}
	for _, o := range existing.Data {
		if o.Name == "market-report" {
			return nil
		}
	}
	_, err = c.ACP.CreateOffering(ctx, client.CreateOfferingParams{
		AgentID:      seller.ID,
		Name:         "market-report",
		Description:  "A sourced market report on a given sector",
		EndpointPath: "/reports",
		Parameters: map[string]any{
			"type":     "object",
			"required": []any{"sector"},
			"properties": map[string]any{
				"sector": map[string]any{"type": "string"},
			},
		},
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"report_url": map[string]any{"type": "string"},
			},
		},
	})
	return err
}

// runJob drives a job from creation to evaluation.
func runJob(ctx context.Context, c *client.Client, buyer, seller *client.Agent, approve bool) (*client.AcpJob, error) {
	job, err := c.ACP.CreateJob(ctx, client.CreateJobParams{
		BuyerAgentID:  buyer.ID,
		SellerAgentID: seller.ID,
		Title:         "Solana DeFi market report",
		Description:   "Summarise TVL and volume trends across the top ten protocols",
		PriceUSDC:     25,
		Requirements:  map[string]any{"sector": "defi", "format": "markdown"},
	})
	if err != nil {
		return nil, err
	}

	price := 22.5
	if job, err = c.ACP.Negotiate(ctx, job.ID, seller.ID, client.NegotiateParams{
		AgreedTerms:     map[string]any{"delivery_days": 2, "revisions": 1},
		AgreedPriceUSDC: &price,
	}); err != nil {
		return nil, err
	}
	if job, err = c.ACP.Fund(ctx, job.ID, buyer.ID); err != nil {
		return nil, err
	}
	if _, err = c.ACP.SendMemo(ctx, job.ID, seller.ID, client.SendMemoParams{
		MemoType: "general",
		Content:  map[string]any{"note": "draft halfway done"},
	}); err != nil {
		return nil, err
	}
	if job, err = c.ACP.Deliver(ctx, job.ID, seller.ID, client.DeliverParams{
		ResultData: map[string]any{"report_url": "https://example.com/reports/defi.md"},
		Notes:      "final version",
	}); err != nil {
		return nil, err
	}

	p := client.EvaluateParams{Approved: approve}
	if approve {
		rating := 5
		p.Rating = &rating
		p.EvaluationNotes = "thorough and on time"
	} else {
		p.EvaluationNotes = "sources missing for half the figures"
	}
	return c.ACP.Evaluate(ctx, job.ID, buyer.ID, p)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
