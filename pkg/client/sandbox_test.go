package client_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/service"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
	"github.com/agentwallet/agentwallet-go/pkg/acp"
	"github.com/agentwallet/agentwallet-go/pkg/client"
)

const sandboxKey = "aw_sandbox_key"

func startSandbox(t *testing.T) string {
	t.Helper()
	_, base := startSandboxServer(t)
	return base
}

func startSandboxServer(t *testing.T) (*sandbox.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sb, err := sandbox.New(context.Background(), sandbox.Config{
		APIKeys:   []string{sandboxKey},
		JWTSecret: "client-test-secret-0123",
		Operators: []service.Operator{{Email: "ops@example.com", Password: "hunter22"}},
	}, store.NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	srv := httptest.NewServer(sb.Router)
	t.Cleanup(srv.Close)
	t.Cleanup(sb.Close)
	return sb, srv.URL + "/v1"
}

func sandboxClient(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(sandboxKey, client.WithBaseURL(startSandbox(t)))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func mustAgent(t *testing.T, c *client.Client, name string) string {
	t.Helper()
	a, err := c.Agents.Create(context.Background(), client.CreateAgentParams{Name: name})
	if err != nil {
		t.Fatalf("create agent %s: %v", name, err)
	}
	return a.ID
}

func TestSandbox_jobLifecycle(t *testing.T) {
	c := sandboxClient(t)
	ctx := context.Background()
	buyer := mustAgent(t, c, "buyer")
	seller := mustAgent(t, c, "seller")

	job, err := c.ACP.CreateJob(ctx, client.CreateJobParams{
		BuyerAgentID:  buyer,
		SellerAgentID: seller,
		Title:         "Translate",
		Description:   "Translate a paragraph to French",
		PriceUSDC:     3,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Phase != acp.PhaseCreated || job.AgreedTerms != nil {
		t.Fatalf("unexpected new job %+v", job)
	}

	// Evaluating before funding is rejected and leaves the job alone.
	_, err = c.ACP.Evaluate(ctx, job.ID, buyer, client.EvaluateParams{Approved: true})
	if client.KindOf(err) != client.KindValidation {
		t.Fatalf("expected a validation error, got %v", err)
	}

	// Acting as the wrong role is an authentication error.
	_, err = c.ACP.Negotiate(ctx, job.ID, buyer, client.NegotiateParams{})
	if !errors.Is(err, client.ErrAuthentication) {
		t.Fatalf("expected an authentication error, got %v", err)
	}

	price := 2.5
	if job, err = c.ACP.Negotiate(ctx, job.ID, seller, client.NegotiateParams{
		AgreedTerms:     client.JSONObject{"deadline": "1h"},
		AgreedPriceUSDC: &price,
	}); err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if job.Phase != acp.PhaseNegotiating || job.AgreedPriceUSDC == nil || *job.AgreedPriceUSDC != price {
		t.Fatalf("after negotiate: %+v", job)
	}
	if job, err = c.ACP.Fund(ctx, job.ID, buyer); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if job, err = c.ACP.Deliver(ctx, job.ID, seller, client.DeliverParams{
		ResultData: client.JSONObject{"text": "Bonjour"},
		Notes:      "done",
	}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	rating := 5
	if job, err = c.ACP.Evaluate(ctx, job.ID, buyer, client.EvaluateParams{
		Approved:        true,
		EvaluationNotes: "great",
		Rating:          &rating,
	}); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if job.Phase != acp.PhaseEvaluated || job.Status != acp.StatusClosed {
		t.Errorf("got phase=%s status=%s", job.Phase, job.Status)
	}
	if job.ResultData["text"] != "Bonjour" || job.Rating == nil || *job.Rating != 5 {
		t.Errorf("payload not recorded: %+v", job)
	}
	if job.FundedAt == nil || job.EvaluatedAt == nil {
		t.Error("transition timestamps not set")
	}

	memos, err := c.ACP.ListMemos(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if memos.Total != 5 {
		t.Errorf("expected 5 memos, got %d", memos.Total)
	}

	funded, err := c.ACP.ListJobs(ctx, client.ListJobsOptions{Phase: acp.PhaseEvaluated, AgentID: seller})
	if err != nil {
		t.Fatal(err)
	}
	if funded.Total != 1 || funded.Data[0].ID != job.ID {
		t.Errorf("list by phase: %+v", funded)
	}
}

func TestSandbox_sendMemoLeavesJob(t *testing.T) {
	c := sandboxClient(t)
	ctx := context.Background()
	buyer := mustAgent(t, c, "buyer")
	seller := mustAgent(t, c, "seller")

	job, err := c.ACP.CreateJob(ctx, client.CreateJobParams{
		BuyerAgentID: buyer, SellerAgentID: seller, Title: "t", Description: "d",
	})
	if err != nil {
		t.Fatal(err)
	}
	memo, err := c.ACP.SendMemo(ctx, job.ID, buyer, client.SendMemoParams{
		MemoType: acp.MemoGeneral,
		Content:  client.JSONObject{"question": "ETA?"},
	})
	if err != nil {
		t.Fatalf("send memo: %v", err)
	}
	if memo.AdvancesPhase || memo.SenderAgentID != buyer {
		t.Errorf("unexpected memo %+v", memo)
	}

	after, err := c.ACP.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Phase != job.Phase || !after.UpdatedAt.Equal(job.UpdatedAt) {
		t.Errorf("memo changed the job: %+v", after)
	}
}

func TestSandbox_notFound(t *testing.T) {
	c := sandboxClient(t)
	_, err := c.ACP.GetJob(context.Background(), "00000000-0000-0000-0000-000000000042")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSandbox_offerings(t *testing.T) {
	c := sandboxClient(t)
	ctx := context.Background()
	seller := mustAgent(t, c, "seller")

	if _, err := c.ACP.CreateOffering(ctx, client.CreateOfferingParams{
		AgentID:      seller,
		Name:         "translate",
		EndpointPath: "/translate",
		Parameters:   client.JSONObject{"type": "object"},
	}); err != nil {
		t.Fatalf("create offering: %v", err)
	}
	_, err := c.ACP.CreateOffering(ctx, client.CreateOfferingParams{
		AgentID:    seller,
		Name:       "broken",
		Parameters: client.JSONObject{"type": 7},
	})
	if client.KindOf(err) != client.KindValidation {
		t.Errorf("invalid schema: expected a validation error, got %v", err)
	}

	list, err := c.ACP.ListOfferings(ctx, client.ListOfferingsOptions{AgentID: seller})
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 {
		t.Errorf("expected 1 offering, got %d", list.Total)
	}
}

func TestSandbox_login(t *testing.T) {
	base := startSandbox(t)
	ctx := context.Background()

	c, sess, err := client.Login(ctx, "ops@example.com", "hunter22", client.WithBaseURL(base))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.TokenType != "bearer" || sess.AccessToken == "" {
		t.Errorf("unexpected session %+v", sess)
	}
	if _, err := c.Agents.List(ctx, client.ListAgentsOptions{}); err != nil {
		t.Errorf("session client should be authorized: %v", err)
	}

	_, _, err = client.Login(ctx, "ops@example.com", "wrong", client.WithBaseURL(base))
	if !errors.Is(err, client.ErrAuthentication) {
		t.Errorf("expected an authentication error, got %v", err)
	}
}

func TestSandbox_webhookDelivery(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies [][]byte
		sigs   []string
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, b)
		sigs = append(sigs, r.Header.Get("X-AgentWallet-Signature"))
		mu.Unlock()
	}))
	defer receiver.Close()

	sb, base := startSandboxServer(t)
	c, err := client.New(sandboxKey, client.WithBaseURL(base))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	hook, err := c.Webhooks.Create(ctx, receiver.URL, []string{"acp.job.negotiated"})
	if err != nil {
		t.Fatalf("create webhook: %v", err)
	}
	if hook.Secret == "" {
		t.Fatal("create returned no secret")
	}

	buyer := mustAgent(t, c, "buyer")
	seller := mustAgent(t, c, "seller")
	job, err := c.ACP.CreateJob(ctx, client.CreateJobParams{
		BuyerAgentID: buyer, SellerAgentID: seller, Title: "t", Description: "d", PriceUSDC: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ACP.Negotiate(ctx, job.ID, seller, client.NegotiateParams{}); err != nil {
		t.Fatal(err)
	}
	sb.Webhooks.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(bodies))
	}
	mac := hmac.New(sha256.New, []byte(hook.Secret))
	mac.Write(bodies[0])
	if want := "sha256=" + hex.EncodeToString(mac.Sum(nil)); sigs[0] != want {
		t.Errorf("signature %q, want %q", sigs[0], want)
	}

	deliveries, err := c.Webhooks.Deliveries(ctx, hook.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if deliveries.Total != 1 || !deliveries.Data[0].Success || deliveries.Data[0].EventType != "acp.job.negotiated" {
		t.Errorf("deliveries = %+v", deliveries)
	}

	off := false
	updated, err := c.Webhooks.Update(ctx, hook.ID, client.UpdateWebhookParams{IsActive: &off})
	if err != nil || updated.IsActive {
		t.Fatalf("update: %+v, %v", updated, err)
	}
	if err := c.Webhooks.Delete(ctx, hook.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err := c.Webhooks.List(ctx)
	if err != nil || list.Total != 0 {
		t.Errorf("list after delete: %+v, %v", list, err)
	}
}

func TestSandbox_auditLog(t *testing.T) {
	c := sandboxClient(t)
	ctx := context.Background()
	buyer := mustAgent(t, c, "buyer")
	seller := mustAgent(t, c, "seller")
	job, err := c.ACP.CreateJob(ctx, client.CreateJobParams{
		BuyerAgentID: buyer, SellerAgentID: seller, Title: "t", Description: "d", PriceUSDC: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	all, err := c.Compliance.AuditLog(ctx, client.AuditLogOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 3 {
		t.Fatalf("total = %d, want 3", all.Total)
	}
	newest := all.Data[0]
	if newest.EventType != "acp.job.created" || newest.ResourceID != job.ID || newest.ActorID != buyer {
		t.Errorf("newest = %+v", newest)
	}
	if newest.PrevHash != all.Data[1].Hash {
		t.Error("newest event is not chained to its predecessor")
	}

	agents, err := c.Compliance.AuditLog(ctx, client.AuditLogOptions{ResourceType: "agent", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if agents.Total != 2 || len(agents.Data) != 1 {
		t.Errorf("agent events: total=%d page=%d", agents.Total, len(agents.Data))
	}
}
