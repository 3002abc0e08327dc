package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/service"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
)

const testKey = "aw_test_key"

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv, err := sandbox.New(context.Background(), sandbox.Config{
		APIKeys:   []string{testKey},
		JWTSecret: "handler-test-secret-0123",
		Operators: []service.Operator{{Email: "ops@example.com", Password: "hunter22"}},
	}, store.NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv.Router
}

func do(t *testing.T, router *gin.Engine, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func createAgent(t *testing.T, router *gin.Engine, name string) string {
	t.Helper()
	w, body := do(t, router, http.MethodPost, "/v1/agents", `{"name":"`+name+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create agent: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return body["id"].(string)
}

func createJob(t *testing.T, router *gin.Engine, buyer, seller string) string {
	t.Helper()
	w, body := do(t, router, http.MethodPost, "/v1/acp/jobs",
		`{"buyer_agent_id":"`+buyer+`","seller_agent_id":"`+seller+`","title":"t","description":"d","price_usdc":5,"fund_transfer":false}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return body["id"].(string)
}

func TestAuth_missingKey(t *testing.T) {
	router := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuth_wrongKey(t *testing.T) {
	router := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	req.Header.Set("X-API-Key", "nope")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLogin_bearerSession(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"ops@example.com","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var sess map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer "+sess["access_token"].(string))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("session request: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"ops@example.com","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", w.Code)
	}
}

func TestAgents_listEnvelope(t *testing.T) {
	router := setupTestRouter(t)
	createAgent(t, router, "a")
	createAgent(t, router, "b")

	w, body := do(t, router, http.MethodGet, "/v1/agents?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["total"].(float64) != 2 {
		t.Errorf("expected total 2, got %v", body["total"])
	}
	if n := len(body["data"].([]any)); n != 1 {
		t.Errorf("expected 1 agent with limit=1, got %d", n)
	}
}

func TestAgents_update(t *testing.T) {
	router := setupTestRouter(t)
	id := createAgent(t, router, "a")

	w, body := do(t, router, http.MethodPatch, "/v1/agents/"+id, `{"status":"paused"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["status"] != "paused" || body["name"] != "a" {
		t.Errorf("unexpected agent %v", body)
	}
}

func TestGetJob_404(t *testing.T) {
	router := setupTestRouter(t)
	w, body := do(t, router, http.MethodGet, "/v1/acp/jobs/00000000-0000-0000-0000-000000000001", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if body["error"] == nil {
		t.Error("expected an error field")
	}
}

func TestTransition_statusCodes(t *testing.T) {
	router := setupTestRouter(t)
	buyer := createAgent(t, router, "buyer")
	seller := createAgent(t, router, "seller")
	job := createJob(t, router, buyer, seller)

	cases := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"missing role param", "/v1/acp/jobs/" + job + "/negotiate", `{}`, http.StatusUnprocessableEntity},
		{"wrong phase", "/v1/acp/jobs/" + job + "/fund?buyer_agent_id=" + buyer, "", http.StatusUnprocessableEntity},
		{"wrong role", "/v1/acp/jobs/" + job + "/negotiate?seller_agent_id=" + buyer, `{}`, http.StatusForbidden},
		{"negotiate", "/v1/acp/jobs/" + job + "/negotiate?seller_agent_id=" + seller, `{"agreed_terms":{"x":1}}`, http.StatusOK},
		{"fund", "/v1/acp/jobs/" + job + "/fund?buyer_agent_id=" + buyer, "", http.StatusOK},
		{"deliver", "/v1/acp/jobs/" + job + "/deliver?seller_agent_id=" + seller, `{"result_data":{"ok":true}}`, http.StatusOK},
		{"evaluate without approved", "/v1/acp/jobs/" + job + "/evaluate?evaluator_agent_id=" + buyer, `{}`, http.StatusUnprocessableEntity},
		{"evaluate", "/v1/acp/jobs/" + job + "/evaluate?evaluator_agent_id=" + buyer, `{"approved":true,"rating":4}`, http.StatusOK},
		{"evaluate twice", "/v1/acp/jobs/" + job + "/evaluate?evaluator_agent_id=" + buyer, `{"approved":true}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		w, _ := do(t, router, http.MethodPost, tc.target, tc.body)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.want, w.Code, w.Body.String())
		}
	}

	w, body := do(t, router, http.MethodGet, "/v1/acp/jobs/"+job, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get job: %d", w.Code)
	}
	if body["phase"] != "evaluated" || body["status"] != "closed" {
		t.Errorf("got phase=%v status=%v", body["phase"], body["status"])
	}
}

func TestMemos_envelope(t *testing.T) {
	router := setupTestRouter(t)
	buyer := createAgent(t, router, "buyer")
	seller := createAgent(t, router, "seller")
	job := createJob(t, router, buyer, seller)

	w, _ := do(t, router, http.MethodPost, "/v1/acp/jobs/"+job+"/memos?sender_agent_id="+seller,
		`{"memo_type":"general","content":{"note":"hi"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("send memo: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w, body := do(t, router, http.MethodGet, "/v1/acp/jobs/"+job+"/memos", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list memos: %d", w.Code)
	}
	if body["total"].(float64) != 2 || len(body["memos"].([]any)) != 2 {
		t.Errorf("expected job_request plus one memo, got %v", body)
	}
}

func TestListJobs_badFilter(t *testing.T) {
	router := setupTestRouter(t)
	for _, q := range []string{"phase=request", "agent_id=not-a-uuid", "limit=abc"} {
		w, _ := do(t, router, http.MethodGet, "/v1/acp/jobs?"+q, "")
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", q, w.Code)
		}
	}
}

func TestOfferings_roundTrip(t *testing.T) {
	router := setupTestRouter(t)
	seller := createAgent(t, router, "seller")

	w, _ := do(t, router, http.MethodPost, "/v1/acp/offerings",
		`{"agent_id":"`+seller+`","name":"summarize","endpoint_path":"/summarize","parameters":{"type":"object"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create offering: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w, body := do(t, router, http.MethodGet, "/v1/acp/offerings?agent_id="+seller, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list offerings: %d", w.Code)
	}
	if body["total"].(float64) != 1 {
		t.Errorf("expected 1 offering, got %v", body["total"])
	}
}

func TestNoRoute(t *testing.T) {
	router := setupTestRouter(t)
	w, body := do(t, router, http.MethodGet, "/v1/wallets", "")
	if w.Code != http.StatusNotFound || body["error"] != "route not found" {
		t.Errorf("expected 404 route not found, got %d %v", w.Code, body)
	}
}

func TestHealthz(t *testing.T) {
	router := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAuditLog_recordsJobEvents(t *testing.T) {
	router := setupTestRouter(t)
	buyer := createAgent(t, router, "buyer")
	seller := createAgent(t, router, "seller")
	job := createJob(t, router, buyer, seller)
	if w, _ := do(t, router, http.MethodPost, "/v1/acp/jobs/"+job+"/negotiate?seller_agent_id="+seller, `{}`); w.Code != http.StatusOK {
		t.Fatalf("negotiate: %d %s", w.Code, w.Body.String())
	}

	w, body := do(t, router, http.MethodGet, "/v1/compliance/audit-log?resource_id="+job, "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit log: %d %s", w.Code, w.Body.String())
	}
	if body["total"] != float64(2) {
		t.Fatalf("total = %v", body["total"])
	}
	latest := body["data"].([]any)[0].(map[string]any)
	if latest["event_type"] != "acp.job.negotiated" || latest["actor_id"] != seller {
		t.Errorf("latest = %v", latest)
	}

	w, body = do(t, router, http.MethodGet, "/v1/compliance/audit-log?event_type=agent.created&limit=1", "")
	if w.Code != http.StatusOK || body["total"] != float64(2) || len(body["data"].([]any)) != 1 {
		t.Errorf("filtered: %d %v", w.Code, body)
	}

	if w, _ := do(t, router, http.MethodGet, "/v1/compliance/audit-log?limit=zero", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad limit: %d", w.Code)
	}
}

func TestWebhooks_mounted(t *testing.T) {
	router := setupTestRouter(t)
	w, body := do(t, router, http.MethodPost, "/v1/webhooks", `{"url":"https://example.com/hook","events":["acp.job.funded"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create webhook: %d %s", w.Code, w.Body.String())
	}
	if body["secret"] == nil {
		t.Error("secret missing from create response")
	}

	w, body = do(t, router, http.MethodGet, "/v1/compliance/audit-log?resource_type=webhook", "")
	if w.Code != http.StatusOK || body["total"] != float64(1) {
		t.Errorf("webhook audit: %d %v", w.Code, body)
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := sandbox.New(context.Background(), sandbox.Config{
		APIKeys:      []string{testKey},
		RateLimitRPS: 1,
	}, store.NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Close)

	var limited *httptest.ResponseRecorder
	for i := 0; i < 5 && limited == nil; i++ {
		if w, _ := do(t, srv.Router, http.MethodGet, "/v1/agents", ""); w.Code == http.StatusTooManyRequests {
			limited = w
		}
	}
	if limited == nil {
		t.Fatal("expected a 429 within 5 requests")
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := setupTestRouter(t)
	w, _ := do(t, router, http.MethodGet, "/v1/agents", "")
	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", w.Header())
	}
}

func TestKeyCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := sandbox.New(context.Background(), sandbox.Config{
		APIKeys:     []string{testKey},
		KeyCacheTTL: time.Minute,
	}, store.NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Close)
	for i := 0; i < 2; i++ {
		if w, _ := do(t, srv.Router, http.MethodGet, "/v1/agents", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, w.Code)
		}
	}
}
