package mcpbridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/mcpbridge"
	"github.com/agentwallet/agentwallet-go/internal/sandbox"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
	"github.com/agentwallet/agentwallet-go/pkg/client"
)

type response struct {
	ID     int `json:"id"`
	Result struct {
		Tools   []mcpbridge.ToolDefinition `json:"tools"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code int `json:"code"`
	} `json:"error"`
}

func newRegistry(t *testing.T) (*mcpbridge.ToolRegistry, *client.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sb, err := sandbox.New(context.Background(), sandbox.Config{APIKeys: []string{"k"}}, store.NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sb.Close)
	srv := httptest.NewServer(sb.Router)
	t.Cleanup(srv.Close)

	c, err := client.New("k", client.WithBaseURL(srv.URL+"/v1"))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := mcpbridge.NewToolRegistry(c)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg, c
}

// serve runs the given JSON-RPC lines through a Server and returns the
// responses keyed by id.
func serve(t *testing.T, reg *mcpbridge.ToolRegistry, lines ...string) map[int]response {
	t.Helper()
	var out bytes.Buffer
	s := mcpbridge.NewServer(&out, reg, zap.NewNop())
	if err := s.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n")); err != nil {
		t.Fatalf("serve: %v", err)
	}

	got := make(map[int]response)
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r response
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		got[r.ID] = r
	}
	return got
}

func TestServer_protocol(t *testing.T) {
	reg, _ := newRegistry(t)
	got := serve(t, reg,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
	)

	if len(got) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(got))
	}
	if n := len(got[2].Result.Tools); n != len(reg.Definitions()) || n == 0 {
		t.Errorf("tools/list returned %d tools", n)
	}
	if got[3].Error == nil || got[3].Error.Code != -32601 {
		t.Errorf("unknown method should be -32601, got %+v", got[3].Error)
	}
}

func TestServer_oversizedMessageSkipped(t *testing.T) {
	reg, _ := newRegistry(t)
	huge := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"` + strings.Repeat("x", 2<<20) + `"}}`
	// Longer than the read buffer but within the message limit.
	large := `{"jsonrpc":"2.0","id":3,"method":"ping","params":{"pad":"` + strings.Repeat("y", 200<<10) + `"}}`
	got := serve(t, reg,
		huge,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		large,
	)

	if len(got) != 3 {
		t.Fatalf("expected 3 responses, got %d: %+v", len(got), got)
	}
	// The oversized message cannot be parsed, so its reply has a null id.
	if got[0].Error == nil || got[0].Error.Code != -32600 {
		t.Errorf("oversized message should be -32600, got %+v", got[0].Error)
	}
	if _, ok := got[1]; ok {
		t.Error("oversized message should not be answered as a ping")
	}
	for _, id := range []int{2, 3} {
		if got[id].Error != nil {
			t.Errorf("ping %d after oversized message: %+v", id, got[id].Error)
		}
	}
}

func TestServer_jobThroughTools(t *testing.T) {
	reg, c := newRegistry(t)
	ctx := context.Background()
	buyer, err := c.Agents.Create(ctx, client.CreateAgentParams{Name: "buyer"})
	if err != nil {
		t.Fatal(err)
	}
	seller, err := c.Agents.Create(ctx, client.CreateAgentParams{Name: "seller"})
	if err != nil {
		t.Fatal(err)
	}

	text, isErr := reg.Call(ctx, "create_acp_job", json.RawMessage(`{
		"buyer_agent_id":"`+buyer.ID+`","seller_agent_id":"`+seller.ID+`",
		"title":"Write a haiku","description":"About Go","price_usdc":1}`))
	if isErr {
		t.Fatalf("create_acp_job: %s", text)
	}
	var job client.AcpJob
	if err := json.Unmarshal([]byte(text), &job); err != nil {
		t.Fatal(err)
	}

	// Funding before negotiating reports the server's validation error.
	text, isErr = reg.Call(ctx, "advance_acp_job", json.RawMessage(
		`{"job_id":"`+job.ID+`","transition":"fund","agent_id":"`+buyer.ID+`"}`))
	if !isErr || !strings.Contains(text, "validation_error") {
		t.Errorf("expected a validation error, got %q", text)
	}

	got := serve(t, reg,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"advance_acp_job","arguments":{"job_id":"`+job.ID+`","transition":"negotiate","agent_id":"`+seller.ID+`"}}}`,
	)
	r := got[7]
	if r.Result.IsError || len(r.Result.Content) != 1 || !strings.Contains(r.Result.Content[0].Text, `"negotiating"`) {
		t.Errorf("negotiate via tools/call: %+v", r.Result)
	}

	text, isErr = reg.Call(ctx, "get_audit_log", json.RawMessage(`{"resource_id":"`+job.ID+`"}`))
	if isErr || !strings.Contains(text, "acp.job.negotiated") || !strings.Contains(text, "acp.job.created") {
		t.Errorf("get_audit_log: %s", text)
	}
}

func TestToolRegistry_validatesArguments(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	cases := map[string]string{
		"get_acp_job":     `{}`,
		"advance_acp_job": `{"job_id":"j","transition":"cancel","agent_id":"a"}`,
		"list_acp_jobs":   `{"phase":"request"}`,
		"create_agent":    `{"name":42}`,
		"get_audit_log":   `{"limit":0}`,
	}
	for name, args := range cases {
		text, isErr := reg.Call(ctx, name, json.RawMessage(args))
		if !isErr || !strings.Contains(text, "invalid arguments") {
			t.Errorf("%s(%s): expected argument validation failure, got %q", name, args, text)
		}
	}

	if _, isErr := reg.Call(ctx, "no_such_tool", nil); !isErr {
		t.Error("unknown tool should fail")
	}
}
