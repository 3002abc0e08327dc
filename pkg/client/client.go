package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.agentwallet.fun/v1"
	// DefaultTimeout bounds every call made by a Client.
	DefaultTimeout = 30 * time.Second
	// APIKeyHeader carries the API key on every request.
	APIKeyHeader = "X-API-Key"

	maxResponseBytes = 8 << 20
)

// ErrNoCredentials is returned by New when neither an API key nor a bearer
// token was supplied.
var ErrNoCredentials = errors.New("agentwallet: an API key or bearer token is required")

// Config holds the settings a Client is built from. Zero fields take the
// documented defaults. A Client copies its Config at construction and never
// modifies it.
type Config struct {
	// APIKey is sent in the X-API-Key header.
	APIKey string
	// BaseURL defaults to DefaultBaseURL. Trailing slashes are trimmed.
	BaseURL string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Client is the AgentWallet SDK entry point. It is safe for concurrent use:
// after New returns it holds no mutable state.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	logger      *zap.Logger
	bearerToken string
	userAgent   string

	// Agents manages AI agents.
	Agents *AgentsResource
	// Wallets manages Solana wallets.
	Wallets *WalletsResource
	// Transactions transfers SOL and tokens.
	Transactions *TransactionsResource
	// Escrow manages trustless escrow contracts.
	Escrow *EscrowResource
	// Policies manages spending policies.
	Policies *PoliciesResource
	// Analytics reports usage.
	Analytics *AnalyticsResource
	// ACP drives Agent Commerce Protocol jobs, memos and offerings.
	ACP *ACPResource
	// Swarms coordinates multi-agent swarms.
	Swarms *SwarmsResource
	// PDAWallets manages program-derived-address wallets.
	PDAWallets *PDAWalletsResource
	// Auth exchanges operator credentials for a session token.
	Auth *AuthResource
	// Webhooks manages event subscriptions.
	Webhooks *WebhooksResource
	// Compliance reads the audit log.
	Compliance *ComplianceResource
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithBaseURL overrides Config.BaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("agentwallet: invalid base URL %q", baseURL)
		}
		c.cfg.BaseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
}

// WithTimeout overrides Config.Timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("agentwallet: timeout must be positive, got %s", d)
		}
		c.cfg.Timeout = d
		return nil
	}
}

// WithHTTPClient sets the http.Client used for requests. Its own Timeout, if
// any, applies in addition to the per-call deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithLogger enables debug logging of each request. The default logger
// discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithBearerToken attaches an operator session token (see AuthResource.Login)
// as an Authorization header on every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// New creates a Client authenticating with apiKey.
//
//	aw, err := client.New("aw_live_...", client.WithTimeout(10*time.Second))
//	agent, err := aw.Agents.Create(ctx, client.CreateAgentParams{Name: "trading-bot"})
func New(apiKey string, opts ...Option) (*Client, error) {
	return NewWithConfig(Config{APIKey: apiKey}, opts...)
}

// NewWithConfig creates a Client from cfg. Options are applied after cfg's
// defaults and override them.
func NewWithConfig(cfg Config, opts ...Option) (*Client, error) {
	c, err := newClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if c.cfg.APIKey == "" && c.bearerToken == "" {
		return nil, ErrNoCredentials
	}
	return c, nil
}

func newClient(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:        cfg.withDefaults(),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
		userAgent:  "agentwallet-go/" + Version,
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}

	c.Agents = &AgentsResource{c: c}
	c.Wallets = &WalletsResource{c: c}
	c.Transactions = &TransactionsResource{c: c}
	c.Escrow = &EscrowResource{c: c}
	c.Policies = &PoliciesResource{c: c}
	c.Analytics = &AnalyticsResource{c: c}
	c.ACP = &ACPResource{c: c}
	c.Swarms = &SwarmsResource{c: c}
	c.PDAWallets = &PDAWalletsResource{c: c}
	c.Auth = &AuthResource{c: c}
	c.Webhooks = &WebhooksResource{c: c}
	c.Compliance = &ComplianceResource{c: c}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(apiKey string, opts ...Option) *Client {
	c, err := New(apiKey, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Config returns a copy of the client's effective configuration.
func (c *Client) Config() Config { return c.cfg }

// RequestOptions carries the optional parts of a request.
type RequestOptions struct {
	// JSON, when non-nil, is encoded as the request body.
	JSON any
	// Params is encoded as the query string; absent values are skipped.
	Params Params
}

// Do performs one authenticated round trip. The call is bounded by the
// client's timeout; when it expires the request is aborted and a KindTimeout
// error is returned. Responses with status >= 400 become *Error. On success
// the body is decoded into out (which may be nil); a 204 or empty body
// leaves out empty.
func (c *Client) Do(ctx context.Context, method, path string, opts RequestOptions, out any) error {
	target := c.cfg.BaseURL + path
	if q := opts.Params.Encode(); q != "" {
		target += "?" + q
	}

	var body io.Reader
	if opts.JSON != nil {
		payload, err := json.Marshal(opts.JSON)
		if err != nil {
			return fmt.Errorf("agentwallet: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("agentwallet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.cfg.APIKey)
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failTransport(parent, ctx, method, path, start, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.failTransport(parent, ctx, method, path, start, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("agentwallet request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return newHTTPError(resp.StatusCode, statusText(resp), raw)
	}
	return decodeBody(resp.StatusCode, raw, out)
}

// failTransport wraps a transport failure. The timeout message names the
// client timeout only when that timer, not the caller's deadline, expired.
func (c *Client) failTransport(parent, ctx context.Context, method, path string, start time.Time, err error) error {
	e := transportError(ctx, err)
	if e.Kind == KindTimeout && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.Message = fmt.Sprintf("request timed out after %s", c.cfg.Timeout)
	}
	c.logger.Debug("agentwallet request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Stringer("kind", e.Kind),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err),
	)
	return e
}

// decodeBody decodes a successful response. A 204 or an empty body yields an
// empty value rather than a parse error.
func decodeBody(status int, raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		if m, ok := out.(*map[string]any); ok {
			*m = map[string]any{}
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{
			Kind:    KindAPI,
			Status:  status,
			Message: "decode response: " + err.Error(),
			Body:    ErrorBody{},
			Err:     err,
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params Params, out any) error {
	return c.Do(ctx, http.MethodGet, path, RequestOptions{Params: params}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, RequestOptions{JSON: body}, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, RequestOptions{JSON: body}, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, RequestOptions{}, nil)
}

// Get performs an authenticated GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, params Params, out any) error {
	return c.get(ctx, path, params, out)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.post(ctx, path, body, out)
}

// Patch performs an authenticated PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.patch(ctx, path, body, out)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.delete(ctx, path)
}
