package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
)

// DefaultMaxAttempts bounds deliveries of one event to one webhook.
const DefaultMaxAttempts = 5

// ErrInvalidInput is returned for a bad URL or event list.
var ErrInvalidInput = errors.New("invalid input")

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Recorder is told about webhook management so it can be audited.
type Recorder func(ctx context.Context, orgID uuid.UUID, eventType string, webhookID uuid.UUID, data any)

// Backoff returns the wait before retry n (1-based).
type Backoff func(retry int) time.Duration

// ExponentialBackoff waits 2^n seconds, capped at five minutes.
func ExponentialBackoff(retry int) time.Duration {
	if retry > 8 {
		return 300 * time.Second
	}
	d := time.Duration(1<<retry) * time.Second
	if d > 300*time.Second {
		d = 300 * time.Second
	}
	return d
}

// Service manages webhooks and delivers events to them in the background.
type Service struct {
	repo        Repository
	httpClient  *http.Client
	onMetrics   MetricsRecorder
	onRecord    Recorder
	backoff     Backoff
	maxAttempts int
	logger      *zap.Logger
	now         func() time.Time

	base context.Context
	stop context.CancelFunc

	// mu orders inflight.Add in Dispatch against Close.
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// NewService creates a Service. Call Close to stop pending deliveries.
func NewService(repo Repository, logger *zap.Logger) *Service {
	base, stop := context.WithCancel(context.Background())
	return &Service{
		repo:        repo,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		backoff:     ExponentialBackoff,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		base:        base,
		stop:        stop,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) { s.onMetrics = fn }

// SetRecorder configures the audit callback for create and delete.
func (s *Service) SetRecorder(fn Recorder) { s.onRecord = fn }

// SetHTTPClient replaces the delivery client.
func (s *Service) SetHTTPClient(hc *http.Client) { s.httpClient = hc }

// SetBackoff replaces the retry schedule and attempt limit.
func (s *Service) SetBackoff(b Backoff, maxAttempts int) {
	s.backoff = b
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
}

// Create registers a webhook with a generated signing secret. The secret is
// only returned here.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, in CreateInput) (*WithSecret, error) {
	if err := validateURL(in.URL); err != nil {
		return nil, err
	}
	if err := validateEvents(in.Events); err != nil {
		return nil, err
	}
	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	w := &Webhook{
		ID:        uuid.New(),
		OrgID:     orgID,
		URL:       in.URL,
		Events:    dedupe(in.Events),
		Secret:    secret,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	s.record(ctx, orgID, model.EventWebhookCreated, w)
	return &WithSecret{Webhook: w, Secret: secret}, nil
}

// Get returns one of orgID's webhooks.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*Webhook, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns orgID's webhooks.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*Webhook, error) {
	return s.repo.List(ctx, orgID)
}

// Update applies p to a webhook.
func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, p Patch) (*Webhook, error) {
	w, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if p.URL != nil {
		if err := validateURL(*p.URL); err != nil {
			return nil, err
		}
		w.URL = *p.URL
	}
	if p.Events != nil {
		if err := validateEvents(p.Events); err != nil {
			return nil, err
		}
		w.Events = dedupe(p.Events)
	}
	if p.IsActive != nil {
		w.IsActive = *p.IsActive
	}
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Delete removes a webhook and its delivery log.
func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	w, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	s.record(ctx, orgID, model.EventWebhookDeleted, w)
	return nil
}

// Deliveries returns up to limit of a webhook's delivery attempts, newest
// first.
func (s *Service) Deliveries(ctx context.Context, orgID, id uuid.UUID, limit int) ([]*Delivery, error) {
	if _, err := s.repo.Get(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.repo.ListDeliveries(ctx, id, limit)
}

func (s *Service) record(ctx context.Context, orgID uuid.UUID, eventType string, w *Webhook) {
	if s.onRecord == nil {
		return
	}
	s.onRecord(ctx, orgID, eventType, w.ID, map[string]any{"url": w.URL, "events": w.Events})
}

// Dispatch sends an event to every active webhook of orgID subscribed to
// eventType. Deliveries run in the background and outlive ctx.
func (s *Service) Dispatch(ctx context.Context, orgID uuid.UUID, eventType string, data any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	hooks, err := s.repo.ListActive(ctx, orgID)
	if err != nil {
		s.logger.Error("webhook: list subscribers", zap.Error(err))
		return
	}

	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		OrgID:     orgID,
		CreatedAt: s.now(),
		Data:      data,
	}
	var body []byte
	for _, w := range hooks {
		if !w.Subscribed(eventType) {
			continue
		}
		if body == nil {
			if body, err = json.Marshal(event); err != nil {
				s.logger.Error("webhook: marshal event", zap.String("type", eventType), zap.Error(err))
				return
			}
		}
		s.inflight.Add(1)
		go s.deliver(w, event, body)
	}
}

// deliver sends the event to a single webhook, retrying until it succeeds,
// attempts run out, or the service is closed.
func (s *Service) deliver(w *Webhook, event Event, body []byte) {
	defer s.inflight.Done()
	signature := signPayload(body, w.Secret)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(s.backoff(attempt - 1))
			select {
			case <-s.base.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}

		status, errMsg := s.doDelivery(w.URL, event, body, signature)
		success := errMsg == ""

		d := &Delivery{
			ID:           uuid.New(),
			WebhookID:    w.ID,
			EventID:      event.ID,
			EventType:    event.Type,
			StatusCode:   status,
			Attempt:      attempt,
			Success:      success,
			ErrorMessage: errMsg,
			CreatedAt:    s.now(),
		}
		if err := s.repo.RecordDelivery(s.base, d); err != nil {
			s.logger.Warn("webhook: record delivery", zap.Error(err))
		}
		if s.onMetrics != nil {
			s.onMetrics(success)
		}
		if success {
			return
		}

		s.logger.Warn("webhook: delivery failed",
			zap.String("webhook_id", w.ID.String()),
			zap.String("url", w.URL),
			zap.Int("attempt", attempt),
			zap.String("error", errMsg),
		)
	}
}

// doDelivery performs a single POST. A non-empty error message means failure.
func (s *Service) doDelivery(target string, event Event, body []byte, signature string) (int, string) {
	req, err := http.NewRequestWithContext(s.base, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AgentWallet-Webhooks/1.0")
	req.Header.Set(SignatureHeader, signature)
	req.Header.Set(EventHeader, event.Type)
	req.Header.Set(DeliveryHeader, event.ID.String())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err.Error()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, ""
}

// Wait blocks until every in-flight delivery has finished.
func (s *Service) Wait() { s.inflight.Wait() }

// Close abandons pending retries and waits for in-flight requests. Events
// dispatched after Close are dropped.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.stop()
	s.mu.Unlock()
	s.inflight.Wait()
}

// Sign returns the signature header value for body under secret.
func Sign(body []byte, secret string) string { return signPayload(body, secret) }

// signPayload computes an HMAC-SHA256 signature.
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// generateSecret creates a random 32-byte hex-encoded secret.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url must be an absolute http or https URL", ErrInvalidInput)
	}
	return nil
}

func validateEvents(events []string) error {
	if len(events) == 0 {
		return fmt.Errorf("%w: at least one event is required", ErrInvalidInput)
	}
	for _, e := range events {
		if !model.KnownEvent(e) {
			return fmt.Errorf("%w: unknown event %q", ErrInvalidInput, e)
		}
	}
	return nil
}

func dedupe(events []string) []string {
	seen := make(map[string]bool, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
