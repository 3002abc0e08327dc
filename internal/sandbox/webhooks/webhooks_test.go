package webhooks_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/webhooks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type received struct {
	header http.Header
	body   []byte
}

// receiver records every request and answers with the next status in
// statuses, then 200.
func receiver(t *testing.T, statuses ...int) (*httptest.Server, func() []received) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []received
		n    int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, received{header: r.Header.Clone(), body: body})
		status := http.StatusOK
		if n < len(statuses) {
			status = statuses[n]
		}
		n++
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), reqs...)
	}
}

func newService(t *testing.T) *webhooks.Service {
	t.Helper()
	svc := webhooks.NewService(webhooks.NewMemoryRepository(), zap.NewNop())
	svc.SetBackoff(func(int) time.Duration { return time.Millisecond }, 3)
	t.Cleanup(svc.Close)
	return svc
}

func TestDispatch_signedDelivery(t *testing.T) {
	srv, reqs := receiver(t)
	svc := newService(t)
	ctx := context.Background()
	org := uuid.New()

	w, err := svc.Create(ctx, org, webhooks.CreateInput{URL: srv.URL, Events: []string{model.EventJobFunded}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(w.Secret, "whsec_") {
		t.Errorf("secret = %q", w.Secret)
	}

	svc.Dispatch(ctx, org, model.EventJobFunded, map[string]any{"job_id": "j1"})
	svc.Wait()

	got := reqs()
	if len(got) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(got))
	}
	r := got[0]
	if sig := r.header.Get(webhooks.SignatureHeader); sig != webhooks.Sign(r.body, w.Secret) {
		t.Errorf("signature %q does not match body", sig)
	}
	if e := r.header.Get(webhooks.EventHeader); e != model.EventJobFunded {
		t.Errorf("event header = %q", e)
	}

	var ev webhooks.Event
	if err := json.Unmarshal(r.body, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != model.EventJobFunded || ev.OrgID != org {
		t.Errorf("event = %+v", ev)
	}
	if r.header.Get(webhooks.DeliveryHeader) != ev.ID.String() {
		t.Errorf("delivery header %q, event id %s", r.header.Get(webhooks.DeliveryHeader), ev.ID)
	}
}

func TestDispatch_retriesUntilSuccess(t *testing.T) {
	srv, reqs := receiver(t, http.StatusInternalServerError, http.StatusBadGateway)
	svc := newService(t)
	var okCount, failCount atomic.Int32
	svc.SetMetricsRecorder(func(success bool) {
		if success {
			okCount.Add(1)
		} else {
			failCount.Add(1)
		}
	})
	ctx := context.Background()
	org := uuid.New()

	w, err := svc.Create(ctx, org, webhooks.CreateInput{URL: srv.URL, Events: []string{model.EventWildcard}})
	if err != nil {
		t.Fatal(err)
	}
	svc.Dispatch(ctx, org, model.EventAgentCreated, nil)
	svc.Wait()

	if n := len(reqs()); n != 3 {
		t.Fatalf("got %d attempts, want 3", n)
	}
	if okCount.Load() != 1 || failCount.Load() != 2 {
		t.Errorf("metrics ok=%d fail=%d", okCount.Load(), failCount.Load())
	}

	ds, err := svc.Deliveries(ctx, org, w.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 3 {
		t.Fatalf("got %d delivery records", len(ds))
	}
	if !ds[0].Success || ds[0].Attempt != 3 {
		t.Errorf("newest delivery = %+v", ds[0])
	}
	if ds[2].Success || ds[2].StatusCode != http.StatusInternalServerError {
		t.Errorf("oldest delivery = %+v", ds[2])
	}
}

func TestDispatch_givesUp(t *testing.T) {
	srv, reqs := receiver(t, 500, 500, 500, 500, 500)
	svc := newService(t)
	ctx := context.Background()
	org := uuid.New()

	if _, err := svc.Create(ctx, org, webhooks.CreateInput{URL: srv.URL, Events: []string{"*"}}); err != nil {
		t.Fatal(err)
	}
	svc.Dispatch(ctx, org, model.EventJobCreated, nil)
	svc.Wait()
	if n := len(reqs()); n != 3 {
		t.Errorf("got %d attempts, want 3", n)
	}
}

func TestDispatch_filtersByEventOrgAndActive(t *testing.T) {
	srv, reqs := receiver(t)
	svc := newService(t)
	ctx := context.Background()
	org, other := uuid.New(), uuid.New()

	if _, err := svc.Create(ctx, org, webhooks.CreateInput{URL: srv.URL, Events: []string{model.EventJobDelivered}}); err != nil {
		t.Fatal(err)
	}
	inactive, err := svc.Create(ctx, org, webhooks.CreateInput{URL: srv.URL, Events: []string{"*"}})
	if err != nil {
		t.Fatal(err)
	}
	off := false
	if _, err := svc.Update(ctx, org, inactive.ID, webhooks.Patch{IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	svc.Dispatch(ctx, org, model.EventJobFunded, nil)
	svc.Dispatch(ctx, other, model.EventJobDelivered, nil)
	svc.Wait()
	if n := len(reqs()); n != 0 {
		t.Fatalf("got %d unexpected deliveries", n)
	}

	svc.Dispatch(ctx, org, model.EventJobDelivered, nil)
	svc.Wait()
	if n := len(reqs()); n != 1 {
		t.Errorf("got %d deliveries, want 1", n)
	}
}

func TestCreate_validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	cases := []webhooks.CreateInput{
		{URL: "not a url", Events: []string{"*"}},
		{URL: "ftp://example.com/hook", Events: []string{"*"}},
		{URL: "https://example.com/hook"},
		{URL: "https://example.com/hook", Events: []string{"job.exploded"}},
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, uuid.New(), in); !errors.Is(err, webhooks.ErrInvalidInput) {
			t.Errorf("%+v: got %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestOrgScoping(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	org := uuid.New()
	w, err := svc.Create(ctx, org, webhooks.CreateInput{URL: "https://example.com/h", Events: []string{"*"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, uuid.New(), w.ID); !errors.Is(err, webhooks.ErrNotFound) {
		t.Errorf("Get from another org: %v", err)
	}
	if err := svc.Delete(ctx, uuid.New(), w.ID); !errors.Is(err, webhooks.ErrNotFound) {
		t.Errorf("Delete from another org: %v", err)
	}
	if err := svc.Delete(ctx, org, w.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if hooks, _ := svc.List(ctx, org); len(hooks) != 0 {
		t.Errorf("List after delete = %d", len(hooks))
	}
}

func TestRecorder(t *testing.T) {
	svc := newService(t)
	var events []string
	svc.SetRecorder(func(_ context.Context, _ uuid.UUID, eventType string, _ uuid.UUID, _ any) {
		events = append(events, eventType)
	})
	ctx := context.Background()
	org := uuid.New()
	w, err := svc.Create(ctx, org, webhooks.CreateInput{URL: "https://example.com/h", Events: []string{"*"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, org, w.ID); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0] != model.EventWebhookCreated || events[1] != model.EventWebhookDeleted {
		t.Errorf("recorded %v", events)
	}
}

func TestExponentialBackoff(t *testing.T) {
	cases := map[int]time.Duration{1: 2 * time.Second, 4: 16 * time.Second, 8: 256 * time.Second, 9: 300 * time.Second, 40: 300 * time.Second}
	for n, want := range cases {
		if got := webhooks.ExponentialBackoff(n); got != want {
			t.Errorf("retry %d: got %s, want %s", n, got, want)
		}
	}
}

// countingTransport answers every request with 200 without touching the
// network.
type countingTransport struct{ calls atomic.Int64 }

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    r,
	}, nil
}

func TestDispatch_concurrentWithClose(t *testing.T) {
	ctx := context.Background()
	org := uuid.New()

	for i := 0; i < 100; i++ {
		rt := &countingTransport{}
		svc := webhooks.NewService(webhooks.NewMemoryRepository(), zap.NewNop())
		svc.SetHTTPClient(&http.Client{Transport: rt})
		if _, err := svc.Create(ctx, org, webhooks.CreateInput{URL: "http://hooks.test/in", Events: []string{"*"}}); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				svc.Dispatch(ctx, org, model.EventJobFunded, nil)
			}()
		}
		svc.Close()
		sent := rt.calls.Load()
		wg.Wait()
		svc.Wait()

		if got := rt.calls.Load(); got != sent {
			t.Fatalf("iteration %d: %d deliveries started after Close returned", i, got-sent)
		}
	}
}

func TestDispatch_afterCloseDropped(t *testing.T) {
	rt := &countingTransport{}
	svc := webhooks.NewService(webhooks.NewMemoryRepository(), zap.NewNop())
	svc.SetHTTPClient(&http.Client{Transport: rt})
	ctx := context.Background()
	org := uuid.New()
	if _, err := svc.Create(ctx, org, webhooks.CreateInput{URL: "http://hooks.test/in", Events: []string{"*"}}); err != nil {
		t.Fatal(err)
	}

	svc.Close()
	svc.Dispatch(ctx, org, model.EventJobFunded, nil)
	svc.Wait()
	if n := rt.calls.Load(); n != 0 {
		t.Errorf("got %d deliveries after Close, want 0", n)
	}
	svc.Close()
}
