// Package sandbox assembles a local AgentWallet-compatible server: store,
// service, audit ledger, webhooks, and HTTP router.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/audit"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/handler"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/service"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/webhooks"
)

// Config configures New.
type Config struct {
	// OrgName names the org seeded at startup.
	OrgName string
	// APIKeys are accepted for the seeded org.
	APIKeys []string
	// Operators can log in with email and password. Requires JWTSecret.
	Operators []service.Operator
	// JWTSecret signs operator sessions. Empty disables operator login.
	JWTSecret string
	// SessionTTL defaults to 24h.
	SessionTTL time.Duration
	// KeySecret keys the API-key hash. Defaults to JWTSecret.
	KeySecret string

	CORSOrigins  []string
	RateLimitRPS int

	// Audit records state changes. Defaults to an in-memory ledger.
	Audit audit.Ledger
	// WebhookRepo stores webhooks. Defaults to an in-memory repository.
	WebhookRepo webhooks.Repository
	// KeyCacheTTL caches API-key lookups when positive.
	KeyCacheTTL time.Duration
}

// Server is an assembled sandbox.
type Server struct {
	Router   *gin.Engine
	Org      *model.Org
	Service  *service.Service
	Webhooks *webhooks.Service

	stop context.CancelFunc
}

// Close stops background work, abandoning webhook retries still pending.
func (s *Server) Close() {
	s.stop()
	s.Webhooks.Close()
}

// New bootstraps cfg's org into st and builds the router.
func New(ctx context.Context, cfg Config, st store.Store, logger *zap.Logger) (*Server, error) {
	keySecret := cfg.KeySecret
	if keySecret == "" {
		keySecret = cfg.JWTSecret
	}
	hasher := auth.NewKeyHasher([]byte(keySecret))

	var sessions *auth.SessionIssuer
	if cfg.JWTSecret != "" {
		var err error
		sessions, err = auth.NewSessionIssuer([]byte(cfg.JWTSecret), "agentwallet-sandbox", cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("session issuer: %w", err)
		}
	} else if len(cfg.Operators) > 0 {
		logger.Warn("operators configured without a JWT secret, login is disabled")
	}

	svc := service.New(st, hasher, sessions, logger)

	ledger := cfg.Audit
	if ledger == nil {
		ledger = audit.NewMemoryLedger()
	}
	svc.SetAuditLedger(ledger)

	hookRepo := cfg.WebhookRepo
	if hookRepo == nil {
		hookRepo = webhooks.NewMemoryRepository()
	}
	hooks := webhooks.NewService(hookRepo, logger.Named("webhooks"))
	hooks.SetMetricsRecorder(handler.RecordWebhookDelivery)
	hooks.SetRecorder(func(ctx context.Context, orgID uuid.UUID, eventType string, id uuid.UUID, data any) {
		svc.Record(ctx, orgID, eventType, "webhook", id, data)
	})
	svc.SetDispatcher(hooks)

	orgName := cfg.OrgName
	if orgName == "" {
		orgName = "sandbox"
	}
	org, err := svc.Bootstrap(ctx, service.BootstrapParams{
		OrgName:   orgName,
		APIKeys:   cfg.APIKeys,
		Operators: cfg.Operators,
	})
	if err != nil {
		hooks.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	var keys auth.KeyResolver = st
	bg, stop := context.WithCancel(context.Background())
	if cfg.KeyCacheTTL > 0 {
		cache := auth.NewCachedKeyResolver(st, cfg.KeyCacheTTL)
		go cache.Run(bg, cfg.KeyCacheTTL)
		keys = cache
	}

	router := handler.NewRouter(bg, handler.RouterConfig{
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
	}, handler.Deps{
		Service:  svc,
		Keys:     keys,
		Hasher:   hasher,
		Sessions: sessions,
		Webhooks: hooks,
		Logger:   logger,
	})
	return &Server{Router: router, Org: org, Service: svc, Webhooks: hooks, stop: stop}, nil
}
