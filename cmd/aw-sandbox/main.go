// aw-sandbox serves a local AgentWallet-compatible API: agents, ACP jobs,
// memos and offerings, webhooks and the audit log, plus operator login.
// Without database.url it keeps everything in memory.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/audit"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/service"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/webhooks"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("sandbox exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("aw-sandbox")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("sandbox.port", 8080)
	viper.SetDefault("sandbox.org_name", "sandbox")
	viper.SetDefault("sandbox.api_keys", []string{"aw_test_sandbox"})
	viper.SetDefault("sandbox.jwt_secret", "")
	viper.SetDefault("sandbox.session_ttl", "24h")
	viper.SetDefault("sandbox.cors_origins", []string{})
	viper.SetDefault("sandbox.rate_limit_rps", 20)
	viper.SetDefault("sandbox.key_cache_ttl", "1m")
	viper.SetDefault("database.url", "")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	sessionTTL, err := time.ParseDuration(viper.GetString("sandbox.session_ttl"))
	if err != nil {
		return fmt.Errorf("sandbox.session_ttl: %w", err)
	}

	keyCacheTTL, err := time.ParseDuration(viper.GetString("sandbox.key_cache_ttl"))
	if err != nil {
		return fmt.Errorf("sandbox.key_cache_ttl: %w", err)
	}

	var operators []service.Operator
	if err := viper.UnmarshalKey("sandbox.operators", &operators); err != nil {
		return fmt.Errorf("sandbox.operators: %w", err)
	}

	// ── Store ────────────────────────────────────────────────────────────────
	ctx := context.Background()
	var (
		st       store.Store
		ledger   audit.Ledger
		hookRepo webhooks.Repository
	)
	if dbURL := viper.GetString("database.url"); dbURL != "" {
		db, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")

		n, err := store.Migrate(ctx, db, logger)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", zap.Int("count", n))
		st = store.NewPostgresStore(db, logger)
		ledger = audit.NewPostgresLedger(db, logger)
		hookRepo = webhooks.NewPostgresRepository(db)

		// ── Audit Ledger ─────────────────────────────────────────────────────
		if err := ledger.Verify(ctx); err != nil {
			logger.Warn("audit ledger integrity check FAILED", zap.Error(err))
		} else {
			root, _ := ledger.Root(ctx)
			logger.Info("audit ledger verified", zap.String("root", root))
		}
	} else {
		logger.Info("database.url not set, using in-memory store")
		st = store.NewMemoryStore()
	}

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	apiKeys := stringList("sandbox.api_keys")
	srv, err := sandbox.New(ctx, sandbox.Config{
		OrgName:      viper.GetString("sandbox.org_name"),
		APIKeys:      apiKeys,
		Operators:    operators,
		JWTSecret:    viper.GetString("sandbox.jwt_secret"),
		SessionTTL:   sessionTTL,
		CORSOrigins:  stringList("sandbox.cors_origins"),
		RateLimitRPS: viper.GetInt("sandbox.rate_limit_rps"),
		Audit:        ledger,
		WebhookRepo:  hookRepo,
		KeyCacheTTL:  keyCacheTTL,
	}, st, logger)
	if err != nil {
		return err
	}
	logger.Info("org ready",
		zap.String("org_id", srv.Org.ID.String()),
		zap.String("org_name", srv.Org.Name),
		zap.Int("api_keys", len(apiKeys)),
		zap.Int("operators", len(operators)),
	)

	port := viper.GetInt("sandbox.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("sandbox HTTP listening", zap.Int("port", port), zap.String("base_url", fmt.Sprintf("http://localhost:%d/v1", port)))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down sandbox...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	srv.Close()

	logger.Info("sandbox stopped")
	return nil
}

// stringList reads key as a list. Env values may be comma-separated.
func stringList(key string) []string {
	var out []string
	for _, v := range viper.GetStringSlice(key) {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
