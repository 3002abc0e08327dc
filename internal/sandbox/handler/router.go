package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/service"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/webhooks"
)

// RouterConfig configures NewRouter. A zero RateLimitRPS disables rate
// limiting; empty CORSOrigins disables CORS handling.
type RouterConfig struct {
	CORSOrigins  []string
	RateLimitRPS int
}

// Deps are the collaborators NewRouter wires together.
type Deps struct {
	Service  *service.Service
	Keys     auth.KeyResolver
	Hasher   *auth.KeyHasher
	Sessions *auth.SessionIssuer
	// Webhooks, when set, serves /v1/webhooks.
	Webhooks *webhooks.Service
	Logger   *zap.Logger
}

// NewRouter builds the sandbox HTTP router. API routes live under /v1.
// Background work started for the router stops when ctx is done.
func NewRouter(ctx context.Context, cfg RouterConfig, d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", auth.APIKeyHeader},
			ExposeHeaders:    []string{"Content-Length", "Retry-After"},
			AllowCredentials: !containsWildcard(cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	router.Use(PrometheusMiddleware())
	router.Use(requestLogger(d.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", MetricsHandler())

	h := New(d.Service, d.Logger)
	v1 := router.Group("/v1")
	if cfg.RateLimitRPS > 0 {
		v1.Use(RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	h.RegisterPublic(v1)
	authed := v1.Group("", auth.RequireOrg(d.Keys, d.Hasher, d.Sessions))
	h.Register(authed)
	if d.Webhooks != nil {
		webhooks.NewHandler(d.Webhooks, d.Logger).Register(authed)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
