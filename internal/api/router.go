package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/api/middleware"
	"github.com/railzwaylabs/tier-orchestrator/internal/auth"
	"github.com/railzwaylabs/tier-orchestrator/internal/config"
	"github.com/railzwaylabs/tier-orchestrator/internal/usecase/tenancy"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
)

type Router struct {
	engine         *gin.Engine
	server         *http.Server
	cfg            *config.Config
	tierChangeUC   *tenancy.TierChangeUseCase
	decommissionUC *tenancy.DecommissionUseCase
	optionsUC      *tenancy.OptionsUseCase
	followUpUC     *tenancy.FollowUpUseCase
	authMW         *auth.Middleware
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

func NewRouter(
	cfg *config.Config,
	tierChangeUC *tenancy.TierChangeUseCase,
	decommissionUC *tenancy.DecommissionUseCase,
	optionsUC *tenancy.OptionsUseCase,
	followUpUC *tenancy.FollowUpUseCase,
	authMW *auth.Middleware,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Router {
	// Disable GIN default logger
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Logger(logger))

	api := &Router{
		engine:         r,
		cfg:            cfg,
		tierChangeUC:   tierChangeUC,
		decommissionUC: decommissionUC,
		optionsUC:      optionsUC,
		followUpUC:     followUpUC,
		authMW:         authMW,
		metrics:        m,
		logger:         logger.Named("api"),
	}

	api.RegisterRoutes()
	return api
}

func (r *Router) RegisterRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	// Operator routes; the bearer token is forwarded to both backends.
	api := r.engine.Group("/api")
	api.Use(r.authMW.Handler())
	{
		api.POST("/tiers/classify", r.ClassifyTier)
		api.GET("/tenants/:tenant_id/tier-options", r.ListTierOptions)

		org := api.Group("/organizations/:org_id")
		{
			org.POST("/tenants/:tenant_id/tier-change", r.ChangeTier)
			org.POST("/tenants/:tenant_id/decommission", r.DecommissionTenant)
			org.POST("/runs/:run_id/retry-billing", r.RetryBilling)
		}
	}

	// Admin Routes (Protected by ADMIN_API_TOKEN)
	admin := r.engine.Group("/admin")
	admin.Use(r.adminAuth())
	{
		admin.GET("/runs", r.ListRuns)
	}
}

// Handler exposes the engine, mainly for tests.
func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) Run() error {
	r.server = &http.Server{
		Addr:    ":" + r.cfg.Port,
		Handler: r.engine,
		// Tier changes wait on two backends in sequence.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return r.server.ListenAndServe()
}

func (r *Router) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(r.cfg.AdminAPIToken)
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin_token_not_configured"})
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Admin-Token"))
		if provided == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				provided = strings.TrimSpace(authHeader[7:])
			}
		}

		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// Shutdown gracefully shuts down the HTTP server
func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
