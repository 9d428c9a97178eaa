package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/adapter/billing/railzway"
	"github.com/railzwaylabs/tier-orchestrator/internal/adapter/repository/postgres"
	"github.com/railzwaylabs/tier-orchestrator/internal/adapter/ristretto"
	"github.com/railzwaylabs/tier-orchestrator/internal/adapter/tenant/management"
	"github.com/railzwaylabs/tier-orchestrator/internal/api"
	"github.com/railzwaylabs/tier-orchestrator/internal/auth"
	"github.com/railzwaylabs/tier-orchestrator/internal/config"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/internal/reconciler"
	"github.com/railzwaylabs/tier-orchestrator/internal/usecase/tenancy"
	"github.com/railzwaylabs/tier-orchestrator/pkg/billingclient"
	"github.com/railzwaylabs/tier-orchestrator/pkg/db"
	zaplog "github.com/railzwaylabs/tier-orchestrator/pkg/log"
	"github.com/railzwaylabs/tier-orchestrator/pkg/snowflake"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
	"github.com/railzwaylabs/tier-orchestrator/pkg/tenantclient"
	"github.com/railzwaylabs/tier-orchestrator/sql/migrations"
)

// RunServer starts the HTTP server and background workers. opts are applied
// after the default wiring.
func RunServer(opts ...fx.Option) {
	app := fx.New(append([]fx.Option{
		fx.Provide(
			// Config
			config.Load,

			// Infrastructure (Adapters)
			newBillingClient,
			newTenantClient,
			newResultCache,
			newRecovery,
			newIDGenerator,
			newFollowUpMonitor,

			// Domain Adapters (Bind Interfaces)
			fx.Annotate(
				postgres.NewRepository,
				fx.As(new(workflow.Repository)),
			),
			fx.Annotate(
				railzway.NewAdapter,
				fx.As(new(billing.Reconciler)),
				fx.As(new(billing.CatalogSource)),
			),
			fx.Annotate(
				management.NewAdapter,
				fx.As(new(tenant.Mutator)),
				fx.As(new(tenant.Reader)),
			),

			// Use Cases
			tenancy.NewTierChangeUseCase,
			tenancy.NewDecommissionUseCase,
			tenancy.NewOptionsUseCase,
			tenancy.NewFollowUpUseCase,

			// Auth
			auth.NewMiddleware,

			// API
			api.NewRouter,
		),
		db.Module,        // Database Module
		snowflake.Module, // Snowflake ID Module
		zaplog.Module,    // Logger Module
		metrics.Module,   // Prometheus Module
		fx.Invoke(registerHooks),
	}, opts...)...)

	app.Run()
}

// WithoutFollowUp keeps the follow-up monitor from starting regardless of
// FOLLOW_UP_ENABLED.
func WithoutFollowUp() fx.Option {
	return fx.Decorate(func(cfg *config.Config) *config.Config {
		cfg.FollowUpEnabled = false
		return cfg
	})
}

// RunSweep closes up to limit interrupted runs once and reports how many it
// closed. It makes no tenant or billing calls.
func RunSweep(ctx context.Context, limit int) (int, error) {
	cfg := config.Load()
	logger, err := zaplog.New(cfg.Environment)
	if err != nil {
		return 0, fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	gdb, err := db.Open(cfg.DatabaseDSN(), db.Pool{MaxIdle: 1, MaxOpen: 2}, cfg.IsProduction())
	if err != nil {
		return 0, err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	recovery := tenancy.NewRecovery(postgres.NewRepository(gdb), metrics.New(prometheus.NewRegistry()), logger, cfg.FollowUpStaleAfter)
	closed, err := recovery.Sweep(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("sweep runs: %w", err)
	}
	logger.Info("sweep_finished", zap.Int("closed", closed), zap.Duration("stale_after", cfg.FollowUpStaleAfter))
	return closed, nil
}

// RunMigrations executes database migrations. command is up, down or
// version; steps > 0 limits down to that many migrations.
func RunMigrations(command string, steps int) error {
	if command == "" {
		command = "up"
	}

	cfg := config.Load()
	logger, err := zaplog.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("migration_started", zap.String("command", command), zap.Int("steps", steps))

	d, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			logger.Info("migration_version", zap.Uint("version", 0), zap.Bool("dirty", false))
			return nil
		}
		if verr != nil {
			return fmt.Errorf("read migration version: %w", verr)
		}
		logger.Info("migration_version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migration_no_change", zap.String("command", command))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	logger.Info("migration_applied", zap.String("command", command))
	return nil
}

func registerHooks(lc fx.Lifecycle, cfg *config.Config, router *api.Router, monitor *reconciler.FollowUpMonitor, logger *zap.Logger) {
	var monitorCancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("http_server_starting", zap.String("port", cfg.Port))

			if cfg.FollowUpEnabled {
				monitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
				monitorCancel = cancel
				go monitor.Run(monitorCtx)
			}

			go func() {
				if err := router.Run(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("http_server_failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("http_server_stopping")

			if monitorCancel != nil {
				monitorCancel()
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := router.Shutdown(shutdownCtx); err != nil {
				logger.Error("http_server_forced_shutdown", zap.Error(err))
				return err
			}

			logger.Info("http_server_stopped")
			return nil
		},
	})
}

// Both clients act with the operator's bearer token when the request carries one.
func newBillingClient() *billingclient.Client {
	return billingclient.NewFromEnv().WithTokenFunc(credential.TokenFromContext)
}

func newTenantClient() *tenantclient.Client {
	return tenantclient.NewFromEnv().WithTokenFunc(credential.TokenFromContext)
}

func newResultCache(lc fx.Lifecycle, cfg *config.Config) (workflow.ResultCache, error) {
	cache, err := ristretto.New(cfg.IdempotencyCacheEntries, cfg.IdempotencyCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("init result cache: %w", err)
	}
	lc.Append(fx.StopHook(cache.Close))
	return cache, nil
}

func newIDGenerator(node *snowflake.Node) tenancy.IDGenerator {
	return node
}

func newRecovery(cfg *config.Config, repo workflow.Repository, m *metrics.Metrics, logger *zap.Logger) *tenancy.Recovery {
	return tenancy.NewRecovery(repo, m, logger, cfg.FollowUpStaleAfter)
}

func newFollowUpMonitor(cfg *config.Config, repo workflow.Repository, recovery *tenancy.Recovery, m *metrics.Metrics, logger *zap.Logger) *reconciler.FollowUpMonitor {
	return reconciler.NewFollowUpMonitor(repo, recovery, m, logger, cfg.FollowUpInterval, cfg.FollowUpStaleAfter)
}
