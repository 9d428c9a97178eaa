package log

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/config"
)

var Module = fx.Module("log",
	fx.Provide(NewLogger),
)

// NewLogger builds the process logger. Production uses JSON output at info
// level; every other environment uses the development console encoder.
func NewLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger, err := New(cfg.Environment)
	if err != nil {
		return nil, err
	}
	logger = logger.With(
		zap.String("service", cfg.AppName),
		zap.String("version", cfg.AppVersion),
	)

	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}

// New builds a logger for the environment.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" {
		zcfg := zap.NewProductionConfig()
		zcfg.DisableStacktrace = true
		return zcfg.Build()
	}
	return zap.NewDevelopment()
}
