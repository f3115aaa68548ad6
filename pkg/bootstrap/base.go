package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"sunpoll/internal/config"
	"sunpoll/internal/logger"
	"sunpoll/pkg/retry"
)

type Base struct {
	Config    *config.Config
	Logger    logger.Logger
	Connector *DatabaseConnector
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config:    cfg,
		Logger:    log,
		Connector: NewDatabaseConnector(RetryPolicy(cfg.Retry), log),
	}
}

// RetryPolicy maps the [retry] section onto a retry.Policy, keeping the
// defaults for anything left unset.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	return policy
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	b.Logger.DebugwCtx(ctx, "Shutdown complete")
	_ = b.Logger.Sync()
	return nil
}
