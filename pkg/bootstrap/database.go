package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"sunpoll/internal/logger"
	apperrors "sunpoll/pkg/errors"
	"sunpoll/pkg/logging"
	"sunpoll/pkg/retry"
)

// DatabaseConnector opens the per-run connections used by the sinks. Every
// open is followed by a ping and retried according to Policy.
type DatabaseConnector struct {
	Policy retry.Policy
	Logger logger.Logger
	sqlOpen func(driverName, dsn string) (*sql.DB, error)
}

func NewDatabaseConnector(policy retry.Policy, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Policy:  policy,
		Logger:  log,
		sqlOpen: sql.Open,
	}
}

// OpenSQL opens and pings a database handle. The caller owns the returned
// handle and must close it.
func (dc *DatabaseConnector) OpenSQL(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	var db *sql.DB

	err := retry.Do(ctx, dc.Policy, func() error {
		conn, err := dc.sqlOpen(driverName, dsn)
		if err != nil {
			return retry.NewFatalError(fmt.Errorf("failed to open database: %w", err))
		}

		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			if credentialsRejected(err) {
				return credentialsError(driverName, err)
			}
			return fmt.Errorf("failed to ping database: %w", err)
		}

		db = conn
		return nil
	}, dc.onRetry(ctx, driverName))
	if err != nil {
		return nil, err
	}

	dc.Logger.DebugwCtx(ctx, "Database connected", "driver", driverName)
	return db, nil
}

// OpenRedis creates a client and pings it. The caller must close the client.
func (dc *DatabaseConnector) OpenRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	var rdb *redis.Client

	err := retry.Do(ctx, dc.Policy, func() error {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			if redis.IsAuthError(err) {
				return credentialsError("redis", err)
			}
			return fmt.Errorf("failed to ping Redis: %w", err)
		}
		rdb = client
		return nil
	}, dc.onRetry(ctx, "redis"))
	if err != nil {
		return nil, err
	}

	dc.Logger.DebugwCtx(ctx, "Redis connected", "addr", opts.Addr)
	return rdb, nil
}

// credentialsRejected reports server replies that another attempt cannot fix:
// MySQL access denied and Postgres authentication or authorization failures.
func credentialsRejected(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045, 1698:
			return true
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "28000", "28P01":
			return true
		}
	}

	return false
}

func credentialsError(target string, err error) error {
	return apperrors.ErrConfig.WithCause(err).
		WithMessage("%s rejected the configured credentials", target).
		WithDetail("target", target).
		AsFatal()
}

func (dc *DatabaseConnector) onRetry(ctx context.Context, target string) func(int, error, time.Duration) {
	return func(attempt int, err error, next time.Duration) {
		dc.Logger.WarnwCtx(logging.WithPhase(ctx, "connect"), "Connection attempt failed, retrying",
			"target", target,
			"attempt", attempt,
			"next_delay", next,
			"error", err,
		)
	}
}
