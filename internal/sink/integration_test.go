//go:build integration

package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgresmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"sunpoll/internal/config"
	"sunpoll/internal/logger"
	"sunpoll/pkg/bootstrap"
	"sunpoll/pkg/retry"
)

const containerStartupTimeout = 60 * time.Second

func init() {
	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}
}

func connector() *bootstrap.DatabaseConnector {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = 5
	return bootstrap.NewDatabaseConnector(policy, logger.NopLogger())
}

func startPostgres(t *testing.T, ctx context.Context) *config.PostgresConfig {
	t.Helper()

	container, err := postgresmodule.Run(ctx, "postgres:15",
		postgresmodule.WithDatabase("solar"),
		postgresmodule.WithUsername("solar"),
		postgresmodule.WithPassword("solar_pw"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(containerStartupTimeout),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return &config.PostgresConfig{
		Host:     host,
		Port:     p,
		User:     "solar",
		Password: "solar_pw",
		DBName:   "solar",
		SSLMode:  "disable",
	}
}

func TestPostgresSinkIntegration(t *testing.T) {
	ctx := context.Background()
	cfg := startPostgres(t, ctx)
	conn := connector()

	db, err := conn.OpenSQL(ctx, "postgres", PostgresDSN(cfg))
	require.NoError(t, err)
	defer db.Close()

	table := TableName(march2024)
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (
		pv_power_w DOUBLE PRECISION,
		pv_day_energy_wh BIGINT,
		self_consumption_percent DOUBLE PRECISION
	)`, table))
	require.NoError(t, err)

	open := func(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
		return conn.OpenSQL(ctx, driverName, dsn)
	}
	s := NewPostgres(cfg, open, fixedClock(), logger.NopLogger())

	d := testDelivery(t)
	require.NoError(t, s.Persist(ctx, d))
	require.NoError(t, s.Persist(ctx, d))

	var rows int
	var power float64
	var energy int64
	require.NoError(t, db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*), MAX(pv_power_w), MAX(pv_day_energy_wh) FROM %q`, table)).
		Scan(&rows, &power, &energy))
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3218.5, power)
	assert.Equal(t, int64(8042), energy)
}

func TestPostgresSinkMissingTable(t *testing.T) {
	ctx := context.Background()
	cfg := startPostgres(t, ctx)
	conn := connector()

	open := func(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
		return conn.OpenSQL(ctx, driverName, dsn)
	}
	s := NewPostgres(cfg, open, fixedClock(), logger.NopLogger())

	err := s.Persist(ctx, testDelivery(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power_20243")
}

func TestRedisSinkIntegration(t *testing.T) {
	ctx := context.Background()

	container, err := redismodule.Run(ctx, "redis:8.4.0-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	conn := connector()
	open := func(ctx context.Context, opts *redis.Options) (HashClient, error) {
		client, err := conn.OpenRedis(ctx, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	cfg := &config.RedisConfig{Host: host, Port: p, Key: "power:latest", TTL: time.Hour}
	s := NewRedis(cfg, open, fixedClock(), logger.NopLogger())
	require.NoError(t, s.Persist(ctx, testDelivery(t)))

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", host, p)})
	defer client.Close()

	values, err := client.HGetAll(ctx, "power:latest").Result()
	require.NoError(t, err)
	assert.Equal(t, "3218.5", values["pv_power_w"])
	assert.Equal(t, "8042", values["pv_day_energy_wh"])
	assert.Equal(t, "run-1", values["run_id"])
	assert.Equal(t, "2024-03-15T12:30:00Z", values["updated_at"])

	ttl, err := client.TTL(ctx, "power:latest").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
