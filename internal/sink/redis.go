package sink

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sunpoll/internal/config"
	"sunpoll/internal/constants"
	"sunpoll/internal/logger"
	"sunpoll/pkg/clock"
)

// HashClient is the part of *redis.Client the sink uses.
type HashClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// RedisOpener returns a connected client; the sink closes it after the write.
type RedisOpener func(ctx context.Context, opts *redis.Options) (HashClient, error)

// Redis keeps the latest reading in a single hash. Unlike the other sinks a
// repeated delivery overwrites rather than appends.
type Redis struct {
	opts  *redis.Options
	key   string
	ttl   time.Duration
	open  RedisOpener
	clock clock.Clock
	log   logger.Logger
}

func NewRedis(cfg *config.RedisConfig, open RedisOpener, clk clock.Clock, log logger.Logger) *Redis {
	if clk == nil {
		clk = clock.New()
	}
	return &Redis{
		opts: &redis.Options{
			Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		key:   cfg.Key,
		ttl:   cfg.TTL,
		open:  open,
		clock: clk,
		log:   log,
	}
}

func (s *Redis) Name() string {
	return constants.SectionRedis
}

func (s *Redis) Persist(ctx context.Context, d Delivery) error {
	client, err := s.open(ctx, s.opts)
	if err != nil {
		return sinkError(s.Name(), fmt.Errorf("connect: %w", err))
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			s.log.WarnwCtx(ctx, "Failed to close redis client", "error", cerr)
		}
	}()

	values := make([]interface{}, 0, 2*d.Record.Len()+4)
	for _, f := range d.Record.Fields() {
		values = append(values, f.Name, f.Value)
	}
	values = append(values,
		"run_id", d.RunID,
		"updated_at", s.clock.Now().UTC().Format(time.RFC3339),
	)

	if err := client.HSet(ctx, s.key, values...).Err(); err != nil {
		return sinkError(s.Name(), fmt.Errorf("hset %s: %w", s.key, err))
	}

	if s.ttl > 0 {
		if err := client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			return sinkError(s.Name(), fmt.Errorf("expire %s: %w", s.key, err))
		}
	}

	s.log.DebugwCtx(ctx, "Hash updated", "key", s.key)
	return nil
}

// Probe opens and closes a client without writing.
func (s *Redis) Probe(ctx context.Context) error {
	client, err := s.open(ctx, s.opts)
	if err != nil {
		return err
	}
	return client.Close()
}
