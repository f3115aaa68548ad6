package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sunpoll/internal/config"
	"sunpoll/internal/constants"
	"sunpoll/internal/logger"
	"sunpoll/pkg/bootstrap"
	"sunpoll/pkg/clock"
)

// Dependencies are the collaborators shared by the sinks built from config.
type Dependencies struct {
	Logger    logger.Logger
	Console   logger.Logger
	Connector *bootstrap.DatabaseConnector
	Clock     clock.Clock
}

// NewSinks builds one sink per enabled section, in fan-out order.
func NewSinks(cfg *config.Config, deps Dependencies) ([]Sink, error) {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Console == nil {
		deps.Console = deps.Logger
	}

	openSQL := func(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
		return deps.Connector.OpenSQL(ctx, driverName, dsn)
	}
	openRedis := func(ctx context.Context, opts *redis.Options) (HashClient, error) {
		client, err := deps.Connector.OpenRedis(ctx, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	sinks := make([]Sink, 0, len(constants.SinkOrder))
	for _, name := range cfg.EnabledSinks() {
		switch name {
		case constants.SectionStdout:
			sinks = append(sinks, NewConsole(deps.Console))
		case constants.SectionMySQL:
			sinks = append(sinks, NewMySQL(cfg.MySQL, openSQL, deps.Clock, deps.Logger))
		case constants.SectionPostgres:
			sinks = append(sinks, NewPostgres(cfg.Postgres, openSQL, deps.Clock, deps.Logger))
		case constants.SectionInfluxDB:
			sinks = append(sinks, NewInfluxDB(cfg.InfluxDB, deps.Connector.Policy, deps.Logger))
		case constants.SectionKafka:
			sinks = append(sinks, NewKafka(cfg.Kafka, deps.Clock, deps.Logger))
		case constants.SectionRedis:
			sinks = append(sinks, NewRedis(cfg.Redis, openRedis, deps.Clock, deps.Logger))
		default:
			return nil, fmt.Errorf("unknown sink type: %s", name)
		}
	}

	return sinks, nil
}
