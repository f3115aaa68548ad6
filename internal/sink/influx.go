package sink

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"sunpoll/internal/config"
	"sunpoll/internal/constants"
	"sunpoll/internal/logger"
	"sunpoll/internal/telemetry"
	"sunpoll/pkg/retry"
)

// InfluxDB writes one point per delivery through the 1.x compatibility API:
// the token is "user:password" and the bucket is "db/retention".
type InfluxDB struct {
	serverURL string
	token     string
	bucket    string
	timeout   time.Duration
	policy    retry.Policy
	log       logger.Logger
}

func NewInfluxDB(cfg *config.InfluxDBConfig, policy retry.Policy, log logger.Logger) *InfluxDB {
	return &InfluxDB{
		serverURL: InfluxURL(cfg),
		token:     fmt.Sprintf("%s:%s", cfg.User, cfg.Password),
		bucket:    InfluxBucket(cfg),
		timeout:   constants.InfluxWriteTimeout,
		policy:    policy,
		log:       log,
	}
}

func InfluxURL(cfg *config.InfluxDBConfig) string {
	return "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func InfluxBucket(cfg *config.InfluxDBConfig) string {
	if cfg.Retention == "" {
		return cfg.DBName
	}
	return cfg.DBName + "/" + cfg.Retention
}

// Point builds the single point for rec: series "power", no tags, one field
// per reading in record order, and no timestamp so the server assigns it.
func Point(rec *telemetry.Record) *write.Point {
	p := influxdb2.NewPointWithMeasurement(constants.Measurement)
	for _, f := range rec.Fields() {
		p.AddField(f.Name, f.Value)
	}
	return p
}

func (s *InfluxDB) Name() string {
	return constants.SectionInfluxDB
}

func (s *InfluxDB) newClient() influxdb2.Client {
	opts := influxdb2.DefaultOptions().
		SetHTTPRequestTimeout(uint(s.timeout / time.Second))
	return influxdb2.NewClientWithOptions(s.serverURL, s.token, opts)
}

func (s *InfluxDB) ping(ctx context.Context, client influxdb2.Client) error {
	return retry.Do(ctx, s.policy, func() error {
		_, err := client.Ping(ctx)
		return err
	}, nil)
}

// Probe checks that the server answers /ping. It does not verify credentials.
func (s *InfluxDB) Probe(ctx context.Context) error {
	client := s.newClient()
	defer client.Close()
	return s.ping(ctx, client)
}

func (s *InfluxDB) Persist(ctx context.Context, d Delivery) error {
	client := s.newClient()
	defer client.Close()

	if err := s.ping(ctx, client); err != nil {
		return sinkError(s.Name(), fmt.Errorf("connect: %w", err))
	}

	writeAPI := client.WriteAPIBlocking("", s.bucket)
	if err := writeAPI.WritePoint(ctx, Point(d.Record)); err != nil {
		return sinkError(s.Name(), fmt.Errorf("write point: %w", err))
	}

	s.log.DebugwCtx(ctx, "Point written", "bucket", s.bucket, "fields", d.Record.Len())
	return nil
}
