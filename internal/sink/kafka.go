package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"sunpoll/internal/config"
	"sunpoll/internal/constants"
	"sunpoll/internal/logger"
	"sunpoll/internal/telemetry"
	"sunpoll/pkg/clock"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON body published for each run.
type Message struct {
	RunID     string            `json:"run_id"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    *telemetry.Record `json:"fields"`
}

// Dialer opens a raw connection to one broker.
type Dialer func(ctx context.Context, network, address string) (io.Closer, error)

// Kafka publishes one message per delivery, keyed by run id.
type Kafka struct {
	topic     string
	brokers   []string
	newWriter func() MessageWriter
	dial      Dialer
	clock     clock.Clock
	log       logger.Logger
}

func NewKafka(cfg *config.KafkaConfig, clk clock.Clock, log logger.Logger) *Kafka {
	brokers := cfg.Brokers
	s := NewKafkaWithWriter(cfg.Topic, func() MessageWriter {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: constants.KafkaWriteTimeout,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		}
	}, clk, log)
	s.brokers = brokers
	return s
}

func NewKafkaWithWriter(topic string, newWriter func() MessageWriter, clk clock.Clock, log logger.Logger) *Kafka {
	if clk == nil {
		clk = clock.New()
	}
	return &Kafka{
		topic:     topic,
		newWriter: newWriter,
		dial: func(ctx context.Context, network, address string) (io.Closer, error) {
			conn, err := kafka.DialContext(ctx, network, address)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		clock: clk,
		log:   log,
	}
}

func (s *Kafka) Name() string {
	return constants.SectionKafka
}

func (s *Kafka) Persist(ctx context.Context, d Delivery) error {
	now := s.clock.Now().UTC()

	body, err := json.Marshal(Message{
		RunID:     d.RunID,
		Timestamp: now,
		Fields:    d.Record,
	})
	if err != nil {
		return sinkError(s.Name(), fmt.Errorf("failed to marshal message: %w", err))
	}

	w := s.newWriter()
	defer func() {
		if cerr := w.Close(); cerr != nil {
			s.log.WarnwCtx(ctx, "Failed to close kafka writer", "error", cerr)
		}
	}()

	err = w.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(d.RunID),
		Value: body,
		Time:  now,
	})
	if err != nil {
		return sinkError(s.Name(), fmt.Errorf("failed to write kafka message: %w", err))
	}

	s.log.DebugwCtx(ctx, "Message published", "topic", s.topic)
	return nil
}

// Probe succeeds as soon as one broker accepts a connection.
func (s *Kafka) Probe(ctx context.Context) error {
	if len(s.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	var errs []error
	for _, broker := range s.brokers {
		conn, err := s.dial(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return errors.Join(errs...)
}
