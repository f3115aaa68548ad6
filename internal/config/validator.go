package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks every section and reports all problems at once.
func ValidateStatic(cfg *Config) error {
	var errs []error

	errs = append(errs, validateGeneral(cfg.General)...)
	errs = append(errs, validateLogging(cfg.Logging)...)
	errs = append(errs, validateRetry(cfg.Retry)...)

	if cfg.Metrics != nil {
		errs = append(errs, validateMetrics(*cfg.Metrics)...)
	}
	if cfg.MySQL != nil {
		errs = append(errs, validateMySQL(*cfg.MySQL)...)
	}
	if cfg.Postgres != nil {
		errs = append(errs, validatePostgres(*cfg.Postgres)...)
	}
	if cfg.InfluxDB != nil {
		errs = append(errs, validateInfluxDB(*cfg.InfluxDB)...)
	}
	if cfg.Kafka != nil {
		errs = append(errs, validateKafka(*cfg.Kafka)...)
	}
	if cfg.Redis != nil {
		errs = append(errs, validateRedis(*cfg.Redis)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func validateGeneral(cfg GeneralConfig) []error {
	var errs []error

	if cfg.URL == "" {
		errs = append(errs, &ValidationError{
			Field:   "general.url",
			Message: "url is required",
		})
	} else if u, err := url.Parse(cfg.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, &ValidationError{
			Field:   "general.url",
			Message: fmt.Sprintf("url must be an absolute http(s) URL, got %q", cfg.URL),
		})
	}

	if cfg.Schema == "" {
		errs = append(errs, &ValidationError{
			Field:   "general.schema",
			Message: "schema must not be empty",
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "general.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

func validateLogging(cfg LoggingConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level: %s (valid: debug, info, warn, error)", cfg.Level),
		})
	}

	if cfg.Format != "json" && cfg.Format != "console" {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format: %s (valid: json, console)", cfg.Format),
		})
	}

	return errs
}

func validateRetry(cfg RetryConfig) []error {
	var errs []error

	if cfg.MaxAttempts < 1 {
		errs = append(errs, &ValidationError{
			Field:   "retry.max_attempts",
			Message: "max_attempts must be at least 1",
		})
	}

	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		errs = append(errs, &ValidationError{
			Field:   "retry.initial_interval",
			Message: "intervals must be non-negative",
		})
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		errs = append(errs, &ValidationError{
			Field:   "retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		})
	}

	if cfg.Multiplier <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "retry.multiplier",
			Message: "multiplier must be positive",
		})
	}

	return errs
}

func validateMetrics(cfg MetricsConfig) []error {
	if u, err := url.Parse(cfg.Pushgateway); err != nil || u.Scheme == "" || u.Host == "" {
		return []error{&ValidationError{
			Field:   "metrics.pushgateway",
			Message: fmt.Sprintf("pushgateway must be an absolute URL, got %q", cfg.Pushgateway),
		}}
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", port),
		}
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "value is required",
		}
	}
	return nil
}

func collect(errs ...error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func validateMySQL(cfg MySQLConfig) []error {
	return collect(
		required("mysql.mysqlhost", cfg.Host),
		validatePort("mysql.mysqlport", cfg.Port),
		required("mysql.mysqluser", cfg.User),
		required("mysql.mysqldb", cfg.DBName),
	)
}

func validatePostgres(cfg PostgresConfig) []error {
	errs := collect(
		required("postgres.postgreshost", cfg.Host),
		validatePort("postgres.postgresport", cfg.Port),
		required("postgres.postgresuser", cfg.User),
		required("postgres.postgresdb", cfg.DBName),
	)

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		errs = append(errs, &ValidationError{
			Field:   "postgres.postgressslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		})
	}

	return errs
}

func validateInfluxDB(cfg InfluxDBConfig) []error {
	return collect(
		required("influxdb.influxdbhost", cfg.Host),
		validatePort("influxdb.influxdbport", cfg.Port),
		required("influxdb.influxdbdb", cfg.DBName),
	)
}

func validateKafka(cfg KafkaConfig) []error {
	var errs []error

	if len(cfg.Brokers) == 0 {
		errs = append(errs, &ValidationError{
			Field:   "kafka.kafkabrokers",
			Message: "at least one Kafka broker is required",
		})
	}

	return append(errs, collect(required("kafka.kafkatopic", cfg.Topic))...)
}

func validateRedis(cfg RedisConfig) []error {
	errs := collect(
		required("redis.redishost", cfg.Host),
		validatePort("redis.redisport", cfg.Port),
		required("redis.rediskey", cfg.Key),
	)

	if cfg.DB < 0 {
		errs = append(errs, &ValidationError{
			Field:   "redis.redisdb",
			Message: "db must be non-negative",
		})
	}

	if cfg.TTL < 0 {
		errs = append(errs, &ValidationError{
			Field:   "redis.redisttl",
			Message: "TTL must be non-negative",
		})
	}

	return errs
}
