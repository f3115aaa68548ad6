package constants

import "time"

const (
	DefaultConfigFile = "/config.ini"
	ConfigFileEnv     = "CONFIG_FILE"
	ServiceName       = "sunpoll"
)

const (
	DefaultFetchTimeout = 3 * time.Second
	MaxPayloadBytes     = 1 << 20
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	SectionGeneral  = "general"
	SectionLogging  = "logging"
	SectionRetry    = "retry"
	SectionMetrics  = "metrics"
	SectionStdout   = "stdout"
	SectionMySQL    = "mysql"
	SectionPostgres = "postgres"
	SectionInfluxDB = "influxdb"
	SectionKafka    = "kafka"
	SectionRedis    = "redis"
)

// SinkOrder is the fixed fan-out order.
var SinkOrder = []string{
	SectionStdout,
	SectionMySQL,
	SectionPostgres,
	SectionInfluxDB,
	SectionKafka,
	SectionRedis,
}

const (
	DefaultSchema       = "site"
	DefaultMySQLPort    = 3306
	DefaultPostgresPort = 5432
	DefaultSSLMode      = "disable"
	DefaultInfluxPort   = 8086
	DefaultKafkaTopic   = "power"
	DefaultRedisPort    = 6379
	DefaultRedisKey     = "power:latest"
	DefaultMetricsJob   = "sunpoll"
)

const (
	// Measurement is the series name of every point and the prefix of every table.
	Measurement = "power"

	KafkaWriteTimeout = 10 * time.Second
	PushTimeout       = 5 * time.Second
)

const InfluxWriteTimeout = 10 * time.Second
