package config

import (
	"time"

	"sunpoll/internal/constants"
)

// Config is the fully loaded settings file. A nil sink section means that sink
// is disabled for the run.
type Config struct {
	General GeneralConfig
	Logging LoggingConfig
	Retry   RetryConfig
	Metrics *MetricsConfig

	Stdout   *StdoutConfig
	MySQL    *MySQLConfig
	Postgres *PostgresConfig
	InfluxDB *InfluxDBConfig
	Kafka    *KafkaConfig
	Redis    *RedisConfig
}

type GeneralConfig struct {
	URL     string        `mapstructure:"url"`
	Schema  string        `mapstructure:"schema"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

type StdoutConfig struct{}

type MySQLConfig struct {
	Host     string `mapstructure:"mysqlhost"`
	Port     int    `mapstructure:"mysqlport"`
	User     string `mapstructure:"mysqluser"`
	Password string `mapstructure:"mysqlpassword"`
	DBName   string `mapstructure:"mysqldb"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"postgreshost"`
	Port     int    `mapstructure:"postgresport"`
	User     string `mapstructure:"postgresuser"`
	Password string `mapstructure:"postgrespassword"`
	DBName   string `mapstructure:"postgresdb"`
	SSLMode  string `mapstructure:"postgressslmode"`
}

type InfluxDBConfig struct {
	Host      string `mapstructure:"influxdbhost"`
	Port      int    `mapstructure:"influxdbport"`
	User      string `mapstructure:"influxdbuser"`
	Password  string `mapstructure:"influxdbpassword"`
	DBName    string `mapstructure:"influxdbdb"`
	Retention string `mapstructure:"influxdbretention"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"kafkabrokers"`
	Topic   string   `mapstructure:"kafkatopic"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"redishost"`
	Port     int           `mapstructure:"redisport"`
	Password string        `mapstructure:"redispassword"`
	DB       int           `mapstructure:"redisdb"`
	Key      string        `mapstructure:"rediskey"`
	TTL      time.Duration `mapstructure:"redisttl"`
}

// EnabledSinks returns the names of the configured sink sections in fan-out order.
func (c *Config) EnabledSinks() []string {
	enabled := map[string]bool{
		constants.SectionStdout:   c.Stdout != nil,
		constants.SectionMySQL:    c.MySQL != nil,
		constants.SectionPostgres: c.Postgres != nil,
		constants.SectionInfluxDB: c.InfluxDB != nil,
		constants.SectionKafka:    c.Kafka != nil,
		constants.SectionRedis:    c.Redis != nil,
	}

	names := make([]string, 0, len(enabled))
	for _, name := range constants.SinkOrder {
		if enabled[name] {
			names = append(names, name)
		}
	}
	return names
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
