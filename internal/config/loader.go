package config

import (
	"io"
	"strings"

	"github.com/spf13/viper"

	"sunpoll/internal/constants"
	apperrors "sunpoll/pkg/errors"
)

// rawConfig mirrors the file layout; Config replaces absent sink sections with nil.
type rawConfig struct {
	General  GeneralConfig  `mapstructure:"general"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	InfluxDB InfluxDBConfig `mapstructure:"influxdb"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

func LoadConfig(configFile string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.ErrConfig.WithCause(err).
			WithMessage("failed to read config file %s", configFile).
			WithDetail("file", configFile)
	}

	return decode(v)
}

// LoadFromReader parses ini content from r with the same rules as LoadConfig.
func LoadFromReader(r io.Reader) (*Config, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, apperrors.ErrConfig.WithCause(err).WithMessage("failed to read config")
	}

	return decode(v)
}

func newViper() *viper.Viper {
	registry := viper.NewCodecRegistry()
	_ = registry.RegisterCodec("ini", iniCodec{})

	v := viper.NewWithOptions(viper.WithCodecRegistry(registry))
	v.SetConfigType("ini")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVariables(v)
	setDefaults(v)

	return v
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("general.url", "GENERAL_URL")
	v.BindEnv("logging.level", "LOGGING_LEVEL")

	v.BindEnv("mysql.mysqlpassword", "MYSQL_MYSQLPASSWORD")
	v.BindEnv("postgres.postgrespassword", "POSTGRES_POSTGRESPASSWORD")
	v.BindEnv("influxdb.influxdbpassword", "INFLUXDB_INFLUXDBPASSWORD")
	v.BindEnv("redis.redispassword", "REDIS_REDISPASSWORD")
	v.BindEnv("kafka.kafkabrokers", "KAFKA_KAFKABROKERS")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.schema", constants.DefaultSchema)
	v.SetDefault("general.timeout", constants.DefaultFetchTimeout)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "5s")
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("metrics.job", constants.DefaultMetricsJob)

	v.SetDefault("mysql.mysqlport", constants.DefaultMySQLPort)
	v.SetDefault("postgres.postgresport", constants.DefaultPostgresPort)
	v.SetDefault("postgres.postgressslmode", constants.DefaultSSLMode)
	v.SetDefault("influxdb.influxdbport", constants.DefaultInfluxPort)
	v.SetDefault("kafka.kafkatopic", constants.DefaultKafkaTopic)
	v.SetDefault("redis.redisport", constants.DefaultRedisPort)
	v.SetDefault("redis.rediskey", constants.DefaultRedisKey)
}

func decode(v *viper.Viper) (*Config, error) {
	if !v.InConfig(constants.SectionGeneral) {
		return nil, apperrors.ErrConfig.WithMessage("missing [%s] section", constants.SectionGeneral).
			WithDetail("field", constants.SectionGeneral)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, apperrors.ErrConfig.WithCause(err).WithMessage("failed to unmarshal config")
	}

	cfg := &Config{
		General: raw.General,
		Logging: raw.Logging,
		Retry:   raw.Retry,
	}

	if v.InConfig(constants.SectionMetrics) {
		cfg.Metrics = &raw.Metrics
	}
	if v.InConfig(constants.SectionStdout) {
		cfg.Stdout = &StdoutConfig{}
	}
	if v.InConfig(constants.SectionMySQL) {
		cfg.MySQL = &raw.MySQL
	}
	if v.InConfig(constants.SectionPostgres) {
		cfg.Postgres = &raw.Postgres
	}
	if v.InConfig(constants.SectionInfluxDB) {
		cfg.InfluxDB = &raw.InfluxDB
	}
	if v.InConfig(constants.SectionKafka) {
		cfg.Kafka = &raw.Kafka
		cfg.Kafka.Brokers = splitBrokers(raw.Kafka.Brokers)
	}
	if v.InConfig(constants.SectionRedis) {
		cfg.Redis = &raw.Redis
	}

	if err := ValidateStatic(cfg); err != nil {
		return nil, apperrors.ErrConfig.WithCause(err)
	}

	return cfg, nil
}

func splitBrokers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, b := range strings.Split(entry, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	}
	return out
}
