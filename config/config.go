package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Event sinks.
const (
	SinkRedis   = "redis"
	SinkKafka   = "kafka"
	SinkWebhook = "webhook"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Callers   []CallerConfig  `mapstructure:"callers"`
	Events    EventsConfig    `mapstructure:"events"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// BridgeConfig identifies the trusted processor and the vault's own account.
type BridgeConfig struct {
	ProcessorAddress string `mapstructure:"processor_address"`
	VaultAddress     string `mapstructure:"vault_address"`
	Storage          string `mapstructure:"storage"` // postgres, memory
	// PresumeCustodian treats items missing from item_owners as held by the
	// vault. Enable it when no settlement writer fills that table.
	PresumeCustodian bool `mapstructure:"presume_custodian"`
}

// CallerConfig is one HMAC credential. The caller authenticated with it acts as Address.
type CallerConfig struct {
	Name      string `mapstructure:"name"`
	AccessKey string `mapstructure:"access_key"`
	Secret    string `mapstructure:"secret"`
	Address   string `mapstructure:"address"`
}

type EventsConfig struct {
	Sinks         []string `mapstructure:"sinks"` // redis, kafka, webhook
	RedisStream   string   `mapstructure:"redis_stream"`
	WebhookURL    string   `mapstructure:"webhook_url"`
	WebhookSecret string   `mapstructure:"webhook_secret"`
}

// HasSink reports whether the named sink is enabled.
func (e EventsConfig) HasSink(name string) bool {
	for _, s := range e.Sinks {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitConfig struct {
	RegisterPerMinute int64 `mapstructure:"register_per_minute"`
	ReadPerMinute     int64 `mapstructure:"read_per_minute"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CBR_ (Custody BRidge).
// Nested keys use underscore: CBR_DATABASE_HOST, CBR_BRIDGE_PROCESSOR_ADDRESS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "custody_bridge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("bridge.processor_address", "")
	v.SetDefault("bridge.vault_address", "")
	v.SetDefault("bridge.storage", StoragePostgres)
	v.SetDefault("bridge.presume_custodian", false)
	v.SetDefault("events.sinks", []string{})
	v.SetDefault("events.redis_stream", "custody-bridge:events")
	v.SetDefault("events.webhook_url", "")
	v.SetDefault("events.webhook_secret", "")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "custody-bridge.events")
	v.SetDefault("ratelimit.register_per_minute", 10)
	v.SetDefault("ratelimit.read_per_minute", 120)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CBR_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CBR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the bridge cannot start without.
func (c *Config) Validate() error {
	if c.Bridge.ProcessorAddress == "" {
		return fmt.Errorf("bridge.processor_address is required")
	}
	if c.Bridge.VaultAddress == "" {
		return fmt.Errorf("bridge.vault_address is required")
	}
	switch c.Bridge.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("bridge.storage must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Bridge.Storage)
	}
	for i, caller := range c.Callers {
		if caller.AccessKey == "" || caller.Secret == "" || caller.Address == "" {
			return fmt.Errorf("callers[%d]: access_key, secret and address are required", i)
		}
	}
	if c.Events.HasSink(SinkWebhook) && c.Events.WebhookURL == "" {
		return fmt.Errorf("events.webhook_url is required when the webhook sink is enabled")
	}
	return nil
}
