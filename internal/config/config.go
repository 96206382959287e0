// Package config loads tasklist settings from an optional YAML file and
// TASKLIST_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/St1cky1/tasklist/internal/infrastructure/client"
	"github.com/spf13/viper"
)

const envPrefix = "TASKLIST"

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTP            *HTTP
	GRPC            *GRPC
	Storage         *Storage
	Postgres        client.PostgresConfig
	RabbitMQ        *RabbitMQ
	Auth            *Auth
	Logger          *Logger
	ShutdownTimeout time.Duration
	Viper           *viper.Viper
}

type HTTP struct {
	Addr string
}

type GRPC struct {
	Enabled bool
	Addr    string
}

type Storage struct {
	Driver      string
	SQLitePath  string
	AutoMigrate bool
}

// RabbitMQ is optional; an empty URL disables the audit feed.
type RabbitMQ struct {
	URL   string
	Queue string
}

type Auth struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

type Logger struct {
	Level  string
	Format string
}

// New returns a viper instance with defaults and env binding in place.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "tasklist.db")
	v.SetDefault("storage.auto_migrate", true)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "tasklist")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.queue", client.DefaultAuditQueue)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.token_ttl", "15m")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("shutdown_timeout", "15s")
}

// Load reads path (when set) on top of the defaults and environment.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTP:            &HTTP{Addr: v.GetString("http.addr")},
		GRPC:            getGRPCConfig(v),
		Storage:         getStorageConfig(v),
		Postgres:        getPostgresConfig(v),
		RabbitMQ:        &RabbitMQ{URL: v.GetString("rabbitmq.url"), Queue: v.GetString("rabbitmq.queue")},
		Auth:            getAuthConfig(v),
		Logger:          &Logger{Level: v.GetString("logger.level"), Format: v.GetString("logger.format")},
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		Viper:           v,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getGRPCConfig(v *viper.Viper) *GRPC {
	return &GRPC{
		Enabled: v.GetBool("grpc.enabled"),
		Addr:    v.GetString("grpc.addr"),
	}
}

func getStorageConfig(v *viper.Viper) *Storage {
	return &Storage{
		Driver:      strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		SQLitePath:  v.GetString("storage.sqlite_path"),
		AutoMigrate: v.GetBool("storage.auto_migrate"),
	}
}

func getPostgresConfig(v *viper.Viper) client.PostgresConfig {
	return client.PostgresConfig{
		Host:     v.GetString("postgres.host"),
		Port:     v.GetString("postgres.port"),
		User:     v.GetString("postgres.user"),
		Password: v.GetString("postgres.password"),
		DBName:   v.GetString("postgres.dbname"),
		SSLMode:  v.GetString("postgres.sslmode"),
		MaxConns: int32(v.GetInt("postgres.max_conns")),
	}
}

func getAuthConfig(v *viper.Viper) *Auth {
	return &Auth{
		Secret:   v.GetString("auth.secret"),
		Issuer:   v.GetString("auth.issuer"),
		TokenTTL: v.GetDuration("auth.token_ttl"),
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverPostgres:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want memory, sqlite or postgres)", c.Storage.Driver)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}
