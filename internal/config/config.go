package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mode selects the database handle reuse policy.
type Mode string

const (
	Production  Mode = "production"
	Development Mode = "development"
)

type Config struct {
	Mode      Mode
	DB        DB
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	// Events picks the change-event publisher: "noop", "log" or "memory".
	Events string
}

type DB struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New returns a viper instance with defaults and environment bindings.
// Keys map to TODO_* variables, e.g. db.dsn -> TODO_DB_DSN.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("mode", string(Development))
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "root:123456@tcp(127.0.0.1:3306)/todos?parseTime=true")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("events", "noop")

	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("db.dsn", "TODO_DB_DSN", "DATABASE_URL")
	_ = v.BindEnv("mode", "TODO_MODE", "APP_ENV")

	v.SetConfigName("todoweb")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.todoweb")
	return v
}

// Load reads .env (if present), the optional config file and the environment,
// then validates the result.
func Load(v *viper.Viper) (*Config, error) {
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Mode: Mode(strings.ToLower(v.GetString("mode"))),
		DB: DB{
			Driver:          strings.ToLower(v.GetString("db.driver")),
			DSN:             v.GetString("db.dsn"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		},
		HTTPAddr:  v.GetString("http.addr"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		Events:    v.GetString("events"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case Production, Development:
	default:
		return fmt.Errorf("invalid mode %q (want production or development)", c.Mode)
	}
	switch c.DB.Driver {
	case "mysql", "postgres", "postgresql", "pgx", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db.dsn is required")
	}
	switch c.Events {
	case "noop", "log", "memory":
	default:
		return fmt.Errorf("invalid events publisher %q (want noop, log or memory)", c.Events)
	}
	return nil
}

// ReuseHandles reports whether database handles are kept in the process-wide registry.
func (c *Config) ReuseHandles() bool { return c.Mode == Development }
