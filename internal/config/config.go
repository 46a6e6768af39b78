// Package config provides functionality for managing configuration options
// for the application using a config file, .env, environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the configuration values for the application.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `mapstructure:"server"`
	// DB configures the PostgreSQL connection pool.
	DB DatabaseConfig `mapstructure:"db"`
	// Log configures the logger.
	Log LogConfig `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Address defines the server's listening address (ip:port).
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds the connection settings for PostgreSQL.
type DatabaseConfig struct {
	// DSN, when set, is used verbatim and the individual fields are ignored.
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
	StatsInterval   time.Duration `mapstructure:"stats_interval"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ConnString returns the connection string handed to the postgres driver.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		User:   url.UserPassword(d.User, d.Password),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate reports configuration that cannot produce a working pool.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.DSN == "" {
		if c.DB.Host == "" {
			errs = append(errs, errors.New("db.host is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("db.name is required"))
		}
	}
	if c.DB.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("db.max_conns must be positive, got %d", c.DB.MaxConns))
	}
	if c.DB.MaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("db.max_idle_conns must not be negative, got %d", c.DB.MaxIdleConns))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	return errors.Join(errs...)
}

// envBindings maps configuration keys to the environment variables that set them.
var envBindings = map[string][]string{
	"server.address":          {"SERVER_ADDRESS"},
	"server.shutdown_timeout": {"SHUTDOWN_TIMEOUT"},
	"db.dsn":                  {"DATABASE_DSN"},
	"db.host":                 {"DB_HOST"},
	"db.port":                 {"DB_PORT"},
	"db.user":                 {"DB_USR", "DB_USER"},
	"db.password":             {"DB_PW", "DB_PASSWORD"},
	"db.name":                 {"DB_DBN", "DB_NAME"},
	"db.sslmode":              {"DB_SSLMODE"},
	"db.max_conns":            {"DB_MAX_CONNS"},
	"db.max_idle_conns":       {"DB_MAX_IDLE_CONNS"},
	"db.conn_max_lifetime":    {"DB_CONN_MAX_LIFETIME"},
	"db.ping_timeout":         {"DB_PING_TIMEOUT"},
	"db.stats_interval":       {"DB_STATS_INTERVAL"},
	"log.level":               {"LOG_LEVEL"},
}

// flagBindings maps configuration keys to the command-line flags that set them.
var flagBindings = map[string]string{
	"server.address": "address",
	"db.dsn":         "database-dsn",
	"log.level":      "log-level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 16)
	v.SetDefault("db.max_idle_conns", 4)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("db.ping_timeout", 5*time.Second)
	v.SetDefault("db.stats_interval", time.Minute)

	v.SetDefault("log.level", "info")
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to JSON config file")
	fs.String("env-file", ".env", "path to .env file")
	fs.StringP("address", "a", "", "run on ip:port server")
	fs.StringP("database-dsn", "d", "", "db address")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
}

// Load builds the configuration from, in increasing order of precedence,
// defaults, the JSON config file, the .env file, environment variables and
// flags in fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	envFile := ".env"
	configPath := os.Getenv("CONFIG")
	if fs != nil {
		if f := fs.Lookup("env-file"); f != nil && f.Value.String() != "" {
			envFile = f.Value.String()
		}
		if f := fs.Lookup("config"); f != nil && f.Changed {
			configPath = f.Value.String()
		}
	}

	// Values already present in the environment win over the .env file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if fs != nil {
		for key, name := range flagBindings {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
