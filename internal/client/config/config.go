// Package config loads client settings. Later sources win:
// defaults, then an optional .env file, then MAILGUARD_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable
const EnvPrefix = "MAILGUARD"

// Session store kinds
const (
	StoreBolt   = "bolt"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Keys, also the env names without prefix (MAILGUARD_SERVER ...)
const (
	keyServer        = "server"
	keyGraphQL       = "graphql_url"
	keyStore         = "store"
	keyDB            = "db"
	keyRedisAddr     = "redis_addr"
	keyRedisPassword = "redis_password"
	keyRedisDB       = "redis_db"
	keyPassphrase    = "passphrase"
	keyCache         = "cache"
	keyLogLevel      = "log_level"
	keyTimeout       = "timeout"
	keyMetricsAddr   = "metrics_addr"
)

// Config holds client configuration
type Config struct {
	ServerURL     string        // API base URL
	GraphQLURL    string        // defaults to ServerURL + "/graphql/"
	Store         string        // bolt, memory or redis
	DBPath        string        // bbolt file
	RedisAddr     string        // host:port
	RedisPassword string        // env only
	RedisDB       int           // redis logical db
	Passphrase    string        // non-empty enables sealed session storage
	CachePath     string        // sqlite email cache, "" disables it
	LogLevel      string        // debug, info, warn, error
	Timeout       time.Duration // per HTTP exchange
	MetricsAddr   string        // serve /metrics while a command runs, "" disables
	ShowVersion   bool
}

func defaults(v *viper.Viper) {
	v.SetDefault(keyServer, "http://localhost:8000")
	v.SetDefault(keyGraphQL, "")
	v.SetDefault(keyStore, StoreBolt)
	v.SetDefault(keyDB, "mailguard-session.db")
	v.SetDefault(keyRedisAddr, "localhost:6379")
	v.SetDefault(keyRedisPassword, "")
	v.SetDefault(keyRedisDB, 0)
	v.SetDefault(keyPassphrase, "")
	v.SetDefault(keyCache, "mailguard-cache.db")
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyTimeout, 30*time.Second)
	v.SetDefault(keyMetricsAddr, "")
}

// Load reads configuration for args (without the program name) and returns
// it along with the arguments left after the flags. envFile may be "" or
// point to a missing file.
func Load(args []string, envFile string, output io.Writer) (*Config, []string, error) {
	if envFile != "" {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	defaults(v)

	flags := flag.NewFlagSet("mailguard", flag.ContinueOnError)
	if output != nil {
		flags.SetOutput(output)
	}
	flags.String(keyServer, v.GetString(keyServer), "API base URL (env MAILGUARD_SERVER)")
	flags.String("graphql-url", v.GetString(keyGraphQL), "GraphQL endpoint, default <server>/graphql/ (env MAILGUARD_GRAPHQL_URL)")
	flags.String(keyStore, v.GetString(keyStore), "session store: bolt, memory or redis (env MAILGUARD_STORE)")
	flags.String(keyDB, v.GetString(keyDB), "session database file for the bolt store (env MAILGUARD_DB)")
	flags.String("redis-addr", v.GetString(keyRedisAddr), "redis address for the redis store (env MAILGUARD_REDIS_ADDR)")
	flags.Int("redis-db", v.GetInt(keyRedisDB), "redis database number (env MAILGUARD_REDIS_DB)")
	flags.String(keyCache, v.GetString(keyCache), "offline email cache, empty to disable (env MAILGUARD_CACHE)")
	flags.String("log-level", v.GetString(keyLogLevel), "debug, info, warn or error (env MAILGUARD_LOG_LEVEL)")
	flags.Duration(keyTimeout, v.GetDuration(keyTimeout), "HTTP timeout (env MAILGUARD_TIMEOUT)")
	flags.String("metrics-addr", v.GetString(keyMetricsAddr), "serve prometheus metrics on this address (env MAILGUARD_METRICS_ADDR)")
	showVersion := flags.Bool("version", false, "show version information")

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	// flags given explicitly override everything else
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "version" {
			return
		}
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	cfg := &Config{
		ServerURL:     strings.TrimRight(v.GetString(keyServer), "/"),
		GraphQLURL:    v.GetString(keyGraphQL),
		Store:         strings.ToLower(v.GetString(keyStore)),
		DBPath:        v.GetString(keyDB),
		RedisAddr:     v.GetString(keyRedisAddr),
		RedisPassword: v.GetString(keyRedisPassword),
		RedisDB:       v.GetInt(keyRedisDB),
		Passphrase:    v.GetString(keyPassphrase),
		CachePath:     v.GetString(keyCache),
		LogLevel:      strings.ToLower(v.GetString(keyLogLevel)),
		Timeout:       v.GetDuration(keyTimeout),
		MetricsAddr:   v.GetString(keyMetricsAddr),
		ShowVersion:   *showVersion,
	}
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = cfg.ServerURL + "/graphql/"
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, flags.Args(), nil
}

// Validate checks the combination of settings
func (c *Config) Validate() error {
	if err := checkURL("server", c.ServerURL); err != nil {
		return err
	}
	if err := checkURL("graphql url", c.GraphQLURL); err != nil {
		return err
	}

	switch c.Store {
	case StoreBolt:
		if c.DBPath == "" {
			return errors.New("bolt store needs a database path")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis store needs an address")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q: want bolt, memory or redis", c.Store)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: want http(s)://host", name, raw)
	}
	return nil
}

// SlogLevel parses LogLevel
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
