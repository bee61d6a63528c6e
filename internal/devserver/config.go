package devserver

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable of the dev server
const EnvPrefix = "MAILGUARD_DEVSERVER"

// Config holds dev server configuration
type Config struct {
	Addr            string
	DBPath          string        // SQLite file; empty keeps state in memory
	Secret          string        // HS256 key
	AccessTokenTTL  time.Duration // short on purpose, to exercise refresh
	RefreshTokenTTL time.Duration
	LoginBurst      int           // token requests allowed at once per IP
	LoginEvery      time.Duration // one more token request per interval
	EmbedUser       bool          // return the profile from /auth/token/
	Seed            bool          // create the demo account with sample mail
	LogLevel        string
	ShowVersion     bool
}

// Demo account created when Seed is set
const (
	DemoUsername = "demo"
	DemoEmail    = "demo@mailguard.local"
	DemoPassword = "demo-password"
)

// LoadConfig reads defaults, MAILGUARD_DEVSERVER_* variables and flags, in that order
func LoadConfig(args []string, output io.Writer) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", "localhost:8000")
	v.SetDefault("db", "")
	v.SetDefault("secret", "")
	v.SetDefault("access_ttl", 5*time.Minute)
	v.SetDefault("refresh_ttl", 24*time.Hour)
	v.SetDefault("login_burst", 10)
	v.SetDefault("login_every", 6*time.Second)
	v.SetDefault("embed_user", false)
	v.SetDefault("seed", true)
	v.SetDefault("log_level", "info")

	flags := flag.NewFlagSet("devserver", flag.ContinueOnError)
	if output != nil {
		flags.SetOutput(output)
	}
	flags.String("addr", v.GetString("addr"), "listen address")
	flags.String("db", v.GetString("db"), "SQLite database path, in-memory state when empty")
	flags.String("secret", v.GetString("secret"), "JWT signing secret, random when empty")
	flags.Duration("access-ttl", v.GetDuration("access_ttl"), "access token lifetime")
	flags.Duration("refresh-ttl", v.GetDuration("refresh_ttl"), "refresh token lifetime")
	flags.Int("login-burst", v.GetInt("login_burst"), "token requests allowed at once per IP")
	flags.Duration("login-every", v.GetDuration("login_every"), "token request refill interval per IP")
	flags.Bool("embed-user", v.GetBool("embed_user"), "include the user profile in token responses")
	flags.Bool("seed", v.GetBool("seed"), "create the demo account with sample emails")
	flags.String("log-level", v.GetString("log_level"), "debug, info, warn or error")
	showVersion := flags.Bool("version", false, "show version information")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name != "version" {
			v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
		}
	})

	cfg := &Config{
		Addr:            v.GetString("addr"),
		DBPath:          v.GetString("db"),
		Secret:          v.GetString("secret"),
		AccessTokenTTL:  v.GetDuration("access_ttl"),
		RefreshTokenTTL: v.GetDuration("refresh_ttl"),
		LoginBurst:      v.GetInt("login_burst"),
		LoginEvery:      v.GetDuration("login_every"),
		EmbedUser:       v.GetBool("embed_user"),
		Seed:            v.GetBool("seed"),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		ShowVersion:     *showVersion,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.LoginBurst < 1 || c.LoginEvery <= 0 {
		return errors.New("login rate limit must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
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
