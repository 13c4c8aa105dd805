// Package config loads the storefront configuration from the environment.
//
// An optional .env file in the working directory is read first; variables
// already set in the process environment win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sakif/storefront/internal/auth"
)

// Config holds server configuration.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	BaseURL  string `env:"BASE_URL"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// SecretKey signs session cookies. Required.
	SecretKey    string        `env:"SECRET_KEY"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// DatabaseURL is a postgres:// DSN or a SQLite file path.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"data/storefront.db"`

	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	Google ProviderEnv `envPrefix:"GOOGLE_"`
	GitHub ProviderEnv `envPrefix:"GITHUB_"`
}

// ProviderEnv is the raw environment for one identity provider. Empty
// endpoint URLs and scopes fall back to the provider's defaults.
type ProviderEnv struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	UserInfoURL  string   `env:"USERINFO_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

func (p ProviderEnv) configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Load reads .env (if present) and parses the environment.
func Load() (Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()
	return Parse()
}

// Parse parses the process environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// Validate reports configuration that makes the server unable to run.
func (c Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	} else if len(c.SecretKey) < 16 {
		errs = append(errs, errors.New("SECRET_KEY must be at least 16 characters"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	if len(c.Providers()) == 0 {
		errs = append(errs, errors.New("no identity provider configured: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Providers returns a provider config for every provider whose client id
// and secret are both set.
func (c Config) Providers() []auth.ProviderConfig {
	var out []auth.ProviderConfig
	for _, p := range []struct {
		name string
		env  ProviderEnv
	}{
		{auth.Google, c.Google},
		{auth.GitHub, c.GitHub},
	} {
		if !p.env.configured() {
			continue
		}
		out = append(out, auth.ProviderConfig{
			Name:         p.name,
			ClientID:     p.env.ClientID,
			ClientSecret: p.env.ClientSecret,
			AuthURL:      p.env.AuthURL,
			TokenURL:     p.env.TokenURL,
			UserInfoURL:  p.env.UserInfoURL,
			Scopes:       trimCSV(p.env.Scopes),
		})
	}
	return out
}

// UsesPostgres reports whether DatabaseURL points at PostgreSQL.
func (c Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}

// trimCSV removes empty entries from a CSV-split slice.
func trimCSV(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
