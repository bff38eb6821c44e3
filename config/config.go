// Package config loads client settings.
//
// Sources, lowest priority first:
//  1. env-default tags;
//  2. a .env file (explicit path, or ./.env when present);
//  3. the process environment.
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	cookieDBName   = "cookies.db"
	cookieKeyName  = "cookies.key"
	legacyFileName = "tokens.json"
)

type Config struct {
	Env     string `env:"APP_ENV" env-default:"development" env-description:"development or production"`
	BaseURL string `env:"BASE_URL" env-default:"http://localhost:5000" env-description:"API host"`

	TimeoutMS     int `env:"TIMEOUT" env-default:"10000" env-description:"per-attempt timeout in milliseconds"`
	RetryAttempts int `env:"RETRY_ATTEMPTS" env-default:"3" env-description:"total attempts per request"`
	RetryDelayMS  int `env:"RETRY_DELAY" env-default:"1000" env-description:"linear backoff unit in milliseconds"`

	// RateLimit is in requests per second; 0 disables limiting.
	RateLimit float64 `env:"RATE_LIMIT" env-default:"0"`

	DataDir         string `env:"DATA_DIR" env-description:"directory for the cookie jar (default ~/.focusflow)"`
	LegacyTokenFile string `env:"LEGACY_TOKEN_FILE" env-description:"plaintext token file to migrate from"`
	LogLevel        string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads configuration with Read and validates it. envFile names a .env
// file to load; when empty, ./.env is loaded if it exists. Values already in
// the environment win over the file.
func Load(envFile string) (*Config, error) {
	cfg, err := Read(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply overrides before
// calling Validate themselves.
func Read(envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func (c *Config) resolvePaths() error {
	if c.DataDir == "" {
		c.DataDir = "~/.focusflow"
	}
	dir, err := expandHome(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dir

	if c.LegacyTokenFile == "" {
		c.LegacyTokenFile = filepath.Join(c.DataDir, legacyFileName)
	}
	c.LegacyTokenFile, err = expandHome(c.LegacyTokenFile)
	return err
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL must be an http(s) URL, got %q", c.BaseURL))
	}
	if c.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("TIMEOUT must be positive, got %d", c.TimeoutMS))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts))
	}
	if c.RetryDelayMS < 0 {
		errs = append(errs, fmt.Errorf("RETRY_DELAY must not be negative, got %d", c.RetryDelayMS))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must not be negative, got %g", c.RateLimit))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

func (c *Config) Production() bool { return c.Env == EnvProduction }

// SecureCookies reports whether token cookies are marked Secure: always in
// production, and whenever the API is reached over TLS.
func (c *Config) SecureCookies() bool {
	return c.Production() || strings.HasPrefix(strings.ToLower(c.BaseURL), "https://")
}

func (c *Config) CookieDBPath() string  { return filepath.Join(c.DataDir, cookieDBName) }
func (c *Config) CookieKeyPath() string { return filepath.Join(c.DataDir, cookieKeyName) }

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Usage describes the recognized environment variables.
func Usage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return desc
}
