package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"APP_ENV", "BASE_URL", "TIMEOUT", "RETRY_ATTEMPTS", "RETRY_DELAY",
		"RATE_LIMIT", "DATA_DIR", "LEGACY_TOKEN_FILE", "LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay())
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, filepath.Join(home, ".focusflow"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, ".focusflow", "tokens.json"), cfg.LegacyTokenFile)
	assert.Equal(t, filepath.Join(home, ".focusflow", "cookies.db"), cfg.CookieDBPath())
	assert.False(t, cfg.SecureCookies())

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	dataDir := t.TempDir()
	t.Setenv("APP_ENV", "production")
	t.Setenv("BASE_URL", "https://api.focusflow.test")
	t.Setenv("TIMEOUT", "2500")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("RETRY_DELAY", "200")
	t.Setenv("RATE_LIMIT", "2.5")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.True(t, cfg.SecureCookies())
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryDelay())
	assert.InDelta(t, 2.5, cfg.RateLimit, 0.0001)
	assert.Equal(t, filepath.Join(dataDir, "tokens.json"), cfg.LegacyTokenFile)
	assert.Equal(t, filepath.Join(dataDir, "cookies.key"), cfg.CookieKeyPath())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("BASE_URL=http://dotenv.test:8080\nRETRY_ATTEMPTS=4\nDATA_DIR="+dir+"\n"), 0o600))
	t.Setenv("RETRY_ATTEMPTS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.test:8080", cfg.BaseURL)
	assert.Equal(t, 2, cfg.RetryAttempts, "the process environment wins over .env")
}

func TestLoadExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "staging.env")
	require.NoError(t, os.WriteFile(path, []byte("TIMEOUT=1500\nDATA_DIR=/tmp/ff\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout())

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestReadDefersValidation(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TIMEOUT", "0")

	_, err := Load("")
	assert.Error(t, err)

	cfg, err := Read("")
	require.NoError(t, err)
	assert.Zero(t, cfg.TimeoutMS)
	assert.Error(t, cfg.Validate())

	cfg.TimeoutMS = 5000
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := Config{Env: EnvDevelopment, BaseURL: "http://x.test", TimeoutMS: 1, RetryAttempts: 1, LogLevel: "info"}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"env":      func(c *Config) { c.Env = "staging" },
		"base url": func(c *Config) { c.BaseURL = "localhost" },
		"timeout":  func(c *Config) { c.TimeoutMS = 0 },
		"attempts": func(c *Config) { c.RetryAttempts = 0 },
		"delay":    func(c *Config) { c.RetryDelayMS = -1 },
		"rate":     func(c *Config) { c.RateLimit = -1 },
		"level":    func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestUsageListsVariables(t *testing.T) {
	usage := Usage()
	for _, k := range []string{"BASE_URL", "TIMEOUT", "RETRY_ATTEMPTS", "RETRY_DELAY"} {
		assert.Contains(t, usage, k)
	}
}
