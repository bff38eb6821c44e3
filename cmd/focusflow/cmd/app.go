package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
	"golang.org/x/time/rate"

	"github.com/jmcleod/focusflow/apiclient"
	"github.com/jmcleod/focusflow/auth"
	"github.com/jmcleod/focusflow/config"
	"github.com/jmcleod/focusflow/jar"
	"github.com/jmcleod/focusflow/session"
	bboltstorage "github.com/jmcleod/focusflow/storage/bbolt"
)

// app holds the wired client for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	repo    *bboltstorage.Store
	jar     *jar.Jar
	session *session.Manager
	client  *apiclient.Client
	auth    *auth.Service
}

// loadConfig reads the environment, applies any flags that were set, then
// validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(envFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("timeout") {
		cfg.TimeoutMS = int(timeout / time.Millisecond)
	}
	if flags.Changed("retry-attempts") {
		cfg.RetryAttempts = retryAttempts
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelayMS = int(retryDelay / time.Millisecond)
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
		if os.Getenv("LEGACY_TOKEN_FILE") == "" {
			cfg.LegacyTokenFile = filepath.Join(dataDir, filepath.Base(cfg.LegacyTokenFile))
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp wires storage, session and transport. When initSession is set,
// legacy tokens are migrated before the command runs.
func openApp(cmd *cobra.Command, initSession bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	key, err := jar.LoadOrCreateKey(cfg.CookieKeyPath())
	if err != nil {
		return nil, err
	}
	repo, err := bboltstorage.NewRepositoryFromFile(cfg.CookieDBPath(), &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie jar: %w", err)
	}

	a, err := wire(cfg, logger, repo, key, initSession)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return a, nil
}

func wire(cfg *config.Config, logger *slog.Logger, repo *bboltstorage.Store, key []byte, initSession bool) (*app, error) {
	j, err := jar.New(repo, key, jar.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	mgr, err := session.New(j,
		session.WithSecureCookies(cfg.SecureCookies()),
		session.WithLegacyStore(session.FileLegacyStore{Path: cfg.LegacyTokenFile}),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if initSession {
		if err := mgr.Init(); err != nil {
			return nil, err
		}
	}

	client, err := apiclient.New(cfg.BaseURL,
		apiclient.WithTimeout(cfg.Timeout()),
		apiclient.WithRetry(cfg.RetryAttempts, cfg.RetryDelay()),
		apiclient.WithRateLimit(rate.Limit(cfg.RateLimit), 1),
		apiclient.WithUserAgent("focusflow/"+Version),
		apiclient.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	svc, err := auth.New(client, mgr, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		repo:    repo,
		jar:     j,
		session: mgr,
		client:  client,
		auth:    svc,
	}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

// withApp opens the app around fn.
func withApp(cmd *cobra.Command, initSession bool, fn func(a *app) error) error {
	a, err := openApp(cmd, initSession)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
