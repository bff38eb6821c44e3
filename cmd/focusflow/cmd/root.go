package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/focusflow/apperr"
)

var (
	envFile       string
	baseURL       string
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	dataDir       string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "focusflow",
	Short: "FocusFlow is a command-line client for the FocusFlow API",
	Long: `A command-line client for the FocusFlow productivity API.
It keeps your session in an encrypted cookie jar and retries transient failures.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", describeError(err))
		return 1
	}
	return 0
}

// describeError renders classified failures with their user-facing text.
func describeError(err error) string {
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return apperr.UserFriendlyMessage(ae)
	}
	return err.Error()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", "", "Load settings from this .env file (default ./.env when present)")
	pf.StringVar(&baseURL, "base-url", "", "API host (overrides BASE_URL)")
	pf.DurationVar(&timeout, "timeout", 0, "Per-attempt request timeout (overrides TIMEOUT)")
	pf.IntVar(&retryAttempts, "retry-attempts", 0, "Total attempts per request (overrides RETRY_ATTEMPTS)")
	pf.DurationVar(&retryDelay, "retry-delay", 0, "Linear backoff unit (overrides RETRY_DELAY)")
	pf.StringVar(&dataDir, "data-dir", "", "Directory for the session cookie jar (overrides DATA_DIR)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
}
