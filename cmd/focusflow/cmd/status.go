package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/focusflow/auth"
	"github.com/jmcleod/focusflow/session"
)

type statusReport struct {
	BaseURL string
	State   session.State
	Claims  *auth.Claims
	Cookies []*http.Cookie
	Now     time.Time
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(a *app) error {
			report := statusReport{
				BaseURL: a.client.BaseURL(),
				State:   a.session.State(),
				Now:     a.jar.Now(),
			}
			if token, ok := a.session.GetAccessToken(); ok {
				if claims, err := auth.Inspect(token); err == nil {
					report.Claims = claims
				} else {
					a.logger.Debug("access token is not a JWT", slog.String("error", err.Error()))
				}
			}
			cookies, err := a.jar.All()
			if err != nil {
				return err
			}
			report.Cookies = cookies
			renderStatus(cmd.OutOrStdout(), report)
			return nil
		})
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func renderStatus(w io.Writer, r statusReport) {
	fmt.Fprintf(w, "API:            %s\n", r.BaseURL)
	fmt.Fprintf(w, "Authenticated:  %s\n", yesNo(r.State.Authenticated()))
	fmt.Fprintf(w, "Refresh token:  %s\n", yesNo(r.State.HasRefresh))

	if r.Claims != nil {
		if r.Claims.Subject != "" {
			fmt.Fprintf(w, "User:           %s\n", r.Claims.Subject)
		}
		if left, ok := r.Claims.ExpiresIn(r.Now); ok {
			if left > 0 {
				fmt.Fprintf(w, "Access expires: %s (in %s)\n", r.Claims.ExpiresAt.UTC().Format(time.RFC3339), left.Round(time.Second))
			} else {
				fmt.Fprintf(w, "Access expires: %s (expired)\n", r.Claims.ExpiresAt.UTC().Format(time.RFC3339))
			}
		}
	}

	if len(r.Cookies) == 0 {
		return
	}
	fmt.Fprintln(w, "Cookies:")
	for _, c := range r.Cookies {
		fmt.Fprintf(w, "  %-13s expires %s secure=%t\n", c.Name, c.Expires.UTC().Format(time.RFC3339), c.Secure)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
