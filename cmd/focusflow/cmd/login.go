package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Sign in with email and password. When --password is omitted it is read
from the first line of standard input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password from stdin: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		return withApp(cmd, true, func(a *app) error {
			res, err := a.auth.Login(cmd.Context(), loginEmail, password)
			if err != nil {
				return err
			}
			name := res.UserName
			if res.FullName != "" {
				name = res.FullName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", name, res.Email)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(a *app) error {
			if err := a.auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move tokens from the legacy plaintext file into the cookie jar",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(a *app) error {
			migrated, err := a.session.MigrateLegacyTokens()
			if err != nil {
				return err
			}
			if migrated {
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated legacy tokens from %s\n", a.cfg.LegacyTokenFile)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No legacy tokens to migrate")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, migrateCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (read from stdin when empty)")
	_ = loginCmd.MarkFlagRequired("email")
}
