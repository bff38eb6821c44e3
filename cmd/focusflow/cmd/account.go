package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/focusflow/auth"
)

var (
	resetEmail       string
	resetToken       string
	resetNewPassword string
	confirmUserID    string
	confirmToken     string
	confirmChange    bool
)

var passwordResetCmd = &cobra.Command{
	Use:   "password-reset",
	Short: "Request a password reset email",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(a *app) error {
			if err := a.auth.RequestPasswordReset(cmd.Context(), resetEmail); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "If the account exists, a reset link has been sent")
			return nil
		})
	},
}

var passwordResetConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Set a new password with the emailed reset token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(a *app) error {
			err := a.auth.ConfirmPasswordReset(cmd.Context(), auth.PasswordResetConfirmation{
				Email:       resetEmail,
				Token:       resetToken,
				NewPassword: resetNewPassword,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated")
			return nil
		})
	},
}

var confirmEmailCmd = &cobra.Command{
	Use:   "confirm-email",
	Short: "Confirm an email address from its emailed link",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(a *app) error {
			confirm := a.auth.ConfirmEmail
			if confirmChange {
				confirm = a.auth.ConfirmEmailChange
			}
			if err := confirm(cmd.Context(), confirmUserID, confirmToken); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email confirmed")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(passwordResetCmd, confirmEmailCmd)
	passwordResetCmd.AddCommand(passwordResetConfirmCmd)

	passwordResetCmd.PersistentFlags().StringVar(&resetEmail, "email", "", "Account email")
	passwordResetConfirmCmd.Flags().StringVar(&resetToken, "token", "", "Reset token from the email")
	passwordResetConfirmCmd.Flags().StringVar(&resetNewPassword, "new-password", "", "New password")

	confirmEmailCmd.Flags().StringVar(&confirmUserID, "user-id", "", "User id from the link")
	confirmEmailCmd.Flags().StringVar(&confirmToken, "token", "", "Token from the link")
	confirmEmailCmd.Flags().BoolVar(&confirmChange, "change", false, "Confirm a changed address instead of a new registration")
}
