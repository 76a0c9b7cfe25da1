package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"byn/internal/cli"
	"byn/internal/gateway"
	"byn/pkg/api"

	"github.com/spf13/cobra"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the byn session",
	Long: `Manage the byn session.

The auth command group provides subcommands to sign in, sign up,
inspect the current session, rotate credentials, and sign out.

Examples:
  byn auth login                       # Sign in with email and password
  byn auth register                    # Create an account and sign in
  byn auth status                      # Show session status
  byn auth whoami                      # Show the signed-in identity
  byn auth refresh                     # Force a credential rotation
  byn auth change-password             # Change the account password
  byn auth logout                      # Sign out`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear stored credentials",
	Long: `Sign out from the platform.

Stored credentials are removed immediately. The server-side session is
revoked in the background; even when that fails you stay signed out
locally.

Examples:
  byn auth logout                      # Sign out with confirmation
  byn auth logout --yes                # Sign out without confirmation`,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a credential rotation",
	Long: `Force a rotation of the stored credential pair.

This exchanges the refresh token for a fresh pair, which can be useful
if you are experiencing authentication issues.

Examples:
  byn auth refresh                     # Rotate the stored credentials`,
	RunE: runAuthRefresh,
}

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	Long: `Show the currently signed-in identity and credential details.

Examples:
  byn auth whoami                      # Show identity and expiry`,
	RunE: runAuthWhoami,
}

// authChangePasswordCmd represents the auth change-password command
var authChangePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the account password",
	Long: `Change the password of the signed-in account.

The current and new passwords are prompted for interactively and never
echoed. The session stays signed in afterwards.

Examples:
  byn auth change-password`,
	RunE: runAuthChangePassword,
}

// Logout-specific flags
var logoutYes bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authWhoamiCmd)
	authCmd.AddCommand(authChangePasswordCmd)

	authLogoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Skip confirmation prompt")
}

// logoutLinger is how long the command waits for the background
// revocation before exiting anyway.
const logoutLinger = 3 * time.Second

func runAuthLogout(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	if !app.store.Present() {
		outln("Not signed in.")
		return nil
	}

	if !logoutYes {
		ok, err := confirm("Sign out and clear stored credentials?")
		if err != nil {
			return err
		}
		if !ok {
			outln("Cancelled.")
			return nil
		}
	}

	done := app.manager.Logout()

	// Give the background revocation a moment; local sign-out already
	// happened either way.
	select {
	case <-done:
	case <-time.After(logoutLinger):
	}

	out("Signed out from %s\n", app.cfg.APIURL)
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	if !app.store.Present() {
		return &cli.AuthRequiredError{}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), DefaultStatusCheckTimeout)
	defer cancel()

	out("Rotating credentials for %s...\n", app.cfg.APIURL)
	if _, err := app.manager.Gateway().Refresh(ctx); err != nil {
		if errors.Is(err, gateway.ErrNoRefreshCredential) || gateway.IsInvalidCredentials(err) {
			return &cli.AuthRequiredError{}
		}
		return app.wrapRequestError(err)
	}

	outln("Credentials rotated.")
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), DefaultStatusCheckTimeout)
	defer cancel()
	if err := app.requireSession(ctx); err != nil {
		return err
	}

	user := app.manager.Session().User
	fmt.Printf("Identity:  %s\n", user.Email)
	if name := user.DisplayName(); name != "" && name != user.Email {
		fmt.Printf("Name:      %s\n", name)
	}
	fmt.Printf("Endpoint:  %s\n", app.cfg.APIURL)

	if pair, ok := app.store.Get(); ok {
		if claims, err := api.PeekClaims(pair.Access); err == nil && !claims.ExpiresAt().IsZero() {
			fmt.Printf("Expires:   %s\n", cli.FormatExpiry(claims.ExpiresAt()))
		}
	}
	return nil
}

func runAuthChangePassword(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), DefaultStatusCheckTimeout)
	defer cancel()
	if err := app.requireSession(ctx); err != nil {
		return err
	}

	oldPassword, err := promptPassword("Current password: ")
	if err != nil {
		return err
	}
	newPassword, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	repeated, err := promptPassword("Repeat new password: ")
	if err != nil {
		return err
	}
	if newPassword != repeated {
		return fmt.Errorf("passwords do not match")
	}

	stop := spin("Changing password...")
	err = app.manager.ChangePassword(ctx, oldPassword, newPassword)
	stop()
	if err != nil {
		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) && httpErr.Detail() != "" {
			return fmt.Errorf("password change rejected: %s", httpErr.Detail())
		}
		return app.wrapRequestError(err)
	}

	outln("Password changed.")
	return nil
}
