package cmd

import (
	"context"

	"byn/internal/cli"
	"byn/internal/session"
	"byn/pkg/api"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status",
	Long: `Show the current session status.

The stored credentials are verified against the platform, so an access
token that expired while you were away is rotated transparently and a
session revoked server-side is reported as expired.

Examples:
  byn auth status                      # Show session status
  byn auth status -q                   # Suppress decoration (scripting)`,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	outln("BYN Platform")
	out("  Endpoint:  %s\n", app.cfg.APIURL)

	if !app.store.Present() {
		out("  Status:    %s\n", text.FgYellow.Sprint("Not signed in"))
		out("             Run: byn auth login\n")
		return nil
	}

	// Probing the profile verifies the pair with the server and
	// transparently rotates an expired access token.
	ctx, cancel := context.WithTimeout(cmd.Context(), DefaultStatusCheckTimeout)
	defer cancel()
	if err := app.manager.Restore(ctx); err != nil {
		printConnectionStatus(app, err)
		return nil
	}

	if app.manager.State() != session.StateAuthenticated {
		out("  Status:    %s\n", text.FgYellow.Sprint("Session expired"))
		out("             Your stored credentials are no longer accepted.\n")
		out("             Run: byn auth login\n")
		return nil
	}

	user := app.manager.Session().User
	out("  Status:    %s\n", text.FgGreen.Sprint("Signed in"))
	out("  Identity:  %s\n", user.Email)
	printCredentialDetails(app)
	return nil
}

// printCredentialDetails shows expiry and rotation information for the
// stored pair.
func printCredentialDetails(app *app) {
	pair, ok := app.store.Get()
	if !ok {
		return
	}

	if claims, err := api.PeekClaims(pair.Access); err == nil && !claims.ExpiresAt().IsZero() {
		out("  Expires:   %s\n", cli.FormatExpiry(claims.ExpiresAt()))
	}
	if pair.Refresh != "" {
		out("  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		out("  Refresh:   %s\n", text.FgYellow.Sprint("Not available (sign in again on expiry)"))
	}
}

// printConnectionStatus prints a formatted connection error message
// along with whatever local credential information remains useful.
func printConnectionStatus(app *app, err error) {
	connErr := cli.ClassifyConnectionError(err, app.cfg.APIURL)
	out("  Status:    %s\n", text.FgRed.Sprint("Connection failed"))
	out("             %s: %s\n", connErr.Type, cli.FormatReason(err))

	if pair, ok := app.store.Get(); ok {
		if claims, peekErr := api.PeekClaims(pair.Access); peekErr == nil && !claims.ExpiresAt().IsZero() {
			out("  (Local credentials expire: %s)\n", cli.FormatExpiry(claims.ExpiresAt()))
		}
	}
}
