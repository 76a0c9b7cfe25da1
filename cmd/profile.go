package cmd

import (
	"context"
	"os"

	"byn/internal/cli"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Profile-specific flags
var profileOutput string

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	Long: `Show the profile of the signed-in user.

The profile is fetched fresh from the platform, so edits made in the
browser show up here immediately.

Examples:
  byn profile                          # Show the profile as a table
  byn profile -o json                  # Emit the raw profile JSON`,
	RunE: runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profileOutput, "output", "o", "table", "Output format: table or json")
}

func runProfile(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(profileOutput); err != nil {
		return err
	}

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
	if cli.OutputFormat(profileOutput) == cli.OutputFormatJSON {
		return cli.RenderJSON(os.Stdout, user)
	}

	tbl := cli.NewTable(os.Stdout)
	tbl.AppendHeader(cli.HeaderRow("FIELD", "VALUE"))
	tbl.AppendRow(table.Row{"Name", user.DisplayName()})
	tbl.AppendRow(table.Row{"Email", user.Email})
	appendIfSet(tbl, "Headline", user.Headline)
	appendIfSet(tbl, "Position", user.CurrentPosition)
	appendIfSet(tbl, "Location", user.Location)
	appendIfSet(tbl, "Industry", user.Industry)
	appendIfSet(tbl, "Experience", user.ExperienceLevel)
	if user.IsVerified {
		tbl.AppendRow(table.Row{"Verified", "yes"})
	}
	if joined := cli.ParseTimestamp(user.DateJoined); !joined.IsZero() {
		tbl.AppendRow(table.Row{"Member since", joined.Format("January 2006")})
	}
	tbl.Render()
	return nil
}

// appendIfSet adds a key/value row only when the value is non-empty.
func appendIfSet(tbl table.Writer, field, value string) {
	if value != "" {
		tbl.AppendRow(table.Row{field, value})
	}
}
