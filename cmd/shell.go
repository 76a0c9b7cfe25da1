package cmd

import (
	"log/slog"

	"byn/internal/shell"

	"github.com/spf13/cobra"
)

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session",
	Long: `Start an interactive shell against the platform.

The shell keeps one session alive across commands, shows the signed-in
identity in its prompt, and follows session changes as they happen,
including sign-ins and sign-outs performed by other byn processes.

Examples:
  byn shell`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	sh, err := shell.New(shell.Config{
		Manager:  app.manager,
		Store:    app.store,
		Endpoint: app.cfg.APIURL,
		Logger:   slog.Default(),
	})
	if err != nil {
		return err
	}

	return sh.Run(cmd.Context())
}
