package cmd

import (
	"errors"
	"os"

	"byn/internal/cli"
	"byn/internal/config"
	"byn/internal/gateway"
	"byn/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions so scripts can branch on the result.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates a signed-in session is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates a sign-in or sign-up attempt was rejected.
	ExitCodeAuthFailed = 3
	// ExitCodeConnection indicates the platform API could not be reached.
	ExitCodeConnection = 4
)

// Global flags shared by every command.
var (
	rootAPIURL     string
	rootConfigPath string
	rootLogLevel   string
	rootQuiet      bool
)

// rootCmd represents the base command for the byn application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "byn",
	Short: "Command-line client for the BYN professional network",
	Long: `byn is a command-line client for the BYN professional network.

It signs you in once, keeps the session alive by rotating tokens in
the background, and gives you your profile, job listings, and feed
without leaving the terminal.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	// This is useful for providing cleaner error output to the user.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(os.Stderr, logging.ParseLevel(resolveLogLevel()))
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
// This can be used by other commands to access the build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "byn version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}
	if gateway.IsAuthExpired(err) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	var connErr *cli.ConnectionError
	if errors.As(err, &connErr) {
		return ExitCodeConnection
	}

	return ExitCodeError
}

// resolveLogLevel picks the log level: the flag wins, then the config
// file, then the built-in default.
func resolveLogLevel() string {
	if rootLogLevel != "" {
		return rootLogLevel
	}
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return config.Default().LogLevel
	}
	return cfg.LogLevel
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().StringVar(&rootAPIURL, "api-url", "", "Platform API base URL (env: BYN_API_URL)")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", config.DefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log verbosity: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "Suppress non-essential output")
}
