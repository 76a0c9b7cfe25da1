package cmd

import (
	"errors"
	"fmt"
	"os"

	"byn/internal/cli"
	"byn/internal/gateway"
	"byn/pkg/api"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Login-specific flags
var loginEmail string

// Register-specific flags
var (
	registerEmail     string
	registerFirstName string
	registerLastName  string
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in to the platform with email and password.

The password is prompted for interactively and never echoed; it is not
accepted as a flag so it cannot leak into the shell history. On success
the credential pair is stored for subsequent commands.

Examples:
  byn auth login                       # Prompt for email and password
  byn auth login --email jane@example.com`,
	RunE: runAuthLogin,
}

// authRegisterCmd represents the auth register command
var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Long: `Create a platform account and sign in with it.

After the account is created, the same credentials are used to sign
in, so a single command leaves you with a working session. A rejected
registration never attempts the sign-in.

Examples:
  byn auth register
  byn auth register --email jane@example.com --first-name Jane --last-name Doe`,
	RunE: runAuthRegister,
}

func init() {
	authLoginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")

	authRegisterCmd.Flags().StringVar(&registerEmail, "email", "", "Account email (prompted when omitted)")
	authRegisterCmd.Flags().StringVar(&registerFirstName, "first-name", "", "First name (prompted when omitted)")
	authRegisterCmd.Flags().StringVar(&registerLastName, "last-name", "", "Last name (prompted when omitted)")
}

// promptPassword reads a password without echoing it.
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	email := loginEmail
	if email == "" {
		if email, err = promptLine("Email: "); err != nil {
			return err
		}
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	stop := spin("Signing in...")
	err = app.manager.Login(cmd.Context(), email, password)
	stop()
	if err != nil {
		return app.signInError(err)
	}

	user := app.manager.Session().User
	out("%s Signed in as %s\n", text.FgGreen.Sprint("✓"), user.Email)
	return nil
}

func runAuthRegister(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	input := api.RegisterRequest{
		Email:     registerEmail,
		FirstName: registerFirstName,
		LastName:  registerLastName,
	}
	if input.Email == "" {
		if input.Email, err = promptLine("Email: "); err != nil {
			return err
		}
	}
	if input.FirstName == "" {
		if input.FirstName, err = promptLine("First name: "); err != nil {
			return err
		}
	}
	if input.LastName == "" {
		if input.LastName, err = promptLine("Last name: "); err != nil {
			return err
		}
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	repeated, err := promptPassword("Repeat password: ")
	if err != nil {
		return err
	}
	if password != repeated {
		return fmt.Errorf("passwords do not match")
	}
	input.Password = password
	input.PasswordConfirm = repeated

	stop := spin("Creating account...")
	err = app.manager.Register(cmd.Context(), input)
	stop()
	if err != nil {
		return app.signInError(err)
	}

	user := app.manager.Session().User
	out("%s Account created. Signed in as %s\n", text.FgGreen.Sprint("✓"), user.Email)
	return nil
}

// signInError maps a failed sign-in or sign-up to a CLI error. The
// session snapshot already carries the human-readable rejection.
func (a *app) signInError(err error) error {
	if gateway.IsInvalidCredentials(err) {
		if msg := a.manager.Session().Err; msg != "" {
			return &cli.AuthFailedError{Reason: errors.New(msg)}
		}
		return &cli.AuthFailedError{Reason: err}
	}
	return a.wrapRequestError(err)
}
