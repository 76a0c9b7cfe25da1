package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"byn/internal/cli"
	"byn/internal/config"
	"byn/internal/credentials"
	"byn/internal/gateway"
	"byn/internal/session"
	"byn/internal/transport"

	"github.com/briandowns/spinner"
)

// DefaultStatusCheckTimeout bounds the session probe commands run
// before touching protected resources.
const DefaultStatusCheckTimeout = 10 * time.Second

// app bundles the wired client stack for one command invocation.
type app struct {
	cfg     config.Config
	store   *credentials.Store
	manager *session.Manager
}

// newApp loads the configuration and builds the transport, credential
// store, and session manager shared by the command.
func newApp() (*app, error) {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return nil, err
	}
	if rootAPIURL != "" {
		cfg.APIURL = rootAPIURL
	}

	tr, err := transport.New(transport.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout(),
		UserAgent: "byn/" + GetVersion(),
	})
	if err != nil {
		return nil, err
	}

	store := credentials.NewStore(credentials.StoreConfig{
		Dir:    cfg.CredentialsDir,
		Origin: cfg.APIURL,
	})

	manager, err := session.NewManager(session.Config{
		Transport: tr,
		Store:     store,
		OnSignInRequired: func() {
			fmt.Fprintln(os.Stderr, "Your session has expired. Run: byn auth login")
		},
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, store: store, manager: manager}, nil
}

// requireSession restores the stored session and fails with guidance
// when nobody is signed in.
func (a *app) requireSession(ctx context.Context) error {
	if err := a.manager.Restore(ctx); err != nil {
		return a.wrapRequestError(err)
	}
	if a.manager.State() != session.StateAuthenticated {
		return &cli.AuthRequiredError{}
	}
	return nil
}

// wrapRequestError maps a failed API call onto the CLI error types
// that carry guidance and exit codes. Server responses and expiry
// errors pass through untouched.
func (a *app) wrapRequestError(err error) error {
	if err == nil {
		return nil
	}
	if gateway.IsAuthExpired(err) {
		return err
	}
	var httpErr *gateway.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	return cli.ClassifyConnectionError(err, a.cfg.APIURL)
}

// out prints user-facing output unless --quiet is set.
func out(format string, args ...any) {
	if !rootQuiet {
		fmt.Printf(format, args...)
	}
}

// outln prints a user-facing line unless --quiet is set.
func outln(a ...any) {
	if !rootQuiet {
		fmt.Println(a...)
	}
}

// spin starts a progress spinner and returns its stop function.
// With --quiet the spinner is skipped entirely.
func spin(suffix string) func() {
	if rootQuiet {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

// confirm asks a yes/no question on stdin, defaulting to no.
func confirm(question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// promptLine reads one line of input after showing a label.
func promptLine(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
