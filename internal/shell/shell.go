package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"byn/internal/credentials"
	"byn/internal/session"
	pkgstrings "byn/pkg/strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
)

// promptChevronUnicode is the guillemet separator used in the prompt.
const promptChevronUnicode = "»"

// promptChevronASCII is the fallback chevron for terminals without
// unicode support.
const promptChevronASCII = ">"

// StateSignedOut is the indicator shown in the prompt while no session
// is active. Displayed in uppercase because it requires user action
// (running 'login').
const StateSignedOut = "[SIGNED OUT]"

// maxIdentityLength is the maximum length for the signed-in identity in
// the prompt. Longer identities are truncated with a middle ellipsis to
// preserve the distinguishing domain suffix.
const maxIdentityLength = 28

// commandTimeout bounds individual shell command execution. Generous
// enough for slow networks while still catching hung requests.
const commandTimeout = 2 * time.Minute

// historyFileName is the readline history file kept in the temp dir.
const historyFileName = ".byn_shell_history"

// errExit signals a clean shutdown requested by the exit command.
var errExit = errors.New("exit")

// Config carries the dependencies for an interactive shell.
type Config struct {
	// Manager is the session state machine the shell observes and
	// drives. Required.
	Manager *session.Manager

	// Store is watched for credential changes made by other
	// processes, so a sign-in or sign-out elsewhere updates this
	// shell's prompt. Optional.
	Store *credentials.Store

	// Endpoint is the platform URL shown by the status command.
	Endpoint string

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Shell is the interactive session for the platform. It wraps readline
// with tab completion and history, dispatches the command set, and
// keeps its prompt in sync with the session state: sign-ins, sign-outs
// and expiry are reflected immediately, including ones performed by
// other processes against the same credential file.
type Shell struct {
	manager  *session.Manager
	store    *credentials.Store
	endpoint string
	logger   *slog.Logger

	rl      *readline.Instance
	watcher *credentials.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu         sync.RWMutex
	identity   string
	signedIn   bool
	useUnicode bool
}

// New creates a shell around the given session manager.
func New(cfg Config) (*Shell, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("shell requires a session manager")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Shell{
		manager:    cfg.Manager,
		store:      cfg.Store,
		endpoint:   cfg.Endpoint,
		logger:     logger,
		stopCh:     make(chan struct{}),
		useUnicode: detectUnicodeSupport(),
	}, nil
}

// detectUnicodeSupport checks if the terminal likely supports unicode
// characters. Returns false for dumb terminals or when uncertain.
func detectUnicodeSupport() bool {
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}

	for _, v := range []string{os.Getenv("LANG"), os.Getenv("LC_ALL")} {
		lower := strings.ToLower(v)
		if strings.Contains(lower, "utf-8") || strings.Contains(lower, "utf8") {
			return true
		}
	}

	unicodeTerminals := []string{"xterm", "screen", "tmux", "alacritty", "kitty", "iterm"}
	termLower := strings.ToLower(term)
	for _, ut := range unicodeTerminals {
		if strings.Contains(termLower, ut) {
			return true
		}
	}

	return true
}

// buildPrompt creates the prompt from the current session state.
// Format examples:
//   - "byn jane@example.com » "  signed in
//   - "byn [SIGNED OUT] » "      no active session
func (s *Shell) buildPrompt() string {
	s.mu.RLock()
	identity := s.identity
	signedIn := s.signedIn
	useUnicode := s.useUnicode
	s.mu.RUnlock()

	chevron := promptChevronASCII
	if useUnicode {
		chevron = promptChevronUnicode
	}

	parts := []string{"byn"}
	if signedIn && identity != "" {
		parts = append(parts, pkgstrings.TruncateMiddle(identity, maxIdentityLength))
	} else {
		parts = append(parts, StateSignedOut)
	}
	parts = append(parts, chevron)

	return strings.Join(parts, " ") + " "
}

// updatePrompt refreshes the readline prompt with the current state.
func (s *Shell) updatePrompt() {
	if s.rl != nil {
		s.rl.SetPrompt(s.buildPrompt())
	}
}

// applySnapshot folds a session snapshot into the prompt state.
func (s *Shell) applySnapshot(snap session.Session) {
	s.mu.Lock()
	s.signedIn = snap.State == session.StateAuthenticated
	if snap.User != nil {
		s.identity = snap.User.Email
	} else if !s.signedIn {
		s.identity = ""
	}
	s.mu.Unlock()

	s.updatePrompt()
}

// Run starts the shell and enters the main interaction loop. It
// restores any stored session first, then processes commands until
// context cancellation, EOF, or an explicit exit.
func (s *Shell) Run(ctx context.Context) error {
	restoreCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := s.manager.Restore(restoreCtx)
	cancel()
	if err != nil {
		s.logger.Debug("session restore failed", "error", err.Error())
	}
	s.applySnapshot(s.manager.Session())

	config := &readline.Config{
		Prompt:          s.buildPrompt(),
		HistoryFile:     filepath.Join(os.TempDir(), historyFileName),
		AutoComplete:    createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	s.rl = rl

	sessionCh := s.manager.Subscribe()
	s.wg.Add(1)
	go s.sessionListener(ctx, sessionCh)

	s.startWatcher()
	defer s.stopWatcher()

	s.printWelcome()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		default:
		}

		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			s.shutdown()
			s.println("Goodbye!")
			return nil
		} else if err != nil {
			s.shutdown()
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := s.executeCommand(input); err != nil {
			if errors.Is(err, errExit) {
				s.shutdown()
				s.println("Goodbye!")
				return nil
			}
			s.println(text.FgRed.Sprint("Error: ") + err.Error())
		}
	}
}

func (s *Shell) shutdown() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Shell) printWelcome() {
	s.println("BYN interactive shell. Type 'help' for available commands. Use TAB for completion.")
	if !s.manager.Session().SignedIn() {
		s.println("Not signed in. Run 'login' to start a session.")
	}
	s.println("")
}

// sessionListener reacts to session transitions for as long as the
// shell runs. Every snapshot updates the prompt; state changes also
// print a notice above the current line so sign-ins, sign-outs and
// expiries are visible even when another process caused them.
func (s *Shell) sessionListener(ctx context.Context, ch <-chan session.Session) {
	defer s.wg.Done()

	lastState := s.manager.State()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case snap := <-ch:
			changed := snap.State != lastState
			lastState = snap.State
			s.applySnapshot(snap)

			if changed {
				s.printNotice(sessionNotice(snap))
			}
		}
	}
}

// sessionNotice renders the one-line announcement for a transition.
func sessionNotice(snap session.Session) string {
	switch snap.State {
	case session.StateAuthenticated:
		who := ""
		if snap.User != nil {
			who = " as " + snap.User.Email
		}
		return text.FgGreen.Sprint("● signed in") + who
	case session.StateAuthError:
		return text.FgRed.Sprint("● sign-in failed: " + snap.Err)
	default:
		notice := text.FgYellow.Sprint("● signed out")
		if snap.Err != "" {
			notice += " (" + snap.Err + ")"
		}
		return notice
	}
}

// printNotice writes a line above the active readline prompt, then
// redraws the prompt so the user can keep typing.
func (s *Shell) printNotice(line string) {
	if s.rl == nil {
		fmt.Println(line)
		return
	}
	s.rl.Stdout().Write([]byte("\r\033[K"))
	fmt.Fprintln(s.rl.Stdout(), line)
	s.rl.Refresh()
}

// println writes a plain output line, through readline when active so
// redrawing stays consistent.
func (s *Shell) println(line string) {
	if s.rl != nil {
		fmt.Fprintln(s.rl.Stdout(), line)
		return
	}
	fmt.Println(line)
}

// startWatcher begins following the credential file so sessions
// started or ended by other processes are mirrored here.
func (s *Shell) startWatcher() {
	if s.store == nil {
		return
	}

	watcher, err := credentials.NewWatcher(credentials.WatcherConfig{
		Store: s.store,
		OnChange: func() {
			syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.manager.SyncFromStore(syncCtx)
		},
	})
	if err != nil {
		s.logger.Debug("credential watching unavailable", "error", err.Error())
		return
	}
	if err := watcher.Start(); err != nil {
		s.logger.Debug("failed to start credential watcher", "error", err.Error())
		return
	}
	s.watcher = watcher
}

func (s *Shell) stopWatcher() {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Debug("failed to stop credential watcher", "error", err.Error())
		}
	}
}

// readLine prompts for one line of input inside the shell, restoring
// the regular prompt afterwards.
func (s *Shell) readLine(label string) (string, error) {
	s.rl.SetPrompt(label)
	defer s.updatePrompt()

	line, err := s.rl.Readline()
	if err != nil {
		return "", fmt.Errorf("input aborted")
	}
	return strings.TrimSpace(line), nil
}

// createCompleter builds the tab completion tree for the command set.
func createCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("?"),
		readline.PcItem("status"),
		readline.PcItem("whoami"),
		readline.PcItem("profile"),
		readline.PcItem("jobs"),
		readline.PcItem("feed"),
		readline.PcItem("login"),
		readline.PcItem("logout"),
		readline.PcItem("refresh"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

// filterInput blocks control runes that would suspend the shell.
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
