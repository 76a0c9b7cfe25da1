package shell

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"byn/internal/credentials"
	"byn/internal/session"
	"byn/internal/transport"
	"byn/pkg/api"
)

func testShell(t *testing.T) *Shell {
	t.Helper()

	tr, err := transport.New(transport.Config{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("failed to create transport: %v", err)
	}
	store := credentials.NewStore(credentials.StoreConfig{
		Dir:    t.TempDir(),
		Origin: "http://localhost:1",
	})
	manager, err := session.NewManager(session.Config{
		Transport: tr,
		Store:     store,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	sh, err := New(Config{
		Manager:  manager,
		Store:    store,
		Endpoint: "http://localhost:1",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create shell: %v", err)
	}
	return sh
}

func TestNewRequiresManager(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for missing session manager")
	}
}

func TestBuildPrompt(t *testing.T) {
	sh := testShell(t)

	tests := []struct {
		name       string
		identity   string
		signedIn   bool
		useUnicode bool
		expected   string
	}{
		{
			name:       "signed out",
			signedIn:   false,
			useUnicode: true,
			expected:   "byn [SIGNED OUT] » ",
		},
		{
			name:       "signed in",
			identity:   "jane@example.com",
			signedIn:   true,
			useUnicode: true,
			expected:   "byn jane@example.com » ",
		},
		{
			name:       "ascii fallback",
			identity:   "jane@example.com",
			signedIn:   true,
			useUnicode: false,
			expected:   "byn jane@example.com > ",
		},
		{
			name:       "identity without session still shows marker",
			identity:   "jane@example.com",
			signedIn:   false,
			useUnicode: true,
			expected:   "byn [SIGNED OUT] » ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh.mu.Lock()
			sh.identity = tt.identity
			sh.signedIn = tt.signedIn
			sh.useUnicode = tt.useUnicode
			sh.mu.Unlock()

			if got := sh.buildPrompt(); got != tt.expected {
				t.Errorf("buildPrompt() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuildPromptTruncatesLongIdentity(t *testing.T) {
	sh := testShell(t)

	sh.mu.Lock()
	sh.identity = "alexandra.brennan@very-long-corporation.example"
	sh.signedIn = true
	sh.useUnicode = true
	sh.mu.Unlock()

	got := sh.buildPrompt()
	want := "byn alexandra.brenn...on.example » "
	if got != want {
		t.Errorf("buildPrompt() = %q, want %q", got, want)
	}
}

func TestApplySnapshot(t *testing.T) {
	sh := testShell(t)

	sh.applySnapshot(session.Session{
		State: session.StateAuthenticated,
		User:  &api.UserProfile{Email: "jane@example.com"},
	})
	if !strings.Contains(sh.buildPrompt(), "jane@example.com") {
		t.Errorf("prompt after sign-in = %q, want identity shown", sh.buildPrompt())
	}

	sh.applySnapshot(session.Session{State: session.StateUnauthenticated})
	if !strings.Contains(sh.buildPrompt(), StateSignedOut) {
		t.Errorf("prompt after sign-out = %q, want %q shown", sh.buildPrompt(), StateSignedOut)
	}
}

func TestSessionNotice(t *testing.T) {
	tests := []struct {
		name     string
		snap     session.Session
		contains string
	}{
		{
			name: "signed in includes identity",
			snap: session.Session{
				State: session.StateAuthenticated,
				User:  &api.UserProfile{Email: "jane@example.com"},
			},
			contains: "signed in as jane@example.com",
		},
		{
			name:     "signed out includes reason",
			snap:     session.Session{State: session.StateUnauthenticated, Err: "session expired"},
			contains: "signed out (session expired)",
		},
		{
			name:     "signed out without reason",
			snap:     session.Session{State: session.StateUnauthenticated},
			contains: "signed out",
		},
		{
			name:     "sign-in failure includes message",
			snap:     session.Session{State: session.StateAuthError, Err: "invalid email or password"},
			contains: "sign-in failed: invalid email or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notice := sessionNotice(tt.snap)
			if !strings.Contains(notice, tt.contains) {
				t.Errorf("sessionNotice() = %q, want substring %q", notice, tt.contains)
			}
		})
	}
}

func TestExecuteCommand(t *testing.T) {
	sh := testShell(t)

	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "help command",
			input:   "help",
			wantErr: false,
		},
		{
			name:    "question mark help",
			input:   "?",
			wantErr: false,
		},
		{
			name:    "status works signed out",
			input:   "status",
			wantErr: false,
		},
		{
			name:    "whoami requires session",
			input:   "whoami",
			wantErr: true,
			errMsg:  "not signed in",
		},
		{
			name:    "profile requires session",
			input:   "profile",
			wantErr: true,
			errMsg:  "not signed in",
		},
		{
			name:    "jobs requires session",
			input:   "jobs golang",
			wantErr: true,
			errMsg:  "not signed in",
		},
		{
			name:    "logout requires session",
			input:   "logout",
			wantErr: true,
			errMsg:  "not signed in",
		},
		{
			name:    "unknown command",
			input:   "frobnicate",
			wantErr: true,
			errMsg:  "unknown command",
		},
		{
			name:    "command names are case insensitive",
			input:   "HELP",
			wantErr: false,
		},
		{
			name:    "empty input is ignored",
			input:   "   ",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sh.executeCommand(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("executeCommand(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("executeCommand(%q) error = %v, want error containing %q", tt.input, err, tt.errMsg)
			}
		})
	}
}

func TestExecuteCommandExit(t *testing.T) {
	sh := testShell(t)

	for _, input := range []string{"exit", "quit"} {
		if err := sh.executeCommand(input); !errors.Is(err, errExit) {
			t.Errorf("executeCommand(%q) = %v, want exit sentinel", input, err)
		}
	}
}

func TestCreateCompleter(t *testing.T) {
	completer := createCompleter()
	if completer == nil {
		t.Fatal("createCompleter returned nil")
	}
}
