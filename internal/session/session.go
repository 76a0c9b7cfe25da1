package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"byn/internal/credentials"
	"byn/internal/gateway"
	"byn/internal/transport"
	"byn/pkg/api"
)

// State represents the current authentication state of the session.
type State int

const (
	// StateInitializing means the stored session has not been probed yet.
	StateInitializing State = iota

	// StateAuthenticated means the user is signed in and the profile is loaded.
	StateAuthenticated

	// StateUnauthenticated means no usable session exists.
	StateUnauthenticated

	// StateAuthError means the last explicit sign-in or sign-up attempt failed.
	StateAuthError
)

// String returns the string representation of the session state.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthError:
		return "error"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the session at one point in
// time. User is non-nil exactly when State is StateAuthenticated, and
// Err is non-empty only in StateAuthError.
type Session struct {
	State State
	User  *api.UserProfile
	Err   string
}

// SignedIn reports whether the snapshot represents an authenticated
// session.
func (s Session) SignedIn() bool {
	return s.State == StateAuthenticated
}

const (
	loginPath          = "/auth/login/"
	registerPath       = "/auth/register/"
	logoutPath         = "/auth/logout/"
	profilePath        = "/auth/profile/"
	changePasswordPath = "/auth/change-password/"
)

// logoutTimeout bounds the fire-and-forget server-side sign-out.
const logoutTimeout = 10 * time.Second

// subscriberBuffer is the per-subscriber channel capacity. A consumer
// that falls this far behind starts losing intermediate snapshots.
const subscriberBuffer = 16

// Config configures the session manager.
type Config struct {
	// Transport executes the HTTP exchanges. Required.
	Transport *transport.Transport

	// Store holds the credential pair. Required.
	Store *credentials.Store

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnSignInRequired is invoked once when an authenticated session
	// expires mid-use and the user has to sign in again. Optional.
	OnSignInRequired func()
}

// Manager is the session state machine. It owns the authenticated
// request pipeline, performs the explicit sign-in/sign-up/sign-out
// transitions, and observes credential expiry surfaced by the
// pipeline. One Manager per process; consumers share it by reference
// and watch it through Subscribe.
type Manager struct {
	mu          sync.RWMutex
	state       State
	user        *api.UserProfile
	errMsg      string
	subscribers []chan Session

	gateway          *gateway.Client
	transport        *transport.Transport
	store            *credentials.Store
	logger           *slog.Logger
	onSignInRequired func()
}

// NewManager creates the session manager and its request pipeline.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		state:            StateInitializing,
		transport:        cfg.Transport,
		store:            cfg.Store,
		logger:           logger,
		onSignInRequired: cfg.OnSignInRequired,
	}
	m.gateway = gateway.New(cfg.Transport, cfg.Store,
		gateway.WithLogger(logger),
		gateway.WithAuthExpired(m.handleAuthExpired),
	)
	return m, nil
}

// Gateway returns the authenticated request pipeline bound to this
// session. All resource calls go through it.
func (m *Manager) Gateway() *gateway.Client {
	return m.gateway
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe returns a channel receiving a snapshot after every
// observable session change. The channel is never closed; slow
// consumers miss intermediate snapshots rather than blocking the
// session.
func (m *Manager) Subscribe() <-chan Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Session, subscriberBuffer)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Restore probes a previously stored session at startup. With no
// stored pair the session lands in StateUnauthenticated immediately.
// With a pair present the profile is fetched through the pipeline, so
// an expired access token is transparently refreshed and retried; an
// expired refresh token cleanly signs the session out. The returned
// error is non-nil only for failures that leave the outcome undecided,
// such as an unreachable backend.
func (m *Manager) Restore(ctx context.Context) error {
	if !m.store.Present() {
		m.setUnauthenticated("no stored session")
		return nil
	}

	var profile api.UserProfile
	if err := m.gateway.DoJSON(ctx, http.MethodGet, profilePath, nil, &profile); err != nil {
		if gateway.IsAuthExpired(err) {
			// handleAuthExpired already moved the session to
			// StateUnauthenticated and cleared the pair.
			return nil
		}
		m.setUnauthenticated("session restore failed")
		return fmt.Errorf("failed to restore session: %w", err)
	}

	m.setAuthenticated(&profile)
	return nil
}

// Login signs in with email and password. The call goes directly to
// the transport: a 400 or 401 here means rejected credentials, never
// an expired session, and must not trigger the pipeline's refresh
// logic. On success both credential slots are replaced and the session
// becomes StateAuthenticated with the user embedded in the response.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := m.transport.Do(ctx, http.MethodPost, loginPath, nil, body)
	if err != nil {
		m.setAuthError("the platform could not be reached")
		return err
	}
	if !resp.IsSuccess() {
		httpErr := &gateway.HTTPError{Status: resp.StatusCode, Body: resp.Body}
		m.setAuthError(loginFailureMessage(httpErr))
		return httpErr
	}

	var issued api.TokenResponse
	if err := resp.Decode(&issued); err != nil {
		m.setAuthError("the platform returned an unreadable response")
		return err
	}
	if !issued.Credentials().Valid() {
		m.setAuthError("the platform returned an incomplete credential pair")
		return fmt.Errorf("login response missing tokens")
	}
	m.store.Set(issued.Credentials())

	user := issued.User
	if user == nil {
		// Older deployments do not embed the user in the login
		// response; fall back to a profile fetch.
		user = &api.UserProfile{}
		if err := m.gateway.DoJSON(ctx, http.MethodGet, profilePath, nil, user); err != nil {
			m.setAuthError("signed in, but the profile could not be loaded")
			return fmt.Errorf("failed to load profile after login: %w", err)
		}
	}

	m.setAuthenticated(user)
	return nil
}

// Register creates an account and then signs in with the same
// credentials. A failed account creation never attempts the sign-in.
func (m *Manager) Register(ctx context.Context, input api.RegisterRequest) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode registration request: %w", err)
	}

	resp, err := m.transport.Do(ctx, http.MethodPost, registerPath, nil, body)
	if err != nil {
		m.setAuthError("the platform could not be reached")
		return err
	}
	if !resp.IsSuccess() {
		httpErr := &gateway.HTTPError{Status: resp.StatusCode, Body: resp.Body}
		msg := httpErr.Detail()
		if msg == "" {
			msg = "registration was rejected"
		}
		m.setAuthError(msg)
		return httpErr
	}

	m.logger.Info("account registered", "email", input.Email)
	return m.Login(ctx, input.Email, input.Password)
}

// Logout signs out locally right away: both credential slots are
// cleared and the session transitions before this method returns. The
// server-side token revocation runs in the background on its own
// deadline; its failure is logged and otherwise ignored. The returned
// channel closes once the revocation attempt finishes, for callers
// that want to linger. Receiving from it is optional.
func (m *Manager) Logout() <-chan struct{} {
	pair, had := m.store.Get()

	m.store.Clear()
	m.setUnauthenticated("signed out")

	done := make(chan struct{})
	if !had {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		m.revokeServerSession(pair)
	}()
	return done
}

func (m *Manager) revokeServerSession(pair api.Credentials) {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()

	body, err := json.Marshal(api.LogoutRequest{Refresh: pair.Refresh})
	if err != nil {
		return
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+pair.Access)

	resp, err := m.transport.Do(ctx, http.MethodPost, logoutPath, header, body)
	switch {
	case err != nil:
		m.logger.Debug("server-side sign-out failed", "error", err.Error())
	case !resp.IsSuccess():
		m.logger.Debug("server-side sign-out rejected", "status", resp.StatusCode)
	default:
		m.logger.Debug("server-side sign-out completed")
	}
}

// RefreshUser re-fetches the profile and updates the snapshot in
// place without a state transition. Outside StateAuthenticated it is
// a silent no-op.
func (m *Manager) RefreshUser(ctx context.Context) error {
	if m.State() != StateAuthenticated {
		return nil
	}

	var profile api.UserProfile
	if err := m.gateway.DoJSON(ctx, http.MethodGet, profilePath, nil, &profile); err != nil {
		return fmt.Errorf("failed to refresh profile: %w", err)
	}

	m.mu.Lock()
	if m.state != StateAuthenticated {
		// The session expired while the fetch was in flight.
		m.mu.Unlock()
		return nil
	}
	m.user = profile.Clone()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snapshot)
	return nil
}

// ChangePassword updates the account password through the pipeline.
// The session state is untouched: the backend keeps issued tokens
// valid, so the user stays signed in.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	payload := api.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := m.gateway.DoJSON(ctx, http.MethodPost, changePasswordPath, payload, nil); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// SyncFromStore reconciles the session with the credential store
// after an external change, such as another invocation signing in or
// out against the same origin.
func (m *Manager) SyncFromStore(ctx context.Context) {
	if m.store.Present() {
		if m.State() == StateAuthenticated {
			// A background rotation of a live session; nothing to do.
			return
		}
		if err := m.Restore(ctx); err != nil {
			m.logger.Debug("failed to adopt externally created session", "error", err.Error())
		}
		return
	}

	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	m.state = StateUnauthenticated
	m.user = nil
	m.errMsg = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session ended externally", "state", StateUnauthenticated.String())
	m.publish(snapshot)
}

// handleAuthExpired is the pipeline's terminal-refresh-failure
// callback. However many requests fail concurrently, the transition
// and the sign-in-required signal happen at most once per
// authenticated era.
func (m *Manager) handleAuthExpired() {
	m.mu.Lock()
	if m.state == StateUnauthenticated {
		m.mu.Unlock()
		return
	}
	from := m.state
	m.state = StateUnauthenticated
	m.user = nil
	m.errMsg = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session expired",
		"from", from.String(),
		"to", StateUnauthenticated.String(),
	)
	m.publish(snapshot)

	if m.onSignInRequired != nil {
		m.onSignInRequired()
	}
}

func (m *Manager) setAuthenticated(user *api.UserProfile) {
	m.mu.Lock()
	from := m.state
	m.state = StateAuthenticated
	m.user = user.Clone()
	m.errMsg = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session state changed",
		"from", from.String(),
		"to", StateAuthenticated.String(),
		"user", user.Email,
	)
	m.publish(snapshot)
}

func (m *Manager) setUnauthenticated(reason string) {
	m.mu.Lock()
	from := m.state
	m.state = StateUnauthenticated
	m.user = nil
	m.errMsg = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session state changed",
		"from", from.String(),
		"to", StateUnauthenticated.String(),
		"reason", reason,
	)
	m.publish(snapshot)
}

func (m *Manager) setAuthError(msg string) {
	m.mu.Lock()
	from := m.state
	m.state = StateAuthError
	m.user = nil
	m.errMsg = msg
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session state changed",
		"from", from.String(),
		"to", StateAuthError.String(),
		"reason", msg,
	)
	m.publish(snapshot)
}

// snapshotLocked builds a Session copy.
// REQUIRES: m.mu must be held (read or write) by the caller.
func (m *Manager) snapshotLocked() Session {
	return Session{State: m.state, User: m.user.Clone(), Err: m.errMsg}
}

// publish sends the snapshot to every subscriber without blocking.
func (m *Manager) publish(snapshot Session) {
	m.mu.RLock()
	subscribers := make([]chan Session, len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.RUnlock()

	for _, ch := range subscribers {
		select {
		case ch <- snapshot:
		default:
			m.logger.Debug("session subscriber is not keeping up, dropping snapshot")
		}
	}
}

func loginFailureMessage(err *gateway.HTTPError) string {
	if msg := err.Detail(); msg != "" {
		return msg
	}
	return "invalid email or password"
}
