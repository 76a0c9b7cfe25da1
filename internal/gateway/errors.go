package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrNoRefreshCredential indicates a refresh was requested while the
// store holds no refresh token. The server is never contacted in this
// case; signing in again is the only way forward.
var ErrNoRefreshCredential = errors.New("no refresh credential available")

// HTTPError is a completed request whose status signals failure. The
// raw body is preserved so callers can inspect the backend's error
// payload.
type HTTPError struct {
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.Status, detail)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Detail extracts the human-readable message from the backend's error
// body. The API emits several shapes: `{"detail": ...}` from the
// framework, `{"error": ...}` and `{"message": ...}` from handlers,
// and per-field validation maps like `{"email": ["taken"]}`. Returns
// an empty string when no message can be extracted.
func (e *HTTPError) Detail() string {
	if len(e.Body) == 0 {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "error", "message"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}

	if msg := firstListMessage(payload, "non_field_errors"); msg != "" {
		return msg
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if msg := firstListMessage(payload, key); msg != "" {
			return fmt.Sprintf("%s: %s", key, msg)
		}
	}
	return ""
}

func firstListMessage(payload map[string]any, key string) string {
	list, ok := payload[key].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	s, _ := list[0].(string)
	return s
}

// IsStatus reports whether err carries an HTTPError with the given
// status anywhere in its chain.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}

// IsInvalidCredentials reports whether err looks like a rejected
// sign-in attempt (the backend answers 400 or 401 to bad credentials).
func IsInvalidCredentials(err error) bool {
	return IsStatus(err, http.StatusBadRequest) || IsStatus(err, http.StatusUnauthorized)
}

// AuthExpiredError wraps the response that triggered a refresh which
// then failed terminally. Credentials are already cleared when this is
// returned; the user has to sign in again.
type AuthExpiredError struct {
	Cause error
}

// Error implements the error interface.
func (e *AuthExpiredError) Error() string {
	return "session expired, sign in again"
}

// Unwrap returns the originating error for chain inspection.
func (e *AuthExpiredError) Unwrap() error {
	return e.Cause
}

// NewAuthExpiredError creates an AuthExpiredError around the response
// that could not be retried.
func NewAuthExpiredError(cause error) *AuthExpiredError {
	return &AuthExpiredError{Cause: cause}
}

// IsAuthExpired reports whether err marks a terminally expired session.
func IsAuthExpired(err error) bool {
	var expiredErr *AuthExpiredError
	return errors.As(err, &expiredErr)
}
