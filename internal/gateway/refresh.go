package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"byn/internal/credentials"
	"byn/internal/transport"
	"byn/pkg/api"
)

// refreshPath is the token rotation endpoint.
const refreshPath = "/auth/token/refresh/"

// refresher exchanges the stored refresh token for a new pair. All
// concurrent callers share a single exchange: the first caller runs
// it, later callers block and receive the same outcome. A caller
// arriving after the exchange finished starts a fresh one.
type refresher struct {
	transport *transport.Transport
	store     *credentials.Store
	logger    *slog.Logger

	// group deduplicates concurrent refresh attempts. singleflight
	// takes its own lock before consulting in-flight calls, which is
	// what keeps two goroutines from both starting an exchange.
	group singleflight.Group
}

// Refresh runs (or joins) a credential refresh and returns the pair
// now in effect. On failure both stored slots are cleared, so a
// subsequent call fails fast with ErrNoRefreshCredential.
func (r *refresher) Refresh(ctx context.Context) (api.Credentials, error) {
	result, err, shared := r.group.Do("refresh", func() (any, error) {
		return r.doRefresh(ctx)
	})
	if err != nil {
		return api.Credentials{}, err
	}

	pair := result.(api.Credentials)
	if shared {
		r.logger.Debug("joined in-flight credential refresh")
	}
	return pair, nil
}

func (r *refresher) doRefresh(ctx context.Context) (any, error) {
	current, ok := r.store.Get()
	if !ok {
		return nil, ErrNoRefreshCredential
	}

	body, err := json.Marshal(struct {
		Refresh string `json:"refresh"`
	}{Refresh: current.Refresh})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	resp, err := r.transport.Do(ctx, http.MethodPost, refreshPath, nil, body)
	if err != nil {
		// A canceled caller is inconclusive, not a server verdict;
		// keep the pair so the next invocation can try again.
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		r.logger.Warn("credential refresh failed, clearing session", "error", err.Error())
		r.store.Clear()
		return nil, fmt.Errorf("credential refresh failed: %w", err)
	}

	if !resp.IsSuccess() {
		r.logger.Warn("credential refresh rejected, clearing session", "status", resp.StatusCode)
		r.store.Clear()
		return nil, &HTTPError{Status: resp.StatusCode, Body: resp.Body}
	}

	var rotated api.TokenResponse
	if err := resp.Decode(&rotated); err != nil {
		r.store.Clear()
		return nil, fmt.Errorf("credential refresh returned an unreadable response: %w", err)
	}
	if rotated.Access == "" {
		r.store.Clear()
		return nil, fmt.Errorf("credential refresh returned no access token")
	}

	pair := api.Credentials{Access: rotated.Access, Refresh: rotated.Refresh}
	if pair.Refresh == "" {
		// Rotation normally replaces both tokens; keep the current
		// refresh token when the server returns only an access token.
		pair.Refresh = current.Refresh
	}
	r.store.Set(pair)
	r.logger.Debug("credentials refreshed")
	return pair, nil
}
