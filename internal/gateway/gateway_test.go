package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"byn/internal/credentials"
	"byn/internal/transport"
	"byn/pkg/api"
)

// testBackend simulates the platform API: a protected profile endpoint
// that accepts exactly one access token, and a refresh endpoint that
// rotates the pair.
type testBackend struct {
	mu           sync.Mutex
	validAccess  string
	validRefresh string
	generation   int

	rejectRefresh  bool // refresh endpoint answers 401
	rejectBearer   bool // profile rejects every token, fresh or not
	refreshDelay   time.Duration
	refreshCalls   int32
	protectedCalls int32

	server *httptest.Server
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{validAccess: "access-0", validRefresh: "refresh-0"}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", b.handleRefresh)
	mux.HandleFunc("/auth/profile/", b.handleProfile)
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *testBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&b.refreshCalls, 1)
	if b.refreshDelay > 0 {
		time.Sleep(b.refreshDelay)
	}

	var req struct {
		Refresh string `json:"refresh"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejectRefresh || req.Refresh != b.validRefresh {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Token is invalid or expired","code":"token_not_valid"}`))
		return
	}

	b.generation++
	b.validAccess = fmt.Sprintf("access-%d", b.generation)
	b.validRefresh = fmt.Sprintf("refresh-%d", b.generation)
	json.NewEncoder(w).Encode(map[string]string{
		"access":  b.validAccess,
		"refresh": b.validRefresh,
	})
}

func (b *testBackend) handleProfile(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&b.protectedCalls, 1)

	b.mu.Lock()
	authorized := !b.rejectBearer && r.Header.Get("Authorization") == "Bearer "+b.validAccess
	b.mu.Unlock()

	if !authorized {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
		return
	}
	w.Write([]byte(`{"id":1,"email":"jane@example.com","first_name":"Jane","last_name":"Doe"}`))
}

// expireAccess invalidates the current access token while keeping the
// refresh token valid, simulating normal token expiry.
func (b *testBackend) expireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validAccess = "expired-" + b.validAccess
}

func (b *testBackend) pair() api.Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return api.Credentials{Access: b.validAccess, Refresh: b.validRefresh}
}

type testClient struct {
	*Client
	store        *credentials.Store
	expiredCalls int32
}

func newTestClient(t *testing.T, b *testBackend) *testClient {
	t.Helper()

	tr, err := transport.New(transport.Config{BaseURL: b.server.URL})
	if err != nil {
		t.Fatalf("transport.New() error: %v", err)
	}

	store := credentials.NewStore(credentials.StoreConfig{Dir: t.TempDir(), Origin: b.server.URL})
	tc := &testClient{store: store}
	tc.Client = New(tr, store, WithAuthExpired(func() {
		atomic.AddInt32(&tc.expiredCalls, 1)
	}))
	return tc
}

func TestRequest_Success(t *testing.T) {
	backend := newTestBackend(t)
	client := newTestClient(t, backend)
	client.store.Set(backend.pair())

	var profile api.UserProfile
	if err := client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, &profile); err != nil {
		t.Fatalf("DoJSON() error: %v", err)
	}

	if profile.Email != "jane@example.com" {
		t.Errorf("unexpected profile %+v", profile)
	}
	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 0 {
		t.Errorf("expected no refresh calls, got %d", calls)
	}
}

func TestRequest_RefreshAndRetryOn401(t *testing.T) {
	backend := newTestBackend(t)
	client := newTestClient(t, backend)
	client.store.Set(backend.pair())
	backend.expireAccess()

	var profile api.UserProfile
	if err := client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, &profile); err != nil {
		t.Fatalf("DoJSON() error: %v", err)
	}

	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", calls)
	}
	if calls := atomic.LoadInt32(&backend.protectedCalls); calls != 2 {
		t.Errorf("expected original plus one retry, got %d profile calls", calls)
	}

	// The rotated pair must have replaced both slots.
	stored, ok := client.store.Get()
	if !ok {
		t.Fatal("expected a stored pair after refresh")
	}
	if stored != backend.pair() {
		t.Errorf("expected rotated pair %+v, got %+v", backend.pair(), stored)
	}
	if calls := atomic.LoadInt32(&client.expiredCalls); calls != 0 {
		t.Errorf("successful refresh must not signal expiry, got %d calls", calls)
	}
}

func TestRequest_ConcurrentExpiryRefreshesOnce(t *testing.T) {
	backend := newTestBackend(t)
	backend.refreshDelay = 100 * time.Millisecond
	client := newTestClient(t, backend)
	client.store.Set(backend.pair())
	backend.expireAccess()

	const workers = 5
	start := make(chan struct{})
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, nil)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d failed: %v", i, err)
		}
	}
	// All workers must have shared a single refresh exchange and
	// retried with the same rotated credential.
	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 1 {
		t.Errorf("expected 1 refresh call (singleflight), got %d", calls)
	}
}

func TestRequest_RefreshFailureIsTerminal(t *testing.T) {
	backend := newTestBackend(t)
	backend.rejectRefresh = true
	backend.refreshDelay = 100 * time.Millisecond
	client := newTestClient(t, backend)
	client.store.Set(backend.pair())
	backend.expireAccess()

	const workers = 5
	start := make(chan struct{})
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, nil)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if !IsAuthExpired(err) {
			t.Errorf("request %d: expected AuthExpiredError, got %v", i, err)
		}
		// The originating 401 stays reachable through the chain.
		if !IsStatus(err, http.StatusUnauthorized) {
			t.Errorf("request %d: expected the originating 401, got %v", i, err)
		}
	}

	if client.store.Present() {
		t.Error("expected both credential slots cleared after terminal refresh failure")
	}
	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 1 {
		t.Errorf("expected 1 refresh call, got %d", calls)
	}
	if calls := atomic.LoadInt32(&client.expiredCalls); calls != workers {
		t.Errorf("expected every waiter to signal expiry, got %d of %d", calls, workers)
	}
}

func TestRequest_RetriedRequestNeverRetriesAgain(t *testing.T) {
	backend := newTestBackend(t)
	client := newTestClient(t, backend)
	client.store.Set(backend.pair())
	// The refresh succeeds, but the resource keeps answering 401 even
	// for the fresh token.
	backend.rejectBearer = true

	err := client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, nil)

	if IsAuthExpired(err) {
		t.Errorf("a 401 on the retried attempt is a plain HTTP error, got %v", err)
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("expected a 401 HTTPError, got %v", err)
	}
	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 1 {
		t.Errorf("expected exactly 1 refresh, got %d", calls)
	}
	if calls := atomic.LoadInt32(&backend.protectedCalls); calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestRequest_NoCredentialsFailsFastOn401(t *testing.T) {
	backend := newTestBackend(t)
	client := newTestClient(t, backend)
	// Store left empty: the 401 cannot be recovered and the refresh
	// endpoint must not be contacted.

	err := client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, nil)

	if !IsAuthExpired(err) {
		t.Fatalf("expected AuthExpiredError, got %v", err)
	}
	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 0 {
		t.Errorf("expected no refresh calls, got %d", calls)
	}
	if calls := atomic.LoadInt32(&client.expiredCalls); calls != 1 {
		t.Errorf("expected one expiry signal, got %d", calls)
	}
}

func TestRequest_NoCredentialsSendsNoBearer(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"count":0,"next":null,"previous":null,"results":[]}`))
	}))
	defer server.Close()

	tr, err := transport.New(transport.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("transport.New() error: %v", err)
	}
	store := credentials.NewStore(credentials.StoreConfig{Dir: t.TempDir(), Origin: server.URL})
	client := New(tr, store)

	if _, err := client.Request(context.Background(), http.MethodGet, "/jobs/jobs/", nil); err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if auth := gotAuth.Load().(string); auth != "" {
		t.Errorf("expected no Authorization header, got %q", auth)
	}
}

func TestRequest_NonAuthFailurePassesThrough(t *testing.T) {
	backend := newTestBackend(t)
	client := newTestClient(t, backend)
	client.store.Set(backend.pair())

	_, err := client.Request(context.Background(), http.MethodGet, "/does/not/exist/", nil)

	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected a 404 HTTPError, got %v", err)
	}
	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 0 {
		t.Errorf("non-401 failures must not trigger refresh, got %d calls", calls)
	}
	if !client.store.Present() {
		t.Error("non-401 failures must not clear credentials")
	}
}

func TestRequest_TransportFailureIsNotRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	tr, err := transport.New(transport.Config{BaseURL: serverURL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("transport.New() error: %v", err)
	}
	store := credentials.NewStore(credentials.StoreConfig{Dir: t.TempDir(), Origin: serverURL})
	store.Set(api.Credentials{Access: "a", Refresh: "r"})
	client := New(tr, store)

	_, err = client.Request(context.Background(), http.MethodGet, "/auth/profile/", nil)
	if err == nil {
		t.Fatal("expected a transport error")
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		t.Errorf("transport failures must not become HTTP errors, got %v", err)
	}
	if !store.Present() {
		t.Error("transport failures must not clear credentials")
	}
}

func TestRequest_NewEpisodeRefreshesAgain(t *testing.T) {
	backend := newTestBackend(t)
	client := newTestClient(t, backend)
	client.store.Set(backend.pair())

	backend.expireAccess()
	if err := client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, nil); err != nil {
		t.Fatalf("first episode failed: %v", err)
	}

	// The pair expires again later; a fresh 401 must start a fresh
	// refresh rather than reusing the finished one.
	backend.expireAccess()
	if err := client.DoJSON(context.Background(), http.MethodGet, "/auth/profile/", nil, nil); err != nil {
		t.Fatalf("second episode failed: %v", err)
	}

	if calls := atomic.LoadInt32(&backend.refreshCalls); calls != 2 {
		t.Errorf("expected 2 refresh calls across 2 episodes, got %d", calls)
	}
}

func TestRequest_QueryAndHeaderOptions(t *testing.T) {
	var gotQuery url.Values
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Get("X-Custom")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr, err := transport.New(transport.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("transport.New() error: %v", err)
	}
	client := New(tr, credentials.NewStore(credentials.StoreConfig{Dir: t.TempDir(), Origin: server.URL}))

	query := url.Values{}
	query.Set("search", "backend")
	query.Set("page", "2")
	_, err = client.Request(context.Background(), http.MethodGet, "/jobs/jobs/", nil,
		WithQuery(query), WithHeader("X-Custom", "yes"))
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}

	if gotQuery.Get("search") != "backend" || gotQuery.Get("page") != "2" {
		t.Errorf("unexpected query %v", gotQuery)
	}
	if gotHeader != "yes" {
		t.Errorf("expected custom header, got %q", gotHeader)
	}
}
