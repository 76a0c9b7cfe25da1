package credentials

import (
	"testing"
	"time"

	"byn/pkg/api"
)

func waitForChange(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func startTestWatcher(t *testing.T, store *Store) <-chan struct{} {
	t.Helper()

	changed := make(chan struct{}, 8)
	watcher, err := NewWatcher(WatcherConfig{
		Store:    store,
		OnChange: func() { changed <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { watcher.Stop() })
	return changed
}

func TestWatcher_ObservesExternalSignIn(t *testing.T) {
	dir := t.TempDir()
	local := NewStore(StoreConfig{Dir: dir, Origin: testOrigin})
	changed := startTestWatcher(t, local)

	// A second process signing in against the same origin.
	external := NewStore(StoreConfig{Dir: dir, Origin: testOrigin})
	external.Set(api.Credentials{Access: "a", Refresh: "r"})

	waitForChange(t, changed)

	if got, ok := local.Get(); !ok || got.Access != "a" {
		t.Errorf("expected the new pair to be visible, got %+v ok=%v", got, ok)
	}
}

func TestWatcher_ObservesExternalSignOut(t *testing.T) {
	dir := t.TempDir()
	local := NewStore(StoreConfig{Dir: dir, Origin: testOrigin})
	local.Set(api.Credentials{Access: "a", Refresh: "r"})

	changed := startTestWatcher(t, local)

	external := NewStore(StoreConfig{Dir: dir, Origin: testOrigin})
	external.Clear()

	waitForChange(t, changed)

	if local.Present() {
		t.Error("expected the sign-out to be visible")
	}
}

func TestWatcher_IgnoresOtherOrigins(t *testing.T) {
	dir := t.TempDir()
	local := NewStore(StoreConfig{Dir: dir, Origin: testOrigin})
	changed := startTestWatcher(t, local)

	other := NewStore(StoreConfig{Dir: dir, Origin: "https://api.example.com/api"})
	other.Set(api.Credentials{Access: "a", Refresh: "r"})

	select {
	case <-changed:
		t.Error("changes to another origin's file must not notify")
	case <-time.After(1 * time.Second):
	}
}

func TestWatcher_RequiresFileBackedStore(t *testing.T) {
	store := &Store{origin: testOrigin} // no directory, memory only
	if _, err := NewWatcher(WatcherConfig{Store: store}); err == nil {
		t.Fatal("expected an error for a store without file persistence")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	store := NewStore(StoreConfig{Dir: t.TempDir(), Origin: testOrigin})
	watcher, err := NewWatcher(WatcherConfig{Store: store, OnChange: func() {}})
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !watcher.IsRunning() {
		t.Error("expected watcher to be running")
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("second Stop() error: %v", err)
	}
	if watcher.IsRunning() {
		t.Error("expected watcher to be stopped")
	}
}
