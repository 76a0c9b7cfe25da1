package credentials

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the time to wait after the last observed
// change before notifying, so a rename-based pair replacement fires
// one notification instead of several.
const DefaultDebounceInterval = 500 * time.Millisecond

// DefaultWatchInterval is the fallback polling cadence when fsnotify
// is unavailable.
const DefaultWatchInterval = 2 * time.Second

// WatcherConfig holds configuration for the credential change watcher.
type WatcherConfig struct {
	// Store is the credential store to observe. Stores without file
	// persistence cannot be watched.
	Store *Store

	// WatchInterval is the fallback polling interval when fsnotify is
	// not available.
	WatchInterval time.Duration

	// OnChange is called after the stored pair changes on disk,
	// covering sign-ins and sign-outs performed by other processes.
	OnChange func()
}

// Watcher monitors the credential file for external changes. It uses
// fsnotify with a polling fallback, the same dual strategy used for
// any long-lived session: another process signing in or out updates
// the file, and this process follows along.
type Watcher struct {
	mu sync.Mutex

	config   WatcherConfig
	dir      string
	fileName string

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	lastModTime time.Time
	lastExists  bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a watcher for the store's credential file.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.WatchInterval == 0 {
		config.WatchInterval = DefaultWatchInterval
	}
	if config.Store == nil || config.Store.Dir() == "" {
		return nil, os.ErrInvalid
	}

	return &Watcher{
		config:   config,
		dir:      config.Store.Dir(),
		fileName: config.Store.FileName(),
	}, nil
}

// Start begins watching for credential changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true
	w.snapshotState()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify not available, falling back to polling", "error", err.Error())
		go w.pollForChanges()
		return nil
	}

	w.fsWatcher = watcher
	if err := w.fsWatcher.Add(w.dir); err != nil {
		slog.Warn("failed to watch credential directory, falling back to polling",
			"dir", w.dir,
			"error", err.Error(),
		)
		w.fsWatcher.Close()
		w.fsWatcher = nil
		go w.pollForChanges()
		return nil
	}

	// Capture channels before releasing the lock to avoid racing Stop.
	eventsCh := w.fsWatcher.Events
	errorsCh := w.fsWatcher.Errors
	go w.processEvents(eventsCh, errorsCh)

	slog.Debug("watching credential file for changes", "dir", w.dir)
	return nil
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			slog.Warn("credential watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != w.fileName {
		return
	}
	// Writes and creates cover sign-ins and refreshes (the pair lands
	// via rename, observed as Create); removes and renames cover
	// sign-outs.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	slog.Debug("credential file changed", "op", event.Op.String())
	w.notifyDebounced()
}

// notifyDebounced invokes OnChange after a quiet period so multi-step
// file replacements produce a single notification.
func (w *Watcher) notifyDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(DefaultDebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

// pollForChanges is the fallback when fsnotify is not available.
func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				slog.Debug("credential file change detected via polling")
				w.notifyDebounced()
			}
		}
	}
}

// snapshotState records the file's current existence and mtime.
// REQUIRES: w.mu must be held by the caller.
func (w *Watcher) snapshotState() {
	info, err := os.Stat(filepath.Join(w.dir, w.fileName))
	if err != nil {
		w.lastExists = false
		w.lastModTime = time.Time{}
		return
	}
	w.lastExists = true
	w.lastModTime = info.ModTime()
}

// checkForChanges reports whether the file appeared, disappeared, or
// was modified since the last poll.
func (w *Watcher) checkForChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(filepath.Join(w.dir, w.fileName))
	if err != nil {
		changed := w.lastExists
		w.lastExists = false
		w.lastModTime = time.Time{}
		return changed
	}

	changed := !w.lastExists || info.ModTime().After(w.lastModTime)
	w.lastExists = true
	w.lastModTime = info.ModTime()
	return changed
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			slog.Warn("error closing fsnotify watcher", "error", err.Error())
		}
		w.fsWatcher = nil
	}

	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
