package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"byn/pkg/api"
)

// DefaultStorageDir is the default directory for stored credentials,
// relative to the user's home directory. This follows XDG conventions.
const DefaultStorageDir = ".config/byn/credentials"

// Store holds the access/refresh pair for one API origin.
//
// SECURITY: This store handles bearer credentials. The following
// measures are implemented:
//   - Files are created with 0600 permissions (owner read/write only)
//   - The storage directory is created with 0700 permissions
//   - Credential values are NEVER logged (only the origin is logged)
//   - The pair is written atomically so both slots change together
//
// The durable file is authoritative: reads go to disk so sign-ins and
// sign-outs performed by other processes against the same origin are
// observed immediately. When the storage medium is unavailable the
// store degrades to an in-memory pair and every operation still
// succeeds; durability is simply lost. Operations never return errors,
// matching the fire-and-forget contract callers rely on.
type Store struct {
	mu       sync.RWMutex
	dir      string
	origin   string
	fileMode bool
	memory   *storedPair // fallback when the medium is unavailable
}

// storedPair is the on-disk representation of a credential pair.
type storedPair struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	SavedAt time.Time `json:"saved_at"`
}

// StoreConfig configures the credential store.
type StoreConfig struct {
	// Dir is the directory for credential files.
	// Defaults to ~/.config/byn/credentials.
	Dir string

	// Origin is the API base URL the pair belongs to. Each origin gets
	// its own file, so pointing the client at a different backend never
	// leaks another backend's credentials.
	Origin string
}

// NewStore creates a credential store for the given origin. When the
// storage directory cannot be created the store silently falls back to
// in-memory operation.
func NewStore(cfg StoreConfig) *Store {
	dir := cfg.Dir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("credential storage unavailable, using in-memory store",
				"error", err.Error(),
			)
			return &Store{origin: cfg.Origin}
		}
		dir = filepath.Join(homeDir, DefaultStorageDir)
	}

	store := &Store{dir: dir, origin: cfg.Origin, fileMode: true}
	if err := os.MkdirAll(dir, 0700); err != nil {
		slog.Warn("credential storage unavailable, using in-memory store",
			"dir", dir,
			"error", err.Error(),
		)
		store.fileMode = false
	}
	return store
}

// Get returns the stored pair. The second return value is false when
// no complete pair is stored.
func (s *Store) Get() (api.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair := s.load()
	if pair == nil {
		return api.Credentials{}, false
	}
	creds := api.Credentials{Access: pair.Access, Refresh: pair.Refresh}
	if !creds.Valid() {
		return api.Credentials{}, false
	}
	return creds, true
}

// Present reports whether a complete pair is stored.
func (s *Store) Present() bool {
	_, ok := s.Get()
	return ok
}

// Set replaces the stored pair atomically. Incomplete pairs are
// refused so the two slots always change together.
// SECURITY: Credential values are never logged.
func (s *Store) Set(creds api.Credentials) {
	if !creds.Valid() {
		slog.Warn("SECURITY_AUDIT: refused to store incomplete credential pair",
			"event", "credentials_store_refused",
			"origin", s.origin,
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pair := &storedPair{Access: creds.Access, Refresh: creds.Refresh, SavedAt: time.Now()}
	if !s.fileMode {
		s.memory = pair
		return
	}

	if err := s.writeFile(pair); err != nil {
		slog.Warn("SECURITY_AUDIT: credential persistence failed, keeping pair in memory",
			"event", "credentials_store_failed",
			"origin", s.origin,
			"error", err.Error(),
		)
		s.memory = pair
		return
	}
	s.memory = nil
	slog.Info("SECURITY_AUDIT: credentials stored",
		"event", "credentials_stored",
		"origin", s.origin,
	)
}

// Clear removes both slots, durably and in memory.
// SECURITY: Logs the clearing for audit trail without credential values.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory = nil
	if s.fileMode {
		if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("SECURITY_AUDIT: credential file removal failed",
				"event", "credentials_clear_failed",
				"origin", s.origin,
				"error", err.Error(),
			)
			return
		}
	}
	slog.Info("SECURITY_AUDIT: credentials cleared",
		"event", "credentials_cleared",
		"origin", s.origin,
	)
}

// Dir returns the storage directory, empty for in-memory stores. The
// change watcher uses it to observe sign-ins from other processes.
func (s *Store) Dir() string {
	if !s.fileMode {
		return ""
	}
	return s.dir
}

// FileName returns the name of this origin's credential file within Dir.
func (s *Store) FileName() string {
	return s.key() + ".json"
}

// load returns the current pair from the authoritative medium.
// REQUIRES: s.mu must be held (read or write) by the caller.
func (s *Store) load() *storedPair {
	if !s.fileMode {
		return s.memory
	}
	if s.memory != nil {
		// A pair that could not be persisted lives here until replaced.
		return s.memory
	}

	// #nosec G304 -- path is derived from the origin hash, not user input
	data, err := os.ReadFile(s.path())
	if err != nil {
		return nil
	}
	var pair storedPair
	if err := json.Unmarshal(data, &pair); err != nil {
		slog.Warn("SECURITY_AUDIT: ignoring unreadable credential file",
			"event", "credentials_file_corrupt",
			"origin", s.origin,
			"error", err.Error(),
		)
		return nil
	}
	return &pair
}

// writeFile persists the pair via a temp file and rename so readers
// never observe one slot updated without the other.
func (s *Store) writeFile(pair *storedPair) error {
	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path()); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, s.FileName())
}

// key generates a filesystem-safe identifier for the origin.
func (s *Store) key() string {
	hash := sha256.Sum256([]byte(s.origin))
	return hex.EncodeToString(hash[:16])
}
