package importmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"galaxysync/internal/logging"
)

// Entry is the persisted resolution for one release key. It is the
// idempotence ledger: once present, normal runs skip the release entirely.
type Entry struct {
	IgdbID      int64    `json:"igdbId"`
	Title       *string  `json:"title"`
	ReleaseDate *string  `json:"releaseDate"` // YYYY-MM-DD or bare year
	Stars       *float64 `json:"stars"`       // 0-10 scale
}

// UnmarshalJSON accepts both the current object shape and the legacy format
// where an entry was a bare catalog id.
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed != "" && trimmed[0] != '{' {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("legacy entry: %w", err)
		}
		*e = Entry{IgdbID: id}
		return nil
	}
	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Store holds the releaseKey to catalog-identity map, persisted as a JSON
// object at a fixed path under the metadata root.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry
}

// Open loads the map at path. An absent or malformed file is not fatal:
// the store starts empty and logs a warning, trading a re-import risk for
// the ability to always run.
func Open(path string, logger *slog.Logger) *Store {
	logger = logging.NewComponentLogger(logger, "importmap")

	s := &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}
	if err := s.load(); err != nil {
		logger.Warn("failed to load import map, starting empty",
			logging.String("path", path),
			logging.Error(err))
	}
	return s
}

// Lookup returns the entry for releaseKey if one exists.
func (s *Store) Lookup(releaseKey string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[releaseKey]
	return entry, ok
}

// Put records the resolution for releaseKey and persists the whole map.
func (s *Store) Put(releaseKey string, entry Entry) error {
	releaseKey = strings.TrimSpace(releaseKey)
	if releaseKey == "" {
		return errors.New("release key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[releaseKey] = entry
	return s.saveLocked()
}

// Backfill merges entry into the existing record for releaseKey, filling
// only fields that are currently unset, and persists. Used by forced
// reimport, which must never clobber previously resolved metadata.
func (s *Store) Backfill(releaseKey string, entry Entry) error {
	releaseKey = strings.TrimSpace(releaseKey)
	if releaseKey == "" {
		return errors.New("release key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[releaseKey]
	if !ok {
		s.entries[releaseKey] = entry
		return s.saveLocked()
	}
	if current.IgdbID == 0 {
		current.IgdbID = entry.IgdbID
	}
	if current.Title == nil {
		current.Title = entry.Title
	}
	if current.ReleaseDate == nil {
		current.ReleaseDate = entry.ReleaseDate
	}
	if current.Stars == nil {
		current.Stars = entry.Stars
	}
	s.entries[releaseKey] = current
	return s.saveLocked()
}

// Snapshot returns a copy of the current map contents.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for key, entry := range s.entries {
		out[key] = entry
	}
	return out
}

// Len returns the number of mapped release keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Path returns the on-disk location backing the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read import map: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse import map: %w", err)
	}

	for key := range entries {
		if strings.TrimSpace(key) == "" {
			delete(entries, key)
		}
	}
	s.entries = entries

	s.logger.Debug("loaded import map",
		logging.Int("entry_count", len(entries)),
		logging.String("path", s.path))
	return nil
}

// saveLocked serializes the whole map atomically via a temp-file rename.
// Callers hold s.mu.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal import map: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create import map directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
