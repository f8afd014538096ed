package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/text/cases"
)

// FileName is the manifest file inside every catalog-id-named game
// directory.
const FileName = "gameinfo.json"

// Manifest is the machine-readable description the catalog service writes
// alongside a game's assets. Only the fields the probe needs are modeled.
type Manifest struct {
	IgdbID      int64  `json:"igdbId"`
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate,omitempty"`
}

// Library is a read-only view over the games directory: one subdirectory
// per game, named by the decimal catalog id. The directory name is the
// join key for collection membership probing.
type Library struct {
	root   string
	folder cases.Caser
}

// NewLibrary creates a probe over the games directory at root.
func NewLibrary(root string) *Library {
	return &Library{root: root, folder: cases.Fold()}
}

// DirFor returns the directory path for a catalog id.
func (l *Library) DirFor(id int64) string {
	return filepath.Join(l.root, strconv.FormatInt(id, 10))
}

// HasGame reports whether a directory named by id exists on disk.
func (l *Library) HasGame(id int64) bool {
	info, err := os.Stat(l.DirFor(id))
	return err == nil && info.IsDir()
}

// Read loads the manifest for a game directory, or nil when the directory
// or its manifest is absent.
func (l *Library) Read(id int64) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(l.DirFor(id), FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest for %d: %w", id, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest for %d: %w", id, err)
	}
	return &m, nil
}

// FindByTitle scans every game directory's manifest for a case-insensitive
// exact title match and returns the catalog id of the first hit. A linear
// probe; acceptable at library scale, and callers memoize per run.
func (l *Library) FindByTitle(title string) (int64, bool) {
	want := l.folder.String(title)
	if want == "" {
		return 0, false
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return 0, false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		m, err := l.Read(id)
		if err != nil || m == nil {
			continue
		}
		if l.folder.String(m.Title) == want {
			return id, true
		}
	}
	return 0, false
}
