package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	MetadataRoot   string `toml:"metadata_root"`
	GalaxyDatabase string `toml:"galaxy_database"`
	ImagesDir      string `toml:"images_dir"`
}

// Catalog contains the remote catalog service connection settings.
type Catalog struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for galaxysync.
//
// Configuration sections:
//   - Paths: metadata root, Galaxy database, webcache images
//   - Catalog: remote catalog URL and credentials
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Catalog Catalog `toml:"catalog"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/galaxysync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a config file actually existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	_, err = os.Stat(defaultPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

// WriteSample writes the embedded sample configuration to path. Callers
// decide whether overwriting an existing file is acceptable.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the metadata root and its subdirectories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MetadataRoot, c.GamesDir(), c.LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GamesDir returns the directory holding catalog-id-named game directories.
func (c *Config) GamesDir() string {
	return filepath.Join(c.Paths.MetadataRoot, "games")
}

// ImportMapPath returns the location of the persisted import map.
func (c *Config) ImportMapPath() string {
	return filepath.Join(c.Paths.MetadataRoot, "importmap.json")
}

// LogDir returns the directory for run logs.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.MetadataRoot, "logs")
}

// LogPath returns the mirrored run log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogDir(), "galaxysync.log")
}

// LockPath returns the run lock file guarding against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.MetadataRoot, "galaxysync.lock")
}

// ExpandPath resolves ~ and relative paths to absolute ones.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
