package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Failures here abort the run
// before any work starts.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.MetadataRoot == "" {
		return errors.New("paths.metadata_root must be set")
	}
	if c.Paths.GalaxyDatabase == "" {
		return errors.New("paths.galaxy_database must be set. Set GALAXYSYNC_DB or edit the config file")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.URL == "" {
		return errors.New("catalog.url must be set")
	}
	if c.Catalog.Username == "" || c.Catalog.Password == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/galaxysync/config.toml"
		}
		return fmt.Errorf("catalog credentials are required. Set GALAXYSYNC_CATALOG_USERNAME and GALAXYSYNC_CATALOG_PASSWORD or edit %s (create with 'galaxysync config init')", defaultPath)
	}
	return nil
}
