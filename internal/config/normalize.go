package config

import (
	"os"
	"strings"
)

// normalize expands paths and applies environment overrides. Ordering
// matters: env values land before expansion so ~ works in either source.
func (c *Config) normalize() error {
	if value, ok := os.LookupEnv("GALAXYSYNC_DB"); ok {
		c.Paths.GalaxyDatabase = value
	}
	if value, ok := os.LookupEnv("GALAXYSYNC_CATALOG_URL"); ok {
		c.Catalog.URL = value
	}
	if value, ok := os.LookupEnv("GALAXYSYNC_CATALOG_USERNAME"); ok {
		c.Catalog.Username = value
	}
	if value, ok := os.LookupEnv("GALAXYSYNC_CATALOG_PASSWORD"); ok {
		c.Catalog.Password = value
	}

	for _, field := range []*string{
		&c.Paths.MetadataRoot,
		&c.Paths.GalaxyDatabase,
		&c.Paths.ImagesDir,
	} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Catalog.URL = strings.TrimRight(strings.TrimSpace(c.Catalog.URL), "/")
	c.Catalog.Username = strings.TrimSpace(c.Catalog.Username)
	c.Catalog.Password = strings.TrimSpace(c.Catalog.Password)
	return nil
}
