package config

const (
	defaultMetadataRoot   = "~/.local/share/galaxysync"
	defaultGalaxyDatabase = "~/GOG Galaxy/storage/galaxy-2.0.db"
	defaultImagesDir      = "~/GOG Galaxy/webcache"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MetadataRoot:   defaultMetadataRoot,
			GalaxyDatabase: defaultGalaxyDatabase,
			ImagesDir:      defaultImagesDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
