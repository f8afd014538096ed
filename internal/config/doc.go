// Package config loads and validates the TOML configuration for galaxysync.
package config
