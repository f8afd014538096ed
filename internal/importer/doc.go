// Package importer implements the per-release import: skip already-mapped
// releases, repair partially uploaded ones under forced reimport, and
// resolve, create, and upload fresh ones.
package importer
