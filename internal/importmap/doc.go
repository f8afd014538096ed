// Package importmap persists the mapping from Galaxy release keys to remote
// catalog identities. The map is the single gate for "already imported":
// repeated runs consult it before any network work and skip mapped releases.
package importmap
