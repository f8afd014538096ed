// Package collections rebuilds remote catalog collections from Galaxy user
// tags. Member resolution is a chain of tiers tried in order, and a tag
// whose title already exists remotely (case-insensitively) is never merged,
// only skipped.
package collections
