// Package library folds flat per-executable Galaxy rows into one aggregate
// per release.
package library
