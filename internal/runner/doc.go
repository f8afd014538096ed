// Package runner sequences a reconciliation run end to end and guards it
// with an on-disk lock so two runs never race over the import map.
package runner
