// Package resolve maps a release's candidate titles to a canonical remote
// catalog identity. The reducing-title search tries each title at every
// trailing-word reduction level before moving to the next title; selection
// prefers candidates not already cataloged remotely.
package resolve
