// Package galaxy reads releases, executables, ratings, and user tags from a
// GOG Galaxy 2.0 SQLite library database. Access is strictly read-only.
package galaxy
