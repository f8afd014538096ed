// Package catalog is the HTTP client for the remote game-catalog service:
// search, detail fetch, game and collection creation, and asset uploads.
// Every call carries a bearer token from an injected TokenSource and fails
// without retrying; recovery happens at the per-game boundary upstream.
package catalog
