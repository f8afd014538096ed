// Package manifest probes the catalog's on-disk game directories, which
// are named by decimal catalog id and carry a gameinfo.json manifest. The
// probe is the collection builder's filesystem fallback tier.
package manifest
