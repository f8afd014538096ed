package catalog

import "strconv"

// Identity is one search match from the catalog service.
type Identity struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// Details is the full catalog record for a game.
type Details struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Summary     string   `json:"summary,omitempty"`
	ReleaseDate int64    `json:"release_date,omitempty"` // Unix seconds
	ReleaseYear int      `json:"release_year,omitempty"`
	Developers  []string `json:"developers,omitempty"`
	Publishers  []string `json:"publishers,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// GameRecord is the creation payload for a new catalog game.
type GameRecord struct {
	IgdbID      int64    `json:"igdbId"`
	Title       string   `json:"title"`
	ReleaseDate string   `json:"releaseDate,omitempty"` // YYYY-MM-DD or bare year
	Summary     string   `json:"summary,omitempty"`
	Stars       *float64 `json:"stars,omitempty"` // 0-10 scale
	Developers  []string `json:"developers,omitempty"`
	Publishers  []string `json:"publishers,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// CollectionRef identifies an existing remote collection.
type CollectionRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// DateHint steers search-result ranking. A value whose decimal form has at
// most four digits is a bare year; anything longer is a Unix-seconds
// timestamp requesting closest-date ordering. Zero means no hint.
type DateHint int64

// IsZero reports whether no hint was supplied.
func (h DateHint) IsZero() bool { return h <= 0 }

// Year returns the bare-year value when the hint degrades to year-only
// semantics.
func (h DateHint) Year() (int, bool) {
	if h > 0 && h <= 9999 {
		return int(h), true
	}
	return 0, false
}

func (h DateHint) String() string {
	return strconv.FormatInt(int64(h), 10)
}
