package resolve

import (
	"strconv"

	"galaxysync/internal/catalog"
)

// HintFrom derives the search date hint from a release's raw Unix-seconds
// date string, falling back to its bare year, then to no hint at all.
func HintFrom(releaseDateRaw string, releaseYear int) catalog.DateHint {
	if seconds, err := strconv.ParseInt(releaseDateRaw, 10, 64); err == nil && seconds > 0 {
		return catalog.DateHint(seconds)
	}
	if releaseYear > 0 {
		return catalog.DateHint(releaseYear)
	}
	return 0
}
