package library

import (
	"strconv"
	"time"

	"galaxysync/internal/galaxy"
)

// Executable is one launchable entry of a release, deduplicated by the
// (path, label) pair.
type Executable struct {
	Path  string
	Label *string
}

// Release aggregates every row the Galaxy query produced for one release
// key: the distinct titles seen (insertion order preserved), the
// deduplicated executables, and the first-seen rating and release date.
type Release struct {
	ReleaseKey     string
	Titles         []string
	Executables    []Executable
	Rating         *float64
	ReleaseYear    int
	ReleaseDateRaw string

	seenTitles map[string]struct{}
	seenExecs  map[string]struct{}
}

// Title returns the display title: the first title seen for the release,
// falling back to the release key.
func (r *Release) Title() string {
	if len(r.Titles) > 0 {
		return r.Titles[0]
	}
	return r.ReleaseKey
}

func (r *Release) addTitle(title string) {
	if title == "" {
		return
	}
	if _, ok := r.seenTitles[title]; ok {
		return
	}
	r.seenTitles[title] = struct{}{}
	r.Titles = append(r.Titles, title)
}

func (r *Release) addExecutable(path string, label *string) {
	if path == "" {
		return
	}
	key := path + "\x00"
	if label != nil {
		key += *label
	}
	if _, ok := r.seenExecs[key]; ok {
		return
	}
	r.seenExecs[key] = struct{}{}
	r.Executables = append(r.Executables, Executable{Path: path, Label: label})
}

// Group folds flat query rows into one Release per distinct non-empty
// release key. Output order follows first sighting, which tracks the
// query's ascending release-date ordering. Rating, release year, and the
// raw date are first-non-null-wins and never overwritten.
func Group(rows []galaxy.ReleaseRow) []*Release {
	byKey := make(map[string]*Release, len(rows))
	var order []*Release

	for _, row := range rows {
		if row.ReleaseKey == "" {
			continue
		}
		release, ok := byKey[row.ReleaseKey]
		if !ok {
			release = &Release{
				ReleaseKey: row.ReleaseKey,
				seenTitles: make(map[string]struct{}),
				seenExecs:  make(map[string]struct{}),
			}
			byKey[row.ReleaseKey] = release
			order = append(order, release)
		}

		release.addTitle(row.Title)
		if row.ExecutablePath != nil {
			release.addExecutable(*row.ExecutablePath, row.ExecutableLabel)
		}
		if release.Rating == nil && row.Rating != nil {
			v := *row.Rating
			release.Rating = &v
		}
		if row.ReleaseDateRaw != nil {
			if release.ReleaseDateRaw == "" {
				release.ReleaseDateRaw = *row.ReleaseDateRaw
			}
			if release.ReleaseYear == 0 {
				release.ReleaseYear = YearFromUnixSeconds(*row.ReleaseDateRaw)
			}
		}
	}

	return order
}

// YearFromUnixSeconds parses a decimal Unix-seconds timestamp and returns
// its calendar year, or zero when the value is absent or unparseable.
func YearFromUnixSeconds(raw string) int {
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Unix(seconds, 0).UTC().Year()
}
