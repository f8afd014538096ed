package collections

import (
	"context"

	"galaxysync/internal/catalog"
	"galaxysync/internal/galaxy"
	"galaxysync/internal/importmap"
	"galaxysync/internal/library"
	"galaxysync/internal/logging"
	"galaxysync/internal/resolve"
)

// memberResolver is one tier of member resolution. It returns the resolved
// catalog id and whether the member is confirmed present in the catalog.
// An id with ok=false is a best-known hint carried into the missing report.
type memberResolver func(member galaxy.TagRow) (int64, bool)

// resolveMember walks the tiers in order, short-circuiting on the first
// confirmed hit. The highest tier's unconfirmed id, if any, is returned as
// the best-known hint.
func resolveMember(member galaxy.TagRow, resolvers []memberResolver) (int64, bool) {
	var bestKnown int64
	for _, tier := range resolvers {
		id, ok := tier(member)
		if ok {
			return id, true
		}
		if id > 0 && bestKnown == 0 {
			bestKnown = id
		}
	}
	return bestKnown, false
}

// resolveFromSession consults the games imported during this run.
func (b *Builder) resolveFromSession(sessionMap map[string]int64) memberResolver {
	return func(member galaxy.TagRow) (int64, bool) {
		id, ok := sessionMap[member.ReleaseKey]
		return id, ok
	}
}

// resolveFromPersisted consults the import map loaded at run start.
func (b *Builder) resolveFromPersisted(persisted *importmap.Store) memberResolver {
	return func(member galaxy.TagRow) (int64, bool) {
		entry, ok := persisted.Lookup(member.ReleaseKey)
		if !ok || entry.IgdbID == 0 {
			return 0, false
		}
		return entry.IgdbID, true
	}
}

// resolveLive searches the catalog by the release's cached titles and then
// confirms against the on-disk catalog: first the id-named directory, then
// the manifest title scan. Search results are memoized per display title.
func (b *Builder) resolveLive(ctx context.Context, releases map[string]*library.Release) memberResolver {
	return func(member galaxy.TagRow) (int64, bool) {
		titles := []string{member.Title}
		var hint catalog.DateHint
		if release, ok := releases[member.ReleaseKey]; ok {
			titles = release.Titles
			hint = resolve.HintFrom(release.ReleaseDateRaw, release.ReleaseYear)
		} else if member.ReleaseDateRaw != nil {
			hint = resolve.HintFrom(*member.ReleaseDateRaw, 0)
		}
		if len(titles) == 0 || (len(titles) == 1 && titles[0] == "") {
			return 0, false
		}

		id, hit := b.searchHits[titles[0]]
		if !hit {
			result, err := b.resolver.Resolve(ctx, titles, hint)
			if err != nil {
				b.logger.Debug("live member search failed",
					logging.String(logging.FieldReleaseKey, member.ReleaseKey),
					logging.Error(err))
				return 0, false
			}
			id = result.Candidates[0].ID
			b.searchHits[titles[0]] = id
		}

		if b.library.HasGame(id) {
			return id, true
		}
		if byTitle, ok := b.library.FindByTitle(titles[0]); ok {
			return byTitle, true
		}
		// Search knew the game but the catalog's disk tree does not hold
		// it; report the id as best-known only.
		return id, false
	}
}
