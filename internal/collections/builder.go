package collections

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"

	"galaxysync/internal/catalog"
	"galaxysync/internal/galaxy"
	"galaxysync/internal/importmap"
	"galaxysync/internal/library"
	"galaxysync/internal/logging"
	"galaxysync/internal/manifest"
	"galaxysync/internal/resolve"
)

// CatalogService is the slice of the catalog client the builder needs.
type CatalogService interface {
	ListCollections(ctx context.Context) ([]catalog.CollectionRef, error)
	CreateCollection(ctx context.Context, title, summary string) (int64, error)
	SetCollectionMembers(ctx context.Context, collectionID int64, gameIDs []int64) error
}

// Missing records a member that no resolution tier could map to a catalog
// game. The collection is still created without it.
type Missing struct {
	Tag        string
	ReleaseKey string
	Title      string
	CatalogID  int64 // best-known id, zero when none
}

// Summary reports what Build did.
type Summary struct {
	Created int
	Skipped int
	Missing []Missing
}

// Builder derives remote collections from Galaxy user tags. Member release
// keys resolve to catalog game ids through three tiers: the games imported
// this run, the persisted import map, then a live title search combined
// with an on-disk catalog probe.
type Builder struct {
	service  CatalogService
	resolver *resolve.Resolver
	library  *manifest.Library
	logger   *slog.Logger
	folder   cases.Caser

	// searchHits memoizes tier-three resolutions by display title so one
	// title is never searched twice in a run.
	searchHits map[string]int64
}

// New creates a Builder.
func New(service CatalogService, resolver *resolve.Resolver, lib *manifest.Library, logger *slog.Logger) *Builder {
	return &Builder{
		service:    service,
		resolver:   resolver,
		library:    lib,
		logger:     logging.NewComponentLogger(logger, "collections"),
		folder:     cases.Fold(),
		searchHits: make(map[string]int64),
	}
}

// tagGroup is one tag with its members in query order (ascending release
// date, so collections list games chronologically).
type tagGroup struct {
	Tag     string
	Members []galaxy.TagRow
}

// groupByTag folds tag rows into per-tag member lists, preserving both tag
// order and per-tag member order as supplied by the query.
func groupByTag(rows []galaxy.TagRow) []tagGroup {
	byTag := make(map[string]int)
	var groups []tagGroup
	for _, row := range rows {
		idx, ok := byTag[row.Tag]
		if !ok {
			idx = len(groups)
			byTag[row.Tag] = idx
			groups = append(groups, tagGroup{Tag: row.Tag})
		}
		groups[idx].Members = append(groups[idx].Members, row)
	}
	return groups
}

// Build creates one remote collection per tag. sessionMap holds the games
// imported during this run, persisted is the import map loaded at start,
// and releases provides cached titles for the live-search tier.
func (b *Builder) Build(ctx context.Context, rows []galaxy.TagRow, sessionMap map[string]int64, persisted *importmap.Store, releases map[string]*library.Release) (*Summary, error) {
	existing, err := b.service.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote collections: %w", err)
	}
	existingTitles := make(map[string]struct{}, len(existing))
	for _, ref := range existing {
		existingTitles[b.folder.String(ref.Title)] = struct{}{}
	}

	resolvers := []memberResolver{
		b.resolveFromSession(sessionMap),
		b.resolveFromPersisted(persisted),
		b.resolveLive(ctx, releases),
	}

	summary := &Summary{}
	for _, group := range groupByTag(rows) {
		if _, taken := existingTitles[b.folder.String(group.Tag)]; taken {
			b.logger.Info("collection already exists remotely, skipping tag",
				logging.String("tag", group.Tag))
			summary.Skipped++
			continue
		}

		if err := b.buildOne(ctx, group, resolvers, summary); err != nil {
			// Per-collection boundary: log and continue with the next tag.
			b.logger.Error("collection build failed",
				logging.String("tag", group.Tag),
				logging.Error(err))
		}
	}
	return summary, nil
}

func (b *Builder) buildOne(ctx context.Context, group tagGroup, resolvers []memberResolver, summary *Summary) error {
	var memberIDs []int64
	for _, member := range group.Members {
		id, found := resolveMember(member, resolvers)
		if !found {
			miss := Missing{
				Tag:        group.Tag,
				ReleaseKey: member.ReleaseKey,
				Title:      member.Title,
				CatalogID:  id,
			}
			summary.Missing = append(summary.Missing, miss)
			b.logger.Warn("collection member unresolved",
				logging.String("tag", group.Tag),
				logging.String(logging.FieldReleaseKey, member.ReleaseKey),
				logging.String(logging.FieldTitle, member.Title))
			continue
		}
		memberIDs = append(memberIDs, id)
	}

	memberIDs = dedupeIDs(memberIDs)

	collectionID, err := b.service.CreateCollection(ctx, group.Tag, fmt.Sprintf("Imported from GOG Galaxy tag %q", group.Tag))
	if err != nil {
		return fmt.Errorf("create collection %q: %w", group.Tag, err)
	}
	if err := b.service.SetCollectionMembers(ctx, collectionID, memberIDs); err != nil {
		return fmt.Errorf("set members of %q: %w", group.Tag, err)
	}

	summary.Created++
	b.logger.Info("collection created",
		logging.String("tag", group.Tag),
		logging.Int("members", len(memberIDs)))
	return nil
}

// dedupeIDs removes duplicate ids preserving first occurrence.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
