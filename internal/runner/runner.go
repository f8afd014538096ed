package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"galaxysync/internal/catalog"
	"galaxysync/internal/collections"
	"galaxysync/internal/config"
	"galaxysync/internal/galaxy"
	"galaxysync/internal/importer"
	"galaxysync/internal/importmap"
	"galaxysync/internal/library"
	"galaxysync/internal/logging"
	"galaxysync/internal/manifest"
	"galaxysync/internal/resolve"
)

// Modes selects what a run does.
type Modes struct {
	GamesOnly       bool
	CollectionsOnly bool
	Search          string // title substring filter
	Limit           int    // row cap, zero means unlimited
	Force           bool   // forced reimport of already-mapped releases
}

func (m Modes) validate() error {
	if m.GamesOnly && m.CollectionsOnly {
		return errors.New("games-only and collections-only are mutually exclusive")
	}
	return nil
}

// Summary is the end-of-run report.
type Summary struct {
	RunID       string
	Releases    int
	Imported    int
	Skipped     int
	Failed      int
	Collections *collections.Summary
}

// Runner sequences a full reconciliation run: load map, query, group,
// import each release, persist, then rebuild tag collections. Everything
// is strictly sequential so progress and map writes stay deterministic.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Runner.
func New(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logging.NewComponentLogger(logger, "run")}
}

// Run executes one reconciliation run.
func (r *Runner) Run(ctx context.Context, modes Modes) (*Summary, error) {
	if err := modes.validate(); err != nil {
		return nil, err
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(r.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another run holds the lock at %s", r.cfg.LockPath())
	}
	defer lock.Unlock()

	runID := uuid.NewString()[:8]
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))
	summary := &Summary{RunID: runID}

	mapStore := importmap.Open(r.cfg.ImportMapPath(), logger)

	store, err := galaxy.Open(r.cfg.Paths.GalaxyDatabase)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	tokens, err := catalog.NewTokenSource(r.cfg.Catalog.URL, r.cfg.Catalog.Username, r.cfg.Catalog.Password)
	if err != nil {
		return nil, err
	}
	client, err := catalog.New(r.cfg.Catalog.URL, tokens)
	if err != nil {
		return nil, err
	}
	resolver := resolve.New(client, logger)

	rows, err := store.QueryReleaseRows(ctx, galaxy.QueryOptions{
		TitleSearch: modes.Search,
		Limit:       modes.Limit,
	})
	if err != nil {
		return nil, err
	}
	releases := library.Group(rows)
	summary.Releases = len(releases)
	logger.Info("library loaded",
		logging.Int("rows", len(rows)),
		logging.Int("releases", len(releases)),
		logging.Int("mapped", mapStore.Len()))

	sessionMap := make(map[string]int64)

	if !modes.CollectionsOnly {
		if err := r.importGames(ctx, logger, client, resolver, mapStore, releases, sessionMap, modes, summary); err != nil {
			return nil, err
		}
	}

	if !modes.GamesOnly {
		if err := r.buildCollections(ctx, logger, store, client, resolver, mapStore, releases, sessionMap, summary); err != nil {
			return nil, err
		}
	}

	logger.Info("run complete",
		logging.Int("imported", summary.Imported),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

func (r *Runner) importGames(ctx context.Context, logger *slog.Logger, client *catalog.Client, resolver *resolve.Resolver, mapStore *importmap.Store, releases []*library.Release, sessionMap map[string]int64, modes Modes, summary *Summary) error {
	cataloged, err := client.ListGameIDs(ctx)
	if err != nil {
		return fmt.Errorf("list cataloged games: %w", err)
	}

	imp := importer.New(client, resolver, cataloged, r.cfg.Paths.ImagesDir, logger)

	total := len(releases)
	for idx, release := range releases {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress := fmt.Sprintf("[%d/%d]", idx+1, total)
		logger.Info(progress+" "+release.Title(),
			logging.String(logging.FieldReleaseKey, release.ReleaseKey))

		var entry *importmap.Entry
		if found, ok := mapStore.Lookup(release.ReleaseKey); ok {
			entry = &found
		}

		outcome, err := imp.ImportOne(ctx, release, entry, modes.Force)
		if err != nil {
			// Per-release boundary: the run continues with the next one.
			summary.Failed++
			logger.Error(progress+" import failed",
				logging.String(logging.FieldReleaseKey, release.ReleaseKey),
				logging.Error(err))
			continue
		}

		sessionMap[release.ReleaseKey] = outcome.CatalogID
		if outcome.Skipped {
			summary.Skipped++
			continue
		}
		summary.Imported++

		var persistErr error
		if outcome.Forced {
			persistErr = mapStore.Backfill(release.ReleaseKey, outcome.Entry())
		} else {
			persistErr = mapStore.Put(release.ReleaseKey, outcome.Entry())
		}
		if persistErr != nil {
			// Best-effort persistence: the in-memory map stays authoritative.
			logger.Warn("import map write failed",
				logging.String(logging.FieldReleaseKey, release.ReleaseKey),
				logging.Error(persistErr))
		}
	}
	return nil
}

func (r *Runner) buildCollections(ctx context.Context, logger *slog.Logger, store *galaxy.Store, client *catalog.Client, resolver *resolve.Resolver, mapStore *importmap.Store, releases []*library.Release, sessionMap map[string]int64, summary *Summary) error {
	tagRows, err := store.QueryTagRows(ctx)
	if err != nil {
		return err
	}
	if len(tagRows) == 0 {
		logger.Info("no user tags, skipping collections")
		return nil
	}

	releasesByKey := make(map[string]*library.Release, len(releases))
	for _, release := range releases {
		releasesByKey[release.ReleaseKey] = release
	}

	builder := collections.New(client, resolver, manifest.NewLibrary(r.cfg.GamesDir()), logger)
	collectionSummary, err := builder.Build(ctx, tagRows, sessionMap, mapStore, releasesByKey)
	if err != nil {
		return err
	}
	summary.Collections = collectionSummary
	return nil
}
