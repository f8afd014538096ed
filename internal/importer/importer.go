package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"galaxysync/internal/catalog"
	"galaxysync/internal/importmap"
	"galaxysync/internal/library"
	"galaxysync/internal/logging"
	"galaxysync/internal/resolve"
)

// CatalogService is the slice of the catalog client the importer needs.
type CatalogService interface {
	GetDetails(ctx context.Context, id int64) (*catalog.Details, error)
	CreateGame(ctx context.Context, record catalog.GameRecord) error
	UploadExecutable(ctx context.Context, gameID int64, filePath, label string) error
	UploadCover(ctx context.Context, gameID int64, filePath string) error
	UploadBackground(ctx context.Context, gameID int64, filePath string) error
}

// Outcome reports what ImportOne did for a release.
type Outcome struct {
	CatalogID   int64
	Title       *string
	ReleaseDate *string
	Stars       *float64
	Skipped     bool
	Forced      bool
}

// Entry converts the outcome into its persisted import-map shape.
func (o *Outcome) Entry() importmap.Entry {
	return importmap.Entry{
		IgdbID:      o.CatalogID,
		Title:       o.Title,
		ReleaseDate: o.ReleaseDate,
		Stars:       o.Stars,
	}
}

// Importer drives the per-release import: identity resolution, record
// creation, and executable and asset uploads.
type Importer struct {
	service   CatalogService
	resolver  *resolve.Resolver
	cataloged map[int64]struct{}
	imagesDir string
	logger    *slog.Logger
}

// New creates an Importer. cataloged is the pre-fetched set of remote game
// ids, consulted by the candidate selection policy.
func New(service CatalogService, resolver *resolve.Resolver, cataloged map[int64]struct{}, imagesDir string, logger *slog.Logger) *Importer {
	return &Importer{
		service:   service,
		resolver:  resolver,
		cataloged: cataloged,
		imagesDir: imagesDir,
		logger:    logging.NewComponentLogger(logger, "importer"),
	}
}

// ImportOne processes a single release. With an existing map entry and no
// force flag the release is skipped outright. Forced reimport reuses the
// mapped identity and goes straight to uploads, repairing partially
// uploaded releases without re-resolving. Otherwise the release is freshly
// resolved, created remotely, and its files uploaded.
func (i *Importer) ImportOne(ctx context.Context, release *library.Release, entry *importmap.Entry, force bool) (*Outcome, error) {
	if entry != nil && !force {
		i.logger.Info("already imported, skipping",
			logging.String(logging.FieldReleaseKey, release.ReleaseKey),
			logging.String(logging.FieldTitle, release.Title()),
			logging.Int64(logging.FieldGameID, entry.IgdbID))
		return &Outcome{CatalogID: entry.IgdbID, Skipped: true}, nil
	}

	if entry != nil {
		return i.forcedReimport(ctx, release, entry)
	}
	return i.freshImport(ctx, release)
}

func (i *Importer) forcedReimport(ctx context.Context, release *library.Release, entry *importmap.Entry) (*Outcome, error) {
	i.logger.Info("forced reimport, reusing mapped identity",
		logging.String(logging.FieldReleaseKey, release.ReleaseKey),
		logging.Int64(logging.FieldGameID, entry.IgdbID))

	i.uploadExecutables(ctx, entry.IgdbID, release)
	i.uploadAssets(ctx, entry.IgdbID, release.ReleaseKey)

	return &Outcome{
		CatalogID:   entry.IgdbID,
		Title:       entry.Title,
		ReleaseDate: entry.ReleaseDate,
		Stars:       entry.Stars,
		Forced:      true,
	}, nil
}

func (i *Importer) freshImport(ctx context.Context, release *library.Release) (*Outcome, error) {
	hint := resolve.HintFrom(release.ReleaseDateRaw, release.ReleaseYear)
	result, err := i.resolver.Resolve(ctx, release.Titles, hint)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", release.ReleaseKey, err)
	}

	chosen := resolve.Select(result.Candidates, i.cataloged)
	i.resolver.WarnLowSimilarity(result.UsedTitle, chosen)

	details, err := i.service.GetDetails(ctx, chosen.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch details for %d: %w", chosen.ID, err)
	}

	record := i.buildRecord(release, chosen, details)
	if err := i.service.CreateGame(ctx, record); err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			// Idempotent creation: the record already exists remotely.
			i.logger.Info("game already exists remotely, attaching to it",
				logging.String(logging.FieldReleaseKey, release.ReleaseKey),
				logging.Int64(logging.FieldGameID, chosen.ID))
		} else {
			return nil, fmt.Errorf("create game %d: %w", chosen.ID, err)
		}
	}

	i.uploadExecutables(ctx, chosen.ID, release)
	i.uploadAssets(ctx, chosen.ID, release.ReleaseKey)

	outcome := &Outcome{CatalogID: chosen.ID, Stars: record.Stars}
	if record.Title != "" {
		title := record.Title
		outcome.Title = &title
	}
	if record.ReleaseDate != "" {
		date := record.ReleaseDate
		outcome.ReleaseDate = &date
	}
	return outcome, nil
}

func (i *Importer) buildRecord(release *library.Release, chosen catalog.Identity, details *catalog.Details) catalog.GameRecord {
	record := catalog.GameRecord{
		IgdbID: chosen.ID,
		Title:  release.Title(),
		Stars:  Stars(release.Rating),
	}
	if details != nil {
		if details.Name != "" {
			record.Title = details.Name
		}
		record.Summary = details.Summary
		record.Developers = details.Developers
		record.Publishers = details.Publishers
		record.Genres = details.Genres
	}
	record.ReleaseDate = releaseDateOf(release, details)
	return record
}

// releaseDateOf derives the record's release date: the detail record's full
// timestamp, then its coarse year, then the source library's raw date.
func releaseDateOf(release *library.Release, details *catalog.Details) string {
	if details != nil {
		if details.ReleaseDate > 0 {
			return time.Unix(details.ReleaseDate, 0).UTC().Format("2006-01-02")
		}
		if details.ReleaseYear > 0 {
			return strconv.Itoa(details.ReleaseYear)
		}
	}
	if seconds, err := strconv.ParseInt(release.ReleaseDateRaw, 10, 64); err == nil && seconds > 0 {
		return time.Unix(seconds, 0).UTC().Format("2006-01-02")
	}
	return ""
}

// Stars converts the source 0-5 rating to the catalog's 0-10 stars scale.
// A missing rating stays missing.
func Stars(rating *float64) *float64 {
	if rating == nil {
		return nil
	}
	stars := *rating * 2
	return &stars
}

// StripLauncherSuffix removes a trailing .sh or .bat from a display label.
// The underlying path keeps its extension.
func StripLauncherSuffix(label string) string {
	for _, suffix := range []string{".sh", ".bat"} {
		if strings.HasSuffix(label, suffix) {
			return strings.TrimSuffix(label, suffix)
		}
	}
	return label
}

func (i *Importer) uploadExecutables(ctx context.Context, gameID int64, release *library.Release) {
	for _, exec := range release.Executables {
		if _, err := os.Stat(exec.Path); err != nil {
			i.logger.Debug("executable missing on disk, skipping",
				logging.String(logging.FieldReleaseKey, release.ReleaseKey),
				logging.String("path", exec.Path))
			continue
		}
		label := filepath.Base(exec.Path)
		if exec.Label != nil {
			label = *exec.Label
		}
		label = StripLauncherSuffix(label)

		if err := i.service.UploadExecutable(ctx, gameID, exec.Path, label); err != nil {
			// Per-executable failure: log and keep going.
			i.logger.Warn("executable upload failed",
				logging.String(logging.FieldReleaseKey, release.ReleaseKey),
				logging.String("path", exec.Path),
				logging.Error(err))
		}
	}
}

// Asset filename patterns probed under the images directory, in order.
// The first existing file per category is uploaded; absence is fine.
var (
	coverSuffixes      = []string{"_cover.png", "_cover.jpg", "_cover.webp", ".png", ".jpg"}
	backgroundSuffixes = []string{"_background.png", "_background.jpg", "_background.webp"}
)

func (i *Importer) uploadAssets(ctx context.Context, gameID int64, releaseKey string) {
	if cover, ok := i.probeAsset(releaseKey, coverSuffixes); ok {
		if err := i.service.UploadCover(ctx, gameID, cover); err != nil {
			i.logger.Warn("cover upload failed",
				logging.String(logging.FieldReleaseKey, releaseKey),
				logging.String("path", cover),
				logging.Error(err))
		}
	}
	if background, ok := i.probeAsset(releaseKey, backgroundSuffixes); ok {
		if err := i.service.UploadBackground(ctx, gameID, background); err != nil {
			i.logger.Warn("background upload failed",
				logging.String(logging.FieldReleaseKey, releaseKey),
				logging.String("path", background),
				logging.Error(err))
		}
	}
}

func (i *Importer) probeAsset(releaseKey string, suffixes []string) (string, bool) {
	if i.imagesDir == "" {
		return "", false
	}
	for _, suffix := range suffixes {
		candidate := filepath.Join(i.imagesDir, releaseKey+suffix)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
