package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"galaxysync/internal/catalog"
	"galaxysync/internal/importmap"
	"galaxysync/internal/library"
	"galaxysync/internal/logging"
	"galaxysync/internal/resolve"
)

type fakeService struct {
	details    map[int64]*catalog.Details
	detailErr  error
	createErr  error
	created    []catalog.GameRecord
	detailGets []int64

	executables []string
	labels      []string
	covers      []string
	backgrounds []string
	uploadErr   error
}

func (f *fakeService) GetDetails(_ context.Context, id int64) (*catalog.Details, error) {
	f.detailGets = append(f.detailGets, id)
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.details[id], nil
}

func (f *fakeService) CreateGame(_ context.Context, record catalog.GameRecord) error {
	f.created = append(f.created, record)
	return f.createErr
}

func (f *fakeService) UploadExecutable(_ context.Context, _ int64, filePath, label string) error {
	f.executables = append(f.executables, filePath)
	f.labels = append(f.labels, label)
	return f.uploadErr
}

func (f *fakeService) UploadCover(_ context.Context, _ int64, filePath string) error {
	f.covers = append(f.covers, filePath)
	return nil
}

func (f *fakeService) UploadBackground(_ context.Context, _ int64, filePath string) error {
	f.backgrounds = append(f.backgrounds, filePath)
	return nil
}

type fakeSearcher struct {
	results map[string][]catalog.Identity
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ catalog.DateHint) ([]catalog.Identity, error) {
	f.calls++
	return f.results[query], nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func writeFile(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newRelease(key, title string, execs ...library.Executable) *library.Release {
	return &library.Release{
		ReleaseKey:  key,
		Titles:      []string{title},
		Executables: execs,
	}
}

func TestImportOneSkipsMappedRelease(t *testing.T) {
	service := &fakeService{}
	searcher := &fakeSearcher{}
	imp := New(service, resolve.New(searcher, logging.NewNop()), nil, "", logging.NewNop())

	entry := &importmap.Entry{IgdbID: 42}
	outcome, err := imp.ImportOne(context.Background(), newRelease("gog_1", "Doom"), entry, false)
	if err != nil {
		t.Fatalf("ImportOne: %v", err)
	}
	if !outcome.Skipped || outcome.CatalogID != 42 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if searcher.calls != 0 || len(service.created) != 0 || len(service.executables) != 0 {
		t.Fatal("skip must not touch the catalog")
	}
}

func TestImportOneForcedReusesIdentityAndUploadsOnly(t *testing.T) {
	dir := t.TempDir()
	exec := writeFile(t, filepath.Join(dir, "game", "start.sh"))

	service := &fakeService{}
	searcher := &fakeSearcher{}
	imp := New(service, resolve.New(searcher, logging.NewNop()), nil, "", logging.NewNop())

	release := newRelease("gog_1", "Doom", library.Executable{Path: exec})
	entry := &importmap.Entry{IgdbID: 42, Title: strPtr("Doom"), Stars: floatPtr(8)}

	outcome, err := imp.ImportOne(context.Background(), release, entry, true)
	if err != nil {
		t.Fatalf("ImportOne: %v", err)
	}
	if !outcome.Forced || outcome.CatalogID != 42 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if searcher.calls != 0 {
		t.Fatal("forced reimport must not search")
	}
	if len(service.detailGets) != 0 || len(service.created) != 0 {
		t.Fatal("forced reimport must not fetch details or create a game")
	}
	if len(service.executables) != 1 || service.executables[0] != exec {
		t.Fatalf("expected one executable upload, got %v", service.executables)
	}
	if service.labels[0] != "start" {
		t.Fatalf("expected stripped label, got %q", service.labels[0])
	}
}

func TestImportOneFreshImport(t *testing.T) {
	dir := t.TempDir()
	exec := writeFile(t, filepath.Join(dir, "game", "run.sh"))
	images := t.TempDir()
	cover := writeFile(t, filepath.Join(images, "gog_1_cover.png"))
	background := writeFile(t, filepath.Join(images, "gog_1_background.jpg"))

	service := &fakeService{details: map[int64]*catalog.Details{
		7: {ID: 7, Name: "Outcast", Summary: "A voxel adventure.", ReleaseDate: 930787200, Genres: []string{"Adventure"}},
	}}
	searcher := &fakeSearcher{results: map[string][]catalog.Identity{
		"Outcast": {{ID: 7, Name: "Outcast"}},
	}}
	imp := New(service, resolve.New(searcher, logging.NewNop()), nil, images, logging.NewNop())

	release := newRelease("gog_1", "Outcast", library.Executable{Path: exec})
	release.Rating = floatPtr(4)

	outcome, err := imp.ImportOne(context.Background(), release, nil, false)
	if err != nil {
		t.Fatalf("ImportOne: %v", err)
	}
	if outcome.CatalogID != 7 || outcome.Skipped || outcome.Forced {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Stars == nil || *outcome.Stars != 8 {
		t.Fatalf("expected doubled stars, got %v", outcome.Stars)
	}
	if outcome.ReleaseDate == nil || *outcome.ReleaseDate != "1999-07-01" {
		t.Fatalf("unexpected release date %v", outcome.ReleaseDate)
	}

	if len(service.created) != 1 {
		t.Fatalf("expected one create, got %d", len(service.created))
	}
	record := service.created[0]
	if record.IgdbID != 7 || record.Title != "Outcast" || record.Summary == "" {
		t.Fatalf("unexpected record %+v", record)
	}
	if len(service.executables) != 1 {
		t.Fatalf("expected executable upload, got %v", service.executables)
	}
	if len(service.covers) != 1 || service.covers[0] != cover {
		t.Fatalf("expected cover upload, got %v", service.covers)
	}
	if len(service.backgrounds) != 1 || service.backgrounds[0] != background {
		t.Fatalf("expected background upload, got %v", service.backgrounds)
	}
}

func TestImportOneTreatsConflictAsSuccess(t *testing.T) {
	service := &fakeService{createErr: catalog.ErrConflict}
	searcher := &fakeSearcher{results: map[string][]catalog.Identity{
		"Doom": {{ID: 3, Name: "Doom"}},
	}}
	imp := New(service, resolve.New(searcher, logging.NewNop()), nil, "", logging.NewNop())

	outcome, err := imp.ImportOne(context.Background(), newRelease("gog_1", "Doom"), nil, false)
	if err != nil {
		t.Fatalf("conflict should not fail the import: %v", err)
	}
	if outcome.CatalogID != 3 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestImportOnePropagatesCreateFailure(t *testing.T) {
	service := &fakeService{createErr: errors.New("boom")}
	searcher := &fakeSearcher{results: map[string][]catalog.Identity{
		"Doom": {{ID: 3, Name: "Doom"}},
	}}
	imp := New(service, resolve.New(searcher, logging.NewNop()), nil, "", logging.NewNop())

	if _, err := imp.ImportOne(context.Background(), newRelease("gog_1", "Doom"), nil, false); err == nil {
		t.Fatal("expected create failure to surface")
	}
}

func TestImportOnePrefersUncatalogedCandidate(t *testing.T) {
	service := &fakeService{}
	searcher := &fakeSearcher{results: map[string][]catalog.Identity{
		"Doom": {{ID: 3, Name: "Doom"}, {ID: 4, Name: "Doom II"}},
	}}
	cataloged := map[int64]struct{}{3: {}}
	imp := New(service, resolve.New(searcher, logging.NewNop()), cataloged, "", logging.NewNop())

	outcome, err := imp.ImportOne(context.Background(), newRelease("gog_1", "Doom"), nil, false)
	if err != nil {
		t.Fatalf("ImportOne: %v", err)
	}
	if outcome.CatalogID != 4 {
		t.Fatalf("expected uncataloged candidate 4, got %d", outcome.CatalogID)
	}
}

func TestImportOneSkipsMissingExecutables(t *testing.T) {
	service := &fakeService{}
	searcher := &fakeSearcher{results: map[string][]catalog.Identity{
		"Doom": {{ID: 3, Name: "Doom"}},
	}}
	imp := New(service, resolve.New(searcher, logging.NewNop()), nil, "", logging.NewNop())

	release := newRelease("gog_1", "Doom", library.Executable{Path: "/nonexistent/doom.sh"})
	if _, err := imp.ImportOne(context.Background(), release, nil, false); err != nil {
		t.Fatalf("ImportOne: %v", err)
	}
	if len(service.executables) != 0 {
		t.Fatalf("missing file must not be uploaded, got %v", service.executables)
	}
}

func TestStripLauncherSuffix(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{"script.sh", "script"},
		{"run.bat", "run"},
		{"launcher", "launcher"},
		{".sh", ""},
		{"play.exe", "play.exe"},
	}
	for _, tc := range cases {
		if got := StripLauncherSuffix(tc.label); got != tc.want {
			t.Errorf("StripLauncherSuffix(%q) = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestStars(t *testing.T) {
	if got := Stars(floatPtr(4)); got == nil || *got != 8 {
		t.Fatalf("Stars(4) = %v, want 8", got)
	}
	if got := Stars(nil); got != nil {
		t.Fatalf("Stars(nil) = %v, want nil", got)
	}
}

func TestReleaseDateFallsBackToSourceDate(t *testing.T) {
	service := &fakeService{details: map[int64]*catalog.Details{
		3: {ID: 3, Name: "Doom"},
	}}
	searcher := &fakeSearcher{results: map[string][]catalog.Identity{
		"Doom": {{ID: 3, Name: "Doom"}},
	}}
	imp := New(service, resolve.New(searcher, logging.NewNop()), nil, "", logging.NewNop())

	release := newRelease("gog_1", "Doom")
	release.ReleaseDateRaw = "749001600"

	outcome, err := imp.ImportOne(context.Background(), release, nil, false)
	if err != nil {
		t.Fatalf("ImportOne: %v", err)
	}
	if outcome.ReleaseDate == nil || *outcome.ReleaseDate != "1993-09-26" {
		t.Fatalf("unexpected release date %v", outcome.ReleaseDate)
	}
}
