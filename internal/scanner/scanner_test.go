package scanner_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/logging"
	"mediavault/internal/paths"
	"mediavault/internal/scanner"
	"mediavault/internal/testsupport"
)

const stubProbeJSON = `{
  "format": {"format_name": "matroska,webm", "duration": "5400.0", "bit_rate": "5000000"},
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "24/1"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2, "tags": {"language": "eng"}}
  ]
}`

// writeStubFFprobe writes a shell script that mimics ffprobe's JSON output.
func writeStubFFprobe(t *testing.T, cfg *config.Config, script string) {
	t.Helper()
	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(binDir, "ffprobe")
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Probe.FFprobeBinary = target
}

func stubOK(t *testing.T, cfg *config.Config) {
	t.Helper()
	writeStubFFprobe(t, cfg, "#!/bin/sh\ncat <<'EOF'\n"+stubProbeJSON+"\nEOF\n")
}

func newScanner(t *testing.T, cfg *config.Config, store *catalog.Store) *scanner.Scanner {
	t.Helper()
	resolver := paths.NewResolver(cfg, logging.NewNop())
	return scanner.New(cfg, store, resolver, logging.NewNop())
}

func TestFullScanDiscoversAndUpserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	testsupport.WriteFile(t, filepath.Join(library, "The.Matrix.1999.1080p.mkv"), 2048)
	testsupport.WriteFile(t, filepath.Join(library, "shows", "Red.Dwarf.S01E01.mkv"), 2048)
	testsupport.WriteFile(t, filepath.Join(library, "notes.txt"), 2048)

	s := newScanner(t, cfg, store)
	run, err := s.Run(context.Background(), catalog.ScanKindFull, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != catalog.RunStatusCompleted {
		t.Fatalf("status = %s (%s)", run.Status, run.FailureReason)
	}
	if run.FilesFound != 2 || run.FilesNew != 2 {
		t.Errorf("found=%d new=%d, want 2/2", run.FilesFound, run.FilesNew)
	}
	if run.ErrorsCount != 0 {
		t.Errorf("errors = %d: %+v", run.ErrorsCount, run.ErrorDetails)
	}

	asset, err := store.GetAssetByLogicalPath(context.Background(), filepath.Join(library, "The.Matrix.1999.1080p.mkv"))
	if err != nil {
		t.Fatal(err)
	}
	if asset == nil {
		t.Fatal("movie asset not upserted")
	}
	if asset.ParsedTitle != "The Matrix" || asset.ParsedYear != 1999 {
		t.Errorf("parsed = %q/%d", asset.ParsedTitle, asset.ParsedYear)
	}
	if asset.Height != 1080 || asset.VideoCodec != "h264" {
		t.Errorf("probe fields = %d/%s", asset.Height, asset.VideoCodec)
	}
	if len(asset.ContentFingerprint) != 32 {
		t.Errorf("fingerprint = %q", asset.ContentFingerprint)
	}
	if asset.QualityScore <= 0 {
		t.Errorf("quality score = %d", asset.QualityScore)
	}
	if asset.DominantAudioLang != "en" {
		t.Errorf("dominant audio language = %q", asset.DominantAudioLang)
	}

	episode, err := store.GetAssetByLogicalPath(context.Background(), filepath.Join(library, "shows", "Red.Dwarf.S01E01.mkv"))
	if err != nil {
		t.Fatal(err)
	}
	if episode == nil || episode.MediaKind != catalog.KindTV || episode.ParsedSeason != 1 {
		t.Fatalf("episode = %+v", episode)
	}
}

func TestIncrementalScanSkipsUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	testsupport.WriteFile(t, filepath.Join(library, "Movie.2020.mkv"), 4096)

	s := newScanner(t, cfg, store)
	if _, err := s.Run(context.Background(), catalog.ScanKindFull, nil); err != nil {
		t.Fatalf("full scan: %v", err)
	}

	run, err := s.Run(context.Background(), catalog.ScanKindIncremental, nil)
	if err != nil {
		t.Fatalf("incremental scan: %v", err)
	}
	if run.FilesUnchanged != 1 || run.FilesNew != 0 || run.FilesUpdated != 0 {
		t.Errorf("unchanged=%d new=%d updated=%d, want 1/0/0",
			run.FilesUnchanged, run.FilesNew, run.FilesUpdated)
	}
}

func TestFullScanMarksVanishedDeleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	keep := filepath.Join(library, "Keep.2020.mkv")
	gone := filepath.Join(library, "Gone.2020.mkv")
	testsupport.WriteFile(t, keep, 2048)
	testsupport.WriteFile(t, gone, 2048)

	s := newScanner(t, cfg, store)
	if _, err := s.Run(context.Background(), catalog.ScanKindFull, nil); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	run, err := s.Run(context.Background(), catalog.ScanKindFull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.FilesDeleted != 1 {
		t.Errorf("files_deleted = %d, want 1", run.FilesDeleted)
	}

	asset, err := store.GetAssetByLogicalPath(context.Background(), gone)
	if err != nil {
		t.Fatal(err)
	}
	if asset == nil || !asset.IsDeleted {
		t.Errorf("vanished asset not marked deleted: %+v", asset)
	}
}

func TestProbeFailureRecordsUnknownAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeStubFFprobe(t, cfg, "#!/bin/sh\necho 'boom' >&2\nexit 1\n")
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	broken := filepath.Join(library, "Broken.2020.mkv")
	testsupport.WriteFile(t, broken, 2048)

	s := newScanner(t, cfg, store)
	run, err := s.Run(context.Background(), catalog.ScanKindFull, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != catalog.RunStatusCompleted {
		t.Fatalf("status = %s", run.Status)
	}
	if run.ErrorsCount == 0 {
		t.Error("expected a per-file error")
	}

	asset, err := store.GetAssetByLogicalPath(context.Background(), broken)
	if err != nil {
		t.Fatal(err)
	}
	if asset == nil {
		t.Fatal("failed file should still be recorded")
	}
	if asset.MediaKind != catalog.KindUnknown || asset.QualityScore != 0 {
		t.Errorf("kind=%s score=%d, want unknown/0", asset.MediaKind, asset.QualityScore)
	}
}

func TestMinMediaBytesBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinMediaBytes(100))
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	// The size floor only applies under source-like directory segments; a
	// short clip in a normal library path is still media.
	library := cfg.Scan.Roots[0]
	testsupport.WriteFile(t, filepath.Join(library, "src", "AtThreshold.2020.mkv"), 100)
	testsupport.WriteFile(t, filepath.Join(library, "src", "Below.2020.mkv"), 99)
	testsupport.WriteFile(t, filepath.Join(library, "ShortClip.2020.mkv"), 50)

	s := newScanner(t, cfg, store)
	run, err := s.Run(context.Background(), catalog.ScanKindFull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.FilesFound != 2 {
		t.Errorf("files_found = %d, want 2 (threshold file plus the clip outside the source tree)", run.FilesFound)
	}

	below, err := store.GetAssetByLogicalPath(context.Background(), filepath.Join(library, "src", "Below.2020.mkv"))
	if err != nil {
		t.Fatal(err)
	}
	if below != nil {
		t.Error("sub-threshold file under a source segment should be rejected")
	}
	clip, err := store.GetAssetByLogicalPath(context.Background(), filepath.Join(library, "ShortClip.2020.mkv"))
	if err != nil {
		t.Fatal(err)
	}
	if clip == nil {
		t.Error("short clip in a library path should be media")
	}
}

func TestIncrementalRescanRevivesDeletedAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	path := filepath.Join(library, "Back.2020.mkv")
	testsupport.WriteFile(t, path, 2048)

	s := newScanner(t, cfg, store)
	if _, err := s.Run(context.Background(), catalog.ScanKindFull, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background(), catalog.ScanKindFull, nil); err != nil {
		t.Fatal(err)
	}

	// The file returns with its original size and an old mtime, the way a
	// restored backup would.
	testsupport.WriteFile(t, path, 2048)
	old := time.Now().Add(-24 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	run, err := s.Run(context.Background(), catalog.ScanKindIncremental, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.FilesUnchanged != 0 || run.FilesUpdated != 1 {
		t.Errorf("unchanged=%d updated=%d, want 0/1", run.FilesUnchanged, run.FilesUpdated)
	}

	asset, err := store.GetAssetByLogicalPath(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if asset == nil || asset.IsDeleted {
		t.Fatalf("restored file still marked deleted: %+v", asset)
	}
}

// More files than the walk-to-worker queue holds; the walk must not stall
// and every file still lands in the catalog.
func TestScanStreamsManyFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scan.MaxWorkers = 2
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	const total = 40
	for i := 0; i < total; i++ {
		testsupport.WriteFile(t, filepath.Join(library, fmt.Sprintf("Movie.%d.mkv", 1950+i)), 1024)
	}

	s := newScanner(t, cfg, store)
	run, err := s.Run(context.Background(), catalog.ScanKindFull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.FilesFound != total || run.FilesNew != total {
		t.Errorf("found=%d new=%d, want %d/%d", run.FilesFound, run.FilesNew, total, total)
	}
	if run.ErrorsCount != 0 {
		t.Errorf("errors = %d: %+v", run.ErrorsCount, run.ErrorDetails)
	}
}

func TestDenyDirsSkipped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scan.DenyDirs = []string{"extras"}
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	testsupport.WriteFile(t, filepath.Join(library, "Main.2020.mkv"), 2048)
	testsupport.WriteFile(t, filepath.Join(library, "extras", "Bonus.2020.mkv"), 2048)

	s := newScanner(t, cfg, store)
	run, err := s.Run(context.Background(), catalog.ScanKindFull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.FilesFound != 1 {
		t.Errorf("files_found = %d, want 1", run.FilesFound)
	}
}

func TestEnrichmentHook(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Enrichment.Enabled = true
	stubOK(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	library := cfg.Scan.Roots[0]
	path := filepath.Join(library, "The.Matrix.1999.mkv")
	testsupport.WriteFile(t, path, 2048)

	s := newScanner(t, cfg, store)
	s.SetEnrichHook(func(_ context.Context, identity scanner.Identity) (*scanner.Enrichment, error) {
		if identity.Title != "The Matrix" {
			t.Errorf("identity title = %q", identity.Title)
		}
		return &scanner.Enrichment{ExternalID: "tmdb:603", CanonicalTitle: "The Matrix", Rating: 8.2}, nil
	})

	if _, err := s.Run(context.Background(), catalog.ScanKindFull, nil); err != nil {
		t.Fatal(err)
	}

	asset, err := store.GetAssetByLogicalPath(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if asset.ExternalID != "tmdb:603" || asset.CanonicalTitle != "The Matrix" {
		t.Errorf("enrichment not applied: %+v", asset)
	}
}
