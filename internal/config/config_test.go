package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"mediavault/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported missing")
	}
	if cfg.Scan.MaxWorkers != 5 {
		t.Fatalf("expected default max_workers 5, got %d", cfg.Scan.MaxWorkers)
	}
	if cfg.Duplicates.FuzzySimilarityThreshold != 85 {
		t.Fatalf("expected default threshold 85, got %d", cfg.Duplicates.FuzzySimilarityThreshold)
	}
	if cfg.Probe.TimeoutSeconds != 60 {
		t.Fatalf("expected default probe timeout 60, got %d", cfg.Probe.TimeoutSeconds)
	}
}

func TestLoadParsesFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mediavault.toml")
	body := `
[paths]
catalog_dir = "` + dir + `/catalog"
log_dir = "` + dir + `/logs"
share_mount_prefix = "/mnt/share"
stage_root_candidates = ["` + dir + `/staging"]

[scan]
max_workers = 2
min_media_bytes = 1024

[duplicates]
fuzzy_similarity_threshold = 90
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be found")
	}
	if cfg.Scan.MaxWorkers != 2 {
		t.Fatalf("expected max_workers 2, got %d", cfg.Scan.MaxWorkers)
	}
	if cfg.Scan.MinMediaBytes != 1024 {
		t.Fatalf("expected min_media_bytes 1024, got %d", cfg.Scan.MinMediaBytes)
	}
	if cfg.Duplicates.FuzzySimilarityThreshold != 90 {
		t.Fatalf("expected threshold 90, got %d", cfg.Duplicates.FuzzySimilarityThreshold)
	}
	if cfg.Paths.ShareMountPrefix != "/mnt/share" {
		t.Fatalf("unexpected share mount prefix %q", cfg.Paths.ShareMountPrefix)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("FUZZY_SIMILARITY_THRESHOLD", "95")
	t.Setenv("SCAN_MAX_WORKERS", "3")
	t.Setenv("MEDIA_EXTENSIONS", "mkv, mp4")
	t.Setenv("STAGE_ROOT_CANDIDATES", "/tmp/a,/tmp/b")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Duplicates.FuzzySimilarityThreshold != 95 {
		t.Fatalf("expected env threshold 95, got %d", cfg.Duplicates.FuzzySimilarityThreshold)
	}
	if cfg.Scan.MaxWorkers != 3 {
		t.Fatalf("expected env max_workers 3, got %d", cfg.Scan.MaxWorkers)
	}
	exts := cfg.MediaExtensionSet()
	if _, ok := exts[".mkv"]; !ok {
		t.Fatal("expected .mkv in media extension set")
	}
	if _, ok := exts[".mp4"]; !ok {
		t.Fatal("expected .mp4 in media extension set")
	}
	if len(cfg.Paths.StageRootCandidates) != 2 {
		t.Fatalf("expected two stage roots, got %v", cfg.Paths.StageRootCandidates)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Duplicates.FuzzySimilarityThreshold = 150
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for threshold out of range")
	}
}

func TestExtensionSetNormalizesDots(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.MediaExtensions = []string{"MKV", ".Mp4", " avi "}
	set := cfg.MediaExtensionSet()
	for _, want := range []string{".mkv", ".mp4", ".avi"} {
		if _, ok := set[want]; !ok {
			t.Fatalf("expected %s in extension set, got %v", want, set)
		}
	}
}
