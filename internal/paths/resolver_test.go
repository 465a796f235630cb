package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediavault/internal/config"
	"mediavault/internal/logging"
)

func newResolver(t *testing.T, sharePrefix, devPrefix string, stageRoots []string) *Resolver {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ShareMountPrefix = sharePrefix
	cfg.Paths.DevFallbackPrefix = devPrefix
	cfg.Paths.StageRootCandidates = stageRoots
	return NewResolver(&cfg, logging.NewNop())
}

func TestResolveAsGiven(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "movie.mkv")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newResolver(t, "", "", nil)
	if got := r.Resolve(file); got != file {
		t.Errorf("Resolve = %q, want %q", got, file)
	}
}

func TestResolveViaShareMountPrefix(t *testing.T) {
	mount := t.TempDir()
	logical := "/share/media/movie.mkv"
	real := filepath.Join(mount, "share", "media", "movie.mkv")
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(real, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newResolver(t, mount, "", nil)
	if got := r.Resolve(logical); got != real {
		t.Errorf("Resolve = %q, want %q", got, real)
	}
}

func TestResolveViaDevFallback(t *testing.T) {
	dev := t.TempDir()
	logical := "/share/media/show.mkv"
	real := filepath.Join(dev, "share", "media", "show.mkv")
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(real, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Share prefix points somewhere empty so the dev fallback wins.
	r := newResolver(t, filepath.Join(dev, "missing"), dev, nil)
	if got := r.Resolve(logical); got != real {
		t.Errorf("Resolve = %q, want %q", got, real)
	}
}

func TestResolveUnresolvedReturnsEmpty(t *testing.T) {
	r := newResolver(t, t.TempDir(), "", nil)
	if got := r.Resolve("/nowhere/at/all.mkv"); got != "" {
		t.Errorf("Resolve = %q, want empty", got)
	}
	if got := r.Resolve(""); got != "" {
		t.Errorf("Resolve(\"\") = %q, want empty", got)
	}
}

func TestStageRootsCopies(t *testing.T) {
	roots := []string{"/a", "/b"}
	r := newResolver(t, "", "", roots)
	got := r.StageRoots()
	if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
		t.Fatalf("StageRoots = %v", got)
	}
	got[0] = "/mutated"
	if r.StageRoots()[0] != "/a" {
		t.Error("StageRoots leaked internal slice")
	}
}

func TestRewriteUnderSkipsAlreadyPrefixed(t *testing.T) {
	if got := rewriteUnder("/mnt/nas/media/x.mkv", "/mnt/nas"); got != "" {
		t.Errorf("rewriteUnder = %q, want empty", got)
	}
	got := rewriteUnder("/share/media/x.mkv", "/mnt/nas")
	if !strings.HasPrefix(got, "/mnt/nas/") {
		t.Errorf("rewriteUnder = %q", got)
	}
}
