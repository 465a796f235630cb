package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "staged", "2026-08-24", "src.mkv")

	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := MoveFile(filepath.Join(dir, "nope.mkv"), filepath.Join(dir, "dst.mkv")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "movie.mkv")

	got, err := UniquePath(base)
	if err != nil {
		t.Fatal(err)
	}
	if got != base {
		t.Fatalf("UniquePath = %q, want %q", got, base)
	}

	if err := os.WriteFile(base, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = UniquePath(base)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "movie_1.mkv")
	if got != want {
		t.Fatalf("UniquePath = %q, want %q", got, want)
	}

	if err := os.WriteFile(want, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = UniquePath(base)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "movie_2.mkv") {
		t.Fatalf("UniquePath = %q, want movie_2.mkv", got)
	}
}
