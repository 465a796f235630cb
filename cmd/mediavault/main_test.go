package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
catalog_dir = %q
log_dir = %q
stage_root_candidates = [%q]

[scan]
roots = [%q]

[logging]
level = "error"
`,
		filepath.Join(base, "catalog"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "library"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output missing %q:\n%s", want, output)
	}
}

func TestScanStatusEmptyCatalog(t *testing.T) {
	cfgPath := writeCLIConfig(t)

	out, err := runCLI(t, cfgPath, "scan", "status")
	if err != nil {
		t.Fatalf("scan status: %v", err)
	}
	requireContains(t, out, "No scan runs recorded")
}

func TestDuplicatesListEmptyCatalog(t *testing.T) {
	cfgPath := writeCLIConfig(t)

	out, err := runCLI(t, cfgPath, "duplicates", "list")
	if err != nil {
		t.Fatalf("duplicates list: %v", err)
	}
	requireContains(t, out, "No duplicate groups")
}

func TestStagingListEmptyCatalog(t *testing.T) {
	cfgPath := writeCLIConfig(t)

	out, err := runCLI(t, cfgPath, "staging", "list")
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "No pending deletions")
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error on existing config file")
	}
}

func TestStageRequiresReasonFlag(t *testing.T) {
	cfgPath := writeCLIConfig(t)

	if _, err := runCLI(t, cfgPath, "staging", "stage", "1"); err == nil {
		t.Fatal("expected missing --reason to fail")
	}
}

func TestParsePositiveID(t *testing.T) {
	if id, err := parsePositiveID(" 42 "); err != nil || id != 42 {
		t.Errorf("parsePositiveID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := parsePositiveID(bad); err == nil {
			t.Errorf("parsePositiveID(%q) did not fail", bad)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatBytes(0); got != "-" {
		t.Errorf("formatBytes(0) = %q", got)
	}
	if got := formatBytes(1024); got != "1.0 KiB" {
		t.Errorf("formatBytes(1024) = %q", got)
	}
	if got := truncatePath("/a/b/c", 10); got != "/a/b/c" {
		t.Errorf("truncatePath short = %q", got)
	}
	long := "/very/long/path/to/some/movie.mkv"
	if got := truncatePath(long, 12); len([]rune(got)) != 12 || !strings.HasSuffix(got, "movie.mkv") {
		t.Errorf("truncatePath long = %q", got)
	}
}
