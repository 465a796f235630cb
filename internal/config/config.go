package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the catalog and path resolver.
type Paths struct {
	CatalogDir          string   `toml:"catalog_dir"`
	LogDir              string   `toml:"log_dir"`
	ShareMountPrefix    string   `toml:"share_mount_prefix"`
	DevFallbackPrefix   string   `toml:"dev_fallback_prefix"`
	StageRootCandidates []string `toml:"stage_root_candidates"`
}

// Scan contains scanner classification policy and worker tuning.
type Scan struct {
	Roots           []string `toml:"roots"`
	MediaExtensions []string `toml:"media_extensions"`
	ArchiveExts     []string `toml:"archive_extensions"`
	DenyDirs        []string `toml:"deny_dirs"`
	MinMediaBytes   int64    `toml:"min_media_bytes"`
	MaxWorkers      int      `toml:"max_workers"`
	BatchSize       int      `toml:"batch_size"`
}

// Probe contains media-inspection subprocess settings.
type Probe struct {
	FFprobeBinary         string `toml:"ffprobe_binary"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	FingerprintChunkBytes int    `toml:"fingerprint_chunk_bytes"`
}

// Duplicates contains duplicate-engine tunables.
type Duplicates struct {
	FuzzySimilarityThreshold int `toml:"fuzzy_similarity_threshold"`
}

// Deletion contains deletion-staging retention policy.
type Deletion struct {
	RetentionDays int `toml:"retention_days"`
}

// Enrichment contains the optional per-asset enrichment hook settings.
type Enrichment struct {
	Enabled        bool `toml:"enabled"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for MediaVault.
//
// Configuration sections by subsystem:
//   - Paths: catalog/log directories and path-resolution candidates
//   - Scan: scanner roots, classification policy, worker pool sizing
//   - Probe: ffprobe binary, timeout, fingerprint chunk size
//   - Duplicates: fuzzy similarity threshold
//   - Deletion: pending-deletion retention window
//   - Enrichment: optional per-asset enrichment hook
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Scan       Scan       `toml:"scan"`
	Probe      Probe      `toml:"probe"`
	Duplicates Duplicates `toml:"duplicates"`
	Deletion   Deletion   `toml:"deletion"`
	Enrichment Enrichment `toml:"enrichment"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediavault/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has environment overrides applied and all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/mediavault/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediavault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories MediaVault owns. Stage roots are
// created on a best-effort basis so startup survives an offline share; the
// deletion workflow probes them again before every stage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CatalogDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, root := range c.Paths.StageRootCandidates {
		if strings.TrimSpace(root) != "" {
			_ = os.MkdirAll(root, 0o755)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Probe.FFprobeBinary) != "" {
		return c.Probe.FFprobeBinary
	}
	return "ffprobe"
}

// MediaExtensionSet returns the media extension list as a lookup set with
// leading dots and lowercase normalization applied.
func (c *Config) MediaExtensionSet() map[string]struct{} {
	return extensionSet(c.Scan.MediaExtensions)
}

// ArchiveExtensionSet returns the archive extension lookup set.
func (c *Config) ArchiveExtensionSet() map[string]struct{} {
	return extensionSet(c.Scan.ArchiveExts)
}

// DenyDirSet returns the directory deny-list as a lookup set.
func (c *Config) DenyDirSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Scan.DenyDirs))
	for _, dir := range c.Scan.DenyDirs {
		trimmed := strings.ToLower(strings.TrimSpace(dir))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func extensionSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, ext := range values {
		trimmed := strings.ToLower(strings.TrimSpace(ext))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		set[trimmed] = struct{}{}
	}
	return set
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
