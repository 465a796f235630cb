package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScan(); err != nil {
		return err
	}
	c.normalizeProbe()
	c.normalizeDuplicates()
	c.normalizeDeletion()
	c.normalizeEnrichment()
	c.normalizeLogging()
	return nil
}

// applyEnvOverrides layers the documented environment inputs over the file
// values. Environment wins so containerized deployments can steer the core
// without a config file.
func (c *Config) applyEnvOverrides() {
	if value, ok := lookupEnv("STAGE_ROOT_CANDIDATES"); ok {
		c.Paths.StageRootCandidates = splitList(value)
	}
	if value, ok := lookupEnv("SHARE_MOUNT_PREFIX"); ok {
		c.Paths.ShareMountPrefix = value
	}
	if value, ok := lookupEnv("DEV_FALLBACK_PREFIX"); ok {
		c.Paths.DevFallbackPrefix = value
	}
	if value, ok := lookupEnv("MEDIA_EXTENSIONS"); ok {
		c.Scan.MediaExtensions = splitList(value)
	}
	if value, ok := lookupEnv("SCAN_DENY_DIRS"); ok {
		c.Scan.DenyDirs = splitList(value)
	}
	if value, ok := envInt64("SCAN_MIN_MEDIA_BYTES"); ok {
		c.Scan.MinMediaBytes = value
	}
	if value, ok := envInt("SCAN_MAX_WORKERS"); ok {
		c.Scan.MaxWorkers = value
	}
	if value, ok := envInt("FUZZY_SIMILARITY_THRESHOLD"); ok {
		c.Duplicates.FuzzySimilarityThreshold = value
	}
	if value, ok := envInt("PROBE_TIMEOUT_SECONDS"); ok {
		c.Probe.TimeoutSeconds = value
	}
	if value, ok := envInt("FINGERPRINT_CHUNK_BYTES"); ok {
		c.Probe.FingerprintChunkBytes = value
	}
	if value, ok := envInt("PENDING_DELETION_RETENTION_DAYS"); ok {
		c.Deletion.RetentionDays = value
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CatalogDir) == "" {
		c.Paths.CatalogDir = defaultCatalogDir
	}
	if c.Paths.CatalogDir, err = expandPath(c.Paths.CatalogDir); err != nil {
		return fmt.Errorf("paths.catalog_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.ShareMountPrefix = strings.TrimSpace(c.Paths.ShareMountPrefix)
	c.Paths.DevFallbackPrefix = strings.TrimSpace(c.Paths.DevFallbackPrefix)

	roots := make([]string, 0, len(c.Paths.StageRootCandidates))
	for _, root := range c.Paths.StageRootCandidates {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("paths.stage_root_candidates: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Paths.StageRootCandidates = roots
	return nil
}

func (c *Config) normalizeScan() error {
	roots := make([]string, 0, len(c.Scan.Roots))
	for _, root := range c.Scan.Roots {
		trimmed := strings.TrimSpace(root)
		if trimmed != "" {
			roots = append(roots, trimmed)
		}
	}
	c.Scan.Roots = roots

	if len(c.Scan.MediaExtensions) == 0 {
		c.Scan.MediaExtensions = append([]string(nil), defaultMediaExtensions...)
	}
	if len(c.Scan.ArchiveExts) == 0 {
		c.Scan.ArchiveExts = append([]string(nil), defaultArchiveExtensions...)
	}
	if len(c.Scan.DenyDirs) == 0 {
		c.Scan.DenyDirs = append([]string(nil), defaultDenyDirs...)
	}
	if c.Scan.MinMediaBytes < 0 {
		c.Scan.MinMediaBytes = defaultMinMediaBytes
	}
	if c.Scan.MaxWorkers <= 0 {
		c.Scan.MaxWorkers = defaultMaxWorkers
	}
	if c.Scan.BatchSize <= 0 {
		c.Scan.BatchSize = defaultBatchSize
	}
	return nil
}

func (c *Config) normalizeProbe() {
	c.Probe.FFprobeBinary = strings.TrimSpace(c.Probe.FFprobeBinary)
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Probe.FingerprintChunkBytes <= 0 {
		c.Probe.FingerprintChunkBytes = defaultFingerprintChunkBytes
	}
}

func (c *Config) normalizeDuplicates() {
	if c.Duplicates.FuzzySimilarityThreshold <= 0 || c.Duplicates.FuzzySimilarityThreshold > 100 {
		c.Duplicates.FuzzySimilarityThreshold = defaultFuzzyThreshold
	}
}

func (c *Config) normalizeDeletion() {
	if c.Deletion.RetentionDays <= 0 {
		c.Deletion.RetentionDays = defaultRetentionDays
	}
}

func (c *Config) normalizeEnrichment() {
	if c.Enrichment.TimeoutSeconds <= 0 {
		c.Enrichment.TimeoutSeconds = defaultEnrichTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func envInt(key string) (int, bool) {
	value, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func envInt64(key string) (int64, bool) {
	value, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// splitList parses a comma-separated environment list. Colons are left
// alone; they appear inside paths.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
