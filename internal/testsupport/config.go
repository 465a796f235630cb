package testsupport

import (
	"path/filepath"
	"testing"

	"mediavault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CatalogDir = filepath.Join(base, "catalog")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ShareMountPrefix = ""
	cfgVal.Paths.DevFallbackPrefix = ""
	cfgVal.Paths.StageRootCandidates = []string{filepath.Join(base, "staging")}
	cfgVal.Scan.Roots = []string{filepath.Join(base, "library")}
	cfgVal.Scan.MinMediaBytes = 1
	cfgVal.Scan.MaxWorkers = 2
	cfgVal.Scan.BatchSize = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithScanRoots overrides the default scan roots on the test config.
func WithScanRoots(roots ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.Roots = roots
	}
}

// WithFuzzyThreshold sets the duplicate similarity threshold.
func WithFuzzyThreshold(threshold int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Duplicates.FuzzySimilarityThreshold = threshold
	}
}

// WithMinMediaBytes sets the minimum media file size.
func WithMinMediaBytes(size int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.MinMediaBytes = size
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CatalogDir)
}
