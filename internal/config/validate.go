package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateDuplicates(); err != nil {
		return err
	}
	if err := c.validateDeletion(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.CatalogDir == "" {
		return errors.New("paths.catalog_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateScan() error {
	if len(c.Scan.MediaExtensions) == 0 {
		return errors.New("scan.media_extensions must include at least one extension")
	}
	if err := ensurePositiveMap(map[string]int{
		"scan.max_workers": c.Scan.MaxWorkers,
		"scan.batch_size":  c.Scan.BatchSize,
	}); err != nil {
		return err
	}
	if c.Scan.MinMediaBytes < 0 {
		return errors.New("scan.min_media_bytes must be >= 0")
	}
	return nil
}

func (c *Config) validateProbe() error {
	return ensurePositiveMap(map[string]int{
		"probe.timeout_seconds":         c.Probe.TimeoutSeconds,
		"probe.fingerprint_chunk_bytes": c.Probe.FingerprintChunkBytes,
	})
}

func (c *Config) validateDuplicates() error {
	threshold := c.Duplicates.FuzzySimilarityThreshold
	if threshold < 1 || threshold > 100 {
		return errors.New("duplicates.fuzzy_similarity_threshold must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateDeletion() error {
	if c.Deletion.RetentionDays <= 0 {
		return errors.New("deletion.retention_days must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
