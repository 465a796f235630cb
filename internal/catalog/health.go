package catalog

import (
	"context"
	"fmt"

	"mediavault/internal/services"
)

// Health summarizes the catalog's integrity and row counts.
type Health struct {
	OK               bool
	IntegrityDetail  string
	TotalAssets      int64
	LiveAssets       int64
	DuplicateGroups  int64
	PendingDeletions int64
	ScanRuns         int64
}

// CheckHealth runs SQLite's quick integrity check and gathers row counts.
func (s *Store) CheckHealth(ctx context.Context) (*Health, error) {
	ctx = ensureContext(ctx)

	var detail string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&detail); err != nil {
		return nil, services.Wrap(services.ErrDependency, "catalog", "health check", "integrity check failed", err)
	}

	health := &Health{OK: detail == "ok", IntegrityDetail: detail}

	total, live, err := s.CountAssets(ctx)
	if err != nil {
		return nil, err
	}
	health.TotalAssets = total
	health.LiveAssets = live

	counts := map[string]*int64{
		"duplicate_groups":  &health.DuplicateGroups,
		"pending_deletions": &health.PendingDeletions,
		"scan_runs":         &health.ScanRuns,
	}
	for table, dest := range counts {
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(1) FROM %s", table)).Scan(dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return health, nil
}
