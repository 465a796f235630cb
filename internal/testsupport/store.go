package testsupport

import (
	"context"
	"testing"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedAsset upserts a minimal live asset for tests and returns it with its
// assigned identifier.
func SeedAsset(t testing.TB, store *catalog.Store, logicalPath string, mutate func(*catalog.MediaAsset)) *catalog.MediaAsset {
	t.Helper()

	asset := &catalog.MediaAsset{
		LogicalPath: logicalPath,
		Filename:    filepathBase(logicalPath),
		SizeBytes:   1024,
		MediaKind:   catalog.KindMovie,
	}
	if mutate != nil {
		mutate(asset)
	}
	if _, err := store.UpsertAsset(context.Background(), asset); err != nil {
		t.Fatalf("seed asset %s: %v", logicalPath, err)
	}
	return asset
}

func filepathBase(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
