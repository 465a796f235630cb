package catalog_test

import (
	"context"
	"database/sql"
	"testing"

	"mediavault/internal/catalog"
	"mediavault/internal/testsupport"
)

func TestPendingMetadataVariants(t *testing.T) {
	if !catalog.NewPendingMetadata(true).SourceMissing() {
		t.Error("source-missing metadata lost its marker")
	}
	if catalog.NewPendingMetadata(false).SourceMissing() {
		t.Error("normal staging reported source missing")
	}

	missing := catalog.PendingMetadataFromMap(map[string]any{"source_missing": true, "note": "manual"})
	if missing.Kind != catalog.MetadataSourceMissing {
		t.Errorf("kind = %s, want source_missing", missing.Kind)
	}
	if missing.Extra["note"] != "manual" {
		t.Errorf("extra keys lost: %+v", missing.Extra)
	}
	flattened := missing.AsMap()
	if flattened["source_missing"] != true || flattened["note"] != "manual" {
		t.Errorf("AsMap = %+v", flattened)
	}

	// A map written by another tool carries no marker and must stay opaque.
	opaque := catalog.PendingMetadataFromMap(map[string]any{"migrated_from": "v1"})
	if opaque.Kind != catalog.MetadataOpaque {
		t.Errorf("kind = %s, want opaque", opaque.Kind)
	}
	if got := opaque.AsMap(); got["migrated_from"] != "v1" {
		t.Errorf("opaque map did not round-trip: %+v", got)
	}
}

func TestPendingMetadataOpaqueRoundTripsThroughStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, store, "/library/opaque.mkv", nil)
	pending := &catalog.PendingDeletion{
		AssetID:             asset.ID,
		OriginalLogicalPath: asset.LogicalPath,
		Metadata:            catalog.PendingMetadataFromMap(map[string]any{"migrated_from": "v1"}),
	}
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return catalog.InsertPendingDeletion(ctx, tx, pending)
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.GetPendingDeletion(ctx, pending.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.Kind != catalog.MetadataOpaque {
		t.Errorf("kind after reload = %s, want opaque", got.Metadata.Kind)
	}
	if got.Metadata.Extra["migrated_from"] != "v1" {
		t.Errorf("opaque metadata lost through persistence: %+v", got.Metadata)
	}
	if got.Metadata.SourceMissing() {
		t.Error("opaque metadata must not report source missing")
	}
}
