package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const pendingColumns = "id, asset_id, original_logical_path, staged_path, size_bytes, reason, group_id, better_asset_id, quality_delta, language_concern, language_concern_reason, staged_at, approved, approved_at, approved_by, deleted_at, metadata_json"

func scanPending(scanner interface{ Scan(dest ...any) error }) (*PendingDeletion, error) {
	var (
		id            int64
		assetID       int64
		originalPath  string
		stagedPath    sql.NullString
		sizeBytes     sql.NullInt64
		reason        sql.NullString
		groupID       sql.NullInt64
		betterAssetID sql.NullInt64
		qualityDelta  sql.NullInt64
		langConcern   sql.NullInt64
		langReason    sql.NullString
		stagedRaw     sql.NullString
		approved      sql.NullInt64
		approvedRaw   sql.NullString
		approvedBy    sql.NullString
		deletedRaw    sql.NullString
		metadataRaw   sql.NullString
	)
	if err := scanner.Scan(
		&id, &assetID, &originalPath, &stagedPath, &sizeBytes, &reason,
		&groupID, &betterAssetID, &qualityDelta, &langConcern, &langReason,
		&stagedRaw, &approved, &approvedRaw, &approvedBy, &deletedRaw, &metadataRaw,
	); err != nil {
		return nil, err
	}

	pending := &PendingDeletion{
		ID:                    id,
		AssetID:               assetID,
		OriginalLogicalPath:   originalPath,
		StagedPath:            stagedPath.String,
		SizeBytes:             sizeBytes.Int64,
		Reason:                reason.String,
		GroupID:               groupID.Int64,
		BetterAssetID:         betterAssetID.Int64,
		QualityDelta:          int(qualityDelta.Int64),
		LanguageConcern:       langConcern.Int64 != 0,
		LanguageConcernReason: langReason.String,
		Approved:              approved.Int64 != 0,
		ApprovedBy:            approvedBy.String,
		Metadata:              PendingMetadataFromMap(decodeJSONMap(metadataRaw.String)),
	}
	if staged, err := parseTimeString(stagedRaw.String); err == nil {
		pending.StagedAt = staged
	}
	if approvedRaw.Valid {
		pending.ApprovedAt = parseTimePtr(approvedRaw.String)
	}
	if deletedRaw.Valid {
		pending.DeletedAt = parseTimePtr(deletedRaw.String)
	}
	return pending, nil
}

// InsertPendingDeletion records a freshly staged artifact. Backfills the
// row id. Runs on the caller's transaction.
func InsertPendingDeletion(ctx context.Context, db DBTX, pending *PendingDeletion) error {
	ctx = ensureContext(ctx)
	if pending.StagedAt.IsZero() {
		pending.StagedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO pending_deletions (
            asset_id, original_logical_path, staged_path, size_bytes, reason,
            group_id, better_asset_id, quality_delta,
            language_concern, language_concern_reason,
            staged_at, approved, approved_at, approved_by, deleted_at, metadata_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pending.AssetID,
		pending.OriginalLogicalPath,
		nullableString(pending.StagedPath),
		pending.SizeBytes,
		nullableString(pending.Reason),
		nullableInt64(pending.GroupID),
		nullableInt64(pending.BetterAssetID),
		pending.QualityDelta,
		boolToInt(pending.LanguageConcern),
		nullableString(pending.LanguageConcernReason),
		formatTime(pending.StagedAt),
		boolToInt(pending.Approved),
		nullableTime(pending.ApprovedAt),
		nullableString(pending.ApprovedBy),
		nullableTime(pending.DeletedAt),
		encodeJSONMap(pending.Metadata.AsMap()),
	)
	if err != nil {
		return fmt.Errorf("insert pending deletion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	pending.ID = id
	return nil
}

// UpdatePendingDeletion persists approval state changes on an existing row.
func UpdatePendingDeletion(ctx context.Context, db DBTX, pending *PendingDeletion) error {
	_, err := db.ExecContext(ensureContext(ctx),
		`UPDATE pending_deletions SET
            staged_path = ?, approved = ?, approved_at = ?, approved_by = ?,
            deleted_at = ?, metadata_json = ?
         WHERE id = ?`,
		nullableString(pending.StagedPath),
		boolToInt(pending.Approved),
		nullableTime(pending.ApprovedAt),
		nullableString(pending.ApprovedBy),
		nullableTime(pending.DeletedAt),
		encodeJSONMap(pending.Metadata.AsMap()),
		pending.ID,
	)
	if err != nil {
		return fmt.Errorf("update pending deletion: %w", err)
	}
	return nil
}

// DeletePendingDeletion removes a row entirely; only restore does this.
func DeletePendingDeletion(ctx context.Context, db DBTX, id int64) error {
	if _, err := db.ExecContext(ensureContext(ctx), `DELETE FROM pending_deletions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pending deletion: %w", err)
	}
	return nil
}

// GetPendingDeletion fetches a row by identifier; returns nil when absent.
func (s *Store) GetPendingDeletion(ctx context.Context, id int64) (*PendingDeletion, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+pendingColumns+` FROM pending_deletions WHERE id = ?`, id)
	pending, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending deletion: %w", err)
	}
	return pending, nil
}

// GetLivePendingForAsset returns the asset's pending-deletion row that has
// not yet reached the terminal state, or nil.
func (s *Store) GetLivePendingForAsset(ctx context.Context, assetID int64) (*PendingDeletion, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+pendingColumns+` FROM pending_deletions WHERE asset_id = ? AND deleted_at IS NULL ORDER BY id LIMIT 1`,
		assetID)
	pending, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending for asset: %w", err)
	}
	return pending, nil
}

// ListPendingDeletions returns rows, optionally restricted to those still
// in the STAGED state, ordered by staged_at.
func (s *Store) ListPendingDeletions(ctx context.Context, stagedOnly bool) ([]*PendingDeletion, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_deletions`
	if stagedOnly {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY staged_at`

	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return nil, fmt.Errorf("list pending deletions: %w", err)
	}
	defer rows.Close()

	var out []*PendingDeletion
	for rows.Next() {
		pending, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pending)
	}
	return out, rows.Err()
}

// ListApprovedOlderThan returns approved, still-staged rows whose staged_at
// predates cutoff. The cleanup sweep feeds these to approve-style removal;
// rows without prior approval are never returned.
func (s *Store) ListApprovedOlderThan(ctx context.Context, cutoff time.Time) ([]*PendingDeletion, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+pendingColumns+` FROM pending_deletions
         WHERE approved = 1 AND deleted_at IS NULL AND staged_at < ?
         ORDER BY staged_at`,
		formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("list approved pending deletions: %w", err)
	}
	defer rows.Close()

	var out []*PendingDeletion
	for rows.Next() {
		pending, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pending)
	}
	return out, rows.Err()
}
