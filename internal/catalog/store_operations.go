package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const operationColumns = "id, asset_id, kind, source_path, destination_path, success, error_message, performed_at, performed_by, operation_metadata"

// AppendArchiveOperation records one filesystem-effective mutation in the
// append-only log. Failed attempts are recorded too.
func AppendArchiveOperation(ctx context.Context, db DBTX, op *ArchiveOperation) error {
	ctx = ensureContext(ctx)
	if op.PerformedAt.IsZero() {
		op.PerformedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO archive_operations (
            asset_id, kind, source_path, destination_path,
            success, error_message, performed_at, performed_by, operation_metadata
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(op.AssetID),
		op.Kind,
		nullableString(op.SourcePath),
		nullableString(op.DestinationPath),
		boolToInt(op.Success),
		nullableString(op.ErrorMessage),
		formatTime(op.PerformedAt),
		nullableString(op.PerformedBy),
		encodeJSONMap(op.Metadata),
	)
	if err != nil {
		return fmt.Errorf("append archive operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	op.ID = id
	return nil
}

// ListArchiveOperations returns log entries newest first. assetID of 0
// means all assets; limit of 0 means no limit.
func (s *Store) ListArchiveOperations(ctx context.Context, assetID int64, limit int) ([]*ArchiveOperation, error) {
	query := `SELECT ` + operationColumns + ` FROM archive_operations`
	args := []any{}
	if assetID > 0 {
		query += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY performed_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archive operations: %w", err)
	}
	defer rows.Close()

	var out []*ArchiveOperation
	for rows.Next() {
		var (
			op           ArchiveOperation
			opAssetID    sql.NullInt64
			sourcePath   sql.NullString
			destPath     sql.NullString
			success      sql.NullInt64
			errorMessage sql.NullString
			performedRaw sql.NullString
			performedBy  sql.NullString
			metadataRaw  sql.NullString
		)
		if err := rows.Scan(
			&op.ID, &opAssetID, &op.Kind, &sourcePath, &destPath,
			&success, &errorMessage, &performedRaw, &performedBy, &metadataRaw,
		); err != nil {
			return nil, err
		}
		op.AssetID = opAssetID.Int64
		op.SourcePath = sourcePath.String
		op.DestinationPath = destPath.String
		op.Success = success.Int64 != 0
		op.ErrorMessage = errorMessage.String
		op.PerformedBy = performedBy.String
		op.Metadata = decodeJSONMap(metadataRaw.String)
		if performed, err := parseTimeString(performedRaw.String); err == nil {
			op.PerformedAt = performed
		}
		out = append(out, &op)
	}
	return out, rows.Err()
}
