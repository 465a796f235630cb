package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, run_uuid, kind, roots_json, status, started_at, finished_at, files_found, files_new, files_updated, files_unchanged, files_deleted, errors_count, error_details, failure_reason"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*ScanRun, error) {
	var (
		id            int64
		runUUID       string
		kind          string
		rootsJSON     string
		status        string
		startedRaw    sql.NullString
		finishedRaw   sql.NullString
		found         sql.NullInt64
		added         sql.NullInt64
		updated       sql.NullInt64
		unchanged     sql.NullInt64
		deleted       sql.NullInt64
		errorsCount   sql.NullInt64
		errorDetails  sql.NullString
		failureReason sql.NullString
	)
	if err := scanner.Scan(
		&id, &runUUID, &kind, &rootsJSON, &status, &startedRaw, &finishedRaw,
		&found, &added, &updated, &unchanged, &deleted, &errorsCount, &errorDetails, &failureReason,
	); err != nil {
		return nil, err
	}

	run := &ScanRun{
		ID:             id,
		RunUUID:        runUUID,
		Kind:           kind,
		Roots:          decodeJSONList(rootsJSON),
		Status:         status,
		FilesFound:     int(found.Int64),
		FilesNew:       int(added.Int64),
		FilesUpdated:   int(updated.Int64),
		FilesUnchanged: int(unchanged.Int64),
		FilesDeleted:   int(deleted.Int64),
		ErrorsCount:    int(errorsCount.Int64),
		FailureReason:  failureReason.String,
	}
	if errorDetails.Valid && errorDetails.String != "" {
		_ = json.Unmarshal([]byte(errorDetails.String), &run.ErrorDetails)
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		run.FinishedAt = parseTimePtr(finishedRaw.String)
	}
	return run, nil
}

// CreateScanRun records a run in the running state and assigns its UUID.
func (s *Store) CreateScanRun(ctx context.Context, kind string, roots []string) (*ScanRun, error) {
	run := &ScanRun{
		RunUUID:   uuid.NewString(),
		Kind:      kind,
		Roots:     append([]string(nil), roots...),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	rootsJSON, err := json.Marshal(run.Roots)
	if err != nil {
		return nil, fmt.Errorf("marshal roots: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO scan_runs (run_uuid, kind, roots_json, status, started_at)
         VALUES (?, ?, ?, ?, ?)`,
		run.RunUUID, run.Kind, string(rootsJSON), run.Status, formatTime(run.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("insert scan run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return run, nil
}

// UpdateScanRun persists counters, status, and error details.
func (s *Store) UpdateScanRun(ctx context.Context, run *ScanRun) error {
	var detailsJSON any
	if len(run.ErrorDetails) > 0 {
		data, err := json.Marshal(run.ErrorDetails)
		if err != nil {
			return fmt.Errorf("marshal error details: %w", err)
		}
		detailsJSON = string(data)
	}
	return s.execWithoutResultRetry(ctx,
		`UPDATE scan_runs SET
            status = ?, finished_at = ?,
            files_found = ?, files_new = ?, files_updated = ?, files_unchanged = ?, files_deleted = ?,
            errors_count = ?, error_details = ?, failure_reason = ?
         WHERE id = ?`,
		run.Status,
		nullableTime(run.FinishedAt),
		run.FilesFound,
		run.FilesNew,
		run.FilesUpdated,
		run.FilesUnchanged,
		run.FilesDeleted,
		run.ErrorsCount,
		detailsJSON,
		nullableString(run.FailureReason),
		run.ID,
	)
}

// GetScanRun fetches a run by identifier; returns nil when absent.
func (s *Store) GetScanRun(ctx context.Context, id int64) (*ScanRun, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM scan_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan run: %w", err)
	}
	return run, nil
}

// LatestScanRun returns the most recently started run, or nil when the
// catalog has never been scanned.
func (s *Store) LatestScanRun(ctx context.Context) (*ScanRun, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM scan_runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest scan run: %w", err)
	}
	return run, nil
}

// ListScanRuns returns runs newest first; limit of 0 means no limit.
func (s *Store) ListScanRuns(ctx context.Context, limit int) ([]*ScanRun, error) {
	query := `SELECT ` + runColumns + ` FROM scan_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	defer rows.Close()

	var runs []*ScanRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
