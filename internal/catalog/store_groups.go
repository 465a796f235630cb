package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const groupColumns = "id, group_fingerprint, kind, confidence, title, year, season, episode, media_kind, member_count, recommended_action, action_reason, reviewed, reviewed_at, detected_at"

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*DuplicateGroup, error) {
	var (
		id          int64
		fingerprint string
		kind        string
		confidence  float64
		title       sql.NullString
		year        sql.NullInt64
		season      sql.NullInt64
		episode     sql.NullInt64
		mediaKind   sql.NullString
		memberCount sql.NullInt64
		action      sql.NullString
		reason      sql.NullString
		reviewed    sql.NullInt64
		reviewedRaw sql.NullString
		detectedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id, &fingerprint, &kind, &confidence, &title, &year, &season, &episode,
		&mediaKind, &memberCount, &action, &reason, &reviewed, &reviewedRaw, &detectedRaw,
	); err != nil {
		return nil, err
	}

	group := &DuplicateGroup{
		ID:                id,
		GroupFingerprint:  fingerprint,
		Kind:              kind,
		Confidence:        confidence,
		Title:             title.String,
		Year:              int(year.Int64),
		Season:            int(season.Int64),
		Episode:           int(episode.Int64),
		MediaKind:         mediaKind.String,
		MemberCount:       int(memberCount.Int64),
		RecommendedAction: action.String,
		ActionReason:      reason.String,
		Reviewed:          reviewed.Int64 != 0,
	}
	if reviewedRaw.Valid {
		group.ReviewedAt = parseTimePtr(reviewedRaw.String)
	}
	if detected, err := parseTimeString(detectedRaw.String); err == nil {
		group.DetectedAt = detected
	}
	return group, nil
}

// UpsertGroup inserts a duplicate group or updates a group that reappeared
// under the same fingerprint, preserving reviewed, reviewed_at, and
// detected_at on reappearance. Backfills group.ID.
func UpsertGroup(ctx context.Context, db DBTX, group *DuplicateGroup) error {
	ctx = ensureContext(ctx)

	var (
		existingID  int64
		reviewed    sql.NullInt64
		reviewedRaw sql.NullString
		detectedRaw sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, reviewed, reviewed_at, detected_at FROM duplicate_groups WHERE group_fingerprint = ?`,
		group.GroupFingerprint,
	).Scan(&existingID, &reviewed, &reviewedRaw, &detectedRaw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if group.DetectedAt.IsZero() {
			group.DetectedAt = time.Now().UTC()
		}
		res, err := db.ExecContext(ctx,
			`INSERT INTO duplicate_groups (
                group_fingerprint, kind, confidence, title, year, season, episode,
                media_kind, member_count, recommended_action, action_reason,
                reviewed, reviewed_at, detected_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.GroupFingerprint,
			group.Kind,
			group.Confidence,
			nullableString(group.Title),
			nullableInt(group.Year),
			nullableInt(group.Season),
			nullableInt(group.Episode),
			nullableString(group.MediaKind),
			group.MemberCount,
			nullableString(group.RecommendedAction),
			nullableString(group.ActionReason),
			boolToInt(group.Reviewed),
			nullableTime(group.ReviewedAt),
			formatTime(group.DetectedAt),
		)
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		group.ID = id
		return nil
	case err != nil:
		return fmt.Errorf("lookup group: %w", err)
	}

	group.ID = existingID
	group.Reviewed = reviewed.Int64 != 0
	if reviewedRaw.Valid {
		group.ReviewedAt = parseTimePtr(reviewedRaw.String)
	}
	if detected, parseErr := parseTimeString(detectedRaw.String); parseErr == nil {
		group.DetectedAt = detected
	}

	_, err = db.ExecContext(ctx,
		`UPDATE duplicate_groups SET
            kind = ?, confidence = ?, title = ?, year = ?, season = ?, episode = ?,
            media_kind = ?, member_count = ?, recommended_action = ?, action_reason = ?
         WHERE id = ?`,
		group.Kind,
		group.Confidence,
		nullableString(group.Title),
		nullableInt(group.Year),
		nullableInt(group.Season),
		nullableInt(group.Episode),
		nullableString(group.MediaKind),
		group.MemberCount,
		nullableString(group.RecommendedAction),
		nullableString(group.ActionReason),
		existingID,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// ReplaceMembers swaps a group's membership wholesale.
func ReplaceMembers(ctx context.Context, db DBTX, groupID int64, members []*DuplicateMember) error {
	ctx = ensureContext(ctx)
	if _, err := db.ExecContext(ctx, `DELETE FROM duplicate_members WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	for _, member := range members {
		res, err := db.ExecContext(ctx,
			`INSERT INTO duplicate_members (group_id, asset_id, rank, recommended_action, action_reason)
             VALUES (?, ?, ?, ?, ?)`,
			groupID,
			member.AssetID,
			member.Rank,
			member.RecommendedAction,
			nullableString(member.ActionReason),
		)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		member.ID = id
		member.GroupID = groupID
	}
	return nil
}

// DeleteGroupsNotIn removes every group whose fingerprint is absent from
// keep. Member rows cascade. Used by the destructive rebuild.
func DeleteGroupsNotIn(ctx context.Context, db DBTX, keep []string) (int64, error) {
	ctx = ensureContext(ctx)
	if len(keep) == 0 {
		res, err := db.ExecContext(ctx, `DELETE FROM duplicate_groups`)
		if err != nil {
			return 0, fmt.Errorf("delete groups: %w", err)
		}
		return res.RowsAffected()
	}
	placeholders := makePlaceholders(len(keep))
	args := make([]any, len(keep))
	for i, fp := range keep {
		args[i] = fp
	}
	res, err := db.ExecContext(ctx,
		`DELETE FROM duplicate_groups WHERE group_fingerprint NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete stale groups: %w", err)
	}
	return res.RowsAffected()
}

// GetGroupByID fetches a group by identifier; returns nil when absent.
func (s *Store) GetGroupByID(ctx context.Context, id int64) (*DuplicateGroup, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+groupColumns+` FROM duplicate_groups WHERE id = ?`, id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// GetGroupByFingerprint fetches a group by its unique fingerprint.
func (s *Store) GetGroupByFingerprint(ctx context.Context, fingerprint string) (*DuplicateGroup, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+groupColumns+` FROM duplicate_groups WHERE group_fingerprint = ?`, fingerprint)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group by fingerprint: %w", err)
	}
	return group, nil
}

// ListGroups returns all duplicate groups ordered by fingerprint for
// reproducible output.
func (s *Store) ListGroups(ctx context.Context) ([]*DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+groupColumns+` FROM duplicate_groups ORDER BY group_fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*DuplicateGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// ListMembers returns a group's members ordered by rank.
func (s *Store) ListMembers(ctx context.Context, groupID int64) ([]*DuplicateMember, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, group_id, asset_id, rank, recommended_action, action_reason
         FROM duplicate_members WHERE group_id = ? ORDER BY rank`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*DuplicateMember
	for rows.Next() {
		var (
			member DuplicateMember
			reason sql.NullString
		)
		if err := rows.Scan(&member.ID, &member.GroupID, &member.AssetID, &member.Rank, &member.RecommendedAction, &reason); err != nil {
			return nil, err
		}
		member.ActionReason = reason.String
		members = append(members, &member)
	}
	return members, rows.Err()
}

// MarkGroupReviewed flips the human-reviewed flag on a group.
func (s *Store) MarkGroupReviewed(ctx context.Context, groupID int64, reviewed bool) error {
	var reviewedAt any
	if reviewed {
		now := time.Now().UTC()
		reviewedAt = formatTime(now)
	}
	return s.execWithoutResultRetry(ctx,
		`UPDATE duplicate_groups SET reviewed = ?, reviewed_at = ? WHERE id = ?`,
		boolToInt(reviewed), reviewedAt, groupID)
}
