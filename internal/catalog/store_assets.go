package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediavault/internal/services"
)

const assetColumns = "id, logical_path, filename, size_bytes, content_fingerprint, container, video_codec, audio_codec, width, height, resolution_tier, bitrate_kbps, framerate_fps, duration_seconds, audio_channels, audio_track_count, subtitle_track_count, audio_languages, subtitle_languages, dominant_audio_language, hdr_type, parsed_title, parsed_year, parsed_season, parsed_episode, parsed_release_group, media_kind, quality_score, external_id, canonical_title, overview, rating, poster_ref, is_staged, is_deleted, discovered_at, last_scanned_at, metadata_updated_at, deleted_at"

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*MediaAsset, error) {
	var (
		id              int64
		logicalPath     string
		filename        string
		sizeBytes       int64
		fingerprint     sql.NullString
		container       sql.NullString
		videoCodec      sql.NullString
		audioCodec      sql.NullString
		width           sql.NullInt64
		height          sql.NullInt64
		resolutionTier  sql.NullString
		bitrateKbps     sql.NullFloat64
		framerateFPS    sql.NullFloat64
		durationSeconds sql.NullFloat64
		audioChannels   sql.NullFloat64
		audioTracks     sql.NullInt64
		subtitleTracks  sql.NullInt64
		audioLangs      sql.NullString
		subtitleLangs   sql.NullString
		dominantLang    sql.NullString
		hdrType         sql.NullString
		parsedTitle     sql.NullString
		parsedYear      sql.NullInt64
		parsedSeason    sql.NullInt64
		parsedEpisode   sql.NullInt64
		releaseGroup    sql.NullString
		mediaKind       string
		qualityScore    sql.NullInt64
		externalID      sql.NullString
		canonicalTitle  sql.NullString
		overview        sql.NullString
		rating          sql.NullFloat64
		posterRef       sql.NullString
		isStaged        sql.NullInt64
		isDeleted       sql.NullInt64
		discoveredRaw   sql.NullString
		lastScannedRaw  sql.NullString
		metadataRaw     sql.NullString
		deletedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id, &logicalPath, &filename, &sizeBytes, &fingerprint,
		&container, &videoCodec, &audioCodec, &width, &height,
		&resolutionTier, &bitrateKbps, &framerateFPS, &durationSeconds,
		&audioChannels, &audioTracks, &subtitleTracks,
		&audioLangs, &subtitleLangs, &dominantLang, &hdrType,
		&parsedTitle, &parsedYear, &parsedSeason, &parsedEpisode, &releaseGroup,
		&mediaKind, &qualityScore,
		&externalID, &canonicalTitle, &overview, &rating, &posterRef,
		&isStaged, &isDeleted,
		&discoveredRaw, &lastScannedRaw, &metadataRaw, &deletedRaw,
	); err != nil {
		return nil, err
	}

	asset := &MediaAsset{
		ID:                 id,
		LogicalPath:        logicalPath,
		Filename:           filename,
		SizeBytes:          sizeBytes,
		ContentFingerprint: fingerprint.String,
		Container:          container.String,
		VideoCodec:         videoCodec.String,
		AudioCodec:         audioCodec.String,
		Width:              int(width.Int64),
		Height:             int(height.Int64),
		ResolutionTier:     resolutionTier.String,
		BitrateKbps:        bitrateKbps.Float64,
		FramerateFPS:       framerateFPS.Float64,
		DurationSeconds:    durationSeconds.Float64,
		AudioChannels:      audioChannels.Float64,
		AudioTrackCount:    int(audioTracks.Int64),
		SubtitleTrackCount: int(subtitleTracks.Int64),
		AudioLanguages:     decodeJSONList(audioLangs.String),
		SubtitleLanguages:  decodeJSONList(subtitleLangs.String),
		DominantAudioLang:  dominantLang.String,
		HDRType:            hdrType.String,
		ParsedTitle:        parsedTitle.String,
		ParsedYear:         int(parsedYear.Int64),
		ParsedSeason:       int(parsedSeason.Int64),
		ParsedEpisode:      int(parsedEpisode.Int64),
		ParsedReleaseGroup: releaseGroup.String,
		MediaKind:          mediaKind,
		QualityScore:       int(qualityScore.Int64),
		ExternalID:         externalID.String,
		CanonicalTitle:     canonicalTitle.String,
		Overview:           overview.String,
		Rating:             rating.Float64,
		PosterRef:          posterRef.String,
		IsStaged:           isStaged.Int64 != 0,
		IsDeleted:          isDeleted.Int64 != 0,
	}
	if discovered, err := parseTimeString(discoveredRaw.String); err == nil {
		asset.DiscoveredAt = discovered
	}
	if scanned, err := parseTimeString(lastScannedRaw.String); err == nil {
		asset.LastScannedAt = scanned
	}
	if updated, err := parseTimeString(metadataRaw.String); err == nil {
		asset.MetadataUpdatedAt = updated
	}
	if deletedRaw.Valid {
		asset.DeletedAt = parseTimePtr(deletedRaw.String)
	}
	return asset, nil
}

// UpsertAsset inserts the asset on first sight or updates the existing row
// keyed by logical_path, preserving discovered_at. It reports whether the
// row was newly inserted and backfills asset.ID. The caller owns the
// transaction when db is a *sql.Tx.
func UpsertAsset(ctx context.Context, db DBTX, asset *MediaAsset) (bool, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	if asset.LastScannedAt.IsZero() {
		asset.LastScannedAt = now
	}
	asset.MetadataUpdatedAt = now

	var (
		existingID   int64
		discoveredAt sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, discovered_at FROM media_assets WHERE logical_path = ?`,
		asset.LogicalPath,
	).Scan(&existingID, &discoveredAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if asset.DiscoveredAt.IsZero() {
			asset.DiscoveredAt = now
		}
		res, err := db.ExecContext(ctx,
			`INSERT INTO media_assets (
                logical_path, filename, size_bytes, content_fingerprint,
                container, video_codec, audio_codec, width, height, resolution_tier,
                bitrate_kbps, framerate_fps, duration_seconds, audio_channels,
                audio_track_count, subtitle_track_count, audio_languages, subtitle_languages,
                dominant_audio_language, hdr_type,
                parsed_title, parsed_year, parsed_season, parsed_episode, parsed_release_group,
                media_kind, quality_score,
                external_id, canonical_title, overview, rating, poster_ref,
                is_staged, is_deleted, discovered_at, last_scanned_at, metadata_updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			asset.LogicalPath,
			asset.Filename,
			asset.SizeBytes,
			nullableString(asset.ContentFingerprint),
			nullableString(asset.Container),
			nullableString(asset.VideoCodec),
			nullableString(asset.AudioCodec),
			asset.Width,
			asset.Height,
			nullableString(asset.ResolutionTier),
			asset.BitrateKbps,
			asset.FramerateFPS,
			asset.DurationSeconds,
			asset.AudioChannels,
			asset.AudioTrackCount,
			asset.SubtitleTrackCount,
			encodeJSONList(asset.AudioLanguages),
			encodeJSONList(asset.SubtitleLanguages),
			nullableString(asset.DominantAudioLang),
			nullableString(asset.HDRType),
			nullableString(asset.ParsedTitle),
			nullableInt(asset.ParsedYear),
			nullableInt(asset.ParsedSeason),
			nullableInt(asset.ParsedEpisode),
			nullableString(asset.ParsedReleaseGroup),
			asset.MediaKind,
			asset.QualityScore,
			nullableString(asset.ExternalID),
			nullableString(asset.CanonicalTitle),
			nullableString(asset.Overview),
			nullableFloat(asset.Rating),
			nullableString(asset.PosterRef),
			boolToInt(asset.IsStaged),
			boolToInt(asset.IsDeleted),
			formatTime(asset.DiscoveredAt),
			formatTime(asset.LastScannedAt),
			formatTime(asset.MetadataUpdatedAt),
		)
		if err != nil {
			return false, fmt.Errorf("insert asset: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		asset.ID = id
		return true, nil
	case err != nil:
		return false, fmt.Errorf("lookup asset: %w", err)
	}

	asset.ID = existingID
	if parsed, err := parseTimeString(discoveredAt.String); err == nil {
		asset.DiscoveredAt = parsed
	}
	_, err = db.ExecContext(ctx,
		`UPDATE media_assets SET
            filename = ?, size_bytes = ?, content_fingerprint = ?,
            container = ?, video_codec = ?, audio_codec = ?, width = ?, height = ?, resolution_tier = ?,
            bitrate_kbps = ?, framerate_fps = ?, duration_seconds = ?, audio_channels = ?,
            audio_track_count = ?, subtitle_track_count = ?, audio_languages = ?, subtitle_languages = ?,
            dominant_audio_language = ?, hdr_type = ?,
            parsed_title = ?, parsed_year = ?, parsed_season = ?, parsed_episode = ?, parsed_release_group = ?,
            media_kind = ?, quality_score = ?,
            is_deleted = 0, deleted_at = NULL,
            last_scanned_at = ?, metadata_updated_at = ?
         WHERE id = ?`,
		asset.Filename,
		asset.SizeBytes,
		nullableString(asset.ContentFingerprint),
		nullableString(asset.Container),
		nullableString(asset.VideoCodec),
		nullableString(asset.AudioCodec),
		asset.Width,
		asset.Height,
		nullableString(asset.ResolutionTier),
		asset.BitrateKbps,
		asset.FramerateFPS,
		asset.DurationSeconds,
		asset.AudioChannels,
		asset.AudioTrackCount,
		asset.SubtitleTrackCount,
		encodeJSONList(asset.AudioLanguages),
		encodeJSONList(asset.SubtitleLanguages),
		nullableString(asset.DominantAudioLang),
		nullableString(asset.HDRType),
		nullableString(asset.ParsedTitle),
		nullableInt(asset.ParsedYear),
		nullableInt(asset.ParsedSeason),
		nullableInt(asset.ParsedEpisode),
		nullableString(asset.ParsedReleaseGroup),
		asset.MediaKind,
		asset.QualityScore,
		formatTime(asset.LastScannedAt),
		formatTime(asset.MetadataUpdatedAt),
		existingID,
	)
	if err != nil {
		return false, fmt.Errorf("update asset: %w", err)
	}
	asset.IsDeleted = false
	asset.DeletedAt = nil
	return false, nil
}

// UpsertAsset is the autocommit convenience form of the DBTX helper.
func (s *Store) UpsertAsset(ctx context.Context, asset *MediaAsset) (bool, error) {
	var inserted bool
	err := retryOnBusy(ensureContext(ctx), func() error {
		var err error
		inserted, err = UpsertAsset(ctx, s.db, asset)
		return err
	})
	return inserted, err
}

// GetAssetByID fetches an asset by identifier; returns nil when absent.
func (s *Store) GetAssetByID(ctx context.Context, id int64) (*MediaAsset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+assetColumns+` FROM media_assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// MustGetAsset fetches an asset and converts absence into ErrNotFound.
func (s *Store) MustGetAsset(ctx context.Context, id int64) (*MediaAsset, error) {
	asset, err := s.GetAssetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get asset", fmt.Sprintf("asset %d not found", id), nil)
	}
	return asset, nil
}

// GetAssetByLogicalPath fetches an asset by its unique logical path.
func (s *Store) GetAssetByLogicalPath(ctx context.Context, logicalPath string) (*MediaAsset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+assetColumns+` FROM media_assets WHERE logical_path = ?`, logicalPath)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by path: %w", err)
	}
	return asset, nil
}

// ListLiveAssets returns all assets that are neither staged nor deleted,
// ordered by logical path for reproducibility.
func (s *Store) ListLiveAssets(ctx context.Context) ([]*MediaAsset, error) {
	return s.queryAssets(ctx, `SELECT `+assetColumns+` FROM media_assets WHERE is_deleted = 0 AND is_staged = 0 ORDER BY logical_path`)
}

// ListAssetsUnderRoots returns live assets whose logical path falls under
// any of the given roots.
func (s *Store) ListAssetsUnderRoots(ctx context.Context, roots []string) ([]*MediaAsset, error) {
	if len(roots) == 0 {
		return nil, nil
	}
	clauses := make([]byte, 0, 64)
	args := make([]any, 0, len(roots))
	for i, root := range roots {
		if i > 0 {
			clauses = append(clauses, " OR "...)
		}
		clauses = append(clauses, "logical_path LIKE ?"...)
		args = append(args, root+"/%")
	}
	query := `SELECT ` + assetColumns + ` FROM media_assets WHERE is_deleted = 0 AND (` + string(clauses) + `) ORDER BY logical_path`
	return s.queryAssets(ctx, query, args...)
}

func (s *Store) queryAssets(ctx context.Context, query string, args ...any) ([]*MediaAsset, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []*MediaAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// MarkAssetsDeleted flags the given asset ids as deleted with the supplied
// timestamp. Used by full scans for files that vanished from disk.
func (s *Store) MarkAssetsDeleted(ctx context.Context, ids []int64, deletedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, formatTime(deletedAt))
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE media_assets SET is_deleted = 1, deleted_at = ? WHERE id IN (`+placeholders+`) AND is_deleted = 0`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark assets deleted: %w", err)
	}
	return res.RowsAffected()
}

// SetAssetStaged flips the advisory staging flag on an asset.
func SetAssetStaged(ctx context.Context, db DBTX, assetID int64, staged bool) error {
	_, err := db.ExecContext(ensureContext(ctx),
		`UPDATE media_assets SET is_staged = ?, metadata_updated_at = ? WHERE id = ?`,
		boolToInt(staged), formatTime(time.Now().UTC()), assetID)
	if err != nil {
		return fmt.Errorf("set asset staged: %w", err)
	}
	return nil
}

// SetAssetDeleted marks an asset permanently deleted and clears the staging
// flag. Only the deletion workflow calls this.
func SetAssetDeleted(ctx context.Context, db DBTX, assetID int64, deletedAt time.Time) error {
	_, err := db.ExecContext(ensureContext(ctx),
		`UPDATE media_assets SET is_deleted = 1, is_staged = 0, deleted_at = ?, metadata_updated_at = ? WHERE id = ?`,
		formatTime(deletedAt), formatTime(time.Now().UTC()), assetID)
	if err != nil {
		return fmt.Errorf("set asset deleted: %w", err)
	}
	return nil
}

// UpdateAssetEnrichment writes the reserved enrichment columns. No other
// asset field may be touched through this path.
func (s *Store) UpdateAssetEnrichment(ctx context.Context, assetID int64, externalID, canonicalTitle, overview string, rating float64, posterRef string) error {
	return s.execWithoutResultRetry(ctx,
		`UPDATE media_assets SET external_id = ?, canonical_title = ?, overview = ?, rating = ?, poster_ref = ?, metadata_updated_at = ? WHERE id = ?`,
		nullableString(externalID),
		nullableString(canonicalTitle),
		nullableString(overview),
		nullableFloat(rating),
		nullableString(posterRef),
		formatTime(time.Now().UTC()),
		assetID,
	)
}

// CountAssets returns total and live asset counts.
func (s *Store) CountAssets(ctx context.Context) (total, live int64, err error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1), COALESCE(SUM(CASE WHEN is_deleted = 0 AND is_staged = 0 THEN 1 ELSE 0 END), 0) FROM media_assets`)
	if err := row.Scan(&total, &live); err != nil {
		return 0, 0, fmt.Errorf("count assets: %w", err)
	}
	return total, live, nil
}
