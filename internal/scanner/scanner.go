package scanner

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/language"
	"mediavault/internal/logging"
	"mediavault/internal/parse"
	"mediavault/internal/paths"
	"mediavault/internal/probe"
	"mediavault/internal/quality"
	"mediavault/internal/services"
)

// Identity is the parsed identity handed to the enrichment hook.
type Identity struct {
	Title     string
	Year      int
	Season    int
	Episode   int
	MediaKind string
}

// Enrichment carries the reserved enrichment columns an external catalog
// lookup may fill in. The hook cannot modify any other asset field.
type Enrichment struct {
	ExternalID     string
	CanonicalTitle string
	Overview       string
	Rating         float64
	PosterRef      string
}

// EnrichFunc is the optional per-asset enrichment callback.
type EnrichFunc func(ctx context.Context, identity Identity) (*Enrichment, error)

// Scanner orchestrates path resolution, probing, scoring, and catalog
// upserts over a set of logical roots.
type Scanner struct {
	cfg      *config.Config
	store    *catalog.Store
	resolver *paths.Resolver
	prober   *probe.Prober
	logger   *slog.Logger
	enrich   EnrichFunc
}

// New constructs a scanner over the given catalog and resolver.
func New(cfg *config.Config, store *catalog.Store, resolver *paths.Resolver, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		prober:   probe.NewProber(cfg.FFprobeBinary(), time.Duration(cfg.Probe.TimeoutSeconds)*time.Second),
		logger:   logging.NewComponentLogger(logger, "scanner"),
	}
}

// SetEnrichHook installs the optional enrichment callback.
func (s *Scanner) SetEnrichHook(fn EnrichFunc) { s.enrich = fn }

// fileResult is the outcome of per-file probe + fingerprint work.
type fileResult struct {
	asset *catalog.MediaAsset
	err   *catalog.ScanError
}

// candidateQueueDepth bounds the walk-to-worker handoff. The walker blocks
// when probing falls behind, so scan memory does not grow with the size of
// the library.
const candidateQueueDepth = 16

// Run executes one scan of the given kind over the roots (the configured
// roots when none are passed). Per-file errors never abort the run; the
// run fails only on unrecoverable conditions or cancellation.
func (s *Scanner) Run(ctx context.Context, kind string, roots []string) (*catalog.ScanRun, error) {
	if kind != catalog.ScanKindFull && kind != catalog.ScanKindIncremental {
		return nil, services.Wrap(services.ErrInvalidState, "scanner", "run", "unknown scan kind "+kind, nil)
	}
	if len(roots) == 0 {
		roots = s.cfg.Scan.Roots
	}
	if len(roots) == 0 {
		return nil, services.Wrap(services.ErrInvalidState, "scanner", "run", "no scan roots configured", nil)
	}

	run, err := s.store.CreateScanRun(ctx, kind, roots)
	if err != nil {
		return nil, services.Wrap(services.ErrDependency, "scanner", "create run", "catalog unreachable", err)
	}
	ctx = logging.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("scan started",
		logging.String("kind", kind),
		logging.Int("roots", len(roots)))

	seen, procErr := s.process(ctx, run, kind, roots, logger)
	if procErr != nil {
		return s.finalize(ctx, run, procErr, logger)
	}

	if kind == catalog.ScanKindFull && ctx.Err() == nil {
		s.markMissing(ctx, run, roots, seen, logger)
	}

	return s.finalize(ctx, run, ctx.Err(), logger)
}

// walkOutcome carries the producer's counters back to the coordinator once
// the walk has drained.
type walkOutcome struct {
	found     int
	unchanged int
	seen      map[string]struct{}
	errs      []catalog.ScanError
	abort     error
}

// process streams candidates from the walk through a bounded worker pool
// and writes results in batched transactions. It returns the set of logical
// paths observed, used later for deletion marking.
func (s *Scanner) process(ctx context.Context, run *catalog.ScanRun, kind string, roots []string, logger *slog.Logger) (map[string]struct{}, error) {
	candidates := make(chan candidate, candidateQueueDepth)
	walkDone := make(chan walkOutcome, 1)
	go func() {
		walkDone <- s.produce(ctx, kind, roots, candidates, logger)
	}()

	results := make(chan fileResult, s.cfg.Scan.MaxWorkers)
	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Scan.MaxWorkers; i++ {
		group.Go(func() error {
			for c := range candidates {
				// Keep draining after cancellation so the producer never
				// blocks on a full channel.
				if groupCtx.Err() != nil {
					continue
				}
				results <- s.processFile(groupCtx, c)
			}
			return nil
		})
	}

	// Workers only report through the channel, so Wait cannot fail; it
	// gates closing the channel for the collector below.
	go func() {
		_ = group.Wait()
		close(results)
	}()

	batch := make([]*catalog.MediaAsset, 0, s.cfg.Scan.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.flushBatch(ctx, run, batch); err != nil {
			s.recordError(run, batch[0].LogicalPath, services.ErrDependency, "batch write failed: "+err.Error())
			logger.Warn("batch write failed; continuing scan", logging.Error(err), logging.Int("batch_size", len(batch)))
		}
		batch = batch[:0]
	}

	for result := range results {
		if result.err != nil {
			run.ErrorsCount++
			run.ErrorDetails = append(run.ErrorDetails, *result.err)
		}
		if result.asset != nil {
			batch = append(batch, result.asset)
			if len(batch) >= s.cfg.Scan.BatchSize {
				flush()
			}
		}
	}
	flush()

	walk := <-walkDone
	run.FilesFound = walk.found
	run.FilesUnchanged = walk.unchanged
	for _, scanErr := range walk.errs {
		run.ErrorsCount++
		run.ErrorDetails = append(run.ErrorDetails, scanErr)
	}
	return walk.seen, walk.abort
}

// produce walks every root and feeds media candidates into the bounded
// channel, applying the incremental skip before dispatch. It owns the walk
// counters and always closes the channel.
func (s *Scanner) produce(ctx context.Context, kind string, roots []string, candidates chan<- candidate, logger *slog.Logger) walkOutcome {
	defer close(candidates)
	outcome := walkOutcome{seen: make(map[string]struct{})}

	emit := func(c candidate) error {
		outcome.found++
		outcome.seen[c.logicalPath] = struct{}{}
		if kind == catalog.ScanKindIncremental {
			skip, err := s.unchangedSince(ctx, c)
			if err != nil {
				return services.Wrap(services.ErrDependency, "scanner", "incremental check", "catalog unreachable", err)
			}
			if skip {
				outcome.unchanged++
				return nil
			}
		}
		select {
		case candidates <- c:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w := newWalker(
		s.cfg.MediaExtensionSet(),
		s.cfg.ArchiveExtensionSet(),
		s.cfg.DenyDirSet(),
		s.cfg.Scan.MinMediaBytes,
		emit,
	)

	for _, root := range roots {
		if ctx.Err() != nil {
			outcome.abort = ctx.Err()
			break
		}
		resolved := s.resolver.Resolve(root)
		if resolved == "" {
			outcome.errs = append(outcome.errs, catalog.ScanError{
				Path:    root,
				Kind:    services.Kind(services.ErrNotFound),
				Message: "root unresolved",
			})
			logger.Warn("scan root unresolved", logging.String(logging.FieldPath, root))
			continue
		}
		if err := w.walk(root, resolved); err != nil {
			if ctx.Err() != nil {
				outcome.abort = ctx.Err()
				break
			}
			if errors.Is(err, services.ErrDependency) {
				outcome.abort = err
				break
			}
			outcome.errs = append(outcome.errs, catalog.ScanError{
				Path:    root,
				Kind:    services.Kind(services.ErrIO),
				Message: err.Error(),
			})
			logger.Warn("walk failed", logging.String(logging.FieldPath, root), logging.Error(err))
		}
	}

	logger.Debug("walk finished",
		logging.Int("candidates", outcome.found),
		logging.Int("skipped_dirs", w.skippedDirs),
		logging.Int("skipped_files", w.skippedFiles))
	return outcome
}

// unchangedSince applies the incremental skip rule: a live asset with the
// same size and a last-scan timestamp newer than the file's mtime. Rows
// marked deleted or staged are never skipped; the file coming back means
// the tombstone is stale.
func (s *Scanner) unchangedSince(ctx context.Context, c candidate) (bool, error) {
	existing, err := s.store.GetAssetByLogicalPath(ctx, c.logicalPath)
	if err != nil {
		return false, err
	}
	if existing == nil || existing.IsDeleted || existing.IsStaged {
		return false, nil
	}
	return existing.SizeBytes == c.sizeBytes && existing.LastScannedAt.After(c.modTime), nil
}

// processFile probes, fingerprints, parses, and scores one candidate. A
// probe failure still yields an asset row with media kind unknown and a
// zero score, plus a structured error.
func (s *Scanner) processFile(ctx context.Context, c candidate) fileResult {
	asset := &catalog.MediaAsset{
		LogicalPath:   c.logicalPath,
		Filename:      filepath.Base(c.logicalPath),
		SizeBytes:     c.sizeBytes,
		LastScannedAt: time.Now().UTC(),
	}

	parsed := parse.Parse(asset.Filename)
	asset.ParsedTitle = parsed.Title
	asset.ParsedYear = parsed.Year
	asset.ParsedSeason = parsed.Season
	asset.ParsedEpisode = parsed.Episode
	asset.ParsedReleaseGroup = parsed.ReleaseGroup
	asset.MediaKind = string(parsed.Kind)

	var meta probe.Metadata
	probeErr := services.Retry(ctx, services.DefaultRetry, func() error {
		var err error
		meta, err = s.prober.Probe(ctx, c.resolvedPath)
		return err
	})
	if probeErr != nil {
		asset.MediaKind = catalog.KindUnknown
		asset.QualityScore = 0
		return fileResult{asset: asset, err: &catalog.ScanError{
			Path:    c.logicalPath,
			Kind:    services.Kind(probeErr),
			Message: probeErr.Error(),
		}}
	}

	asset.Container = meta.Container
	asset.VideoCodec = meta.VideoCodec
	asset.AudioCodec = meta.AudioCodec
	asset.Width = meta.Width
	asset.Height = meta.Height
	asset.ResolutionTier = quality.TierForHeight(meta.Height)
	asset.BitrateKbps = meta.BitrateKbps
	asset.FramerateFPS = meta.FramerateFPS
	asset.DurationSeconds = meta.DurationSeconds
	asset.AudioChannels = meta.AudioChannels
	asset.AudioTrackCount = meta.AudioTrackCount
	asset.SubtitleTrackCount = meta.SubtitleTrackCount
	asset.AudioLanguages = meta.AudioLanguages
	asset.SubtitleLanguages = meta.SubtitleLanguages
	asset.DominantAudioLang = language.Dominant(meta.AudioLanguages)
	asset.HDRType = meta.HDRType

	asset.QualityScore = quality.Score(quality.Inputs{
		Height:             meta.Height,
		VideoCodec:         meta.VideoCodec,
		BitrateKbps:        meta.BitrateKbps,
		AudioChannels:      meta.AudioChannels,
		AudioTrackCount:    meta.AudioTrackCount,
		SubtitleTrackCount: meta.SubtitleTrackCount,
		HDRType:            meta.HDRType,
	})

	fingerprint, err := probe.Fingerprint(c.resolvedPath, s.cfg.Probe.FingerprintChunkBytes)
	if err != nil {
		return fileResult{asset: asset, err: &catalog.ScanError{
			Path:    c.logicalPath,
			Kind:    services.Kind(err),
			Message: err.Error(),
		}}
	}
	asset.ContentFingerprint = fingerprint
	return fileResult{asset: asset}
}

// flushBatch writes one batch of upserts in a single transaction and
// applies the enrichment hook to freshly written rows.
func (s *Scanner) flushBatch(ctx context.Context, run *catalog.ScanRun, batch []*catalog.MediaAsset) error {
	insertedPaths := make(map[string]struct{}, len(batch))
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, asset := range batch {
			inserted, err := catalog.UpsertAsset(ctx, tx, asset)
			if err != nil {
				return err
			}
			if inserted {
				insertedPaths[asset.LogicalPath] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, asset := range batch {
		if _, ok := insertedPaths[asset.LogicalPath]; ok {
			run.FilesNew++
		} else {
			run.FilesUpdated++
		}
		s.applyEnrichment(ctx, asset)
	}
	return nil
}

// applyEnrichment runs the optional hook under its own timeout. Hook
// failures are logged and never block the scan.
func (s *Scanner) applyEnrichment(ctx context.Context, asset *catalog.MediaAsset) {
	if s.enrich == nil || !s.cfg.Enrichment.Enabled {
		return
	}
	hookCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Enrichment.TimeoutSeconds)*time.Second)
	defer cancel()

	var enrichment *Enrichment
	err := services.Retry(hookCtx, services.DefaultRetry, func() error {
		var err error
		enrichment, err = s.enrich(hookCtx, Identity{
			Title:     asset.ParsedTitle,
			Year:      asset.ParsedYear,
			Season:    asset.ParsedSeason,
			Episode:   asset.ParsedEpisode,
			MediaKind: asset.MediaKind,
		})
		return err
	})
	if err != nil {
		s.logger.Warn("enrichment failed; asset written without enrichment",
			logging.Int64(logging.FieldAssetID, asset.ID),
			logging.Error(err))
		return
	}
	if enrichment == nil {
		return
	}
	if err := s.store.UpdateAssetEnrichment(ctx, asset.ID,
		enrichment.ExternalID, enrichment.CanonicalTitle, enrichment.Overview,
		enrichment.Rating, enrichment.PosterRef); err != nil {
		s.logger.Warn("enrichment write failed",
			logging.Int64(logging.FieldAssetID, asset.ID),
			logging.Error(err))
	}
}

// markMissing flags previously observed assets under the scanned roots
// that were not seen this run. Staged assets are exempt; their files were
// moved by the deletion workflow, not removed from the library.
func (s *Scanner) markMissing(ctx context.Context, run *catalog.ScanRun, roots []string, seen map[string]struct{}, logger *slog.Logger) {
	existing, err := s.store.ListAssetsUnderRoots(ctx, roots)
	if err != nil {
		s.recordError(run, strings.Join(roots, ","), services.ErrDependency, "list assets for deletion marking: "+err.Error())
		return
	}

	var missing []int64
	for _, asset := range existing {
		if asset.IsStaged {
			continue
		}
		if _, ok := seen[asset.LogicalPath]; !ok {
			missing = append(missing, asset.ID)
		}
	}
	if len(missing) == 0 {
		return
	}
	count, err := s.store.MarkAssetsDeleted(ctx, missing, time.Now().UTC())
	if err != nil {
		s.recordError(run, strings.Join(roots, ","), services.ErrDependency, "mark deleted: "+err.Error())
		return
	}
	run.FilesDeleted = int(count)
	logger.Info("marked vanished assets deleted", logging.Int64("count", count))
}

func (s *Scanner) recordError(run *catalog.ScanRun, path string, marker error, message string) {
	run.ErrorsCount++
	run.ErrorDetails = append(run.ErrorDetails, catalog.ScanError{
		Path:    path,
		Kind:    services.Kind(marker),
		Message: message,
	})
}

// finalize stamps the run's terminal status. A cancelled context marks the
// run failed with reason cancelled; any other abort error also fails it.
func (s *Scanner) finalize(ctx context.Context, run *catalog.ScanRun, abort error, logger *slog.Logger) (*catalog.ScanRun, error) {
	now := time.Now().UTC()
	run.FinishedAt = &now

	switch {
	case abort == nil:
		run.Status = catalog.RunStatusCompleted
	case errors.Is(abort, context.Canceled) || errors.Is(abort, context.DeadlineExceeded):
		run.Status = catalog.RunStatusFailed
		run.FailureReason = "cancelled"
	default:
		run.Status = catalog.RunStatusFailed
		run.FailureReason = abort.Error()
	}

	// Persist with a background context so a cancelled scan still records
	// its terminal state.
	if err := s.store.UpdateScanRun(context.Background(), run); err != nil {
		return run, services.Wrap(services.ErrDependency, "scanner", "finalize run", "persist scan run", err)
	}

	logger.Info("scan finished",
		logging.String("status", run.Status),
		logging.Int("files_found", run.FilesFound),
		logging.Int("files_new", run.FilesNew),
		logging.Int("files_updated", run.FilesUpdated),
		logging.Int("files_unchanged", run.FilesUnchanged),
		logging.Int("files_deleted", run.FilesDeleted),
		logging.Int("errors", run.ErrorsCount))

	if abort != nil && !errors.Is(abort, context.Canceled) && !errors.Is(abort, context.DeadlineExceeded) {
		return run, abort
	}
	return run, nil
}
