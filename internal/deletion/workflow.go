package deletion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/duplicates"
	"mediavault/internal/fileutil"
	"mediavault/internal/logging"
	"mediavault/internal/paths"
	"mediavault/internal/services"
)

// Workflow drives the stage, approve, restore, and cleanup operations over
// pending-deletion rows. Filesystem mutations are exclusive per asset; the
// is_staged flag on the asset row acts as the advisory exclusion.
type Workflow struct {
	cfg      *config.Config
	store    *catalog.Store
	resolver *paths.Resolver
	logger   *slog.Logger
}

// New constructs a deletion workflow.
func New(cfg *config.Config, store *catalog.Store, resolver *paths.Resolver, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "deletion"),
	}
}

// StageRequest carries the inputs to Stage. GroupID and BetterAssetID are
// optional context from the duplicate engine; zero means absent.
type StageRequest struct {
	AssetID       int64
	Reason        string
	GroupID       int64
	BetterAssetID int64
}

// Stage moves an asset's file into a dated holding directory and records a
// pending-deletion row. A missing source file does not fail the operation;
// the row records source_missing instead and nothing is moved. A second
// stage for the same asset fails with a conflict.
func (w *Workflow) Stage(ctx context.Context, req StageRequest) (*catalog.PendingDeletion, error) {
	asset, err := w.store.MustGetAsset(ctx, req.AssetID)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "deletion", "stage", fmt.Sprintf("asset %d", req.AssetID), err)
	}
	if asset.IsStaged {
		return nil, services.Wrap(services.ErrConflict, "deletion", "stage", asset.LogicalPath+" is already staged", nil)
	}
	if existing, err := w.store.GetLivePendingForAsset(ctx, asset.ID); err != nil {
		return nil, services.Wrap(services.ErrDependency, "deletion", "stage", "pending lookup failed", err)
	} else if existing != nil {
		return nil, services.Wrap(services.ErrConflict, "deletion", "stage", asset.LogicalPath+" already has a pending deletion", nil)
	}

	pending := &catalog.PendingDeletion{
		AssetID:             asset.ID,
		OriginalLogicalPath: asset.LogicalPath,
		SizeBytes:           asset.SizeBytes,
		Reason:              req.Reason,
		GroupID:             req.GroupID,
		BetterAssetID:       req.BetterAssetID,
		StagedAt:            time.Now().UTC(),
	}

	if req.BetterAssetID != 0 {
		better, err := w.store.GetAssetByID(ctx, req.BetterAssetID)
		if err != nil {
			return nil, services.Wrap(services.ErrDependency, "deletion", "stage", "better asset lookup failed", err)
		}
		if better != nil {
			pending.QualityDelta = better.QualityScore - asset.QualityScore
			concern, reason, _ := duplicates.CheckLanguageGuardrail(asset, better)
			pending.LanguageConcern = concern
			pending.LanguageConcernReason = reason
		}
	}

	source := w.resolver.Resolve(asset.LogicalPath)
	moved := false
	if source != "" {
		dest, err := w.stageDestination(asset)
		if err != nil {
			return nil, err
		}
		if err := fileutil.MoveFile(source, dest); err != nil {
			return nil, services.Wrap(services.ErrIO, "deletion", "stage", "move "+source+" to "+dest, err)
		}
		pending.StagedPath = dest
		moved = true
	} else {
		w.logger.Warn("staging with missing source",
			logging.String("logical_path", asset.LogicalPath),
			logging.Int64("asset_id", asset.ID))
	}
	pending.Metadata = catalog.NewPendingMetadata(!moved)

	err = w.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := catalog.InsertPendingDeletion(ctx, tx, pending); err != nil {
			return err
		}
		if err := catalog.SetAssetStaged(ctx, tx, asset.ID, true); err != nil {
			return err
		}
		return catalog.AppendArchiveOperation(ctx, tx, &catalog.ArchiveOperation{
			AssetID:         asset.ID,
			Kind:            catalog.OpStage,
			SourcePath:      asset.LogicalPath,
			DestinationPath: pending.StagedPath,
			Success:         moved,
			Metadata:        map[string]any{"reason": req.Reason, "source_missing": !moved},
		})
	})
	if err != nil {
		return nil, services.Wrap(services.ErrDependency, "deletion", "stage", "persist pending deletion", err)
	}

	w.logger.Info("asset staged",
		logging.Int64("asset_id", asset.ID),
		logging.String("logical_path", asset.LogicalPath),
		logging.String("staged_path", pending.StagedPath),
		logging.Bool("source_missing", !moved))
	return pending, nil
}

// stageDestination picks the first writable staging root and returns a
// collision-free destination path under {root}/{kind}/{yyyy-mm-dd}/.
func (w *Workflow) stageDestination(asset *catalog.MediaAsset) (string, error) {
	day := time.Now().UTC().Format("2006-01-02")
	subdir := kindSubdir(asset.MediaKind)

	var lastErr error
	for _, root := range w.resolver.StageRoots() {
		dir := filepath.Join(root, subdir, day)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			lastErr = err
			continue
		}
		dest, err := fileutil.UniquePath(filepath.Join(dir, asset.Filename))
		if err != nil {
			lastErr = err
			continue
		}
		return dest, nil
	}
	return "", services.Wrap(services.ErrIO, "deletion", "stage", "no writable staging root", lastErr)
}

// kindSubdir maps a media kind to its holding-area subdirectory. The layout
// is a contract with human operators, so unknown kinds land under other.
func kindSubdir(kind string) string {
	switch kind {
	case catalog.KindMovie:
		return "movies"
	case catalog.KindTV:
		return "tv"
	case catalog.KindDocumentary:
		return "documentaries"
	default:
		return "other"
	}
}

// Approve permanently deletes a staged artifact. It requires an explicit
// approver identity; nothing in this package ever approves on its own.
func (w *Workflow) Approve(ctx context.Context, pendingID int64, approver string) (*catalog.PendingDeletion, error) {
	if approver == "" {
		return nil, services.Wrap(services.ErrInvalidState, "deletion", "approve", "approver identity required", nil)
	}
	pending, err := w.store.GetPendingDeletion(ctx, pendingID)
	if err != nil {
		return nil, services.Wrap(services.ErrDependency, "deletion", "approve", "pending lookup failed", err)
	}
	if pending == nil || !pending.Staged() {
		return nil, services.Wrap(services.ErrInvalidState, "deletion", "approve", fmt.Sprintf("pending deletion %d is not staged", pendingID), nil)
	}

	if pending.StagedPath != "" {
		if err := os.Remove(pending.StagedPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrIO, "deletion", "approve", "unlink "+pending.StagedPath, err)
		}
	}

	now := time.Now().UTC()
	pending.Approved = true
	pending.ApprovedAt = &now
	pending.ApprovedBy = approver
	pending.DeletedAt = &now

	err = w.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := catalog.UpdatePendingDeletion(ctx, tx, pending); err != nil {
			return err
		}
		if err := catalog.SetAssetDeleted(ctx, tx, pending.AssetID, now); err != nil {
			return err
		}
		return catalog.AppendArchiveOperation(ctx, tx, &catalog.ArchiveOperation{
			AssetID:     pending.AssetID,
			Kind:        catalog.OpDelete,
			SourcePath:  pending.StagedPath,
			Success:     true,
			PerformedBy: approver,
		})
	})
	if err != nil {
		return nil, services.Wrap(services.ErrDependency, "deletion", "approve", "persist approval", err)
	}

	w.logger.Info("pending deletion approved",
		logging.Int64("pending_id", pending.ID),
		logging.Int64("asset_id", pending.AssetID),
		logging.String("approved_by", approver))
	return pending, nil
}

// Restore moves a staged artifact back to its original location and removes
// the pending-deletion row. A collision at the destination fails with a
// conflict and leaves the staged file in place.
func (w *Workflow) Restore(ctx context.Context, pendingID int64) (int64, error) {
	pending, err := w.store.GetPendingDeletion(ctx, pendingID)
	if err != nil {
		return 0, services.Wrap(services.ErrDependency, "deletion", "restore", "pending lookup failed", err)
	}
	if pending == nil {
		return 0, services.Wrap(services.ErrNotFound, "deletion", "restore", fmt.Sprintf("pending deletion %d not found", pendingID), nil)
	}
	if !pending.Staged() {
		return 0, services.Wrap(services.ErrInvalidState, "deletion", "restore", fmt.Sprintf("pending deletion %d is not staged", pendingID), nil)
	}

	if pending.StagedPath != "" {
		if _, err := os.Stat(pending.StagedPath); err == nil {
			dest := w.resolver.Resolve(pending.OriginalLogicalPath)
			if dest != "" {
				return 0, services.Wrap(services.ErrConflict, "deletion", "restore", "destination exists: "+pending.OriginalLogicalPath, nil)
			}
			dest = w.restoreDestination(pending.OriginalLogicalPath)
			if err := fileutil.MoveFile(pending.StagedPath, dest); err != nil {
				return 0, services.Wrap(services.ErrIO, "deletion", "restore", "move "+pending.StagedPath+" to "+dest, err)
			}
		}
	}

	err = w.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := catalog.DeletePendingDeletion(ctx, tx, pending.ID); err != nil {
			return err
		}
		if err := catalog.SetAssetStaged(ctx, tx, pending.AssetID, false); err != nil {
			return err
		}
		return catalog.AppendArchiveOperation(ctx, tx, &catalog.ArchiveOperation{
			AssetID:         pending.AssetID,
			Kind:            catalog.OpRestore,
			SourcePath:      pending.StagedPath,
			DestinationPath: pending.OriginalLogicalPath,
			Success:         true,
		})
	})
	if err != nil {
		return 0, services.Wrap(services.ErrDependency, "deletion", "restore", "persist restore", err)
	}

	w.logger.Info("pending deletion restored",
		logging.Int64("pending_id", pending.ID),
		logging.Int64("asset_id", pending.AssetID),
		logging.String("logical_path", pending.OriginalLogicalPath))
	return pending.AssetID, nil
}

// restoreDestination maps the original logical path to a writable concrete
// path. The resolver returns nothing for a path that does not exist yet, so
// restore rewrites under the share-mount prefix the same way resolution
// would, falling back to the logical path itself.
func (w *Workflow) restoreDestination(logical string) string {
	if candidate := w.resolver.ResolveParent(logical); candidate != "" {
		return candidate
	}
	return logical
}

// CleanupReport summarizes one retention sweep.
type CleanupReport struct {
	Examined int
	Deleted  int
	Errors   int
}

// Cleanup permanently removes staged artifacts whose rows were approved and
// have sat in the holding area longer than the retention window. Rows that
// were never approved are left untouched regardless of age.
func (w *Workflow) Cleanup(ctx context.Context, ageDays int) (*CleanupReport, error) {
	if ageDays <= 0 {
		ageDays = w.cfg.Deletion.RetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -ageDays)

	rows, err := w.store.ListApprovedOlderThan(ctx, cutoff)
	if err != nil {
		return nil, services.Wrap(services.ErrDependency, "deletion", "cleanup", "list approved rows", err)
	}

	report := &CleanupReport{Examined: len(rows)}
	for _, pending := range rows {
		if _, err := w.Approve(ctx, pending.ID, pending.ApprovedBy); err != nil {
			report.Errors++
			w.logger.Warn("cleanup sweep failed for row",
				logging.Int64("pending_id", pending.ID),
				logging.Error(err))
			continue
		}
		report.Deleted++
	}

	w.logger.Info("cleanup sweep finished",
		logging.Int("examined", report.Examined),
		logging.Int("deleted", report.Deleted),
		logging.Int("errors", report.Errors))
	return report, nil
}
