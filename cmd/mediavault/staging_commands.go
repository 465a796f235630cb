package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/deletion"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Two-phase deletion staging workflow",
	}

	stagingCmd.AddCommand(newStagingStageCommand(ctx))
	stagingCmd.AddCommand(newStagingApproveCommand(ctx))
	stagingCmd.AddCommand(newStagingRestoreCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanupCommand(ctx))
	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingHistoryCommand(ctx))

	return stagingCmd
}

func (c *commandContext) withWorkflow(fn func(*deletion.Workflow, *catalog.Store) error) error {
	return c.withStore(func(cfg *config.Config, store *catalog.Store) error {
		logger := c.logger()
		resolver, err := c.resolver(logger)
		if err != nil {
			return err
		}
		return fn(deletion.New(cfg, store, resolver, logger), store)
	})
}

func newStagingStageCommand(ctx *commandContext) *cobra.Command {
	var reason string
	var groupID, betterID int64

	cmd := &cobra.Command{
		Use:   "stage <asset-id>",
		Short: "Move an asset's file into the holding area pending approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withWorkflow(func(wf *deletion.Workflow, store *catalog.Store) error {
				pending, err := wf.Stage(cmd.Context(), deletion.StageRequest{
					AssetID:       assetID,
					Reason:        reason,
					GroupID:       groupID,
					BetterAssetID: betterID,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, pending)
				}
				out := cmd.OutOrStdout()
				if pending.StagedPath == "" {
					fmt.Fprintf(out, "Pending deletion %d recorded; source was already missing\n", pending.ID)
				} else {
					fmt.Fprintf(out, "Pending deletion %d staged at %s\n", pending.ID, pending.StagedPath)
				}
				if pending.LanguageConcern {
					fmt.Fprintf(out, "Warning: %s\n", pending.LanguageConcernReason)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason for staging the asset")
	cmd.Flags().Int64Var(&groupID, "group", 0, "Duplicate group that motivated the stage")
	cmd.Flags().Int64Var(&betterID, "better", 0, "Higher-ranked asset that will remain")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newStagingApproveCommand(ctx *commandContext) *cobra.Command {
	var approver string

	cmd := &cobra.Command{
		Use:   "approve <pending-id>",
		Short: "Permanently delete a staged artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pendingID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withWorkflow(func(wf *deletion.Workflow, store *catalog.Store) error {
				pending, err := wf.Approve(cmd.Context(), pendingID, approver)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, pending)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pending deletion %d approved by %s; artifact deleted\n",
					pending.ID, pending.ApprovedBy)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&approver, "approver", "", "Identity of the approving operator")
	_ = cmd.MarkFlagRequired("approver")
	return cmd
}

func newStagingRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <pending-id>",
		Short: "Return a staged artifact to its original location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pendingID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withWorkflow(func(wf *deletion.Workflow, store *catalog.Store) error {
				assetID, err := wf.Restore(cmd.Context(), pendingID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"pending_id": pendingID, "asset_id": assetID})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pending deletion %d restored (asset %d)\n", pendingID, assetID)
				return nil
			})
		},
	}
}

func newStagingCleanupCommand(ctx *commandContext) *cobra.Command {
	var ageDays int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Sweep approved pending deletions older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkflow(func(wf *deletion.Workflow, store *catalog.Store) error {
				report, err := wf.Cleanup(cmd.Context(), ageDays)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleanup examined %d rows: %d deleted, %d errors\n",
					report.Examined, report.Deleted, report.Errors)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&ageDays, "age-days", 0, "Retention window override in days (0 uses the configured value)")
	return cmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending deletions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				rows, err := store.ListPendingDeletions(cmd.Context(), !all)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"pending": rows})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending deletions")
					return nil
				}

				tableRows := make([][]string, 0, len(rows))
				for _, p := range rows {
					tableRows = append(tableRows, []string{
						strconv.FormatInt(p.ID, 10),
						strconv.FormatInt(p.AssetID, 10),
						truncatePath(p.OriginalLogicalPath, 60),
						formatBytes(p.SizeBytes),
						p.Reason,
						formatDisplayTime(p.StagedAt),
						yesNo(p.Approved),
						yesNo(p.LanguageConcern),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Asset", "Original Path", "Size", "Reason", "Staged", "Approved", "Lang Concern"},
					tableRows, 0, 1, 3))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include already-deleted rows")
	return cmd
}

func newStagingHistoryCommand(ctx *commandContext) *cobra.Command {
	var assetID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the archive operation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				ops, err := store.ListArchiveOperations(cmd.Context(), assetID, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"operations": ops})
				}
				if len(ops) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No archive operations recorded")
					return nil
				}

				rows := make([][]string, 0, len(ops))
				for _, op := range ops {
					rows = append(rows, []string{
						strconv.FormatInt(op.ID, 10),
						strconv.FormatInt(op.AssetID, 10),
						op.Kind,
						truncatePath(op.SourcePath, 50),
						truncatePath(op.DestinationPath, 50),
						yesNo(op.Success),
						formatDisplayTime(op.PerformedAt),
						op.PerformedBy,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Asset", "Kind", "Source", "Destination", "OK", "Performed", "By"},
					rows, 0, 1))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&assetID, "asset", 0, "Limit history to one asset")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	return cmd
}
