package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/deps"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog health and inventory counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				latest, err := store.LatestScanRun(cmd.Context())
				if err != nil {
					return err
				}

				binaries := deps.CheckBinaries(deps.Requirements(cfg))

				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"health":      health,
						"latest_scan": latest,
						"binaries":    binaries,
					})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, bin := range binaries {
					kind := statusOK
					detail := bin.Command
					if !bin.Available {
						kind = statusError
						if bin.Optional {
							kind = statusWarn
						}
						detail = bin.Detail
					}
					fmt.Fprintln(out, renderStatusLine(bin.Name, kind, detail, colorize))
				}

				integrity := statusOK
				detail := ""
				if !health.OK {
					integrity = statusError
					detail = health.IntegrityDetail
				}
				fmt.Fprintln(out, renderStatusLine("Catalog integrity", integrity, detail, colorize))
				fmt.Fprintln(out, renderStatusLine("Assets", statusInfo,
					fmt.Sprintf("%d total, %d live", health.TotalAssets, health.LiveAssets), colorize))
				fmt.Fprintln(out, renderStatusLine("Duplicate groups", statusInfo,
					fmt.Sprintf("%d", health.DuplicateGroups), colorize))
				fmt.Fprintln(out, renderStatusLine("Pending deletions", statusInfo,
					fmt.Sprintf("%d", health.PendingDeletions), colorize))

				if latest == nil {
					fmt.Fprintln(out, renderStatusLine("Last scan", statusWarn, "never run", colorize))
					return nil
				}
				kind := statusOK
				if latest.Status != catalog.RunStatusCompleted {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Last scan", kind,
					fmt.Sprintf("%s %s at %s", latest.Kind, latest.Status, formatDisplayTime(latest.StartedAt)), colorize))
				return nil
			})
		},
	}
}
