package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover and catalog media files",
	}

	scanCmd.AddCommand(newScanRunCommand(ctx))
	scanCmd.AddCommand(newScanStatusCommand(ctx))

	return scanCmd
}

func newScanRunCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "run [roots...]",
		Short: "Run a scan over the configured or given roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				logger := ctx.logger()
				resolver, err := ctx.resolver(logger)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				sc := scanner.New(cfg, store, resolver, logger)
				run, err := sc.Run(runCtx, kind, args)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, run)
				}
				printScanRun(cmd, run)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", catalog.ScanKindFull, "Scan kind: full or incremental")
	return cmd
}

func newScanStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				runs, err := store.ListScanRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"runs": runs})
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scan runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						run.Kind,
						run.Status,
						formatDisplayTime(run.StartedAt),
						formatDisplayTimePtr(run.FinishedAt),
						strconv.Itoa(run.FilesFound),
						strconv.Itoa(run.FilesNew),
						strconv.Itoa(run.FilesUpdated),
						strconv.Itoa(run.FilesDeleted),
						strconv.Itoa(run.ErrorsCount),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Status", "Started", "Finished", "Found", "New", "Updated", "Deleted", "Errors"},
					rows, 0, 5, 6, 7, 8, 9))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show")
	return cmd
}

func printScanRun(cmd *cobra.Command, run *catalog.ScanRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scan %d (%s) %s\n", run.ID, run.Kind, run.Status)
	fmt.Fprintf(out, "  found %d, new %d, updated %d, unchanged %d, deleted %d, errors %d\n",
		run.FilesFound, run.FilesNew, run.FilesUpdated, run.FilesUnchanged, run.FilesDeleted, run.ErrorsCount)
	if run.FailureReason != "" {
		fmt.Fprintf(out, "  failure reason: %s\n", run.FailureReason)
	}
	for _, detail := range run.ErrorDetails {
		fmt.Fprintf(out, "  error [%s] %s: %s\n", detail.Kind, detail.Path, detail.Message)
	}
}
