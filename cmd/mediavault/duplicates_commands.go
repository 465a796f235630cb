package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/duplicates"
)

func newDuplicatesCommand(ctx *commandContext) *cobra.Command {
	dupCmd := &cobra.Command{
		Use:     "duplicates",
		Aliases: []string{"dup"},
		Short:   "Manage duplicate groups",
	}

	dupCmd.AddCommand(newDuplicatesRebuildCommand(ctx))
	dupCmd.AddCommand(newDuplicatesListCommand(ctx))
	dupCmd.AddCommand(newDuplicatesShowCommand(ctx))
	dupCmd.AddCommand(newDuplicatesReviewCommand(ctx))

	return dupCmd
}

func newDuplicatesRebuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute all duplicate groups from the live catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				engine := duplicates.New(cfg, store, ctx.logger())
				report, err := engine.Rebuild(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Rebuilt duplicate groups in %s: %d exact, %d fuzzy, %d members, %d stale groups removed\n",
					report.Elapsed.Round(1e6), report.ExactGroups, report.FuzzyGroups,
					report.MembersTotal, report.GroupsDeleted)
				return nil
			})
		},
	}
}

func newDuplicatesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List duplicate groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				groups, err := store.ListGroups(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"groups": groups})
				}
				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No duplicate groups")
					return nil
				}

				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, []string{
						strconv.FormatInt(g.ID, 10),
						g.Kind,
						groupIdentity(g),
						strconv.Itoa(g.MemberCount),
						strconv.FormatFloat(g.Confidence, 'f', 0, 64),
						g.RecommendedAction,
						yesNo(g.Reviewed),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Identity", "Members", "Confidence", "Action", "Reviewed"},
					rows, 0, 3, 4))
				return nil
			})
		},
	}
}

func newDuplicatesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show the ranked members of one duplicate group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				group, err := store.GetGroupByID(cmd.Context(), groupID)
				if err != nil {
					return err
				}
				if group == nil {
					return fmt.Errorf("duplicate group %d not found", groupID)
				}
				members, err := store.ListMembers(cmd.Context(), groupID)
				if err != nil {
					return err
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"group": group, "members": members})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Group %d (%s) %s, confidence %.0f, action %s\n",
					group.ID, group.Kind, groupIdentity(group), group.Confidence, group.RecommendedAction)

				rows := make([][]string, 0, len(members))
				for _, m := range members {
					asset, err := store.GetAssetByID(cmd.Context(), m.AssetID)
					if err != nil {
						return err
					}
					path, score, size := "(missing)", "-", "-"
					if asset != nil {
						path = truncatePath(asset.LogicalPath, 70)
						score = strconv.Itoa(asset.QualityScore)
						size = formatBytes(asset.SizeBytes)
					}
					rows = append(rows, []string{
						strconv.Itoa(m.Rank),
						strconv.FormatInt(m.AssetID, 10),
						path,
						score,
						size,
						m.RecommendedAction,
						m.ActionReason,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Rank", "Asset", "Path", "Score", "Size", "Action", "Reason"},
					rows, 0, 1, 3, 4))
				return nil
			})
		},
	}
}

func newDuplicatesReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review <group-id>",
		Short: "Mark a duplicate group as reviewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				if err := store.MarkGroupReviewed(cmd.Context(), groupID, true); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"id": groupID, "reviewed": true})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Group %d marked reviewed\n", groupID)
				return nil
			})
		},
	}
}

func groupIdentity(g *catalog.DuplicateGroup) string {
	switch g.MediaKind {
	case catalog.KindTV:
		return fmt.Sprintf("%s S%02dE%02d", g.Title, g.Season, g.Episode)
	default:
		if g.Year > 0 {
			return fmt.Sprintf("%s (%d)", g.Title, g.Year)
		}
		return g.Title
	}
}
