package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"modwatch/internal/dmca"
	"modwatch/internal/profile"
)

func newDmcaCommand(cctx *commandContext) *cobra.Command {
	dmcaCmd := &cobra.Command{
		Use:   "dmca",
		Short: "Manage the takedown list",
	}

	dmcaCmd.AddCommand(newDmcaListCommand(cctx))
	dmcaCmd.AddCommand(newDmcaToggleCommand(cctx))
	dmcaCmd.AddCommand(newDmcaFileCommand(cctx))
	dmcaCmd.AddCommand(newDmcaRecheckCommand(cctx))
	dmcaCmd.AddCommand(newDmcaNoticeCommand(cctx))
	dmcaCmd.AddCommand(newDmcaExportCommand(cctx))
	dmcaCmd.AddCommand(newDmcaImportCommand(cctx))
	dmcaCmd.AddCommand(newDmcaClearCommand(cctx))
	dmcaCmd.AddCommand(newDmcaClearVerificationCommand(cctx))

	return dmcaCmd
}

func entryState(e *profile.DmcaEntry) string {
	switch {
	case e.TakenDown():
		return "taken down"
	case e.Filed():
		return "filed"
	default:
		return "pending"
	}
}

func newDmcaListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List takedown entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				entries := dmca.Entries(s.profile)
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Takedown list is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for i := range entries {
					entry := &entries[i]
					verified := "-"
					if v := entry.Verification; v != nil {
						verified = fmt.Sprintf("%.0f%%", v.MatchPercentage)
					}
					rows = append(rows, []string{
						entry.ListingID,
						entry.Title,
						entryState(entry),
						verified,
						entry.AddedAt.Local().Format(time.DateOnly),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Listing", "Title", "State", "Match", "Added"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newDmcaToggleCommand(cctx *commandContext) *cobra.Command {
	var triggeringID string

	cmd := &cobra.Command{
		Use:   "toggle <listing-id>",
		Short: "Add a listing to the takedown list, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				added, err := s.manager.Toggle(ctx, s.profile, args[0], triggeringID)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintln(cmd.OutOrStdout(), "Listing added to the takedown list")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Listing removed from the takedown list")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&triggeringID, "identifier", "",
		"Tracked identifier found in the listing, for listings outside cached results")
	return cmd
}

func newDmcaFileCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "file <listing-id>",
		Short: "Toggle the filed flag on a takedown entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				filed, err := s.manager.MarkFiled(ctx, s.profile, args[0])
				if err != nil {
					return err
				}
				if filed {
					fmt.Fprintln(cmd.OutOrStdout(), "Marked as filed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Filed flag cleared")
				}
				return nil
			})
		},
	}
}

func newDmcaRecheckCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recheck",
		Short: "Probe filed listings and record confirmed removals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				summary, err := s.manager.RecheckFiled(ctx, s.profile)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Checked %d listings: %d taken down, %d still active, %d errors\n",
					summary.Checked, summary.TakenDown, summary.StillActive, summary.Errors)
				if summary.RateLimited {
					fmt.Fprintln(out, "Stopped early: the marketplace is rate limiting requests. Confirmed removals were kept.")
				}
				return nil
			})
		},
	}
}

func newDmcaNoticeCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notice <listing-id>",
		Short: "Render a takedown notice for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				text, err := dmca.Notice(s.profile, args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

func newDmcaExportCommand(cctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the takedown list as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				doc := s.manager.Export(s.profile)
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return fmt.Errorf("encode export: %w", err)
				}
				data = append(data, '\n')
				if outputPath == "" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(outputPath, data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(doc.Entries), outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newDmcaImportCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import takedown entries from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				doc, err := dmca.ParseDocument(data)
				if err != nil {
					return err
				}
				stats, err := s.manager.Import(ctx, s.profile, doc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries, updated %d\n", stats.Imported, stats.Updated)
				return nil
			})
		},
	}
}

func newDmcaClearCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every takedown entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				removed, err := s.manager.Clear(ctx, s.profile)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d takedown entries\n", removed)
				return nil
			})
		},
	}
}

func newDmcaClearVerificationCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-verification [listing-id]",
		Short: "Drop stored verification results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				listingID := ""
				if len(args) == 1 {
					listingID = args[0]
				}
				cleared, err := s.manager.ClearVerification(ctx, s.profile, listingID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d verification result(s)\n", cleared)
				return nil
			})
		},
	}
}
