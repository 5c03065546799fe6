package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"modwatch/internal/classify"
	"modwatch/internal/tracker"
)

func newSearchCommand(cctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "search [item]",
		Short: "Search the marketplace for tracked identifiers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				svc, err := s.trackerService()
				if err != nil {
					return err
				}

				if !all {
					if len(args) == 0 {
						return fmt.Errorf("name an item to search, or pass --all")
					}
					item, err := s.resolveItem(args[0])
					if err != nil {
						return err
					}
					result, err := svc.SearchOne(ctx, s.profile, item.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%q: %d listings\n", item.Name, len(result.Items))
					return nil
				}

				interactive := isatty.IsTerminal(os.Stdout.Fd())
				summary, err := svc.SearchAll(ctx, s.profile, func(st tracker.ItemStatus) {
					if !interactive {
						return
					}
					if st.Err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s: failed (%v)\n", st.Name, st.Err)
						return
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d listings\n", st.Name, st.Listings)
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Searched %d items (%d skipped, %d failed)\n",
					summary.Searched, summary.Skipped, summary.Failed)
				if summary.RateLimited {
					fmt.Fprintln(out, "Stopped early: the marketplace is rate limiting requests. Earlier results were kept.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Search every tracked item")

	cmd.AddCommand(newSearchResultsCommand(cctx))
	cmd.AddCommand(newSearchClearCommand(cctx))
	return cmd
}

func newSearchResultsCommand(cctx *commandContext) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "results [item]",
		Short: "Show cached search results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				cls := classify.Classify(s.profile)
				filter := s.profile.Prefs.FilterApproved && !showAll
				out := cmd.OutOrStdout()

				itemIDs := classify.SortedItemIDs(s.profile)
				if len(args) == 1 {
					item, err := s.resolveItem(args[0])
					if err != nil {
						return err
					}
					itemIDs = []string{item.ID}
				}

				shown := 0
				for _, itemID := range itemIDs {
					res, ok := s.profile.SearchResults[itemID]
					if !ok {
						continue
					}
					item := s.profile.Item(itemID)
					visible := classify.VisibleListings(res, cls, filter)
					if len(visible) == 0 && s.profile.Prefs.HideZeroResults && len(args) == 0 {
						continue
					}
					shown++

					fmt.Fprintf(out, "%s (%s) searched %s\n",
						item.Name, item.ExternalID, res.SearchedAt.Local().Format("2006-01-02 15:04"))
					rows := make([][]string, 0, len(visible))
					for _, listing := range visible {
						rows = append(rows, []string{
							listing.ListingID,
							listing.Title,
							cls[listing.ListingID].String(),
							listing.URL,
						})
					}
					if len(rows) == 0 {
						fmt.Fprintln(out, "  no listings")
						continue
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Listing", "Title", "Standing", "URL"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
					))
				}
				if shown == 0 {
					fmt.Fprintln(out, "No cached results; run `modwatch search --all`")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showAll, "show-approved", false, "Include original and approved listings")
	return cmd
}

func newSearchClearCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [item]",
		Short: "Drop cached search results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				svc := tracker.New(s.store, nil, s.sched, s.logger,
					s.cfg.Workshop.SearchMaxPages, s.cfg.Workshop.CatalogMaxPages)

				itemID := ""
				if len(args) == 1 {
					item, err := s.resolveItem(args[0])
					if err != nil {
						return err
					}
					itemID = item.ID
				}
				cleared, err := svc.ClearResults(ctx, s.profile, itemID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s cached result(s)\n", strconv.Itoa(cleared))
				return nil
			})
		},
	}
}
