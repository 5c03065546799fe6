package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"modwatch/internal/profile"
	"modwatch/internal/services"
)

func newPrefsCommand(cctx *commandContext) *cobra.Command {
	var filterApproved bool
	var hideEmpty bool
	var sortOrder string
	var show string

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Adjust the active profile's display preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				prefs := &s.profile.Prefs

				if cmd.Flags().Changed("filter-approved") {
					prefs.FilterApproved = filterApproved
				}
				if cmd.Flags().Changed("hide-empty") {
					prefs.HideZeroResults = hideEmpty
				}
				if cmd.Flags().Changed("sort") {
					switch profile.SortOrder(sortOrder) {
					case profile.SortByName, profile.SortByCount, profile.SortByRecency:
						prefs.SortOrder = profile.SortOrder(sortOrder)
					default:
						return services.Wrap(services.ErrValidation, "cli", "prefs",
							fmt.Sprintf("sort must be name, count, or recency, not %q", sortOrder), nil)
					}
				}
				if cmd.Flags().Changed("show") {
					prefs.ShowPendingOnly = false
					prefs.ShowFiledOnly = false
					prefs.ShowTakenDownOnly = false
					switch show {
					case "pending":
						prefs.ShowPendingOnly = true
					case "filed":
						prefs.ShowFiledOnly = true
					case "takendown":
						prefs.ShowTakenDownOnly = true
					case "all":
					default:
						return services.Wrap(services.ErrValidation, "cli", "prefs",
							fmt.Sprintf("show must be pending, filed, takendown, or all, not %q", show), nil)
					}
				}

				if err := s.store.Save(ctx, s.profile); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Filter approved: %s\n", yesNo(prefs.FilterApproved))
				fmt.Fprintf(out, "Hide empty results: %s\n", yesNo(prefs.HideZeroResults))
				fmt.Fprintf(out, "Sort order: %s\n", prefs.SortOrder)
				switch {
				case prefs.ShowPendingOnly:
					fmt.Fprintln(out, "Takedown filter: pending only")
				case prefs.ShowFiledOnly:
					fmt.Fprintln(out, "Takedown filter: filed only")
				case prefs.ShowTakenDownOnly:
					fmt.Fprintln(out, "Takedown filter: taken down only")
				default:
					fmt.Fprintln(out, "Takedown filter: all")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&filterApproved, "filter-approved", false, "Hide original and approved listings in results")
	cmd.Flags().BoolVar(&hideEmpty, "hide-empty", false, "Hide items whose results have no visible listings")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "Result order: name, count, or recency")
	cmd.Flags().StringVar(&show, "show", "", "Takedown list filter: pending, filed, takendown, or all")
	return cmd
}
