package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"modwatch/internal/classify"
	"modwatch/internal/dmca"
	"modwatch/internal/services/verify"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"stats"},
		Short:   "Summarize the active profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Profile: %s\n", s.profile.Name)
				fmt.Fprintf(out, "Tracked items: %d\n\n", len(s.profile.Items))

				counts := classify.Count(classify.Classify(s.profile))
				fmt.Fprintln(out, renderTable(
					[]string{"Listing Standing", "Count"},
					[][]string{
						{"Unapproved", strconv.Itoa(counts.Unapproved)},
						{"Approved", strconv.Itoa(counts.Approved)},
						{"Original", strconv.Itoa(counts.Original)},
						{"Total", strconv.Itoa(counts.Total())},
					},
					[]columnAlignment{alignLeft, alignRight},
				))

				buckets := dmca.Count(s.profile)
				fmt.Fprintln(out, renderTable(
					[]string{"Takedown State", "Count"},
					[][]string{
						{"Pending", strconv.Itoa(buckets.Pending)},
						{"Filed", strconv.Itoa(buckets.Filed)},
						{"Taken down", strconv.Itoa(buckets.TakenDown)},
						{"Verified", strconv.Itoa(buckets.Verified)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))

				summary := verify.Summarize(s.profile)
				if summary != (verify.Summary{}) {
					fmt.Fprintln(out, renderTable(
						[]string{"Verification Match", "Count"},
						[][]string{
							{"High (75%+)", strconv.Itoa(summary.High)},
							{"Medium (50-74%)", strconv.Itoa(summary.Medium)},
							{"Low (25-49%)", strconv.Itoa(summary.Low)},
							{"None (<25%)", strconv.Itoa(summary.None)},
							{"Taken down", strconv.Itoa(summary.TakenDown)},
						},
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}
