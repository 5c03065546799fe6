package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCatalogCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog <seller-profile-id>",
		Short: "Register tracked items from a seller's listing catalog",
		Long: "Fetches the seller's catalog, reads each listing's detail page, and " +
			"tracks every listing that embeds an identifier not tracked yet.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				svc, err := s.trackerService()
				if err != nil {
					return err
				}
				summary, err := svc.ImportFromCatalog(ctx, s.profile, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d, already tracked %d, skipped %d\n",
					summary.Imported, summary.AlreadyTracked, summary.Skipped)
				if summary.RateLimited {
					fmt.Fprintln(out, "Stopped early: the marketplace is rate limiting requests. Imported items were kept.")
				}
				return nil
			})
		},
	}
}
