package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProfileCommand(cctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage tracking profiles",
	}

	profileCmd.AddCommand(newProfileListCommand(cctx))
	profileCmd.AddCommand(newProfileCreateCommand(cctx))
	profileCmd.AddCommand(newProfileRenameCommand(cctx))
	profileCmd.AddCommand(newProfileDeleteCommand(cctx))
	profileCmd.AddCommand(newProfileUseCommand(cctx))

	return profileCmd
}

func newProfileListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				summaries, err := s.store.List(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(summaries))
				for _, sum := range summaries {
					rows = append(rows, []string{
						sum.Name,
						strconv.Itoa(sum.ItemCount),
						strconv.Itoa(sum.DmcaCount),
						yesNo(sum.Active),
					})
				}
				out := renderTable(
					[]string{"Profile", "Items", "Takedowns", "Active"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newProfileCreateCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile and switch to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				p, err := s.store.Create(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created profile %q and made it active\n", p.Name)
				return nil
			})
		},
	}
}

func newProfileRenameCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <new-name>",
		Short: "Rename the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Rename(ctx, s.profile.ID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed profile %q to %q\n", s.profile.Name, args[0])
				return nil
			})
		},
	}
}

func newProfileDeleteCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				summaries, err := s.store.List(ctx)
				if err != nil {
					return err
				}
				for _, sum := range summaries {
					if sum.Name == args[0] || sum.ID == args[0] {
						if err := s.store.Delete(ctx, sum.ID); err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", sum.Name)
						return nil
					}
				}
				return fmt.Errorf("profile %q not found", args[0])
			})
		},
	}
}

func newProfileUseCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				p, err := s.store.SwitchActive(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active profile is now %q\n", p.Name)
				return nil
			})
		},
	}
}
