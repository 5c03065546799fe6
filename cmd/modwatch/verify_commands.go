package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"modwatch/internal/profile"
	"modwatch/internal/services"
	"modwatch/internal/services/verify"
)

func newVerifyCommand(cctx *commandContext) *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify listing content against your originals",
	}

	verifyCmd.AddCommand(newVerifyRunCommand(cctx))
	verifyCmd.AddCommand(newVerifyToolCommand(cctx))

	return verifyCmd
}

func newVerifyRunCommand(cctx *commandContext) *cobra.Command {
	var listingID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a verification job over the takedown list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				client, err := s.verifyClient()
				if err != nil {
					return err
				}

				onlyListing := profile.SanitizeListingID(listingID)
				if listingID != "" && onlyListing == "" {
					return services.Wrap(services.ErrValidation, "verify", "run",
						fmt.Sprintf("listing id %q contains no digits", listingID), nil)
				}
				req := buildStartRequest(s.profile, onlyListing)
				if len(req.Targets) == 0 {
					return services.Wrap(services.ErrValidation, "verify", "run",
						"no takedown entries eligible for verification", nil)
				}

				if err := client.Start(ctx, req); err != nil {
					if errors.Is(err, services.ErrAlreadyRunning) {
						fmt.Fprintln(cmd.OutOrStdout(), "A verification job is already running; attaching to it")
					} else {
						return err
					}
				}

				interactive := isatty.IsTerminal(os.Stdout.Fd())
				results, err := client.Poll(ctx, func(p verify.Progress) {
					if !interactive {
						return
					}
					switch p.Type {
					case verify.PhaseDownload:
						fmt.Fprintf(cmd.OutOrStdout(), "  downloading %d/%d\n", p.Current, p.Total)
					case verify.PhaseReadManifest:
						fmt.Fprintf(cmd.OutOrStdout(), "  reading manifest %d/%d\n", p.Current, p.Total)
					case verify.PhaseVerifyItem:
						fmt.Fprintf(cmd.OutOrStdout(), "  verifying %s (%d/%d)\n", p.Name, p.Current, p.Total)
					}
				})
				if err != nil {
					return err
				}

				updated := verify.MergeResults(s.profile, results, time.Now().UTC())
				if updated > 0 {
					if err := s.store.Save(ctx, s.profile); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Verified %d listing(s)\n", updated)
				summary := verify.Summarize(s.profile)
				fmt.Fprintf(out, "Match confidence: %d high, %d medium, %d low, %d none, %d taken down\n",
					summary.High, summary.Medium, summary.Low, summary.None, summary.TakenDown)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&listingID, "listing", "", "Verify a single listing instead of the whole list")
	return cmd
}

// buildStartRequest selects verification targets: entries not yet
// confirmed taken down, or one specific listing.
func buildStartRequest(p *profile.Profile, onlyListing string) verify.StartRequest {
	var req verify.StartRequest
	for i := range p.Dmca {
		entry := &p.Dmca[i]
		if onlyListing != "" && entry.ListingID != onlyListing {
			continue
		}
		if entry.TakenDown() && onlyListing == "" {
			continue
		}
		req.Targets = append(req.Targets, verify.Target{
			ListingID: entry.ListingID,
			Title:     entry.Title,
			URL:       entry.URL,
		})
	}
	for _, item := range p.Items {
		if item.ExternalID == "" {
			continue
		}
		req.References = append(req.References, verify.Reference{
			ExternalID: item.ExternalID,
			Name:       item.Name,
		})
	}
	return req
}

func newVerifyToolCommand(cctx *commandContext) *cobra.Command {
	toolCmd := &cobra.Command{
		Use:   "tool",
		Short: "Show the verification tool binding",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				client, err := s.verifyClient()
				if err != nil {
					return err
				}
				cfg, err := client.Tool(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Configured: %s\n", yesNo(cfg.Configured))
				if cfg.Path != "" {
					fmt.Fprintf(out, "Path: %s\n", cfg.Path)
				}
				return nil
			})
		},
	}

	toolCmd.AddCommand(&cobra.Command{
		Use:   "set <path>",
		Short: "Point the verification service at a tool binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				client, err := s.verifyClient()
				if err != nil {
					return err
				}
				if err := client.SetToolPath(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Verification tool updated")
				return nil
			})
		},
	})

	return toolCmd
}
