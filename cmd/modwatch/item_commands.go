package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"modwatch/internal/classify"
	"modwatch/internal/profile"
)

func newItemCommand(cctx *commandContext) *cobra.Command {
	itemCmd := &cobra.Command{
		Use:   "item",
		Short: "Manage tracked items",
	}

	itemCmd.AddCommand(newItemAddCommand(cctx))
	itemCmd.AddCommand(newItemListCommand(cctx))
	itemCmd.AddCommand(newItemSetCommand(cctx))
	itemCmd.AddCommand(newItemRemoveCommand(cctx))
	itemCmd.AddCommand(newItemApproveCommand(cctx))
	itemCmd.AddCommand(newItemExportCommand(cctx))
	itemCmd.AddCommand(newItemImportCommand(cctx))

	return itemCmd
}

func newItemAddCommand(cctx *commandContext) *cobra.Command {
	var externalID string
	var originalListing string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Track a new item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				item, err := s.profile.AddItem(args[0])
				if err != nil {
					return err
				}
				if externalID != "" {
					if err := s.profile.SetExternalID(item.ID, externalID); err != nil {
						return err
					}
				}
				if originalListing != "" {
					if err := s.profile.SetOriginalListing(item.ID, originalListing); err != nil {
						return err
					}
				}
				if err := s.store.Save(ctx, s.profile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tracking %q\n", item.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&externalID, "id", "", "Marketplace identifier embedded in the item")
	cmd.Flags().StringVar(&originalListing, "original", "", "Listing id of the item's own listing")
	return cmd
}

func newItemListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				if len(s.profile.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tracked items")
					return nil
				}
				cls := classify.Classify(s.profile)
				rows := make([][]string, 0, len(s.profile.Items))
				for _, item := range s.profile.Items {
					lastSearch := "never"
					if item.LastSearchAt != nil {
						lastSearch = item.LastSearchAt.Local().Format(time.DateTime)
					}
					results := "-"
					if res, ok := s.profile.SearchResults[item.ID]; ok {
						results = strconv.Itoa(classify.VisibleCount(res, cls, s.profile.Prefs.FilterApproved))
					}
					rows = append(rows, []string{
						item.Name,
						item.ExternalID,
						item.OriginalListingID,
						results,
						lastSearch,
					})
				}
				out := renderTable(
					[]string{"Item", "Identifier", "Original", "Listings", "Last Search"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newItemSetCommand(cctx *commandContext) *cobra.Command {
	var externalID string
	var originalListing string
	var name string

	cmd := &cobra.Command{
		Use:   "set <item>",
		Short: "Update a tracked item's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				item, err := s.resolveItem(args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("id") {
					if err := s.profile.SetExternalID(item.ID, externalID); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("original") {
					if err := s.profile.SetOriginalListing(item.ID, originalListing); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("name") {
					if err := s.profile.RenameItem(item.ID, name); err != nil {
						return err
					}
				}
				if err := s.store.Save(ctx, s.profile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", item.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&externalID, "id", "", "Marketplace identifier embedded in the item")
	cmd.Flags().StringVar(&originalListing, "original", "", "Listing id of the item's own listing")
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	return cmd
}

func newItemRemoveCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item>",
		Short: "Stop tracking an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				item, err := s.resolveItem(args[0])
				if err != nil {
					return err
				}
				name := item.Name
				if err := s.profile.RemoveItem(item.ID); err != nil {
					return err
				}
				if err := s.store.Save(ctx, s.profile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q and its cached results\n", name)
				return nil
			})
		},
	}
}

func newItemApproveCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <item> <listing-id>",
		Short: "Toggle a listing as an approved exception for an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				item, err := s.resolveItem(args[0])
				if err != nil {
					return err
				}
				listingID := profile.SanitizeListingID(args[1])
				approved, err := classify.ToggleApproval(s.profile, item.ID, listingID)
				if err != nil {
					return err
				}
				if err := s.store.Save(ctx, s.profile); err != nil {
					return err
				}
				if approved {
					fmt.Fprintf(cmd.OutOrStdout(), "Listing %s approved for %q\n", listingID, item.Name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Listing %s no longer approved for %q\n", listingID, item.Name)
				}
				return nil
			})
		},
	}
}

func newItemExportCommand(cctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tracked items as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				doc := profile.ExportItems(s.profile)
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
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", len(doc.Items), outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newItemImportCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import tracked items from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withSession(cmd, func(ctx context.Context, s *session) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				doc, err := profile.ParseItemsDocument(data)
				if err != nil {
					return err
				}
				imported, updated := profile.ImportItems(s.profile, doc)
				if err := s.store.Save(ctx, s.profile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items, updated %d\n", imported, updated)
				return nil
			})
		},
	}
}
