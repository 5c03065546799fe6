package dmca

import (
	"fmt"
	"strings"

	"modwatch/internal/profile"
	"modwatch/internal/services"
)

// Notice renders a takedown notice body for one entry. Each tracked
// identifier found in the listing is cited with the name and original
// listing of the work it belongs to.
func Notice(p *profile.Profile, listingID string) (string, error) {
	listingID = profile.SanitizeListingID(listingID)
	entry := p.DmcaEntryFor(listingID)
	if entry == nil {
		return "", services.Wrap(services.ErrNotFound, "dmca", "notice", fmt.Sprintf("listing %s is not tracked", listingID), nil)
	}

	var b strings.Builder
	b.WriteString("Takedown request\n\n")

	b.WriteString("Infringing listing:\n")
	if entry.Title != "" {
		fmt.Fprintf(&b, "  %s\n", entry.Title)
	}
	if entry.URL != "" {
		fmt.Fprintf(&b, "  %s\n", entry.URL)
	} else {
		fmt.Fprintf(&b, "  listing id %s\n", entry.ListingID)
	}
	b.WriteString("\n")

	b.WriteString("This listing redistributes the following original works without permission:\n")
	cited := 0
	for _, externalID := range entry.ContainsExternalIDs {
		item := p.ItemByExternalID(externalID)
		if item == nil {
			fmt.Fprintf(&b, "  - identifier %s\n", externalID)
			cited++
			continue
		}
		if item.OriginalListingID != "" {
			fmt.Fprintf(&b, "  - %s (identifier %s, original listing %s)\n",
				item.Name, externalID, item.OriginalListingID)
		} else {
			fmt.Fprintf(&b, "  - %s (identifier %s)\n", item.Name, externalID)
		}
		cited++
	}
	if cited == 0 {
		b.WriteString("  - (no tracked identifiers recorded for this listing)\n")
	}

	if entry.Verification != nil && entry.Verification.Verified {
		fmt.Fprintf(&b,
			"\nContent verification matched %.0f%% of the listing's files (%d of %d) against the originals.\n",
			entry.Verification.MatchPercentage,
			entry.Verification.MatchedFiles,
			entry.Verification.TotalFiles,
		)
	}

	b.WriteString("\nI have a good faith belief that the use described above is not authorized ")
	b.WriteString("by the copyright owner, its agent, or the law. The information in this ")
	b.WriteString("notice is accurate, and I am the owner, or authorized to act on behalf of ")
	b.WriteString("the owner, of the works listed.\n")
	return b.String(), nil
}
