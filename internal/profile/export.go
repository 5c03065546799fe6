package profile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modwatch/internal/services"
)

// itemsDocVersion is the current tracked-item export format. Version 1
// documents lacked the export date and approved listings; they are
// still accepted on import.
const itemsDocVersion = 2

// ExportedItem is the portable form of a tracked item.
type ExportedItem struct {
	Name              string   `json:"name"`
	ExternalID        string   `json:"externalId"`
	OriginalListingID string   `json:"originalListingId,omitempty"`
	ApprovedListings  []string `json:"approvedListings,omitempty"`
}

// ItemsDocument is the versioned tracked-item export payload.
type ItemsDocument struct {
	Version    int            `json:"version"`
	ExportDate time.Time      `json:"exportDate"`
	Items      []ExportedItem `json:"items"`
}

// ExportItems renders the profile's tracked items as a versioned
// document.
func ExportItems(p *Profile) ItemsDocument {
	doc := ItemsDocument{
		Version:    itemsDocVersion,
		ExportDate: time.Now().UTC(),
		Items:      make([]ExportedItem, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		doc.Items = append(doc.Items, ExportedItem{
			Name:              item.Name,
			ExternalID:        item.ExternalID,
			OriginalListingID: item.OriginalListingID,
			ApprovedListings:  append([]string(nil), item.ApprovedListings...),
		})
	}
	return doc
}

// ParseItemsDocument decodes and validates an export payload.
func ParseItemsDocument(data []byte) (*ItemsDocument, error) {
	var doc ItemsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "profile", "import items", "malformed document", err)
	}
	if doc.Version < 1 || doc.Version > itemsDocVersion {
		return nil, services.Wrap(services.ErrValidation, "profile", "import items",
			fmt.Sprintf("unsupported document version %d", doc.Version), nil)
	}
	for i, item := range doc.Items {
		if item.Name == "" {
			return nil, services.Wrap(services.ErrValidation, "profile", "import items",
				fmt.Sprintf("item %d has no name", i), nil)
		}
	}
	return &doc, nil
}

// ImportItems merges a document into the profile. Items are matched by
// external identifier first, then by name; matches are updated in
// place and everything else is appended. It reports how many items
// were imported fresh and how many updated.
func ImportItems(p *Profile, doc *ItemsDocument) (imported, updated int) {
	for _, in := range doc.Items {
		var target *TrackedItem
		if in.ExternalID != "" {
			target = p.ItemByExternalID(in.ExternalID)
		}
		if target == nil {
			for i := range p.Items {
				if p.Items[i].Name == in.Name {
					target = &p.Items[i]
					break
				}
			}
		}

		if target == nil {
			p.Items = append(p.Items, TrackedItem{
				ID:                uuid.NewString(),
				Name:              in.Name,
				ExternalID:        in.ExternalID,
				OriginalListingID: SanitizeListingID(in.OriginalListingID),
				ApprovedListings:  append([]string(nil), in.ApprovedListings...),
			})
			imported++
			continue
		}

		target.Name = in.Name
		if in.ExternalID != "" {
			target.ExternalID = in.ExternalID
		}
		if in.OriginalListingID != "" {
			target.OriginalListingID = SanitizeListingID(in.OriginalListingID)
		}
		target.ApprovedListings = unionStrings(target.ApprovedListings, in.ApprovedListings)
		updated++
	}
	return imported, updated
}
