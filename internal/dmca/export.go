package dmca

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"modwatch/internal/profile"
	"modwatch/internal/services"
)

// docVersion is the current takedown export format. Version 1 lacked
// the export date and contained-identifier lists; it is still accepted
// on import.
const docVersion = 2

// ExportedEntry is the portable form of a takedown entry.
type ExportedEntry struct {
	ListingID            string                      `json:"listingId"`
	Title                string                      `json:"title,omitempty"`
	URL                  string                      `json:"url,omitempty"`
	TriggeringExternalID string                      `json:"triggeringExternalId,omitempty"`
	ContainsExternalIDs  []string                    `json:"containsExternalIds,omitempty"`
	AddedAt              time.Time                   `json:"addedAt"`
	FiledAt              *time.Time                  `json:"filedAt,omitempty"`
	TakenDownAt          *time.Time                  `json:"takenDownAt,omitempty"`
	Verification         *profile.VerificationResult `json:"verification,omitempty"`
}

// TrackedContext describes a tracked item referenced by exported
// entries, so the receiving side can resolve identifiers to originals.
type TrackedContext struct {
	Name              string `json:"name"`
	ExternalID        string `json:"externalId"`
	OriginalListingID string `json:"originalListingId,omitempty"`
}

// Document is the versioned takedown export payload.
type Document struct {
	Version    int              `json:"version"`
	ExportDate time.Time        `json:"exportDate"`
	Entries    []ExportedEntry  `json:"entries"`
	Tracked    []TrackedContext `json:"trackedItems,omitempty"`
}

// Export renders the profile's takedown list as a versioned document,
// enriched with the tracked items its entries reference.
func (m *Manager) Export(p *profile.Profile) Document {
	doc := Document{
		Version:    docVersion,
		ExportDate: m.now(),
		Entries:    make([]ExportedEntry, 0, len(p.Dmca)),
	}

	referenced := map[string]struct{}{}
	for _, entry := range p.Dmca {
		doc.Entries = append(doc.Entries, ExportedEntry{
			ListingID:            entry.ListingID,
			Title:                entry.Title,
			URL:                  entry.URL,
			TriggeringExternalID: entry.TriggeringExternalID,
			ContainsExternalIDs:  append([]string(nil), entry.ContainsExternalIDs...),
			AddedAt:              entry.AddedAt,
			FiledAt:              entry.FiledAt,
			TakenDownAt:          entry.TakenDownAt,
			Verification:         entry.Verification,
		})
		for _, id := range entry.ContainsExternalIDs {
			referenced[id] = struct{}{}
		}
	}

	for _, item := range p.Items {
		if item.ExternalID == "" {
			continue
		}
		if _, ok := referenced[item.ExternalID]; !ok {
			continue
		}
		doc.Tracked = append(doc.Tracked, TrackedContext{
			Name:              item.Name,
			ExternalID:        item.ExternalID,
			OriginalListingID: item.OriginalListingID,
		})
	}
	return doc
}

// ParseDocument decodes and validates a takedown export payload.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "dmca", "import", "malformed document", err)
	}
	if doc.Version < 1 || doc.Version > docVersion {
		return nil, services.Wrap(services.ErrValidation, "dmca", "import",
			fmt.Sprintf("unsupported document version %d", doc.Version), nil)
	}
	for i, entry := range doc.Entries {
		if profile.SanitizeListingID(entry.ListingID) == "" {
			return nil, services.Wrap(services.ErrValidation, "dmca", "import",
				fmt.Sprintf("entry %d has no listing id", i), nil)
		}
	}
	return &doc, nil
}

// ImportStats reports how an import resolved against existing entries.
type ImportStats struct {
	Imported int
	Updated  int
}

// Import merges a document into the profile's takedown list. Matches
// by listing id are overwritten by the imported copy; everything else
// is appended.
func (m *Manager) Import(ctx context.Context, p *profile.Profile, doc *Document) (ImportStats, error) {
	var stats ImportStats
	for _, in := range doc.Entries {
		entry := profile.DmcaEntry{
			ListingID:            profile.SanitizeListingID(in.ListingID),
			Title:                in.Title,
			URL:                  in.URL,
			TriggeringExternalID: in.TriggeringExternalID,
			ContainsExternalIDs:  append([]string(nil), in.ContainsExternalIDs...),
			AddedAt:              in.AddedAt,
			FiledAt:              in.FiledAt,
			TakenDownAt:          in.TakenDownAt,
			Verification:         in.Verification,
		}
		if len(entry.ContainsExternalIDs) == 0 && entry.TriggeringExternalID != "" {
			entry.ContainsExternalIDs = []string{entry.TriggeringExternalID}
		}
		if entry.AddedAt.IsZero() {
			entry.AddedAt = m.now()
		}

		replaced := false
		for i := range p.Dmca {
			if p.Dmca[i].ListingID == entry.ListingID {
				p.Dmca[i] = entry
				replaced = true
				break
			}
		}
		if replaced {
			stats.Updated++
		} else {
			p.Dmca = append(p.Dmca, entry)
			stats.Imported++
		}
	}

	if err := m.store.Save(ctx, p); err != nil {
		return stats, err
	}
	return stats, nil
}
