package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"modwatch/internal/services"
)

// TrackedItem is one released work whose identifier is watched for on
// the marketplace.
type TrackedItem struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	ExternalID        string     `json:"externalId"`
	OriginalListingID string     `json:"originalListingId"`
	ApprovedListings  []string   `json:"approvedListings"`
	LastSearchAt      *time.Time `json:"lastSearchAt,omitempty"`
}

// SourceSnapshot captures the tracked-item state that produced a
// search result. Classification resolves against current item state;
// the snapshot exists for display and provenance.
type SourceSnapshot struct {
	ItemID            string `json:"itemId"`
	Name              string `json:"name"`
	ExternalID        string `json:"externalId"`
	OriginalListingID string `json:"originalListingId"`
}

// Listing is one marketplace listing captured by a search.
type Listing struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

// SearchResult is the cached outcome of one tracked-item search.
type SearchResult struct {
	Items      []Listing      `json:"items"`
	Source     SourceSnapshot `json:"source"`
	SearchedAt time.Time      `json:"searchedAt"`
}

// ItemMatch is the per-item portion of a verification result.
type ItemMatch struct {
	MatchedFiles int     `json:"matchedFiles"`
	TotalFiles   int     `json:"totalFiles"`
	Percentage   float64 `json:"percentage"`
}

// VerificationResult records the outcome of a content verification run
// against one listing.
type VerificationResult struct {
	Verified        bool                 `json:"verified"`
	MatchPercentage float64              `json:"matchPercentage"`
	MatchedFiles    int                  `json:"matchedFiles"`
	TotalFiles      int                  `json:"totalFiles"`
	PerItem         map[string]ItemMatch `json:"perItem,omitempty"`
	TakenDown       bool                 `json:"takenDown"`
	Error           string               `json:"error,omitempty"`
	VerifiedAt      time.Time            `json:"verifiedAt"`
}

// DmcaEntry tracks one listing through the takedown lifecycle.
type DmcaEntry struct {
	ListingID            string              `json:"listingId"`
	Title                string              `json:"title"`
	URL                  string              `json:"url"`
	TriggeringExternalID string              `json:"triggeringExternalId"`
	ContainsExternalIDs  []string            `json:"containsExternalIds"`
	AddedAt              time.Time           `json:"addedAt"`
	FiledAt              *time.Time          `json:"filedAt,omitempty"`
	TakenDownAt          *time.Time          `json:"takenDownAt,omitempty"`
	Verification         *VerificationResult `json:"verification,omitempty"`
}

// Filed reports whether a takedown notice has been filed.
func (e *DmcaEntry) Filed() bool { return e.FiledAt != nil }

// TakenDown reports whether the listing was confirmed removed.
func (e *DmcaEntry) TakenDown() bool { return e.TakenDownAt != nil }

// SortOrder controls how cached search results are listed.
type SortOrder string

const (
	SortByName    SortOrder = "name"
	SortByCount   SortOrder = "count"
	SortByRecency SortOrder = "recency"
)

// DisplayPrefs holds per-profile result display settings.
type DisplayPrefs struct {
	FilterApproved    bool      `json:"filterApproved"`
	SortOrder         SortOrder `json:"sortOrder"`
	HideZeroResults   bool      `json:"hideZeroResults"`
	ShowPendingOnly   bool      `json:"showPendingOnly"`
	ShowFiledOnly     bool      `json:"showFiledOnly"`
	ShowTakenDownOnly bool      `json:"showTakenDownOnly"`
}

// DefaultPrefs returns the display preferences a new profile starts
// with.
func DefaultPrefs() DisplayPrefs {
	return DisplayPrefs{SortOrder: SortByName}
}

// Profile is one named tracking workspace.
type Profile struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Items         []TrackedItem           `json:"items"`
	Dmca          []DmcaEntry             `json:"dmca"`
	SearchResults map[string]SearchResult `json:"searchResults"`
	Prefs         DisplayPrefs            `json:"prefs"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// NewProfile constructs an empty profile with a fresh identifier.
func NewProfile(name string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		Items:         []TrackedItem{},
		Dmca:          []DmcaEntry{},
		SearchResults: map[string]SearchResult{},
		Prefs:         DefaultPrefs(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Item returns the tracked item with the given id, or nil.
func (p *Profile) Item(itemID string) *TrackedItem {
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			return &p.Items[i]
		}
	}
	return nil
}

// ItemByExternalID returns the tracked item carrying externalID, or
// nil.
func (p *Profile) ItemByExternalID(externalID string) *TrackedItem {
	for i := range p.Items {
		if p.Items[i].ExternalID == externalID {
			return &p.Items[i]
		}
	}
	return nil
}

// AddItem registers a new tracked item and returns it. The name must
// be non-empty and unique within the profile.
func (p *Profile) AddItem(name string) (*TrackedItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "profile", "add item", "name must not be empty", nil)
	}
	for i := range p.Items {
		if strings.EqualFold(p.Items[i].Name, name) {
			return nil, services.Wrap(services.ErrValidation, "profile", "add item", fmt.Sprintf("item %q already exists", name), nil)
		}
	}
	p.Items = append(p.Items, TrackedItem{
		ID:               uuid.NewString(),
		Name:             name,
		ApprovedListings: []string{},
	})
	return &p.Items[len(p.Items)-1], nil
}

// RenameItem changes an item's display name. Names stay unique within
// the profile, compared case-insensitively.
func (p *Profile) RenameItem(itemID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return services.Wrap(services.ErrValidation, "profile", "rename item", "name must not be empty", nil)
	}
	item := p.Item(itemID)
	if item == nil {
		return services.Wrap(services.ErrNotFound, "profile", "rename item", fmt.Sprintf("item %s not found", itemID), nil)
	}
	for i := range p.Items {
		if p.Items[i].ID != itemID && strings.EqualFold(p.Items[i].Name, name) {
			return services.Wrap(services.ErrValidation, "profile", "rename item", fmt.Sprintf("item %q already exists", name), nil)
		}
	}
	item.Name = name
	return nil
}

// SetExternalID assigns the marketplace identifier for a tracked item.
// Identifiers must be unique across the profile's items.
func (p *Profile) SetExternalID(itemID, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	item := p.Item(itemID)
	if item == nil {
		return services.Wrap(services.ErrNotFound, "profile", "set external id", fmt.Sprintf("item %s not found", itemID), nil)
	}
	if externalID != "" {
		for i := range p.Items {
			if p.Items[i].ID != itemID && p.Items[i].ExternalID == externalID {
				return services.Wrap(services.ErrValidation, "profile", "set external id",
					fmt.Sprintf("identifier %q already assigned to %q", externalID, p.Items[i].Name), nil)
			}
		}
	}
	item.ExternalID = externalID
	return nil
}

// SetOriginalListing records the listing the tracked item was
// originally published under. The id is reduced to its digits.
func (p *Profile) SetOriginalListing(itemID, listingID string) error {
	item := p.Item(itemID)
	if item == nil {
		return services.Wrap(services.ErrNotFound, "profile", "set original listing", fmt.Sprintf("item %s not found", itemID), nil)
	}
	item.OriginalListingID = SanitizeListingID(listingID)
	return nil
}

// RemoveItem deletes a tracked item and its cached search result.
func (p *Profile) RemoveItem(itemID string) error {
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			p.Items = append(p.Items[:i], p.Items[i+1:]...)
			delete(p.SearchResults, itemID)
			return nil
		}
	}
	return services.Wrap(services.ErrNotFound, "profile", "remove item", fmt.Sprintf("item %s not found", itemID), nil)
}

// ApprovedSet returns the approved listing ids for an item as a set.
func (p *Profile) ApprovedSet(itemID string) map[string]struct{} {
	set := map[string]struct{}{}
	item := p.Item(itemID)
	if item == nil {
		return set
	}
	for _, id := range item.ApprovedListings {
		// Stored ids may carry residue from hand-edited imports.
		if clean := SanitizeListingID(id); clean != "" {
			set[clean] = struct{}{}
		}
	}
	return set
}

// DmcaEntryFor returns the takedown entry for a listing, or nil.
func (p *Profile) DmcaEntryFor(listingID string) *DmcaEntry {
	for i := range p.Dmca {
		if p.Dmca[i].ListingID == listingID {
			return &p.Dmca[i]
		}
	}
	return nil
}

// SanitizeListingID strips everything but digits from a listing
// identifier, tolerating pasted URLs and formatted ids.
func SanitizeListingID(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
