// Package classify assigns listings a standing relative to the tracked
// items that found them.
//
// A listing can surface in several item searches at once. Its standing
// is the best one any search grants it: an item's original listing
// outranks an approved exception, which outranks an unapproved match.
// Classification always resolves against current item state, so
// approving a listing or correcting an original listing id reclassifies
// cached results without a new search.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"modwatch/internal/profile"
	"modwatch/internal/services"
)

// Status is a listing's standing within a profile.
type Status int

const (
	// StatusUnapproved marks a listing with no recorded relationship to
	// the matched item.
	StatusUnapproved Status = iota
	// StatusApproved marks a listing the item owner has allowed.
	StatusApproved
	// StatusOriginal marks the item's own original listing.
	StatusOriginal
)

// String returns a display label for the status.
func (s Status) String() string {
	switch s {
	case StatusOriginal:
		return "original"
	case StatusApproved:
		return "approved"
	default:
		return "unapproved"
	}
}

// Classification maps listing ids to their best standing.
type Classification map[string]Status

// Classify computes the standing of every listing cached in the
// profile's search results. Results whose tracked item was removed are
// skipped.
func Classify(p *profile.Profile) Classification {
	out := Classification{}
	for itemID, res := range p.SearchResults {
		item := p.Item(itemID)
		if item == nil {
			continue
		}
		approved := p.ApprovedSet(itemID)
		for _, listing := range res.Items {
			status := StatusUnapproved
			if listing.ListingID == item.OriginalListingID && item.OriginalListingID != "" {
				status = StatusOriginal
			} else if _, ok := approved[listing.ListingID]; ok {
				status = StatusApproved
			}
			if current, seen := out[listing.ListingID]; !seen || status > current {
				out[listing.ListingID] = status
			}
		}
	}
	return out
}

// Counts summarizes a classification by unique listing.
type Counts struct {
	Original   int
	Approved   int
	Unapproved int
}

// Total returns the number of unique listings counted.
func (c Counts) Total() int { return c.Original + c.Approved + c.Unapproved }

// Count tallies unique listings per standing.
func Count(cls Classification) Counts {
	var counts Counts
	for _, status := range cls {
		switch status {
		case StatusOriginal:
			counts.Original++
		case StatusApproved:
			counts.Approved++
		default:
			counts.Unapproved++
		}
	}
	return counts
}

// VisibleListings filters a cached result for display. With
// filterApproved set, listings standing as original or approved are
// hidden.
func VisibleListings(res profile.SearchResult, cls Classification, filterApproved bool) []profile.Listing {
	if !filterApproved {
		return res.Items
	}
	out := make([]profile.Listing, 0, len(res.Items))
	for _, listing := range res.Items {
		if cls[listing.ListingID] == StatusUnapproved {
			out = append(out, listing)
		}
	}
	return out
}

// VisibleCount reports how many of a result's listings are not the
// item's own original listing, dropping approved listings too when
// filterApproved is set.
func VisibleCount(res profile.SearchResult, cls Classification, filterApproved bool) int {
	count := 0
	for _, listing := range res.Items {
		switch cls[listing.ListingID] {
		case StatusOriginal:
		case StatusApproved:
			if !filterApproved {
				count++
			}
		default:
			count++
		}
	}
	return count
}

// ToggleApproval flips a listing's approved-exception flag for one
// tracked item and returns the new approval state.
func ToggleApproval(p *profile.Profile, itemID, listingID string) (bool, error) {
	item := p.Item(itemID)
	if item == nil {
		return false, services.Wrap(services.ErrNotFound, "classify", "approve",
			fmt.Sprintf("item %s not found", itemID), nil)
	}
	listingID = profile.SanitizeListingID(listingID)
	if listingID == "" {
		return false, services.Wrap(services.ErrValidation, "classify", "approve", "listing id must contain digits", nil)
	}
	for i, id := range item.ApprovedListings {
		if profile.SanitizeListingID(id) == listingID {
			item.ApprovedListings = append(item.ApprovedListings[:i], item.ApprovedListings[i+1:]...)
			return false, nil
		}
	}
	item.ApprovedListings = append(item.ApprovedListings, listingID)
	return true, nil
}

// SortedItemIDs orders the profile's cached results according to the
// profile's display preferences and returns the item ids in that
// order.
func SortedItemIDs(p *profile.Profile) []string {
	ids := make([]string, 0, len(p.SearchResults))
	for id := range p.SearchResults {
		if p.Item(id) != nil {
			ids = append(ids, id)
		}
	}

	switch p.Prefs.SortOrder {
	case profile.SortByCount:
		sort.Slice(ids, func(a, b int) bool {
			ca := len(p.SearchResults[ids[a]].Items)
			cb := len(p.SearchResults[ids[b]].Items)
			if ca != cb {
				return ca > cb
			}
			return lessByName(p, ids[a], ids[b])
		})
	case profile.SortByRecency:
		sort.Slice(ids, func(a, b int) bool {
			ta := p.SearchResults[ids[a]].SearchedAt
			tb := p.SearchResults[ids[b]].SearchedAt
			if !ta.Equal(tb) {
				return ta.After(tb)
			}
			return lessByName(p, ids[a], ids[b])
		})
	default:
		sort.Slice(ids, func(a, b int) bool {
			return lessByName(p, ids[a], ids[b])
		})
	}
	return ids
}

func lessByName(p *profile.Profile, a, b string) bool {
	na, nb := "", ""
	if item := p.Item(a); item != nil {
		na = item.Name
	}
	if item := p.Item(b); item != nil {
		nb = item.Name
	}
	return strings.ToLower(na) < strings.ToLower(nb)
}
