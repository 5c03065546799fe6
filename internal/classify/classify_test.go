package classify_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"modwatch/internal/classify"
	"modwatch/internal/profile"
)

func buildProfile(t *testing.T) (*profile.Profile, *profile.TrackedItem, *profile.TrackedItem) {
	t.Helper()

	p := profile.NewProfile("Test")
	first, err := p.AddItem("First")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	second, err := p.AddItem("Second")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	// Re-resolve: appends may have moved the backing array.
	return p, p.Item(first.ID), p.Item(second.ID)
}

func TestClassifyResolvesAgainstCurrentItemState(t *testing.T) {
	p, item, _ := buildProfile(t)
	item.OriginalListingID = "100"
	item.ApprovedListings = []string{"200"}

	p.SearchResults[item.ID] = profile.SearchResult{
		Items: []profile.Listing{
			{ListingID: "100"},
			{ListingID: "200"},
			{ListingID: "300"},
		},
	}

	cls := classify.Classify(p)
	if cls["100"] != classify.StatusOriginal {
		t.Fatalf("expected 100 original, got %v", cls["100"])
	}
	if cls["200"] != classify.StatusApproved {
		t.Fatalf("expected 200 approved, got %v", cls["200"])
	}
	if cls["300"] != classify.StatusUnapproved {
		t.Fatalf("expected 300 unapproved, got %v", cls["300"])
	}
}

func TestClassifyNeverDowngradesAcrossResults(t *testing.T) {
	p, first, second := buildProfile(t)
	first.OriginalListingID = "100"

	// The same listing appears in both items' results. The second item
	// has no relationship to it, but the first item's original standing
	// must win regardless of map iteration order.
	p.SearchResults[first.ID] = profile.SearchResult{
		Items: []profile.Listing{{ListingID: "100"}},
	}
	p.SearchResults[second.ID] = profile.SearchResult{
		Items: []profile.Listing{{ListingID: "100"}},
	}

	cls := classify.Classify(p)
	if cls["100"] != classify.StatusOriginal {
		t.Fatalf("expected original standing to win, got %v", cls["100"])
	}
}

func TestClassifySkipsRemovedItems(t *testing.T) {
	p, item, _ := buildProfile(t)
	p.SearchResults[item.ID] = profile.SearchResult{
		Items: []profile.Listing{{ListingID: "100"}},
	}
	p.SearchResults["ghost"] = profile.SearchResult{
		Items: []profile.Listing{{ListingID: "999"}},
	}

	cls := classify.Classify(p)
	if _, ok := cls["999"]; ok {
		t.Fatal("expected listing from removed item to be skipped")
	}
	if _, ok := cls["100"]; !ok {
		t.Fatal("expected live item's listing to be classified")
	}
}

func TestCountTalliesUniqueListings(t *testing.T) {
	cls := classify.Classification{
		"100": classify.StatusOriginal,
		"200": classify.StatusApproved,
		"300": classify.StatusUnapproved,
		"400": classify.StatusUnapproved,
	}
	counts := classify.Count(cls)
	want := classify.Counts{Original: 1, Approved: 1, Unapproved: 2}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if counts.Total() != 4 {
		t.Fatalf("expected total 4, got %d", counts.Total())
	}
}

func TestVisibleListingsFiltersApproved(t *testing.T) {
	res := profile.SearchResult{Items: []profile.Listing{
		{ListingID: "100"},
		{ListingID: "200"},
		{ListingID: "300"},
	}}
	cls := classify.Classification{
		"100": classify.StatusOriginal,
		"200": classify.StatusApproved,
		"300": classify.StatusUnapproved,
	}

	all := classify.VisibleListings(res, cls, false)
	if len(all) != 3 {
		t.Fatalf("expected all listings without filter, got %d", len(all))
	}
	filtered := classify.VisibleListings(res, cls, true)
	if len(filtered) != 1 || filtered[0].ListingID != "300" {
		t.Fatalf("expected only unapproved listing, got %+v", filtered)
	}
}

func TestVisibleCountExcludesOriginalListing(t *testing.T) {
	res := profile.SearchResult{Items: []profile.Listing{
		{ListingID: "100"},
		{ListingID: "200"},
		{ListingID: "300"},
	}}
	cls := classify.Classification{
		"100": classify.StatusOriginal,
		"200": classify.StatusApproved,
		"300": classify.StatusUnapproved,
	}

	if got := classify.VisibleCount(res, cls, false); got != 2 {
		t.Fatalf("expected the original listing excluded, got %d", got)
	}
	if got := classify.VisibleCount(res, cls, true); got != 1 {
		t.Fatalf("expected approved listings filtered too, got %d", got)
	}
}

func TestToggleApprovalRoundTrip(t *testing.T) {
	p, item, _ := buildProfile(t)

	approved, err := classify.ToggleApproval(p, item.ID, "200")
	if err != nil {
		t.Fatalf("ToggleApproval: %v", err)
	}
	if !approved {
		t.Fatal("expected listing to become approved")
	}

	approved, err = classify.ToggleApproval(p, item.ID, "200")
	if err != nil {
		t.Fatalf("ToggleApproval: %v", err)
	}
	if approved {
		t.Fatal("expected listing approval to be removed")
	}
	if len(item.ApprovedListings) != 0 {
		t.Fatalf("expected empty approvals, got %v", item.ApprovedListings)
	}
}

func TestToggleApprovalSanitizesResidue(t *testing.T) {
	p, item, _ := buildProfile(t)

	if _, err := classify.ToggleApproval(p, item.ID, "200"); err != nil {
		t.Fatalf("ToggleApproval: %v", err)
	}
	approved, err := classify.ToggleApproval(p, item.ID, "id=200")
	if err != nil {
		t.Fatalf("ToggleApproval: %v", err)
	}
	if approved || len(item.ApprovedListings) != 0 {
		t.Fatalf("expected residue-bearing id to match stored approval, got %v", item.ApprovedListings)
	}

	if _, err := classify.ToggleApproval(p, item.ID, "not-a-listing"); err == nil {
		t.Fatal("expected digit-free listing id to be rejected")
	}
}

func TestSortedItemIDsHonorsPreferences(t *testing.T) {
	p, first, second := buildProfile(t)
	now := time.Now().UTC()

	p.SearchResults[first.ID] = profile.SearchResult{
		Items:      []profile.Listing{{ListingID: "1"}},
		SearchedAt: now,
	}
	p.SearchResults[second.ID] = profile.SearchResult{
		Items:      []profile.Listing{{ListingID: "2"}, {ListingID: "3"}},
		SearchedAt: now.Add(-time.Hour),
	}

	p.Prefs.SortOrder = profile.SortByName
	got := classify.SortedItemIDs(p)
	if got[0] != first.ID {
		t.Fatalf("name sort: expected %s first, got %s", first.ID, got[0])
	}

	p.Prefs.SortOrder = profile.SortByCount
	got = classify.SortedItemIDs(p)
	if got[0] != second.ID {
		t.Fatalf("count sort: expected %s first, got %s", second.ID, got[0])
	}

	p.Prefs.SortOrder = profile.SortByRecency
	got = classify.SortedItemIDs(p)
	if got[0] != first.ID {
		t.Fatalf("recency sort: expected %s first, got %s", first.ID, got[0])
	}
}
