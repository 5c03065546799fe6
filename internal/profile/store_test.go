package profile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"modwatch/internal/profile"
	"modwatch/internal/services"
	"modwatch/internal/testsupport"
)

func TestOpenCreatesDefaultProfile(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	active, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.Name != "Default" {
		t.Fatalf("expected Default profile, got %q", active.Name)
	}
	if active.SearchResults == nil {
		t.Fatal("expected initialized search results map")
	}
}

func TestSaveRoundTripsProfileState(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	p, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}

	item, err := p.AddItem("Winter Pack")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := p.SetExternalID(item.ID, "mod-123"); err != nil {
		t.Fatalf("SetExternalID: %v", err)
	}
	p.SearchResults[item.ID] = profile.SearchResult{
		Items:      []profile.Listing{{ListingID: "100", Title: "Copy", URL: "https://market.test/l/100"}},
		Source:     profile.SourceSnapshot{ItemID: item.ID, Name: item.Name, ExternalID: "mod-123"},
		SearchedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active after save: %v", err)
	}
	if diff := cmp.Diff(p.Items, reloaded.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(p.SearchResults, reloaded.SearchResults); diff != "" {
		t.Fatalf("search results mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateSwitchesActiveAndRejectsDuplicates(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	created, err := store.Create(ctx, "Secondary")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	active, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ID != created.ID {
		t.Fatalf("expected new profile to be active")
	}

	if _, err := store.Create(ctx, "Secondary"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for duplicate name, got %v", err)
	}
}

func TestDeleteRefusesLastProfile(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	active, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if err := store.Delete(ctx, active.ID); !errors.Is(err, profile.ErrLastProfile) {
		t.Fatalf("expected ErrLastProfile, got %v", err)
	}
}

func TestDeleteActiveActivatesRemaining(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	second, err := store.Create(ctx, "Secondary")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(ctx, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	active, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.Name != "Default" {
		t.Fatalf("expected Default to become active, got %q", active.Name)
	}
}

func TestSwitchActiveByName(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.Create(ctx, "Secondary"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	p, err := store.SwitchActive(ctx, "Default")
	if err != nil {
		t.Fatalf("SwitchActive: %v", err)
	}
	if p.Name != "Default" {
		t.Fatalf("expected Default, got %q", p.Name)
	}

	if _, err := store.SwitchActive(ctx, "missing"); !errors.Is(err, profile.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestRemoveItemCascadesSearchResults(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	p, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	item, err := p.AddItem("Winter Pack")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	p.SearchResults[item.ID] = profile.SearchResult{SearchedAt: time.Now().UTC()}

	if err := p.RemoveItem(item.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if _, ok := p.SearchResults[item.ID]; ok {
		t.Fatal("expected cached result to be removed with the item")
	}
}

func TestSetExternalIDRejectsDuplicates(t *testing.T) {
	p := profile.NewProfile("Test")
	first, err := p.AddItem("First")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	second, err := p.AddItem("Second")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if err := p.SetExternalID(first.ID, "mod-1"); err != nil {
		t.Fatalf("SetExternalID: %v", err)
	}
	if err := p.SetExternalID(second.ID, "mod-1"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// Re-assigning an item's own identifier stays legal.
	if err := p.SetExternalID(first.ID, "mod-1"); err != nil {
		t.Fatalf("SetExternalID same item: %v", err)
	}
}

func TestRenameItemKeepsNamesUnique(t *testing.T) {
	p := profile.NewProfile("Test")
	first, err := p.AddItem("First")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := p.AddItem("Second"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if err := p.RenameItem(first.ID, "second"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for duplicate name, got %v", err)
	}
	if err := p.RenameItem(first.ID, "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
	if err := p.RenameItem("missing", "Third"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Recasing an item's own name stays legal.
	if err := p.RenameItem(first.ID, "FIRST"); err != nil {
		t.Fatalf("RenameItem recase: %v", err)
	}
	if err := p.RenameItem(first.ID, "Fresh"); err != nil {
		t.Fatalf("RenameItem: %v", err)
	}
	if got := p.Item(first.ID).Name; got != "Fresh" {
		t.Fatalf("expected renamed item, got %q", got)
	}
}

func TestNormalizeEntriesPrefersDatedDuplicates(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	p, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}

	filed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.Dmca = []profile.DmcaEntry{
		{ListingID: "500", Title: "Copy", TriggeringExternalID: "mod-1", AddedAt: filed.Add(-time.Hour)},
		{ListingID: "500", Title: "Copy", TriggeringExternalID: "mod-2", AddedAt: filed, FiledAt: &filed},
	}
	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active after save: %v", err)
	}
	if len(reloaded.Dmca) != 1 {
		t.Fatalf("expected duplicates collapsed, got %d entries", len(reloaded.Dmca))
	}
	entry := reloaded.Dmca[0]
	if entry.FiledAt == nil || !entry.FiledAt.Equal(filed) {
		t.Fatalf("expected filed date preserved, got %+v", entry.FiledAt)
	}
	want := []string{"mod-1", "mod-2"}
	if diff := cmp.Diff(want, entry.ContainsExternalIDs); diff != "" {
		t.Fatalf("identifier union mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeListingID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123456", "123456"},
		{"https://market.test/listing/123456?ref=x", "123456"},
		{"id: 12-34-56", "123456"},
		{"no digits", ""},
	}
	for _, tc := range cases {
		if got := profile.SanitizeListingID(tc.in); got != tc.want {
			t.Fatalf("SanitizeListingID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
