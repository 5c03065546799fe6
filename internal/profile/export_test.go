package profile_test

import (
	"encoding/json"
	"errors"
	"testing"

	"modwatch/internal/profile"
	"modwatch/internal/services"
)

func TestExportItemsRoundTrip(t *testing.T) {
	p := profile.NewProfile("Test")
	item, err := p.AddItem("Winter Pack")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := p.SetExternalID(item.ID, "mod-1"); err != nil {
		t.Fatalf("SetExternalID: %v", err)
	}
	item.ApprovedListings = []string{"900"}

	doc := profile.ExportItems(p)
	if doc.Version != 2 {
		t.Fatalf("expected version 2, got %d", doc.Version)
	}
	if doc.ExportDate.IsZero() {
		t.Fatal("expected export date to be set")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := profile.ParseItemsDocument(data)
	if err != nil {
		t.Fatalf("ParseItemsDocument: %v", err)
	}

	fresh := profile.NewProfile("Fresh")
	imported, updated := profile.ImportItems(fresh, parsed)
	if imported != 1 || updated != 0 {
		t.Fatalf("expected 1 imported, got imported=%d updated=%d", imported, updated)
	}
	got := fresh.ItemByExternalID("mod-1")
	if got == nil || got.Name != "Winter Pack" {
		t.Fatalf("imported item missing: %+v", fresh.Items)
	}
	if len(got.ApprovedListings) != 1 || got.ApprovedListings[0] != "900" {
		t.Fatalf("approved listings lost: %+v", got.ApprovedListings)
	}
}

func TestImportItemsUpdatesExistingByExternalID(t *testing.T) {
	p := profile.NewProfile("Test")
	item, err := p.AddItem("Old Name")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := p.SetExternalID(item.ID, "mod-1"); err != nil {
		t.Fatalf("SetExternalID: %v", err)
	}

	doc := &profile.ItemsDocument{
		Version: 2,
		Items: []profile.ExportedItem{
			{Name: "New Name", ExternalID: "mod-1", OriginalListingID: "777"},
		},
	}
	imported, updated := profile.ImportItems(p, doc)
	if imported != 0 || updated != 1 {
		t.Fatalf("expected 1 updated, got imported=%d updated=%d", imported, updated)
	}
	if p.Items[0].Name != "New Name" || p.Items[0].OriginalListingID != "777" {
		t.Fatalf("item not updated: %+v", p.Items[0])
	}
}

func TestParseItemsDocumentRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"bad version", `{"version": 9, "items": []}`},
		{"nameless item", `{"version": 2, "items": [{"externalId": "mod-1"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := profile.ParseItemsDocument([]byte(tc.data))
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
