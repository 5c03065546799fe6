package workshop_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"modwatch/internal/scheduler"
	"modwatch/internal/services/workshop"
)

func newTestScheduler() *scheduler.Scheduler {
	// No real waiting in tests.
	return scheduler.New(0, 0, 0, 2,
		scheduler.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
}

func TestSearchDecodesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("externalId"); got != "mod-123" {
			t.Fatalf("unexpected externalId %q", got)
		}
		if got := r.URL.Query().Get("maxPages"); got != "5" {
			t.Fatalf("unexpected maxPages %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"externalId": "mod-123",
			"count": 2,
			"items": [
				{"listingId": "100", "title": "Pack A", "url": "https://market.test/l/100"},
				{"listingId": "101", "title": "Pack B", "url": "https://market.test/l/101"}
			]
		}`))
	}))
	defer server.Close()

	client, err := workshop.New(server.URL, newTestScheduler())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := client.Search(context.Background(), "mod-123", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Count != 2 || len(resp.Items) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Items[1].ListingID != "101" {
		t.Fatalf("unexpected listing: %+v", resp.Items[1])
	}
}

func TestSearchRequiresExternalID(t *testing.T) {
	client, err := workshop.New("http://example.test", newTestScheduler())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Search(context.Background(), "  ", 1); err == nil {
		t.Fatal("expected error for blank external id")
	}
}

func TestSearchReportsRateLimitAfterRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := workshop.New(server.URL, newTestScheduler())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Search(context.Background(), "mod-123", 1)
	if !errors.Is(err, scheduler.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected initial call plus 2 retries, got %d", calls)
	}
}

func TestExistsMapsTristate(t *testing.T) {
	cases := []struct {
		name string
		body string
		want workshop.Existence
	}{
		{"active", `{"exists": true}`, workshop.ExistenceActive},
		{"gone", `{"exists": false}`, workshop.ExistenceGone},
		{"unknown", `{}`, workshop.ExistenceUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/exists" {
					t.Fatalf("unexpected path %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := workshop.New(server.URL, newTestScheduler())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got, err := client.Exists(context.Background(), "100")
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestListingDetailBackfillsListingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"externalId": "mod-77"}`))
	}))
	defer server.Close()

	client, err := workshop.New(server.URL, newTestScheduler())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	detail, err := client.ListingDetail(context.Background(), "200")
	if err != nil {
		t.Fatalf("ListingDetail: %v", err)
	}
	if detail.ListingID != "200" || detail.ExternalID != "mod-77" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}
