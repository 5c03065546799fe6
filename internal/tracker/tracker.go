// Package tracker runs marketplace searches for tracked items and
// maintains their cached results.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"modwatch/internal/logging"
	"modwatch/internal/profile"
	"modwatch/internal/scheduler"
	"modwatch/internal/services"
	"modwatch/internal/services/workshop"
)

// Saver persists profile mutations.
type Saver interface {
	Save(ctx context.Context, p *profile.Profile) error
}

// Pacer clears request pacing state at batch boundaries.
type Pacer interface {
	Reset()
}

// Service coordinates searches, batch refreshes, and catalog imports.
type Service struct {
	store           Saver
	client          workshop.Searcher
	pacer           Pacer
	logger          *slog.Logger
	searchMaxPages  int
	catalogMaxPages int
	now             func() time.Time
}

// Option adjusts service construction.
type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a tracker service. The pacer must be the scheduler
// instance pacing the workshop client so Reset covers both.
func New(store Saver, client workshop.Searcher, pacer Pacer, logger *slog.Logger, searchMaxPages, catalogMaxPages int, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		store:           store,
		client:          client,
		pacer:           pacer,
		logger:          logger,
		searchMaxPages:  searchMaxPages,
		catalogMaxPages: catalogMaxPages,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchOne refreshes the cached result for a single tracked item and
// persists it.
func (s *Service) SearchOne(ctx context.Context, p *profile.Profile, itemID string) (*profile.SearchResult, error) {
	item := p.Item(itemID)
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "tracker", "search", fmt.Sprintf("item %s not found", itemID), nil)
	}
	if strings.TrimSpace(item.ExternalID) == "" {
		return nil, services.Wrap(services.ErrValidation, "tracker", "search",
			fmt.Sprintf("item %q has no marketplace identifier", item.Name), nil)
	}

	result, err := s.searchItem(ctx, p, item)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) searchItem(ctx context.Context, p *profile.Profile, item *profile.TrackedItem) (*profile.SearchResult, error) {
	resp, err := s.client.Search(ctx, item.ExternalID, s.searchMaxPages)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item.LastSearchAt = &now
	listings := make([]profile.Listing, 0, len(resp.Items))
	for _, in := range resp.Items {
		listings = append(listings, profile.Listing{
			ListingID: in.ListingID,
			Title:     in.Title,
			URL:       in.URL,
		})
	}
	result := profile.SearchResult{
		Items: listings,
		Source: profile.SourceSnapshot{
			ItemID:            item.ID,
			Name:              item.Name,
			ExternalID:        item.ExternalID,
			OriginalListingID: item.OriginalListingID,
		},
		SearchedAt: now,
	}
	p.SearchResults[item.ID] = result

	s.logger.Info("search completed",
		logging.String("item", item.Name),
		logging.String("external_id", item.ExternalID),
		logging.Int("listings", len(listings)))
	return &result, nil
}

// ItemStatus reports one item's outcome during a batch search.
type ItemStatus struct {
	ItemID   string
	Name     string
	Listings int
	Err      error
}

// BatchSummary reports how a batch search ended.
type BatchSummary struct {
	Searched    int
	Failed      int
	Skipped     int
	RateLimited bool
}

// SearchAll refreshes every tracked item that has an identifier,
// persisting after each item so rate-limit aborts keep earlier
// results. The pacing floor is reset first; batch runs start fresh.
func (s *Service) SearchAll(ctx context.Context, p *profile.Profile, onStatus func(ItemStatus)) (BatchSummary, error) {
	var summary BatchSummary
	if s.pacer != nil {
		s.pacer.Reset()
	}

	ordered := make([]*profile.TrackedItem, 0, len(p.Items))
	for i := range p.Items {
		ordered = append(ordered, &p.Items[i])
	}
	sort.Slice(ordered, func(a, b int) bool {
		return strings.ToLower(ordered[a].Name) < strings.ToLower(ordered[b].Name)
	})

	for _, item := range ordered {
		if strings.TrimSpace(item.ExternalID) == "" {
			summary.Skipped++
			continue
		}

		result, err := s.searchItem(ctx, p, item)
		if err != nil {
			if errors.Is(err, scheduler.ErrRateLimitExceeded) {
				summary.RateLimited = true
				s.logger.Warn("batch search stopped by rate limiting",
					logging.Int("searched", summary.Searched))
				break
			}
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			if onStatus != nil {
				onStatus(ItemStatus{ItemID: item.ID, Name: item.Name, Err: err})
			}
			continue
		}

		summary.Searched++
		if err := s.store.Save(ctx, p); err != nil {
			// Keep going: the in-memory results are still good and a
			// later save may succeed.
			s.logger.Error("save after search failed",
				logging.String("item", item.Name), logging.Error(err))
		}
		if onStatus != nil {
			onStatus(ItemStatus{ItemID: item.ID, Name: item.Name, Listings: len(result.Items)})
		}
	}

	if summary.RateLimited {
		if err := s.store.Save(ctx, p); err != nil {
			s.logger.Error("save after rate-limited batch failed", logging.Error(err))
		}
	}
	return summary, nil
}

// CatalogSummary reports how a seller catalog import resolved.
type CatalogSummary struct {
	Imported       int
	AlreadyTracked int
	Skipped        int
	RateLimited    bool
}

// ImportFromCatalog fetches a seller's catalog and registers a tracked
// item for every listing that embeds an identifier not yet tracked.
// Listings without identifiers are skipped; rate limiting stops the
// import, keeping whatever was registered.
func (s *Service) ImportFromCatalog(ctx context.Context, p *profile.Profile, sellerProfileID string) (CatalogSummary, error) {
	var summary CatalogSummary
	if s.pacer != nil {
		s.pacer.Reset()
	}

	catalog, err := s.client.Catalog(ctx, sellerProfileID, s.catalogMaxPages)
	if err != nil {
		if errors.Is(err, scheduler.ErrRateLimitExceeded) {
			summary.RateLimited = true
			return summary, nil
		}
		return summary, err
	}

	changed := false
	for _, listing := range catalog.Items {
		listingID := profile.SanitizeListingID(listing.ListingID)
		// An item's own listing needs no detail probe; probes are paced
		// and the identifier inside could belong to someone else.
		if listingID != "" && trackedByListing(p, listingID) {
			summary.AlreadyTracked++
			continue
		}

		detail, err := s.client.ListingDetail(ctx, listing.ListingID)
		if err != nil {
			if errors.Is(err, scheduler.ErrRateLimitExceeded) {
				summary.RateLimited = true
				break
			}
			if ctx.Err() != nil {
				break
			}
			summary.Skipped++
			s.logger.Warn("catalog detail fetch failed",
				logging.String("listing_id", listing.ListingID),
				logging.Error(err))
			continue
		}

		externalID := strings.TrimSpace(detail.ExternalID)
		if externalID == "" {
			summary.Skipped++
			continue
		}
		if p.ItemByExternalID(externalID) != nil {
			summary.AlreadyTracked++
			continue
		}

		name := strings.TrimSpace(listing.Title)
		if name == "" {
			name = "Listing " + listing.ListingID
		}
		item, err := p.AddItem(uniqueItemName(p, name))
		if err != nil {
			summary.Skipped++
			continue
		}
		item.ExternalID = externalID
		item.OriginalListingID = listingID
		summary.Imported++
		changed = true
	}

	if changed {
		if err := s.store.Save(ctx, p); err != nil {
			return summary, err
		}
	}
	return summary, ctx.Err()
}

// ClearResults drops the cached result for one item, or for every item
// when itemID is empty.
func (s *Service) ClearResults(ctx context.Context, p *profile.Profile, itemID string) (cleared int, err error) {
	if itemID == "" {
		cleared = len(p.SearchResults)
		if cleared == 0 {
			return 0, nil
		}
		p.SearchResults = map[string]profile.SearchResult{}
	} else {
		if _, ok := p.SearchResults[itemID]; !ok {
			return 0, nil
		}
		delete(p.SearchResults, itemID)
		cleared = 1
	}
	if err := s.store.Save(ctx, p); err != nil {
		return 0, err
	}
	return cleared, nil
}

// trackedByListing reports whether a listing id is already some item's
// original listing.
func trackedByListing(p *profile.Profile, listingID string) bool {
	for i := range p.Items {
		if p.Items[i].OriginalListingID == listingID {
			return true
		}
	}
	return false
}

// uniqueItemName suffixes a catalog title until it no longer collides
// with an existing item name.
func uniqueItemName(p *profile.Profile, name string) string {
	candidate := name
	for n := 2; ; n++ {
		collision := false
		for i := range p.Items {
			if strings.EqualFold(p.Items[i].Name, candidate) {
				collision = true
				break
			}
		}
		if !collision {
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}
