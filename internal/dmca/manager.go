package dmca

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modwatch/internal/logging"
	"modwatch/internal/profile"
	"modwatch/internal/scheduler"
	"modwatch/internal/services"
	"modwatch/internal/services/workshop"
)

// Prober checks whether a listing is still reachable.
type Prober interface {
	Exists(ctx context.Context, listingID string) (workshop.Existence, error)
}

// Saver persists profile mutations.
type Saver interface {
	Save(ctx context.Context, p *profile.Profile) error
}

// Pacer clears request pacing state at batch boundaries.
type Pacer interface {
	Reset()
}

// Manager drives takedown entries through their lifecycle.
type Manager struct {
	store  Saver
	prober Prober
	pacer  Pacer
	logger *slog.Logger
	now    func() time.Time
}

// Option adjusts manager construction.
type Option func(*Manager)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithPacer wires the scheduler pacing the prober so recheck batches
// start with a fresh floor.
func WithPacer(pacer Pacer) Option {
	return func(m *Manager) {
		m.pacer = pacer
	}
}

// NewManager builds a takedown manager. The prober may be nil when
// rechecks are not needed.
func NewManager(store Saver, prober Prober, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		store:  store,
		prober: prober,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Toggle adds a listing to the takedown list, or removes it when
// already present. On add, every cached search result is scanned so
// the entry records all tracked identifiers found in that listing;
// fallbackExternalID covers listings added outside any cached result.
func (m *Manager) Toggle(ctx context.Context, p *profile.Profile, listingID, fallbackExternalID string) (added bool, err error) {
	listingID = profile.SanitizeListingID(listingID)
	if listingID == "" {
		return false, services.Wrap(services.ErrValidation, "dmca", "toggle", "listing id must contain digits", nil)
	}

	for i := range p.Dmca {
		if p.Dmca[i].ListingID == listingID {
			p.Dmca = append(p.Dmca[:i], p.Dmca[i+1:]...)
			if err := m.store.Save(ctx, p); err != nil {
				return false, err
			}
			m.logger.Info("takedown entry removed", logging.String("listing_id", listingID))
			return false, nil
		}
	}

	entry := m.buildEntry(p, listingID, fallbackExternalID)
	p.Dmca = append(p.Dmca, entry)
	if err := m.store.Save(ctx, p); err != nil {
		return false, err
	}
	m.logger.Info("takedown entry added",
		logging.String("listing_id", listingID),
		logging.Int("identifiers", len(entry.ContainsExternalIDs)))
	return true, nil
}

// buildEntry assembles a new entry, sweeping every cached result for
// provenance: the title, url, and the full set of tracked identifiers
// whose searches surfaced this listing.
func (m *Manager) buildEntry(p *profile.Profile, listingID, fallbackExternalID string) profile.DmcaEntry {
	entry := profile.DmcaEntry{
		ListingID: listingID,
		AddedAt:   m.now(),
	}

	var contains []string
	seen := map[string]struct{}{}
	for itemID, res := range p.SearchResults {
		item := p.Item(itemID)
		if item == nil || item.ExternalID == "" {
			continue
		}
		for _, listing := range res.Items {
			if listing.ListingID != listingID {
				continue
			}
			if entry.Title == "" {
				entry.Title = listing.Title
			}
			if entry.URL == "" {
				entry.URL = listing.URL
			}
			if _, ok := seen[item.ExternalID]; !ok {
				seen[item.ExternalID] = struct{}{}
				contains = append(contains, item.ExternalID)
			}
			break
		}
	}

	if len(contains) == 0 && fallbackExternalID != "" {
		contains = []string{fallbackExternalID}
	}
	entry.ContainsExternalIDs = contains
	if len(contains) > 0 {
		entry.TriggeringExternalID = contains[0]
	}
	return entry
}

// MarkFiled toggles the filed flag on an entry. Entries already
// confirmed taken down are immutable.
func (m *Manager) MarkFiled(ctx context.Context, p *profile.Profile, listingID string) (filed bool, err error) {
	listingID = profile.SanitizeListingID(listingID)
	entry := p.DmcaEntryFor(listingID)
	if entry == nil {
		return false, services.Wrap(services.ErrNotFound, "dmca", "mark filed", fmt.Sprintf("listing %s is not tracked", listingID), nil)
	}
	if entry.TakenDown() {
		return false, services.Wrap(services.ErrPrecondition, "dmca", "mark filed", "listing already confirmed taken down", nil)
	}

	if entry.Filed() {
		entry.FiledAt = nil
	} else {
		now := m.now()
		entry.FiledAt = &now
	}
	if err := m.store.Save(ctx, p); err != nil {
		return false, err
	}
	return entry.Filed(), nil
}

// RecheckSummary reports the outcome of a filed-entry recheck batch.
type RecheckSummary struct {
	Checked     int
	TakenDown   int
	StillActive int
	Errors      int
	RateLimited bool
}

// RecheckFiled probes every filed, not-yet-confirmed entry against the
// marketplace and records confirmed removals. The batch stops as soon
// as the marketplace throttles past the retry budget; everything
// confirmed before that point is kept.
func (m *Manager) RecheckFiled(ctx context.Context, p *profile.Profile) (RecheckSummary, error) {
	var summary RecheckSummary
	if m.prober == nil {
		return summary, services.Wrap(services.ErrConfiguration, "dmca", "recheck", "marketplace client not configured", nil)
	}
	if m.pacer != nil {
		m.pacer.Reset()
	}

	changed := false
	for i := range p.Dmca {
		entry := &p.Dmca[i]
		if !entry.Filed() || entry.TakenDown() {
			continue
		}

		existence, err := m.prober.Exists(ctx, entry.ListingID)
		if err != nil {
			if errors.Is(err, scheduler.ErrRateLimitExceeded) {
				summary.RateLimited = true
				m.logger.Warn("recheck stopped by rate limiting",
					logging.Int("checked", summary.Checked))
				break
			}
			if ctx.Err() != nil {
				break
			}
			summary.Checked++
			summary.Errors++
			m.logger.Warn("recheck probe failed",
				logging.String("listing_id", entry.ListingID),
				logging.Error(err))
			continue
		}

		summary.Checked++
		switch existence {
		case workshop.ExistenceGone:
			now := m.now()
			entry.TakenDownAt = &now
			summary.TakenDown++
			changed = true
		case workshop.ExistenceActive:
			summary.StillActive++
		default:
			summary.Errors++
		}
	}

	if changed {
		if err := m.store.Save(ctx, p); err != nil {
			return summary, err
		}
	}
	return summary, ctx.Err()
}

// ClearVerification drops the stored verification result for one entry,
// or for every entry when listingID is empty.
func (m *Manager) ClearVerification(ctx context.Context, p *profile.Profile, listingID string) (cleared int, err error) {
	listingID = profile.SanitizeListingID(listingID)
	for i := range p.Dmca {
		if p.Dmca[i].Verification == nil {
			continue
		}
		if listingID != "" && p.Dmca[i].ListingID != listingID {
			continue
		}
		p.Dmca[i].Verification = nil
		cleared++
	}
	if cleared == 0 {
		return 0, nil
	}
	if err := m.store.Save(ctx, p); err != nil {
		return 0, err
	}
	return cleared, nil
}

// Clear removes every takedown entry from the profile and returns how
// many were dropped.
func (m *Manager) Clear(ctx context.Context, p *profile.Profile) (removed int, err error) {
	removed = len(p.Dmca)
	if removed == 0 {
		return 0, nil
	}
	p.Dmca = nil
	if err := m.store.Save(ctx, p); err != nil {
		return 0, err
	}
	m.logger.Info("takedown list cleared", logging.Int("removed", removed))
	return removed, nil
}

// Counts summarizes takedown entries by lifecycle state, counting each
// listing once.
type Counts struct {
	Pending   int
	Filed     int
	TakenDown int
	Verified  int
}

// Count tallies the profile's entries by state.
func Count(p *profile.Profile) Counts {
	var counts Counts
	seen := map[string]struct{}{}
	for i := range p.Dmca {
		entry := &p.Dmca[i]
		if _, ok := seen[entry.ListingID]; ok {
			continue
		}
		seen[entry.ListingID] = struct{}{}

		switch {
		case entry.TakenDown():
			counts.TakenDown++
		case entry.Filed():
			counts.Filed++
		default:
			counts.Pending++
		}
		if entry.Verification != nil && entry.Verification.Verified {
			counts.Verified++
		}
	}
	return counts
}

// Entries returns the profile's takedown entries filtered by display
// preferences.
func Entries(p *profile.Profile) []profile.DmcaEntry {
	prefs := p.Prefs
	if !prefs.ShowPendingOnly && !prefs.ShowFiledOnly && !prefs.ShowTakenDownOnly {
		return p.Dmca
	}
	out := make([]profile.DmcaEntry, 0, len(p.Dmca))
	for _, entry := range p.Dmca {
		switch {
		case prefs.ShowTakenDownOnly && entry.TakenDown():
			out = append(out, entry)
		case prefs.ShowFiledOnly && entry.Filed() && !entry.TakenDown():
			out = append(out, entry)
		case prefs.ShowPendingOnly && !entry.Filed() && !entry.TakenDown():
			out = append(out, entry)
		}
	}
	return out
}
