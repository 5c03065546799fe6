package profile

// normalizeEntries collapses takedown entries that share a listing id
// and backfills the contained-identifier list from the triggering
// identifier on entries written before that field existed.
func normalizeEntries(entries []DmcaEntry) []DmcaEntry {
	byListing := make(map[string]int, len(entries))
	out := make([]DmcaEntry, 0, len(entries))

	for _, entry := range entries {
		if len(entry.ContainsExternalIDs) == 0 && entry.TriggeringExternalID != "" {
			entry.ContainsExternalIDs = []string{entry.TriggeringExternalID}
		}

		idx, seen := byListing[entry.ListingID]
		if !seen {
			byListing[entry.ListingID] = len(out)
			out = append(out, entry)
			continue
		}
		out[idx] = mergePreferred(out[idx], entry)
	}
	return out
}

// mergePreferred resolves a duplicate pair. The candidate replaces the
// incumbent only where it carries lifecycle dates the incumbent lacks;
// identifier lists are unioned either way.
func mergePreferred(incumbent, candidate DmcaEntry) DmcaEntry {
	merged := incumbent
	if merged.FiledAt == nil && candidate.FiledAt != nil {
		merged.FiledAt = candidate.FiledAt
	}
	if merged.TakenDownAt == nil && candidate.TakenDownAt != nil {
		merged.TakenDownAt = candidate.TakenDownAt
	}
	if merged.Verification == nil && candidate.Verification != nil {
		merged.Verification = candidate.Verification
	}
	if merged.Title == "" {
		merged.Title = candidate.Title
	}
	if merged.URL == "" {
		merged.URL = candidate.URL
	}
	merged.ContainsExternalIDs = unionStrings(merged.ContainsExternalIDs, candidate.ContainsExternalIDs)
	return merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
