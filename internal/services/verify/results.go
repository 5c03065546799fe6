package verify

import (
	"time"

	"modwatch/internal/profile"
)

// MergeResults writes job results onto the matching takedown entries,
// keyed by listing id. Results for listings not on the takedown list
// are dropped. It returns how many entries were updated.
func MergeResults(p *profile.Profile, results []Result, at time.Time) int {
	updated := 0
	for _, res := range results {
		entry := p.DmcaEntryFor(res.ListingID)
		if entry == nil {
			continue
		}

		verification := &profile.VerificationResult{
			Verified:        res.Verified,
			MatchPercentage: res.MatchPercentage,
			MatchedFiles:    res.MatchedFiles,
			TotalFiles:      res.TotalFiles,
			TakenDown:       res.TakenDown,
			Error:           res.Error,
			VerifiedAt:      at,
		}
		if len(res.PerItem) > 0 {
			verification.PerItem = make(map[string]profile.ItemMatch, len(res.PerItem))
			for externalID, item := range res.PerItem {
				verification.PerItem[externalID] = profile.ItemMatch{
					MatchedFiles: item.MatchedFiles,
					TotalFiles:   item.TotalFiles,
					Percentage:   item.Percentage,
				}
			}
		}
		entry.Verification = verification

		if res.TakenDown && entry.TakenDownAt == nil {
			entry.TakenDownAt = &at
		}
		updated++
	}
	return updated
}

// Summary buckets verified entries by match confidence.
type Summary struct {
	High      int
	Medium    int
	Low       int
	None      int
	TakenDown int
}

// Summarize buckets every entry carrying a verification result. A
// match of 75% or more counts high, 50% medium, 25% low; listings the
// tool found already removed are counted separately.
func Summarize(p *profile.Profile) Summary {
	var s Summary
	for i := range p.Dmca {
		v := p.Dmca[i].Verification
		if v == nil {
			continue
		}
		switch {
		case v.TakenDown:
			s.TakenDown++
		case v.MatchPercentage >= 75:
			s.High++
		case v.MatchPercentage >= 50:
			s.Medium++
		case v.MatchPercentage >= 25:
			s.Low++
		default:
			s.None++
		}
	}
	return s
}
