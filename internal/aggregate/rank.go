package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// rankKey orders postings: just-scraped postings first, then newest
// posted date, then newest scrape time, then highest store ID.
type rankKey struct {
	newestTier  int
	postedRank  int64
	scrapedRank int64
	id          int64
}

func keyFor(posting *domain.JobPosting, newestWindow time.Duration, now time.Time) rankKey {
	key := rankKey{id: posting.ID}
	if !posting.ScrapedAt.IsZero() {
		key.scrapedRank = posting.ScrapedAt.Unix()
		if !posting.ScrapedAt.Before(now.Add(-newestWindow)) {
			key.newestTier = 1
		}
	}
	if posting.PostedDate != nil {
		key.postedRank = posting.PostedDate.Unix() / 86400
	}
	return key
}

func (a rankKey) less(b rankKey) bool {
	if a.newestTier != b.newestTier {
		return a.newestTier > b.newestTier
	}
	if a.postedRank != b.postedRank {
		return a.postedRank > b.postedRank
	}
	if a.scrapedRank != b.scrapedRank {
		return a.scrapedRank > b.scrapedRank
	}
	return a.id > b.id
}

// Rank sorts postings in place, most relevant first.
func Rank(postings []domain.JobPosting, newestWindow time.Duration, now time.Time) {
	sort.SliceStable(postings, func(i, j int) bool {
		return keyFor(&postings[i], newestWindow, now).less(keyFor(&postings[j], newestWindow, now))
	})
}

// Dedup removes postings sharing a lowercase title, company, and
// location, keeping first-seen order. The key is a deliberate fuzzy
// identity: the same opening scraped from two boards collapses even
// when their external IDs differ.
func Dedup(postings []domain.JobPosting) []domain.JobPosting {
	seen := make(map[string]struct{}, len(postings))
	out := make([]domain.JobPosting, 0, len(postings))
	for i := range postings {
		key := dedupKey(&postings[i])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, postings[i])
	}
	return out
}

func dedupKey(posting *domain.JobPosting) string {
	return lowerTrim(posting.Title) + "::" + lowerTrim(posting.Company) + "::" + lowerTrim(posting.Location)
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
