// Package store persists postings. Postgres is the primary store;
// Elasticsearch is a secondary search index fed by the worker.
package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// RecentQuery selects recently seen postings for the fallback path.
type RecentQuery struct {
	// Tokens are matched loosely against title, description, and
	// requirements; a posting qualifies when any token appears.
	Tokens  []string
	City    string
	Sources []domain.JobSource
	Since   time.Time
	Limit   int
}

// Store is the posting persistence contract.
type Store interface {
	// Upsert inserts or refreshes a posting keyed (source, external_id)
	// and fills in its store ID.
	Upsert(ctx context.Context, posting *domain.JobPosting) error
	// UpsertBatch upserts postings in one transaction, filling IDs.
	UpsertBatch(ctx context.Context, postings []domain.JobPosting) error
	// ByIDs loads postings preserving the requested ID order. Missing
	// IDs are skipped, not errors.
	ByIDs(ctx context.Context, ids []int64) ([]domain.JobPosting, error)
	// RecentMatching returns stored postings matching the query,
	// ranked by how many tokens each posting contains.
	RecentMatching(ctx context.Context, query RecentQuery) ([]domain.JobPosting, error)
	Close() error
}

// RankByTokenHits orders candidates by descending count of tokens
// found in their text, dropping zero-hit postings. With no tokens the
// candidates pass through capped at limit.
func RankByTokenHits(candidates []domain.JobPosting, tokens []string, limit int) []domain.JobPosting {
	if limit <= 0 {
		limit = 20
	}
	if len(tokens) == 0 {
		if len(candidates) > limit {
			return candidates[:limit]
		}
		return candidates
	}

	type scored struct {
		hits    int
		posting domain.JobPosting
	}
	var ranked []scored
	for _, posting := range candidates {
		haystack := strings.ToLower(posting.Title + " " + posting.Description + " " + posting.Requirements)
		hits := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				hits++
			}
		}
		if hits > 0 {
			ranked = append(ranked, scored{hits: hits, posting: posting})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].hits > ranked[j].hits
	})

	out := make([]domain.JobPosting, 0, limit)
	for _, s := range ranked {
		out = append(out, s.posting)
		if len(out) == limit {
			break
		}
	}
	return out
}
