// Package cache stores recent search results keyed by a fingerprint of
// the normalized query.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// Entry is one cached search result. It stores posting IDs rather than
// postings so a hit re-reads current rows from the store, plus who
// asked and a human-readable rendering of the query.
type Entry struct {
	JobIDs           []int64   `json:"job_ids"`
	RequesterID      int64     `json:"requester_id,omitempty"`
	QueryDescription string    `json:"query_description,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// MatchesRequester guards a looked-up entry against the requester it
// was stored for. Zero on either side means unscoped.
func (e *Entry) MatchesRequester(requesterID int64) bool {
	return e.RequesterID == 0 || requesterID == 0 || e.RequesterID == requesterID
}

// Gateway is the result cache contract. Get returns (nil, nil) on a
// miss; an expired entry or a requester mismatch is a miss. Put stores
// an entry; a non-positive ttl uses the gateway default.
type Gateway interface {
	Get(ctx context.Context, fingerprint string, requesterID int64) (*Entry, error)
	Put(ctx context.Context, fingerprint string, entry Entry, ttl time.Duration) error
}

// Describe renders a query as the stored human-readable description.
func Describe(query domain.SearchQuery) string {
	desc := strings.TrimSpace(query.Keywords)
	if location := strings.TrimSpace(query.Location); location != "" {
		desc += " in " + location
	}
	return desc
}

// QueryFingerprint hashes the parts of a query that determine its
// results. Source order and field casing never change the fingerprint.
func QueryFingerprint(query domain.SearchQuery) string {
	sources := make([]string, 0, len(query.Sources))
	for _, s := range query.Sources {
		sources = append(sources, string(s))
	}
	sort.Strings(sources)

	parts := []string{
		strings.ToLower(strings.TrimSpace(query.Keywords)),
		strings.ToLower(strings.TrimSpace(query.Location)),
		strings.Join(sources, ","),
		strconv.FormatInt(query.RequesterID, 10),
		filterKey(query.Filters),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// filterKey flattens a FilterSet into a stable string.
func filterKey(filters domain.FilterSet) string {
	modes := append([]string(nil), filters.WorkModes...)
	sort.Strings(modes)
	levels := append([]string(nil), filters.ExperienceLevels...)
	sort.Strings(levels)
	relevancy := append([]string(nil), filters.Relevancy...)
	sort.Strings(relevancy)

	parts := []string{
		strconv.Itoa(filters.SalaryMin),
		strings.ToLower(strings.TrimSpace(filters.LocationContains)),
		strings.Join(modes, ","),
		strings.Join(levels, ","),
		strings.ToLower(strings.TrimSpace(filters.DatePosted)),
		intPtrKey(filters.MatchPercentageMin),
		intPtrKey(filters.MatchPercentageMax),
		strings.Join(relevancy, ","),
	}
	return strings.Join(parts, ";")
}

func intPtrKey(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
