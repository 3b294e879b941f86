// Package source defines the contract every listing-site fetcher
// implements and the shared plumbing between them. Adding a source
// means adding one subpackage; the orchestrator is never touched.
package source

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/matchpilot/go-aggregator/internal/common/canonical"
	"github.com/matchpilot/go-aggregator/internal/common/cleaner"
	"github.com/matchpilot/go-aggregator/internal/common/fetch"
	"github.com/matchpilot/go-aggregator/internal/common/textkit"
	"github.com/matchpilot/go-aggregator/internal/domain"
)

// Field caps applied to every extracted posting.
const (
	MaxTitleLen        = 500
	MaxShortFieldLen   = 255
	MaxDescriptionLen  = 2000
	MaxRequirementsLen = 1000
	MaxURLLen          = 1000
)

// Query carries the caller's search terms into a fetcher. Fetchers use
// it for request construction, loose keyword gating, and the optional
// item gate; the orchestrator owns final filtering.
type Query struct {
	Keywords string
	Location string
	// Keep gates extracted items during pagination so the per-source
	// cap counts only postings the caller will retain. Nil accepts
	// everything.
	Keep func(posting *domain.JobPosting) bool
}

// Accepts applies the optional item gate.
func (q Query) Accepts(posting *domain.JobPosting) bool {
	return q.Keep == nil || q.Keep(posting)
}

// Fetcher produces raw extracted postings for one listing site.
// Implementations own their pagination, request construction, and
// HTML/JSON parsing. A fetcher failure degrades to zero items; it must
// never abort other sources.
type Fetcher interface {
	Fetch(ctx context.Context, query Query) ([]domain.JobPosting, error)
	Source() domain.JobSource
}

// Config holds the knobs shared by all fetchers.
type Config struct {
	MaxPages     int
	MaxJobs      int
	RequestDelay time.Duration
	Client       *fetch.Client
	Cleaner      *cleaner.Cleaner
}

// WithDefaults fills zero values with the usual bounds.
func (c Config) WithDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	if c.MaxJobs <= 0 {
		c.MaxJobs = 120
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = 1200 * time.Millisecond
	}
	if c.Client == nil {
		c.Client = fetch.NewClient(fetch.Config{})
	}
	if c.Cleaner == nil {
		c.Cleaner = cleaner.New()
	}
	return c
}

// Strategy is one way of producing postings for a source.
type Strategy func(ctx context.Context, query Query) ([]domain.JobPosting, error)

// RunChain tries strategies in order and returns the first non-empty
// result. The chain is a flat bounded list, never recursive, so every
// fallback stays independently inspectable and testable.
func RunChain(ctx context.Context, query Query, strategies ...Strategy) ([]domain.JobPosting, error) {
	var lastErr error
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		postings, err := strategy(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		if len(postings) > 0 {
			return postings, nil
		}
	}
	return nil, lastErr
}

// Normalize applies the shared finishing pass to an extracted posting:
// field truncation, keyword dedup, canonical URL derivation, and the
// scrape timestamp. Fetchers call it once per posting before returning.
func Normalize(p *domain.JobPosting, now time.Time) {
	p.Title = textkit.Truncate(p.Title, MaxTitleLen)
	p.Company = textkit.Truncate(p.Company, MaxShortFieldLen)
	p.Location = textkit.Truncate(p.Location, MaxShortFieldLen)
	p.Description = textkit.Truncate(p.Description, MaxDescriptionLen)
	p.Requirements = textkit.Truncate(p.Requirements, MaxRequirementsLen)
	p.ExternalID = textkit.Truncate(p.ExternalID, MaxShortFieldLen)
	p.Keywords = textkit.UniqueLower(p.Keywords)
	p.URL = textkit.Truncate(canonical.Canonicalize(p.Source, p.URL, p.ExternalID), MaxURLLen)
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = now
	}
}

// Sleep waits out the fixed inter-page delay unless the context ends
// first. The delay is a politeness throttle, not a correctness need.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// FallbackID synthesizes a source-scoped identifier for postings that
// expose none. Identity then rests on the fuzzy dedup key alone.
func FallbackID(s domain.JobSource) string {
	return fmt.Sprintf("%s-%d", s, 1000+rand.Intn(9000))
}

// TextKeywords builds a posting's keyword set from skills plus the
// most frequent free-text tokens, the way every fetcher does it.
func TextKeywords(text string, extra ...string) []string {
	keywords := append([]string{}, extra...)
	keywords = append(keywords, textkit.ExtractSkills(text)...)
	keywords = append(keywords, textkit.Keywords(text, 10)...)
	return textkit.UniqueLower(keywords)
}
