// Package aggregate runs a search end to end: concurrent source
// fan-out, merge and dedup, persistence, scoring, filtering, ranking,
// and the result cache.
package aggregate

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/matchpilot/go-aggregator/internal/cache"
	"github.com/matchpilot/go-aggregator/internal/common/canonical"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/match"
	"github.com/matchpilot/go-aggregator/internal/queue"
	"github.com/matchpilot/go-aggregator/internal/source"
	"github.com/matchpilot/go-aggregator/internal/store"
)

// Options bound one search run.
type Options struct {
	// Individual timeout for each source fetch.
	SourceTimeout time.Duration
	// Postings older than this are excluded.
	MaxJobAge time.Duration
	// Postings scraped within this window form the top ranking tier.
	NewestWindow time.Duration
	// Cap for the stored-posting fallback.
	FallbackLimit int
	// Workers used for concurrent match scoring.
	ScoreWorkers int
}

func (o Options) withDefaults() Options {
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = 18 * time.Second
	}
	if o.MaxJobAge <= 0 {
		o.MaxJobAge = 21 * 24 * time.Hour
	}
	if o.NewestWindow <= 0 {
		o.NewestWindow = time.Hour
	}
	if o.FallbackLimit <= 0 {
		o.FallbackLimit = 50
	}
	if o.ScoreWorkers <= 0 {
		o.ScoreWorkers = 4
	}
	return o
}

// Result is one completed search.
type Result struct {
	Postings    []domain.JobPosting          `json:"jobs"`
	MatchScores map[int64]domain.MatchResult `json:"match_scores,omitempty"`
	SearchID    string                       `json:"search_id"`
	Cached      bool                         `json:"cached"`
}

// Orchestrator wires the pipeline together. Store is required; the
// cache gateway, search index, and publisher are optional and degrade
// to skipping their stage.
type Orchestrator struct {
	fetchers  map[domain.JobSource]source.Fetcher
	store     store.Store
	index     *store.ESIndex
	cache     cache.Gateway
	publisher *queue.Publisher
	matcher   *match.Matcher
	opts      Options
}

// New creates an orchestrator over the given fetchers.
func New(fetchers []source.Fetcher, st store.Store, opts Options) *Orchestrator {
	byName := make(map[domain.JobSource]source.Fetcher, len(fetchers))
	for _, f := range fetchers {
		byName[f.Source()] = f
	}
	return &Orchestrator{
		fetchers: byName,
		store:    st,
		matcher:  match.New(),
		opts:     opts.withDefaults(),
	}
}

// WithCache attaches a result cache gateway.
func (o *Orchestrator) WithCache(gateway cache.Gateway) *Orchestrator {
	o.cache = gateway
	return o
}

// WithIndex attaches the secondary search index used for fallback.
func (o *Orchestrator) WithIndex(index *store.ESIndex) *Orchestrator {
	o.index = index
	return o
}

// WithPublisher attaches the ingest queue publisher.
func (o *Orchestrator) WithPublisher(publisher *queue.Publisher) *Orchestrator {
	o.publisher = publisher
	return o
}

// Search runs the full pipeline for one query.
func (o *Orchestrator) Search(ctx context.Context, query domain.SearchQuery) (*Result, error) {
	now := time.Now().UTC()
	fingerprint := cache.QueryFingerprint(query)
	sources := o.requestedSources(query.Sources)

	postings, cached := o.fromCache(ctx, fingerprint, query.RequesterID, sources, now)
	if !cached {
		postings = o.scrape(ctx, query, sources, now)
		if len(postings) == 0 {
			postings = o.fallback(ctx, query, sources, now)
		}
	}

	result := &Result{SearchID: fingerprint, Cached: cached}
	if query.Resume != nil {
		result.MatchScores = o.scoreAll(query.Resume, postings)
	}

	postings = ApplyFilters(postings, query.Filters, now)
	if result.MatchScores != nil {
		surviving := make(map[int64]struct{}, len(postings))
		for i := range postings {
			surviving[postings[i].ID] = struct{}{}
		}
		for id := range result.MatchScores {
			if _, ok := surviving[id]; !ok {
				delete(result.MatchScores, id)
			}
		}
	}

	Rank(postings, o.opts.NewestWindow, now)
	result.Postings = postings

	if o.cache != nil && !cached {
		ids := make([]int64, 0, len(postings))
		for i := range postings {
			if postings[i].ID != 0 {
				ids = append(ids, postings[i].ID)
			}
		}
		entry := cache.Entry{
			JobIDs:           ids,
			RequesterID:      query.RequesterID,
			QueryDescription: cache.Describe(query),
		}
		if err := o.cache.Put(ctx, fingerprint, entry, 0); err != nil {
			log.Printf("[aggregate] cache put: %v", err)
		}
	}

	return result, nil
}

// requestedSources resolves the query's source list against the
// registered fetchers; an empty list means all of them.
func (o *Orchestrator) requestedSources(requested []domain.JobSource) []domain.JobSource {
	if len(requested) == 0 {
		var all []domain.JobSource
		for _, s := range domain.KnownSources() {
			if _, ok := o.fetchers[s]; ok {
				all = append(all, s)
			}
		}
		return all
	}
	var out []domain.JobSource
	for _, s := range requested {
		name := domain.JobSource(strings.TrimSpace(strings.ToLower(string(s))))
		if _, ok := o.fetchers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// fromCache resolves a cache hit through the store, dropping postings
// whose URL shape broke, that aged out, or that the caller excluded.
// Any problem degrades to a fresh scrape.
func (o *Orchestrator) fromCache(ctx context.Context, fingerprint string, requesterID int64, sources []domain.JobSource, now time.Time) ([]domain.JobPosting, bool) {
	if o.cache == nil {
		return nil, false
	}
	entry, err := o.cache.Get(ctx, fingerprint, requesterID)
	if err != nil {
		log.Printf("[aggregate] cache get: %v", err)
		return nil, false
	}
	if entry == nil || len(entry.JobIDs) == 0 {
		return nil, false
	}

	stored, err := o.store.ByIDs(ctx, entry.JobIDs)
	if err != nil {
		log.Printf("[aggregate] resolve cached ids: %v", err)
		return nil, false
	}

	allowed := sourceSet(sources)
	valid := make([]domain.JobPosting, 0, len(stored))
	for i := range stored {
		posting := &stored[i]
		if !canonical.IsValidPostingURL(posting.Source, posting.URL) {
			continue
		}
		if !isRecent(posting, o.opts.MaxJobAge, now) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[posting.Source]; !ok {
				continue
			}
		}
		valid = append(valid, *posting)
	}
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}

// scrape fans out to every requested source, joins completed results,
// and persists the merged set. A slow or failing source contributes
// nothing; it never sinks the run.
func (o *Orchestrator) scrape(ctx context.Context, query domain.SearchQuery, sources []domain.JobSource, now time.Time) []domain.JobPosting {
	if len(sources) == 0 {
		return nil
	}

	static := CompileStaticFilter(query.Filters, now)
	srcQuery := source.Query{Keywords: query.Keywords, Location: query.Location, Keep: static.Keep}
	results := make([][]domain.JobPosting, len(sources))

	var wg sync.WaitGroup
	for i, name := range sources {
		wg.Add(1)
		go func(i int, fetcher source.Fetcher) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, o.opts.SourceTimeout)
			defer cancel()

			postings, err := fetcher.Fetch(fetchCtx, srcQuery)
			if err != nil {
				log.Printf("[%s] fetch: %v", fetcher.Source(), err)
				return
			}
			// A timed-out source counts as empty; its partial pages
			// are discarded, not merged.
			if fetchCtx.Err() != nil {
				log.Printf("[%s] fetch timed out, dropping %d partial postings", fetcher.Source(), len(postings))
				return
			}
			log.Printf("[%s] fetched %d postings", fetcher.Source(), len(postings))
			results[i] = postings
		}(i, o.fetchers[name])
	}
	wg.Wait()

	var merged []domain.JobPosting
	for _, postings := range results {
		merged = append(merged, postings...)
	}
	merged = Dedup(merged)

	for i := range merged {
		finalize(&merged[i])
	}

	if len(merged) > 0 {
		if err := o.store.UpsertBatch(ctx, merged); err != nil {
			log.Printf("[aggregate] upsert batch: %v", err)
		}
		if o.publisher != nil {
			if err := o.publisher.PublishBatch(ctx, merged); err != nil {
				log.Printf("[aggregate] publish batch: %v", err)
			}
		}
	}

	valid := make([]domain.JobPosting, 0, len(merged))
	for i := range merged {
		posting := &merged[i]
		if !canonical.IsValidPostingURL(posting.Source, posting.URL) {
			continue
		}
		if !isRecent(posting, o.opts.MaxJobAge, now) {
			continue
		}
		valid = append(valid, *posting)
	}
	return valid
}

// fallback serves recently stored postings when a scrape comes back
// empty. The search index answers when attached; otherwise the
// primary store does.
func (o *Orchestrator) fallback(ctx context.Context, query domain.SearchQuery, sources []domain.JobSource, now time.Time) []domain.JobPosting {
	recent := store.RecentQuery{
		Tokens:  queryTokens(query.Keywords),
		City:    cityOf(query.Location),
		Sources: sources,
		Since:   now.Add(-o.opts.MaxJobAge),
		Limit:   o.opts.FallbackLimit,
	}

	var candidates []domain.JobPosting
	var err error
	if o.index != nil {
		candidates, err = o.index.Search(ctx, recent)
		if err != nil {
			log.Printf("[aggregate] index fallback: %v", err)
			candidates = nil
		}
	}
	if candidates == nil {
		candidates, err = o.store.RecentMatching(ctx, recent)
		if err != nil {
			log.Printf("[aggregate] store fallback: %v", err)
			return nil
		}
	}

	valid := make([]domain.JobPosting, 0, len(candidates))
	for i := range candidates {
		posting := &candidates[i]
		if !canonical.IsValidPostingURL(posting.Source, posting.URL) {
			continue
		}
		if !isRecent(posting, o.opts.MaxJobAge, now) {
			continue
		}
		valid = append(valid, *posting)
	}
	return valid
}

// scoreAll scores every posting against the résumé with a bounded
// worker pool and stamps each posting's match score.
func (o *Orchestrator) scoreAll(resume *domain.ResumeProfile, postings []domain.JobPosting) map[int64]domain.MatchResult {
	scores := make(map[int64]domain.MatchResult, len(postings))
	if len(postings) == 0 {
		return scores
	}

	workers := o.opts.ScoreWorkers
	if workers > len(postings) {
		workers = len(postings)
	}

	indexes := make(chan int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				result := o.matcher.Score(resume, &postings[i])
				score := result.Score
				postings[i].MatchScore = &score

				// Postings without a store ID would all collide on
				// key 0; their score lives on the posting only.
				if postings[i].ID == 0 {
					continue
				}
				mu.Lock()
				scores[postings[i].ID] = result
				mu.Unlock()
			}
		}()
	}
	for i := range postings {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return scores
}

func sourceSet(sources []domain.JobSource) map[domain.JobSource]struct{} {
	set := make(map[domain.JobSource]struct{}, len(sources))
	for _, s := range sources {
		set[s] = struct{}{}
	}
	return set
}

func queryTokens(keywords string) []string {
	var tokens []string
	for _, token := range strings.Fields(strings.ToLower(keywords)) {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func cityOf(location string) string {
	return strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
}
