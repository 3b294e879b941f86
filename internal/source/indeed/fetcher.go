// Package indeed fetches postings from Indeed's public search pages,
// with a search-index fallback for when the listing pages are gated.
package indeed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/matchpilot/go-aggregator/internal/common/canonical"
	"github.com/matchpilot/go-aggregator/internal/common/fetch"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/source"
)

const pageSize = 10

var baseURLs = []string{"https://de.indeed.com", "https://www.indeed.com"}

// Fetcher implements source.Fetcher for Indeed.
type Fetcher struct {
	cfg source.Config
}

// NewFetcher creates an Indeed fetcher.
func NewFetcher(cfg source.Config) *Fetcher {
	return &Fetcher{cfg: cfg.WithDefaults()}
}

func (f *Fetcher) Source() domain.JobSource {
	return domain.SourceIndeed
}

// Fetch tries the listing pages first and falls back to a DuckDuckGo
// site-search once when the primary yields nothing usable.
func (f *Fetcher) Fetch(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	return source.RunChain(ctx, query, f.scrapeWeb, f.scrapeSearchIndex)
}

func (f *Fetcher) scrapeWeb(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting
	q := url.QueryEscape(query.Keywords)
	city := url.QueryEscape(query.Location)

	for _, baseURL := range baseURLs {
		for page := 0; page < f.cfg.MaxPages; page++ {
			pageURL := fmt.Sprintf("%s/jobs?q=%s&l=%s&sort=date&start=%d", baseURL, q, city, page*pageSize)
			body, err := f.cfg.Client.Get(ctx, pageURL, nil)
			if err != nil {
				if errors.Is(err, fetch.ErrChallenge) {
					log.Printf("[indeed] challenge page on %s, stopping pagination", baseURL)
				}
				break
			}

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
			if err != nil {
				break
			}
			cards := collectCards(doc)
			if cards.Length() == 0 {
				break
			}

			cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
				if posting := parseCard(card, baseURL); posting != nil && query.Accepts(posting) {
					postings = append(postings, *posting)
				}
				return len(postings) < f.cfg.MaxJobs
			})

			if len(postings) >= f.cfg.MaxJobs {
				break
			}
			if err := source.Sleep(ctx, f.cfg.RequestDelay); err != nil {
				return postings, nil
			}
		}
		if len(postings) > 0 {
			break
		}
	}
	return postings, nil
}

// scrapeSearchIndex queries DuckDuckGo for indexed viewjob links. It is
// the one bounded fallback; it never recurses into scrapeWeb.
func (f *Fetcher) scrapeSearchIndex(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting
	seen := make(map[string]struct{})
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	collector := colly.NewCollector(
		colly.UserAgent(f.cfg.Client.UserAgent()),
		colly.AllowURLRevisit(),
	)
	collector.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      f.cfg.RequestDelay,
	})

	collector.OnHTML(".result", func(el *colly.HTMLElement) {
		if len(postings) >= f.cfg.MaxJobs {
			return
		}
		link := el.DOM.Find("a.result__a[href], h2.result__title a[href], a[href]").First()
		href, _ := link.Attr("href")
		resolved := resolveSearchResultURL(href)
		if !strings.Contains(strings.ToLower(resolved), "indeed.") {
			return
		}

		jobID := canonical.IndeedJobID(resolved)
		canonicalURL := resolved
		if jobID != "" {
			canonicalURL = "https://de.indeed.com/viewjob?jk=" + jobID
		}
		uniqueKey := jobID
		if uniqueKey == "" {
			uniqueKey = canonicalURL
		}
		if _, dup := seen[uniqueKey]; uniqueKey == "" || dup {
			return
		}
		seen[uniqueKey] = struct{}{}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		snippet := strings.TrimSpace(el.DOM.Find(".result__snippet").Text())
		if jobID == "" {
			jobID = source.FallbackID(domain.SourceIndeed)
		}

		location := query.Location
		if location == "" {
			location = "Germany"
		}
		posting := domain.JobPosting{
			Source:       domain.SourceIndeed,
			ExternalID:   jobID,
			Title:        title,
			Company:      "Unknown",
			Location:     location,
			Description:  snippet,
			Requirements: snippet,
			URL:          canonicalURL,
			PostedDate:   &today,
			Keywords:     source.TextKeywords(title + " " + snippet),
		}
		source.Normalize(&posting, now)
		if !query.Accepts(&posting) {
			return
		}
		postings = append(postings, posting)
	})

	maxPages := f.cfg.MaxPages
	if maxPages > 2 {
		maxPages = 2
	}
	for page := 0; page < maxPages; page++ {
		if ctx.Err() != nil {
			return postings, nil
		}
		searchURL := fmt.Sprintf(
			"https://duckduckgo.com/html/?q=%s&s=%d",
			url.QueryEscape(fmt.Sprintf("site:de.indeed.com/viewjob %s %s", query.Keywords, query.Location)),
			page*30,
		)
		if err := collector.Visit(searchURL); err != nil {
			break
		}
		if len(postings) >= f.cfg.MaxJobs {
			break
		}
	}
	return postings, nil
}

func resolveSearchResultURL(href string) string {
	normalized := canonical.NormalizeHref(href, "https://duckduckgo.com")
	parsed, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return normalized
}
