// Package stepstone fetches postings from Stepstone search pages. The
// primary strategy is a plain HTTP fetch; a colly-based variant serves
// as the fallback when the primary yields nothing.
package stepstone

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/matchpilot/go-aggregator/internal/common/fetch"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/source"
)

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Fetcher implements source.Fetcher for Stepstone.
type Fetcher struct {
	cfg source.Config
}

// NewFetcher creates a Stepstone fetcher.
func NewFetcher(cfg source.Config) *Fetcher {
	return &Fetcher{cfg: cfg.WithDefaults()}
}

func (f *Fetcher) Source() domain.JobSource {
	return domain.SourceStepstone
}

func (f *Fetcher) Fetch(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	return source.RunChain(ctx, query, f.scrapeWeb, f.scrapeColly)
}

func (f *Fetcher) scrapeWeb(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting
	slug := slugForPath(query.Keywords)

	for page := 1; page <= f.cfg.MaxPages; page++ {
		// The slug URL is preferred; the escaped form covers keyword
		// strings that slugify to nothing useful.
		candidates := []string{
			fmt.Sprintf("https://www.stepstone.de/jobs/%s?where=%s&page=%d&sort=2", slug, url.QueryEscape(query.Location), page),
			fmt.Sprintf("https://www.stepstone.de/jobs/%s?where=%s&page=%d&sort=2", url.QueryEscape(query.Keywords), url.QueryEscape(query.Location), page),
		}
		var body string
		var fetchErr error
		for _, candidate := range candidates {
			body, fetchErr = f.cfg.Client.Get(ctx, candidate, nil)
			if fetchErr == nil {
				break
			}
			if errors.Is(fetchErr, fetch.ErrChallenge) {
				log.Printf("[stepstone] challenge page, stopping pagination")
				return postings, nil
			}
		}
		if fetchErr != nil {
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			break
		}
		cards := doc.Find("article[data-testid='job-item']")
		if cards.Length() == 0 {
			cards = doc.Find("article")
		}
		if cards.Length() == 0 {
			break
		}

		parsedOnPage := 0
		cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
			if posting := parseCard(card, query.Location); posting != nil {
				parsedOnPage++
				if query.Accepts(posting) {
					postings = append(postings, *posting)
				}
			}
			return len(postings) < f.cfg.MaxJobs
		})

		if len(postings) >= f.cfg.MaxJobs {
			break
		}
		if page == 1 && parsedOnPage == 0 {
			break
		}
		if err := source.Sleep(ctx, f.cfg.RequestDelay); err != nil {
			return postings, nil
		}
	}
	return postings, nil
}

// scrapeColly revisits the search pages through a colly collector with
// its own rate limiting. It stands in for a browser-automation variant:
// the plain HTTP strategy is always preferred, and nothing hard-fails
// when no automation engine is available.
func (f *Fetcher) scrapeColly(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting
	slug := slugForPath(query.Keywords)

	collector := colly.NewCollector(
		colly.UserAgent(f.cfg.Client.UserAgent()),
		colly.AllowURLRevisit(),
	)
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       f.cfg.RequestDelay,
		RandomDelay: f.cfg.RequestDelay / 2,
	})

	pageHadCards := false
	collector.OnHTML("article", func(el *colly.HTMLElement) {
		pageHadCards = true
		if len(postings) >= f.cfg.MaxJobs {
			return
		}
		if posting := parseCard(el.DOM, query.Location); posting != nil && query.Accepts(posting) {
			postings = append(postings, *posting)
		}
	})

	for page := 1; page <= f.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			return postings, nil
		}
		pageHadCards = false
		searchURL := fmt.Sprintf("https://www.stepstone.de/jobs/%s?where=%s&page=%d&sort=2",
			slug, url.QueryEscape(query.Location), page)
		if err := collector.Visit(searchURL); err != nil {
			break
		}
		if !pageHadCards || len(postings) >= f.cfg.MaxJobs {
			break
		}
	}
	return postings, nil
}

func slugForPath(value string) string {
	slug := strings.ToLower(strings.Trim(slugPattern.ReplaceAllString(strings.TrimSpace(value), "-"), "-"))
	if slug == "" {
		return url.QueryEscape(value)
	}
	return slug
}
