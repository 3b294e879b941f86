// Package berlinstartupjobs fetches postings from the Berlin Startup
// Jobs board, including its per-skill listing pages.
package berlinstartupjobs

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchpilot/go-aggregator/internal/common/canonical"
	"github.com/matchpilot/go-aggregator/internal/common/reldate"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/source"
)

const baseURL = "https://berlinstartupjobs.com"

var nonWordPattern = regexp.MustCompile(`\W+`)

// Fetcher implements source.Fetcher for Berlin Startup Jobs.
type Fetcher struct {
	cfg source.Config
}

// NewFetcher creates a Berlin Startup Jobs fetcher.
func NewFetcher(cfg source.Config) *Fetcher {
	return &Fetcher{cfg: cfg.WithDefaults()}
}

func (f *Fetcher) Source() domain.JobSource {
	return domain.SourceBerlinStartupJobs
}

func (f *Fetcher) Fetch(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting
	tokens := keywordTokens(query.Keywords)

	for _, listURL := range candidateURLs(tokens) {
		for page := 1; page <= f.cfg.MaxPages; page++ {
			pageURL := listURL
			if page > 1 {
				pageURL = fmt.Sprintf("%s/page/%d/", strings.TrimRight(listURL, "/"), page)
			}
			body, err := f.cfg.Client.Get(ctx, pageURL, nil)
			if err != nil {
				break
			}
			if strings.Contains(strings.ToLower(body), "page not found") {
				break
			}

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
			if err != nil {
				break
			}
			cards := doc.Find("li.bjs-jlis, li.job_listing, article.job-listing, div.job-listing")
			if cards.Length() == 0 {
				break
			}

			cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
				posting := parseCard(card)
				if posting != nil && matchesTokens(posting, tokens) && query.Accepts(posting) {
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
		if len(postings) >= f.cfg.MaxJobs {
			break
		}
	}
	return postings, nil
}

// candidateURLs lists the front page, the engineering section, and a
// skill-area page per keyword token.
func candidateURLs(tokens []string) []string {
	urls := []string{baseURL + "/", baseURL + "/engineering/"}
	count := 0
	for _, token := range tokens {
		if len(token) <= 2 {
			continue
		}
		urls = append(urls, fmt.Sprintf("%s/skill-areas/%s/", baseURL, url.PathEscape(token)))
		count++
		if count == 3 {
			break
		}
	}
	return urls
}

func keywordTokens(keywords string) []string {
	var tokens []string
	for _, token := range nonWordPattern.Split(strings.ToLower(keywords), -1) {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func matchesTokens(posting *domain.JobPosting, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	haystack := strings.ToLower(posting.Title + " " + posting.Company + " " + posting.Description)
	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			return true
		}
	}
	return false
}

// parseCard extracts one posting from a board listing card.
func parseCard(card *goquery.Selection) *domain.JobPosting {
	link := card.Find("h4 a[href], h3 a[href], h2 a[href], a[href]").First()
	if link.Length() == 0 {
		return nil
	}
	title := strings.TrimSpace(card.Find("h4, h3, h2, .job_listing-title").First().Text())
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}
	if title == "" {
		return nil
	}

	href, _ := link.Attr("href")
	postingURL := canonical.NormalizeHref(href, baseURL)
	if postingURL == "" {
		return nil
	}

	externalID := lastPathSegment(postingURL)
	if externalID == "" {
		externalID = source.FallbackID(domain.SourceBerlinStartupJobs)
	}

	company := strings.TrimSpace(card.Find(".bjs-jlis__b, .company, .job_listing-company").First().Text())
	if company == "" {
		company = "Unknown"
	}
	location := strings.TrimSpace(card.Find(".location, .job_listing-location").First().Text())
	if location == "" {
		location = "Berlin, Germany"
	}
	description := strings.TrimSpace(card.Find(".job_listing-description, .excerpt, .bjs-jlis__featured, p").First().Text())

	posted := card.Find("time, .date").First()
	postedRaw, hasDatetime := posted.Attr("datetime")
	if !hasDatetime {
		postedRaw = strings.TrimSpace(posted.Text())
	}

	now := time.Now().UTC()
	posting := domain.JobPosting{
		Source:       domain.SourceBerlinStartupJobs,
		ExternalID:   externalID,
		Title:        title,
		Company:      company,
		Location:     location,
		Description:  description,
		Requirements: description,
		URL:          postingURL,
		PostedDate:   reldate.ResolvePtr(postedRaw, now),
		Keywords:     source.TextKeywords(title + " " + description),
	}
	source.Normalize(&posting, now)
	return &posting
}

func lastPathSegment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	return segments[len(segments)-1]
}
