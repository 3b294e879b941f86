// Package linkedin fetches postings from LinkedIn's guest jobs API.
package linkedin

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchpilot/go-aggregator/internal/common/canonical"
	"github.com/matchpilot/go-aggregator/internal/common/reldate"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/source"
)

const (
	guestSearchURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	pageSize       = 25
)

// Fetcher implements source.Fetcher for LinkedIn guest search.
type Fetcher struct {
	cfg source.Config
}

// NewFetcher creates a LinkedIn fetcher.
func NewFetcher(cfg source.Config) *Fetcher {
	return &Fetcher{cfg: cfg.WithDefaults()}
}

func (f *Fetcher) Source() domain.JobSource {
	return domain.SourceLinkedIn
}

func (f *Fetcher) Fetch(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting

	for page := 0; page < f.cfg.MaxPages; page++ {
		pageURL := fmt.Sprintf("%s?keywords=%s&location=%s&start=%d",
			guestSearchURL, url.QueryEscape(query.Keywords), url.QueryEscape(query.Location), page*pageSize)
		body, err := f.cfg.Client.Get(ctx, pageURL, nil)
		if err != nil {
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			break
		}
		cards := doc.Find("li")
		if cards.Length() == 0 {
			break
		}

		cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
			if posting := parseCard(card); posting != nil && query.Accepts(posting) {
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
	return postings, nil
}

// parseCard extracts one posting from a guest-search result card.
func parseCard(card *goquery.Selection) *domain.JobPosting {
	title := card.Find("h3.base-search-card__title, h3.base-card__title").First()
	if title.Length() == 0 {
		title = card.Find("h3").First()
	}
	link := card.Find("a.base-card__full-link[href], a.base-card__link[href]").First()
	if link.Length() == 0 {
		link = card.Find("a[href]").First()
	}
	if title.Length() == 0 || link.Length() == 0 {
		return nil
	}

	href, _ := link.Attr("href")
	postingURL := canonical.NormalizeHref(href, "https://www.linkedin.com")
	jobID := canonical.LinkedInJobID(postingURL)
	if jobID != "" {
		postingURL = "https://www.linkedin.com/jobs/view/" + jobID + "/"
	}

	titleText := strings.TrimSpace(title.Text())
	if titleText == "" {
		return nil
	}
	company := strings.TrimSpace(card.Find("h4.base-search-card__subtitle, h4.base-card__subtitle").First().Text())
	if company == "" {
		company = strings.TrimSpace(card.Find("h4").First().Text())
	}
	if company == "" {
		company = "Unknown"
	}
	location := strings.TrimSpace(card.Find("span.job-search-card__location").First().Text())
	if location == "" {
		location = "Unknown"
	}

	posted := card.Find("time").First()
	postedRaw, hasDatetime := posted.Attr("datetime")
	if !hasDatetime {
		postedRaw = strings.TrimSpace(posted.Text())
	}

	externalID := jobID
	if externalID == "" {
		externalID = source.FallbackID(domain.SourceLinkedIn)
	}

	// Guest cards carry no snippet; keywords come from the header text.
	baseText := titleText + " " + company + " " + location

	now := time.Now().UTC()
	posting := domain.JobPosting{
		Source:     domain.SourceLinkedIn,
		ExternalID: externalID,
		Title:      titleText,
		Company:    company,
		Location:   location,
		URL:        postingURL,
		PostedDate: reldate.ResolvePtr(postedRaw, now),
		Keywords:   source.TextKeywords(baseText),
	}
	source.Normalize(&posting, now)
	return &posting
}
