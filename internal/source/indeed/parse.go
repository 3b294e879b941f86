package indeed

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchpilot/go-aggregator/internal/common/canonical"
	"github.com/matchpilot/go-aggregator/internal/common/reldate"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/source"
)

const cardSelector = "div.job_seen_beacon, div.cardOutline, div.jobsearch-SerpJobCard"

// collectCards finds result cards across the templates Indeed serves.
// The anchor-only selectors cover newer templates that drop the card
// container.
func collectCards(doc *goquery.Document) *goquery.Selection {
	cards := doc.Find(cardSelector)
	if cards.Length() > 0 {
		return cards
	}
	return doc.Find("a.tapItem[href], a.jcs-JobTitle[href], h2.jobTitle a[href], a[data-jk][href]")
}

// parseCard extracts one posting from a result card or a bare title
// anchor. Returns nil when no usable title/link pair exists.
func parseCard(card *goquery.Selection, baseURL string) *domain.JobPosting {
	container := card
	var link *goquery.Selection

	if goquery.NodeName(card) == "a" {
		link = card
		parent := card.Closest(cardSelector)
		if parent.Length() == 0 {
			parent = card.Closest("li")
		}
		if parent.Length() > 0 {
			container = parent
		}
	}

	title := container.Find("h2.jobTitle").First()
	if link == nil {
		link = container.Find("a[data-jk][href]").First()
		if link.Length() == 0 {
			link = container.Find("a.jcs-JobTitle[href], a.tapItem[href]").First()
		}
		if link.Length() == 0 && title.Length() > 0 {
			link = title.Find("a[href]").First()
		}
		if link.Length() == 0 {
			link = container.Find("a[href]").First()
		}
	}
	if link.Length() == 0 {
		return nil
	}

	titleText := strings.TrimSpace(title.Text())
	if titleText == "" {
		titleText = strings.TrimSpace(link.Text())
	}
	if titleText == "" {
		return nil
	}

	jobID, ok := container.Attr("data-jk")
	if !ok || jobID == "" {
		jobID, _ = link.Attr("data-jk")
	}
	href, _ := link.Attr("href")
	if jobID == "" {
		jobID = canonical.IndeedJobID(href)
	}

	postingURL := canonical.NormalizeHref(href, baseURL)
	if postingURL == "" && jobID != "" {
		postingURL = "https://de.indeed.com/viewjob?jk=" + jobID
	}
	if jobID != "" && !strings.Contains(postingURL, "viewjob") &&
		!strings.Contains(postingURL, "rc/clk") && !strings.Contains(postingURL, "pagead/clk") {
		postingURL = "https://de.indeed.com/viewjob?jk=" + jobID
	}

	company := strings.TrimSpace(container.Find("span[data-testid='company-name'], span.companyName").First().Text())
	if company == "" {
		company = "Unknown"
	}
	location := strings.TrimSpace(container.Find("div[data-testid='text-location'], div.companyLocation").First().Text())
	if location == "" {
		location = "Unknown"
	}
	description := strings.Join(strings.Fields(container.Find("div.job-snippet, ul").First().Text()), " ")

	posted := container.Find("span.date, time").First()
	postedRaw, hasDatetime := posted.Attr("datetime")
	if !hasDatetime {
		postedRaw = strings.TrimSpace(posted.Text())
		if postedRaw == "" {
			postedRaw = "heute"
		}
	}

	if jobID == "" {
		jobID = source.FallbackID(domain.SourceIndeed)
	}

	now := time.Now().UTC()
	posting := domain.JobPosting{
		Source:       domain.SourceIndeed,
		ExternalID:   jobID,
		Title:        titleText,
		Company:      company,
		Location:     location,
		Description:  description,
		Requirements: description,
		URL:          postingURL,
		PostedDate:   reldate.ResolvePtr(postedRaw, now),
		Keywords:     source.TextKeywords(description),
	}
	source.Normalize(&posting, now)
	return &posting
}
