package stepstone

import (
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchpilot/go-aggregator/internal/common/canonical"
	"github.com/matchpilot/go-aggregator/internal/common/reldate"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/source"
)

// parseCard extracts one posting from a Stepstone result card.
func parseCard(card *goquery.Selection, defaultLocation string) *domain.JobPosting {
	card.Find("style, script").Remove()

	titleLink := card.Find("a[data-testid='job-item-title'][href]").First()
	title := titleLink
	if title.Length() == 0 {
		title = card.Find("h2, h3").First()
	}
	link := titleLink
	if link.Length() == 0 {
		link = pickJobLink(card)
	}
	if title.Length() == 0 || link == nil || link.Length() == 0 {
		return nil
	}

	href, _ := link.Attr("href")
	postingURL := canonical.NormalizeHref(href, "https://www.stepstone.de")
	if postingURL == "" {
		return nil
	}

	titleText := html.UnescapeString(strings.Join(strings.Fields(title.Text()), " "))
	if titleText == "" {
		return nil
	}

	snippet := card.Find("[data-at='job-item-teaser'], [data-at='job-item-description']").First()
	if snippet.Length() == 0 {
		snippet = card.Find("p").First()
	}
	description := html.UnescapeString(strings.TrimSpace(snippet.Text()))

	company := strings.TrimSpace(card.Find("[data-at='job-item-company-name']").First().Text())
	if company == "" {
		company = "Unknown"
	}
	location := strings.TrimSpace(card.Find("[data-at='job-item-location']").First().Text())
	if location == "" {
		location = defaultLocation
		if location == "" {
			location = "Germany"
		}
	}

	posted := card.Find("time").First()
	postedRaw, hasDatetime := posted.Attr("datetime")
	if !hasDatetime {
		postedRaw = strings.TrimSpace(posted.Text())
		if postedRaw == "" {
			postedRaw = "today"
		}
	}

	externalID := canonical.StepstoneExternalID(postingURL)
	if externalID == "" {
		externalID, _ = link.Attr("data-genesis-element")
	}
	if externalID == "" {
		externalID = source.FallbackID(domain.SourceStepstone)
	}

	now := time.Now().UTC()
	postedDate := reldate.ResolvePtr(postedRaw, now)
	if postedDate == nil {
		today := now.Truncate(24 * time.Hour)
		postedDate = &today
	}

	posting := domain.JobPosting{
		Source:       domain.SourceStepstone,
		ExternalID:   externalID,
		Title:        titleText,
		Company:      company,
		Location:     location,
		Description:  description,
		Requirements: description,
		URL:          postingURL,
		PostedDate:   postedDate,
		Keywords:     source.TextKeywords(titleText + " " + description),
	}
	source.Normalize(&posting, now)
	return &posting
}

// pickJobLink prefers anchors that point at detail pages over the
// tracking links Stepstone scatters through a card.
func pickJobLink(card *goquery.Selection) *goquery.Selection {
	anchors := card.Find("a[href]")
	if anchors.Length() == 0 {
		return nil
	}
	var preferred *goquery.Selection
	anchors.EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, _ := anchor.Attr("href")
		lower := strings.ToLower(href)
		if strings.Contains(lower, "/stellenangebote") || strings.Contains(lower, "/job/") {
			preferred = anchor
			return false
		}
		return true
	})
	if preferred != nil {
		return preferred
	}
	return anchors.First()
}
