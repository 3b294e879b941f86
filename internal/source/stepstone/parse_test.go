package stepstone

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

const cardHTML = `
<article data-testid="job-item">
  <style>.x{color:red}</style>
  <a data-testid="job-item-title" href="/job/13610749">Data Engineer (m/w/d)</a>
  <span data-at="job-item-company-name">Acme Analytics</span>
  <span data-at="job-item-location">Berlin</span>
  <p data-at="job-item-teaser">Design ETL pipelines with Python and Airflow</p>
  <time datetime="2024-06-10">vor 5 Tagen</time>
</article>`

func loadCard(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	card := doc.Find("article").First()
	require.Equal(t, 1, card.Length())
	return card
}

func TestParseCard(t *testing.T) {
	posting := parseCard(loadCard(t, cardHTML), "Berlin, Germany")
	require.NotNil(t, posting)

	assert.Equal(t, domain.SourceStepstone, posting.Source)
	assert.Equal(t, "13610749", posting.ExternalID)
	assert.Equal(t, "Data Engineer (m/w/d)", posting.Title)
	assert.Equal(t, "Acme Analytics", posting.Company)
	assert.Equal(t, "Berlin", posting.Location)
	assert.Equal(t, "https://www.stepstone.de/job/13610749", posting.URL)
	assert.Contains(t, posting.Description, "ETL")
	require.NotNil(t, posting.PostedDate)
	assert.Equal(t, "2024-06-10", posting.PostedDate.Format("2006-01-02"))
}

func TestParseCardPrefersDetailLink(t *testing.T) {
	html := `
	<article>
	  <a href="/cmp/de/acme">Company profile</a>
	  <h2>Backend Developer</h2>
	  <a href="/stellenangebote--Backend-Developer--9876.html">Details</a>
	</article>`
	posting := parseCard(loadCard(t, html), "")
	require.NotNil(t, posting)

	assert.Equal(t, "https://www.stepstone.de/stellenangebote--Backend-Developer--9876.html", posting.URL)
	assert.Equal(t, "9876", posting.ExternalID)
	assert.Equal(t, "Backend Developer", posting.Title)
	// No location on the card and no default falls back to Germany.
	assert.Equal(t, "Germany", posting.Location)
}

func TestParseCardDefaultsPostedDateToToday(t *testing.T) {
	html := `
	<article>
	  <a data-testid="job-item-title" href="/job/42">Engineer</a>
	</article>`
	posting := parseCard(loadCard(t, html), "")
	require.NotNil(t, posting)
	require.NotNil(t, posting.PostedDate)
}

func TestParseCardNoTitleReturnsNil(t *testing.T) {
	html := `<article><span data-at="job-item-company-name">Acme</span></article>`
	assert.Nil(t, parseCard(loadCard(t, html), ""))
}

func TestSlugForPath(t *testing.T) {
	assert.Equal(t, "data-engineer", slugForPath("Data Engineer"))
	assert.Equal(t, "go-backend-entwickler", slugForPath("  Go / Backend-Entwickler "))
}
