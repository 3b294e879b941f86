package indeed

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

const resultPage = `
<html><body>
<div class="job_seen_beacon" data-jk="a1b2c3d4e5f6">
  <h2 class="jobTitle"><a href="/viewjob?jk=a1b2c3d4e5f6">Senior Python Engineer</a></h2>
  <span data-testid="company-name">Acme GmbH</span>
  <div data-testid="text-location">Berlin</div>
  <div class="job-snippet">Build data pipelines with Python and SQL</div>
  <span class="date">vor 2 Tagen</span>
</div>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a data-jk="ffeeddccbbaa" href="/rc/clk?jk=ffeeddccbbaa">Go Developer</a></h2>
  <span class="companyName">Globex</span>
  <div class="companyLocation">Hamburg</div>
</div>
</body></html>`

func loadCards(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return collectCards(doc)
}

func TestCollectCards(t *testing.T) {
	cards := loadCards(t, resultPage)
	assert.Equal(t, 2, cards.Length())
}

func TestCollectCardsAnchorFallback(t *testing.T) {
	page := `<html><body>
		<a class="tapItem" href="/viewjob?jk=abc123def456">Backend Engineer</a>
	</body></html>`
	cards := loadCards(t, page)
	assert.Equal(t, 1, cards.Length())
}

func TestParseCard(t *testing.T) {
	cards := loadCards(t, resultPage)

	posting := parseCard(cards.First(), "https://de.indeed.com")
	require.NotNil(t, posting)

	assert.Equal(t, domain.SourceIndeed, posting.Source)
	assert.Equal(t, "a1b2c3d4e5f6", posting.ExternalID)
	assert.Equal(t, "Senior Python Engineer", posting.Title)
	assert.Equal(t, "Acme GmbH", posting.Company)
	assert.Equal(t, "Berlin", posting.Location)
	assert.Equal(t, "https://de.indeed.com/viewjob?jk=a1b2c3d4e5f6", posting.URL)
	assert.Contains(t, posting.Description, "Python")
	require.NotNil(t, posting.PostedDate)
	assert.Contains(t, posting.Keywords, "python")
	assert.Contains(t, posting.Keywords, "sql")
	assert.False(t, posting.ScrapedAt.IsZero())
}

func TestParseCardSecondTemplate(t *testing.T) {
	cards := loadCards(t, resultPage)

	posting := parseCard(cards.Eq(1), "https://de.indeed.com")
	require.NotNil(t, posting)

	assert.Equal(t, "ffeeddccbbaa", posting.ExternalID)
	assert.Equal(t, "Go Developer", posting.Title)
	assert.Equal(t, "Globex", posting.Company)
	assert.Equal(t, "Hamburg", posting.Location)
	assert.Equal(t, "https://de.indeed.com/rc/clk?jk=ffeeddccbbaa", posting.URL)
	// No date on the card defaults to today.
	require.NotNil(t, posting.PostedDate)
}

func TestParseCardNoLink(t *testing.T) {
	page := `<html><body><div class="job_seen_beacon"><h2 class="jobTitle">Title only</h2></div></body></html>`
	cards := loadCards(t, page)
	require.Equal(t, 1, cards.Length())

	assert.Nil(t, parseCard(cards.First(), "https://de.indeed.com"))
}

func TestParseCardSynthesizesExternalID(t *testing.T) {
	page := `<html><body>
	<div class="job_seen_beacon">
		<h2 class="jobTitle"><a href="/viewjob?from=serp">Data Engineer</a></h2>
	</div>
	</body></html>`
	cards := loadCards(t, page)
	posting := parseCard(cards.First(), "https://de.indeed.com")
	require.NotNil(t, posting)
	assert.NotEmpty(t, posting.ExternalID)
	assert.True(t, strings.HasPrefix(posting.ExternalID, "indeed-"))
}
