package linkedin

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

const guestCard = `
<li>
  <div class="base-card">
    <a class="base-card__full-link" href="https://de.linkedin.com/jobs/view/senior-go-developer-at-acme-3712345678?refId=abc&trk=guest">
      Senior Go Developer
    </a>
    <h3 class="base-search-card__title">Senior Go Developer</h3>
    <h4 class="base-search-card__subtitle">Acme GmbH</h4>
    <span class="job-search-card__location">Berlin, Germany</span>
    <time datetime="2024-06-12">3 days ago</time>
  </div>
</li>`

func loadCard(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	card := doc.Find("li").First()
	require.Equal(t, 1, card.Length())
	return card
}

func TestParseCard(t *testing.T) {
	posting := parseCard(loadCard(t, guestCard))
	require.NotNil(t, posting)

	assert.Equal(t, domain.SourceLinkedIn, posting.Source)
	assert.Equal(t, "3712345678", posting.ExternalID)
	assert.Equal(t, "Senior Go Developer", posting.Title)
	assert.Equal(t, "Acme GmbH", posting.Company)
	assert.Equal(t, "Berlin, Germany", posting.Location)
	// Slug and tracking parameters collapse to the canonical view URL.
	assert.Equal(t, "https://www.linkedin.com/jobs/view/3712345678/", posting.URL)
	require.NotNil(t, posting.PostedDate)
	assert.Equal(t, "2024-06-12", posting.PostedDate.Format("2006-01-02"))
}

func TestParseCardMissingTitleReturnsNil(t *testing.T) {
	html := `<li><a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/1/"></a></li>`
	assert.Nil(t, parseCard(loadCard(t, html)))
}

func TestParseCardFallbackSelectors(t *testing.T) {
	html := `
	<li>
	  <h3>Backend Engineer</h3>
	  <h4>Globex</h4>
	  <a href="https://www.linkedin.com/jobs/view/111222333"></a>
	</li>`
	posting := parseCard(loadCard(t, html))
	require.NotNil(t, posting)

	assert.Equal(t, "Backend Engineer", posting.Title)
	assert.Equal(t, "Globex", posting.Company)
	assert.Equal(t, "111222333", posting.ExternalID)
	assert.Equal(t, "Unknown", posting.Location)
}

func TestParseCardSynthesizesExternalID(t *testing.T) {
	html := `
	<li>
	  <h3>Engineer</h3>
	  <a href="https://www.linkedin.com/company/acme"></a>
	</li>`
	posting := parseCard(loadCard(t, html))
	require.NotNil(t, posting)
	assert.True(t, strings.HasPrefix(posting.ExternalID, "linkedin-"))
}
