// Package cleaner strips markup from scraped posting text.
package cleaner

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// Cleaner sanitizes HTML fragments from listing sites using Bluemonday.
type Cleaner struct {
	strict *bluemonday.Policy
	loose  *bluemonday.Policy
}

// New creates a Cleaner. The loose policy keeps basic formatting for
// stored descriptions; the strict policy reduces to plain text.
func New() *Cleaner {
	loose := bluemonday.NewPolicy()
	loose.AllowElements("p", "br", "div", "span")
	loose.AllowElements("strong", "b", "em", "i", "u")
	loose.AllowElements("ul", "ol", "li")

	return &Cleaner{
		strict: bluemonday.StrictPolicy(),
		loose:  loose,
	}
}

// Sanitize keeps allowed formatting elements and drops everything else.
func (c *Cleaner) Sanitize(fragment string) string {
	return c.loose.Sanitize(fragment)
}

// ToText strips all markup, unescapes entities, and collapses
// whitespace. Used for description/requirements snippets before
// truncation and keyword extraction.
func (c *Cleaner) ToText(fragment string) string {
	text := c.strict.Sanitize(fragment)
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
