// Package arbeitnow fetches postings from the Arbeitnow job-board API,
// the one JSON source in the set.
package arbeitnow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/source"
)

const apiURL = "https://www.arbeitnow.com/api/job-board-api"

// Fetcher implements source.Fetcher for Arbeitnow.
type Fetcher struct {
	cfg source.Config
}

// NewFetcher creates an Arbeitnow fetcher.
func NewFetcher(cfg source.Config) *Fetcher {
	return &Fetcher{cfg: cfg.WithDefaults()}
}

func (f *Fetcher) Source() domain.JobSource {
	return domain.SourceArbeitnow
}

type apiItem struct {
	Slug        string   `json:"slug"`
	CompanyName string   `json:"company_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	JobTypes    []string `json:"job_types"`
	Location    string   `json:"location"`
	Remote      bool     `json:"remote"`
	URL         string   `json:"url"`
	CreatedAt   any      `json:"created_at"`
}

type apiPage struct {
	Data []apiItem `json:"data"`
}

func (f *Fetcher) Fetch(ctx context.Context, query source.Query) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting

	for page := 1; page <= f.cfg.MaxPages; page++ {
		body, err := f.cfg.Client.Get(ctx, fmt.Sprintf("%s?page=%d", apiURL, page), map[string]string{
			"Accept": "application/json",
		})
		if err != nil {
			break
		}

		var payload apiPage
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			break
		}
		if len(payload.Data) == 0 {
			break
		}

		for _, item := range payload.Data {
			if posting := f.parseItem(item, query); posting != nil && query.Accepts(posting) {
				postings = append(postings, *posting)
			}
			if len(postings) >= f.cfg.MaxJobs {
				break
			}
		}

		if len(postings) >= f.cfg.MaxJobs {
			break
		}
		if err := source.Sleep(ctx, f.cfg.RequestDelay); err != nil {
			return postings, nil
		}
	}
	return postings, nil
}

// parseItem turns one API record into a posting. The board is not
// searchable server-side, so keyword and city gating happens here.
func (f *Fetcher) parseItem(item apiItem, query source.Query) *domain.JobPosting {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}
	company := strings.TrimSpace(item.CompanyName)
	if company == "" {
		company = "Unknown"
	}
	location := strings.TrimSpace(item.Location)

	if !locationAcceptable(location, query.Location) {
		return nil
	}

	description := f.cfg.Cleaner.ToText(item.Description)
	combined := strings.ToLower(strings.Join([]string{title, company, location, description, strings.Join(item.Tags, " ")}, " "))
	if query.Keywords != "" {
		matched := false
		for _, token := range strings.Fields(strings.ToLower(query.Keywords)) {
			if strings.Contains(combined, token) {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
	}

	postingURL := strings.TrimSpace(item.URL)
	if postingURL == "" {
		postingURL = strings.TrimSpace(item.Slug)
	}
	if postingURL == "" {
		return nil
	}
	if !strings.HasPrefix(postingURL, "http") {
		postingURL = "https://www.arbeitnow.com/jobs/" + strings.Trim(postingURL, "/")
	}

	externalID := item.Slug
	if externalID == "" {
		externalID = source.FallbackID(domain.SourceArbeitnow)
	}
	if location == "" {
		location = "Germany"
	}

	now := time.Now().UTC()
	posting := domain.JobPosting{
		Source:       domain.SourceArbeitnow,
		ExternalID:   externalID,
		Title:        title,
		Company:      company,
		Location:     location,
		Description:  description,
		Requirements: description,
		URL:          postingURL,
		PostedDate:   parseCreatedAt(item.CreatedAt),
		Keywords:     source.TextKeywords(description, item.Tags...),
	}
	if item.Remote {
		posting.RemoteType = "remote"
	}
	source.Normalize(&posting, now)
	return &posting
}

// locationAcceptable keeps a posting when the requested city appears in
// its location, it is remote, or the request was country-level scope.
func locationAcceptable(jobLocation, requested string) bool {
	requestedLower := strings.ToLower(strings.TrimSpace(requested))
	if requestedLower == "" {
		return true
	}
	city := strings.TrimSpace(strings.SplitN(requestedLower, ",", 2)[0])
	if city == "" || city == "germany" || city == "deutschland" {
		return true
	}
	jobLower := strings.ToLower(jobLocation)
	if strings.Contains(jobLower, city) || strings.Contains(jobLower, "remote") {
		return true
	}
	return strings.Contains(requestedLower, "germany") || strings.Contains(requestedLower, "deutschland")
}

// parseCreatedAt accepts the unix timestamp or ISO string forms the API
// has used over time.
func parseCreatedAt(value any) *time.Time {
	switch v := value.(type) {
	case float64:
		t := time.Unix(int64(v), 0).UTC().Truncate(24 * time.Hour)
		return &t
	case string:
		if v == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC().Truncate(24 * time.Hour)
				return &t
			}
		}
	}
	return nil
}
