// Package canonical derives one stable detail-page URL per posting and
// validates that a stored URL actually points at a detail page.
//
// Canonicalize fixes a link when it can; IsValidPostingURL decides
// whether a stored link is good enough to show. Both apply the same
// per-source shape rules so the pair stays consistent.
package canonical

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

var (
	indeedTokenPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{8,}$`)
	digitsPattern         = regexp.MustCompile(`^\d+$`)
	stepstoneJobPattern   = regexp.MustCompile(`/job/(\d+)`)
	stepstoneLegacy       = regexp.MustCompile(`--(\d+)(?:-[a-z]+)?(?:\.html)?$`)
	linkedinViewPattern   = regexp.MustCompile(`/jobs/view/(\d+)`)
	linkedinSlugPattern   = regexp.MustCompile(`/jobs/view/[^/?#]*-(\d+)`)
	indeedJKPattern       = regexp.MustCompile(`[?&](?:jk|vjk)=([A-Za-z0-9_-]+)`)
)

// Canonicalize derives the canonical detail-page URL for a posting.
// It is deterministic and idempotent: a URL it returns always matches
// the "valid detail page" shape for its source, so a second pass
// returns it unchanged. When no rule matches, the raw URL comes back
// as-is; that is a degraded-but-valid result, not an error.
func Canonicalize(source domain.JobSource, rawURL, externalID string) string {
	raw := strings.TrimSpace(rawURL)
	external := strings.TrimSpace(externalID)

	switch source {
	case domain.SourceIndeed:
		if raw != "" {
			parsed, err := url.Parse(raw)
			if err == nil {
				host := strings.ToLower(parsed.Host)
				path := strings.ToLower(parsed.Path)
				query := parsed.Query()
				if strings.Contains(host, "indeed.") && (strings.Contains(path, "/viewjob") ||
					strings.Contains(path, "/rc/clk") ||
					strings.Contains(path, "/pagead/clk") ||
					strings.Contains(path, "/company/") ||
					query.Get("jk") != "" || query.Get("vjk") != "") {
					return raw
				}
			}
		}
		if external != "" && indeedTokenPattern.MatchString(external) {
			return "https://de.indeed.com/viewjob?jk=" + url.QueryEscape(external)
		}
		return raw

	case domain.SourceStepstone:
		if raw != "" {
			parsed, err := url.Parse(raw)
			if err == nil {
				host := strings.ToLower(parsed.Host)
				path := strings.ToLower(parsed.Path)
				if strings.Contains(host, "stepstone.de") &&
					(strings.Contains(path, "/job/") || strings.Contains(path, "/stellenangebote")) {
					return raw
				}
			}
		}
		if digitsPattern.MatchString(external) {
			return "https://www.stepstone.de/job/" + external
		}
		if strings.HasPrefix(external, "stellenangebote") {
			return "https://www.stepstone.de/" + external
		}
		return raw

	case domain.SourceLinkedIn:
		if raw != "" {
			if id := LinkedInJobID(raw); id != "" {
				return "https://www.linkedin.com/jobs/view/" + id + "/"
			}
			if strings.Contains(raw, "linkedin.com/jobs/view/") {
				return raw
			}
		}
		if digitsPattern.MatchString(external) {
			return "https://www.linkedin.com/jobs/view/" + external + "/"
		}
		return raw

	case domain.SourceBerlinStartupJobs:
		if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			return raw
		}
		if external != "" {
			return "https://berlinstartupjobs.com/jobs/" + url.PathEscape(external) + "/"
		}
		return raw

	case domain.SourceArbeitnow:
		return raw
	}

	return raw
}

// IsValidPostingURL re-checks the shape of a stored URL against the
// same per-source rules. It gates which postings are fit to show.
func IsValidPostingURL(source domain.JobSource, rawURL string) bool {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := parsed.Host
	path := parsed.Path
	query := parsed.Query()

	switch source {
	case domain.SourceStepstone:
		return strings.Contains(host, "stepstone.de") &&
			(strings.Contains(path, "/job/") || strings.Contains(path, "/stellenangebote"))
	case domain.SourceIndeed:
		return strings.Contains(host, "indeed.") && (strings.Contains(path, "/viewjob") ||
			strings.Contains(path, "/rc/clk") ||
			strings.Contains(path, "/pagead/clk") ||
			strings.Contains(path, "/company/") ||
			query.Get("jk") != "" || query.Get("vjk") != "")
	case domain.SourceLinkedIn:
		return strings.Contains(host, "linkedin.com") && strings.Contains(path, "/jobs/view/")
	case domain.SourceBerlinStartupJobs:
		return strings.Contains(host, "berlinstartupjobs.com") && path != "" && path != "/"
	case domain.SourceArbeitnow:
		return true
	}
	return true
}

// LinkedInJobID pulls the numeric posting id out of any of LinkedIn's
// URL shapes: /jobs/view/{id}, slug URLs with a trailing -{id}, and
// tracking query parameters. The first matching strategy wins.
func LinkedInJobID(value string) string {
	if value == "" {
		return ""
	}
	if m := linkedinViewPattern.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	if m := linkedinSlugPattern.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}
	query := parsed.Query()
	for _, key := range []string{"currentJobId", "jobId", "trkJobId"} {
		if v := query.Get(key); v != "" && digitsPattern.MatchString(v) {
			return v
		}
	}
	return ""
}

// IndeedJobID extracts the jk/vjk job key from an Indeed href.
func IndeedJobID(href string) string {
	if href == "" {
		return ""
	}
	if parsed, err := url.Parse(href); err == nil {
		query := parsed.Query()
		for _, key := range []string{"jk", "vjk"} {
			if v := query.Get(key); v != "" {
				return v
			}
		}
	}
	if m := indeedJKPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// StepstoneExternalID extracts an identifier from a Stepstone URL,
// trying /job/{id}, the legacy --{id} suffix, then the last path
// segment as a slug.
func StepstoneExternalID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := parsed.Path
	if path == "" {
		return ""
	}
	if m := stepstoneJobPattern.FindStringSubmatch(path); m != nil {
		return truncateID(m[1])
	}
	if m := stepstoneLegacy.FindStringSubmatch(path); m != nil {
		return truncateID(m[1])
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	return truncateID(segments[len(segments)-1])
}

// NormalizeHref resolves a scraped href against the source's base URL.
func NormalizeHref(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "?") {
		return baseURL + href
	}
	base, err := url.Parse(baseURL + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func truncateID(id string) string {
	if len(id) > 255 {
		return id[:255]
	}
	return id
}
