package aggregate

import (
	"strings"
	"time"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// NormalizeWorkMode folds a free-form work-mode string onto one of
// remote, hybrid, onsite, or "" when no cue is present.
func NormalizeWorkMode(value string) string {
	token := strings.ToLower(value)
	token = strings.ReplaceAll(token, "_", " ")
	token = strings.ReplaceAll(token, "-", " ")
	token = strings.TrimSpace(token)

	if strings.Contains(token, "hybrid") {
		return "hybrid"
	}
	if containsAny(token, "remote", "home office", "work from home", "wfh", "distributed") {
		return "remote"
	}
	if containsAny(token, "on site", "onsite", "office", "vor ort") {
		return "onsite"
	}
	return ""
}

// InferWorkMode uses the stored remote type when it normalizes, else
// scans the posting text. Defaults to onsite.
func InferWorkMode(posting *domain.JobPosting) string {
	if mode := NormalizeWorkMode(posting.RemoteType); mode != "" {
		return mode
	}
	haystack := posting.Title + " " + posting.Location + " " + posting.Description + " " + posting.Requirements
	if mode := NormalizeWorkMode(haystack); mode != "" {
		return mode
	}
	return "onsite"
}

// NormalizeExperienceLevel folds a seniority string onto entry,
// junior, mid, senior, lead, or "".
func NormalizeExperienceLevel(value string) string {
	token := strings.TrimSpace(strings.ToLower(value))
	if containsAny(token, "intern", "internship", "praktikum", "graduate", "entry level", "entry-level", "trainee") {
		return "entry"
	}
	if containsAny(token, "junior", " jr", "jr ") {
		return "junior"
	}
	if containsAny(token, "lead", "principal", "head of", "staff") {
		return "lead"
	}
	if strings.Contains(token, "senior") || strings.Contains(token, " sr") || strings.Contains(token, "sr ") {
		return "senior"
	}
	if containsAny(token, "mid", "intermediate", "experienced", "professional") {
		return "mid"
	}
	return ""
}

// InferExperienceLevel prefers the stored level, then posting text.
// Defaults to mid.
func InferExperienceLevel(posting *domain.JobPosting) string {
	if level := NormalizeExperienceLevel(posting.ExperienceLevel); level != "" {
		return level
	}
	haystack := posting.Title + " " + posting.Description + " " + posting.Requirements
	if level := NormalizeExperienceLevel(haystack); level != "" {
		return level
	}
	return "mid"
}

// InferJobType keeps a stored type, else reads cues from the text.
// Defaults to full-time.
func InferJobType(posting *domain.JobPosting) string {
	if existing := strings.TrimSpace(strings.ToLower(posting.JobType)); existing != "" {
		return existing
	}
	haystack := strings.ToLower(posting.Title + " " + posting.Description + " " + posting.Requirements)
	if containsAny(haystack, "part-time", "part time", "teilzeit") {
		return "part-time"
	}
	if containsAny(haystack, "contract", "contractor", "freelance", "befristet") {
		return "contract"
	}
	if containsAny(haystack, "intern", "internship", "praktikum", "trainee") {
		return "internship"
	}
	return "full-time"
}

// RelevancyBucket classifies a match score.
func RelevancyBucket(score float64) string {
	if score >= 0.7 {
		return "strong"
	}
	if score >= 0.5 {
		return "good"
	}
	return "possible"
}

// finalize fills inferred fields on a freshly scraped posting before
// it is persisted.
func finalize(posting *domain.JobPosting) {
	posting.RemoteType = InferWorkMode(posting)
	posting.ExperienceLevel = InferExperienceLevel(posting)
	posting.JobType = InferJobType(posting)
}

// isRecent reports whether a posting falls inside the max-age window.
// Posted date is judged day-granular; postings with neither date pass.
func isRecent(posting *domain.JobPosting, maxAge time.Duration, now time.Time) bool {
	cutoff := now.Add(-maxAge)
	if posting.PostedDate != nil {
		return !posting.PostedDate.Before(cutoff.Truncate(24 * time.Hour))
	}
	if !posting.ScrapedAt.IsZero() {
		return !posting.ScrapedAt.Before(cutoff)
	}
	return true
}

var hourWindows = map[string]int{
	"last_1h": 1,
	"last_4h": 4,
	"last_8h": 8,
}

var dayWindows = map[string]int{
	"last_24h":     1,
	"last_3_days":  3,
	"last_7_days":  7,
	"last_14_days": 14,
	"last_21_days": 21,
	"last_30_days": 30,
}

// passesDateFilter applies a posted-date window. Hour windows gate on
// scrape time since boards rarely expose intra-day recency; unknown
// bucket names and dateless postings pass.
func passesDateFilter(posting *domain.JobPosting, bucket string, now time.Time) bool {
	value := strings.TrimSpace(strings.ToLower(bucket))
	if value == "" {
		return true
	}
	if hours, ok := hourWindows[value]; ok {
		if !posting.ScrapedAt.IsZero() {
			return !posting.ScrapedAt.Before(now.Add(-time.Duration(hours) * time.Hour))
		}
		if posting.PostedDate != nil {
			return !posting.PostedDate.Before(now.Truncate(24 * time.Hour))
		}
		return true
	}
	days, ok := dayWindows[value]
	if !ok {
		return true
	}
	ref := referenceDate(posting)
	if ref == nil {
		return true
	}
	return !ref.Before(now.Truncate(24 * time.Hour).AddDate(0, 0, -days))
}

// referenceDate is the posted date when known, else the scrape day.
func referenceDate(posting *domain.JobPosting) *time.Time {
	if posting.PostedDate != nil {
		return posting.PostedDate
	}
	if !posting.ScrapedAt.IsZero() {
		day := posting.ScrapedAt.Truncate(24 * time.Hour)
		return &day
	}
	return nil
}

// StaticFilter is the score-independent part of a FilterSet compiled
// into a per-posting predicate. Fetchers use it through the query item
// gate so per-source caps count only postings that can survive
// filtering.
type StaticFilter struct {
	salaryMin        int
	locationContains string
	workModes        map[string]struct{}
	experienceLevels map[string]struct{}
	datePosted       string
	now              time.Time
}

// CompileStaticFilter normalizes the score-independent filters once.
func CompileStaticFilter(filters domain.FilterSet, now time.Time) StaticFilter {
	return StaticFilter{
		salaryMin:        filters.SalaryMin,
		locationContains: strings.TrimSpace(strings.ToLower(filters.LocationContains)),
		workModes:        normalizedSet(filters.WorkModes, NormalizeWorkMode),
		experienceLevels: normalizedSet(filters.ExperienceLevels, NormalizeExperienceLevel),
		datePosted:       filters.DatePosted,
		now:              now,
	}
}

// Keep reports whether a posting passes every score-independent filter.
func (f StaticFilter) Keep(posting *domain.JobPosting) bool {
	if f.salaryMin > 0 && posting.SalaryMin > 0 && posting.SalaryMin < f.salaryMin {
		return false
	}
	if f.locationContains != "" && !strings.Contains(strings.ToLower(posting.Location), f.locationContains) {
		return false
	}
	if len(f.workModes) > 0 {
		if _, ok := f.workModes[InferWorkMode(posting)]; !ok {
			return false
		}
	}
	if len(f.experienceLevels) > 0 {
		if _, ok := f.experienceLevels[InferExperienceLevel(posting)]; !ok {
			return false
		}
	}
	return passesDateFilter(posting, f.datePosted, f.now)
}

// ApplyFilters AND-combines every set filter over the postings.
// Score-dependent filters drop unscored postings; the min/max match
// percentage bounds swap when given reversed.
func ApplyFilters(postings []domain.JobPosting, filters domain.FilterSet, now time.Time) []domain.JobPosting {
	if len(postings) == 0 {
		return nil
	}

	static := CompileStaticFilter(filters, now)
	relevancy := normalizedSet(filters.Relevancy, func(v string) string {
		return strings.TrimSpace(strings.ToLower(v))
	})

	minPct := filters.MatchPercentageMin
	maxPct := filters.MatchPercentageMax
	if minPct != nil && maxPct != nil && *minPct > *maxPct {
		minPct, maxPct = maxPct, minPct
	}

	filtered := make([]domain.JobPosting, 0, len(postings))
	for i := range postings {
		posting := &postings[i]
		if !static.Keep(posting) {
			continue
		}

		if minPct != nil || maxPct != nil || len(relevancy) > 0 {
			if posting.MatchScore == nil {
				continue
			}
			pct := *posting.MatchScore * 100
			if minPct != nil && pct < float64(*minPct) {
				continue
			}
			if maxPct != nil && pct > float64(*maxPct) {
				continue
			}
			if len(relevancy) > 0 {
				if _, ok := relevancy[RelevancyBucket(*posting.MatchScore)]; !ok {
					continue
				}
			}
		}
		filtered = append(filtered, *posting)
	}
	return filtered
}

func normalizedSet(values []string, normalize func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if token := normalize(v); token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
