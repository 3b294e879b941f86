package domain

import "time"

// JobPosting is a normalized job posting from any source.
// (Source, ExternalID) uniquely identifies a posting across re-scrapes;
// URL always holds the canonical detail-page link.
type JobPosting struct {
	ID              int64      `json:"id,omitempty"`
	Source          JobSource  `json:"source"`
	ExternalID      string     `json:"external_id"`
	Title           string     `json:"title"`
	Company         string     `json:"company"`
	Location        string     `json:"location"`
	Description     string     `json:"description"`
	Requirements    string     `json:"requirements"`
	URL             string     `json:"url"`
	PostedDate      *time.Time `json:"posted_date,omitempty"`
	ScrapedAt       time.Time  `json:"scraped_at"`
	SalaryMin       int        `json:"salary_min,omitempty"`
	SalaryMax       int        `json:"salary_max,omitempty"`
	JobType         string     `json:"job_type,omitempty"`
	RemoteType      string     `json:"remote_type,omitempty"`
	ExperienceLevel string     `json:"experience_level,omitempty"`
	Keywords        []string   `json:"keywords"`
	MatchScore      *float64   `json:"match_score,omitempty"`
}

// JobSource identifies a listing site.
type JobSource string

const (
	SourceIndeed            JobSource = "indeed"
	SourceStepstone         JobSource = "stepstone"
	SourceLinkedIn          JobSource = "linkedin"
	SourceArbeitnow         JobSource = "arbeitnow"
	SourceBerlinStartupJobs JobSource = "berlinstartupjobs"
)

// KnownSources lists every supported source in registration order.
func KnownSources() []JobSource {
	return []JobSource{
		SourceIndeed,
		SourceStepstone,
		SourceLinkedIn,
		SourceArbeitnow,
		SourceBerlinStartupJobs,
	}
}

// ResumeProfile is the parsed résumé consumed by the matcher. It is
// produced by an external parser and read-only here.
type ResumeProfile struct {
	RawText    string            `json:"raw_text"`
	Skills     []string          `json:"skills"`
	Experience []ExperienceEntry `json:"experience"`
	Keywords   []string          `json:"keywords"`
}

// ExperienceEntry is one structured work-history record from a résumé.
type ExperienceEntry struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Duration string `json:"duration"`
}

// MatchResult is the outcome of scoring one résumé against one posting.
type MatchResult struct {
	Score         float64        `json:"score"`
	MatchedSkills []string       `json:"matched_skills"`
	MissingSkills []string       `json:"missing_skills"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
}

// ScoreBreakdown retains the pre-calibration sub-scores for auditing.
type ScoreBreakdown struct {
	SkillMatch      float64 `json:"skill_match"`
	KeywordMatch    float64 `json:"keyword_match"`
	ExperienceMatch float64 `json:"experience_match"`
	LocationMatch   float64 `json:"location_match"`
	RawScore        float64 `json:"raw_score"`
}

// FilterSet holds the caller's search filters. All fields are optional
// and AND-combined.
type FilterSet struct {
	SalaryMin          int      `json:"salary_min,omitempty"`
	LocationContains   string   `json:"location_contains,omitempty"`
	WorkModes          []string `json:"work_mode,omitempty"`
	ExperienceLevels   []string `json:"experience_level,omitempty"`
	DatePosted         string   `json:"date_posted,omitempty"`
	MatchPercentageMin *int     `json:"match_percentage_min,omitempty"`
	MatchPercentageMax *int     `json:"match_percentage_max,omitempty"`
	Relevancy          []string `json:"relevancy,omitempty"`
}

// SearchQuery is the full input to one aggregation call.
type SearchQuery struct {
	Keywords    string
	Location    string
	Filters     FilterSet
	Sources     []JobSource
	RequesterID int64
	Resume      *ResumeProfile
}
