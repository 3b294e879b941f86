package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

var filterNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func datePtr(t time.Time) *time.Time { return &t }

func scorePtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func TestNormalizeWorkMode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Remote", "remote"},
		{"Home Office", "remote"},
		{"WFH possible", "remote"},
		{"Hybrid", "hybrid"},
		{"hybrid_working", "hybrid"},
		{"On-Site", "onsite"},
		{"Vor Ort", "onsite"},
		{"", ""},
		{"flexible", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeWorkMode(tt.in), "NormalizeWorkMode(%q)", tt.in)
	}
}

func TestInferWorkMode(t *testing.T) {
	assert.Equal(t, "remote", InferWorkMode(&domain.JobPosting{RemoteType: "Remote"}))
	assert.Equal(t, "hybrid", InferWorkMode(&domain.JobPosting{
		Title: "Engineer (hybrid)",
	}))
	assert.Equal(t, "remote", InferWorkMode(&domain.JobPosting{
		Description: "work from home welcome",
	}))
	assert.Equal(t, "onsite", InferWorkMode(&domain.JobPosting{
		Title: "Engineer",
	}))
}

func TestNormalizeExperienceLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Junior Developer", "junior"},
		{"Senior Engineer", "senior"},
		{"Staff Engineer", "lead"},
		{"Principal Architect", "lead"},
		{"Head of Engineering", "lead"},
		{"Working Student / Praktikum", "entry"},
		{"Graduate Program", "entry"},
		{"Mid-level Developer", "mid"},
		{"Developer", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeExperienceLevel(tt.in), "NormalizeExperienceLevel(%q)", tt.in)
	}
}

func TestInferExperienceLevelDefaultsToMid(t *testing.T) {
	assert.Equal(t, "mid", InferExperienceLevel(&domain.JobPosting{Title: "Developer"}))
	assert.Equal(t, "senior", InferExperienceLevel(&domain.JobPosting{
		Title: "Developer", Description: "We look for a senior colleague",
	}))
	assert.Equal(t, "junior", InferExperienceLevel(&domain.JobPosting{
		ExperienceLevel: "Junior",
	}))
}

func TestInferJobType(t *testing.T) {
	assert.Equal(t, "full-time", InferJobType(&domain.JobPosting{Title: "Developer"}))
	assert.Equal(t, "part-time", InferJobType(&domain.JobPosting{Description: "Teilzeit möglich"}))
	assert.Equal(t, "contract", InferJobType(&domain.JobPosting{Description: "freelance basis"}))
	assert.Equal(t, "internship", InferJobType(&domain.JobPosting{Title: "Praktikum Data Science"}))
	assert.Equal(t, "contract", InferJobType(&domain.JobPosting{JobType: "Contract"}))
}

func TestRelevancyBucket(t *testing.T) {
	assert.Equal(t, "strong", RelevancyBucket(0.7))
	assert.Equal(t, "strong", RelevancyBucket(0.95))
	assert.Equal(t, "good", RelevancyBucket(0.5))
	assert.Equal(t, "good", RelevancyBucket(0.69))
	assert.Equal(t, "possible", RelevancyBucket(0.49))
	assert.Equal(t, "possible", RelevancyBucket(0.0))
}

func TestPassesDateFilterHourWindows(t *testing.T) {
	fresh := &domain.JobPosting{ScrapedAt: filterNow.Add(-30 * time.Minute)}
	stale := &domain.JobPosting{ScrapedAt: filterNow.Add(-6 * time.Hour)}

	assert.True(t, passesDateFilter(fresh, "last_1h", filterNow))
	assert.False(t, passesDateFilter(stale, "last_4h", filterNow))
	assert.True(t, passesDateFilter(stale, "last_8h", filterNow))

	// Without a scrape time, a same-day posted date is good enough.
	today := &domain.JobPosting{PostedDate: datePtr(filterNow.Truncate(24 * time.Hour))}
	assert.True(t, passesDateFilter(today, "last_1h", filterNow))
}

func TestPassesDateFilterDayWindows(t *testing.T) {
	recent := &domain.JobPosting{PostedDate: datePtr(filterNow.AddDate(0, 0, -2).Truncate(24 * time.Hour))}
	old := &domain.JobPosting{PostedDate: datePtr(filterNow.AddDate(0, 0, -10).Truncate(24 * time.Hour))}

	assert.True(t, passesDateFilter(recent, "last_7_days", filterNow))
	assert.False(t, passesDateFilter(old, "last_7_days", filterNow))
	assert.True(t, passesDateFilter(old, "last_30_days", filterNow))

	// Posted date unknown falls back to the scrape day.
	scrapedOnly := &domain.JobPosting{ScrapedAt: filterNow.AddDate(0, 0, -5)}
	assert.True(t, passesDateFilter(scrapedOnly, "last_7_days", filterNow))
	assert.False(t, passesDateFilter(scrapedOnly, "last_3_days", filterNow))
}

func TestPassesDateFilterPermissiveCases(t *testing.T) {
	dateless := &domain.JobPosting{}
	assert.True(t, passesDateFilter(dateless, "last_7_days", filterNow))
	assert.True(t, passesDateFilter(dateless, "", filterNow))
	assert.True(t, passesDateFilter(dateless, "unknown_bucket", filterNow))
}

func TestApplyFiltersLocationAndSalary(t *testing.T) {
	postings := []domain.JobPosting{
		{Title: "A", Location: "Berlin, Germany", SalaryMin: 70000, ScrapedAt: filterNow},
		{Title: "B", Location: "Munich, Germany", SalaryMin: 45000, ScrapedAt: filterNow},
		{Title: "C", Location: "Berlin, Germany", ScrapedAt: filterNow},
	}

	got := ApplyFilters(postings, domain.FilterSet{
		LocationContains: "berlin",
		SalaryMin:        60000,
	}, filterNow)

	// C has no salary information, so the salary floor cannot drop it.
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "C", got[1].Title)
}

func TestApplyFiltersMatchPercentageSwapsBounds(t *testing.T) {
	postings := []domain.JobPosting{
		{Title: "low", MatchScore: scorePtr(0.30), ScrapedAt: filterNow},
		{Title: "mid", MatchScore: scorePtr(0.60), ScrapedAt: filterNow},
		{Title: "high", MatchScore: scorePtr(0.90), ScrapedAt: filterNow},
		{Title: "unscored", ScrapedAt: filterNow},
	}

	// Bounds given reversed still select the 50..80 band; unscored
	// postings drop when a score filter is active.
	got := ApplyFilters(postings, domain.FilterSet{
		MatchPercentageMin: intPtr(80),
		MatchPercentageMax: intPtr(50),
	}, filterNow)

	require.Len(t, got, 1)
	assert.Equal(t, "mid", got[0].Title)
}

func TestApplyFiltersRelevancy(t *testing.T) {
	postings := []domain.JobPosting{
		{Title: "strong", MatchScore: scorePtr(0.85), ScrapedAt: filterNow},
		{Title: "good", MatchScore: scorePtr(0.55), ScrapedAt: filterNow},
		{Title: "possible", MatchScore: scorePtr(0.2), ScrapedAt: filterNow},
	}

	got := ApplyFilters(postings, domain.FilterSet{
		Relevancy: []string{"strong", "good"},
	}, filterNow)

	require.Len(t, got, 2)
	assert.Equal(t, "strong", got[0].Title)
	assert.Equal(t, "good", got[1].Title)
}

func TestApplyFiltersWorkModeAndExperience(t *testing.T) {
	postings := []domain.JobPosting{
		{Title: "remote senior", RemoteType: "remote", ExperienceLevel: "senior", ScrapedAt: filterNow},
		{Title: "onsite senior", RemoteType: "onsite", ExperienceLevel: "senior", ScrapedAt: filterNow},
		{Title: "remote junior", RemoteType: "remote", ExperienceLevel: "junior", ScrapedAt: filterNow},
	}

	got := ApplyFilters(postings, domain.FilterSet{
		WorkModes:        []string{"Remote"},
		ExperienceLevels: []string{"Senior"},
	}, filterNow)

	require.Len(t, got, 1)
	assert.Equal(t, "remote senior", got[0].Title)
}

func TestApplyFiltersEmptyInput(t *testing.T) {
	assert.Nil(t, ApplyFilters(nil, domain.FilterSet{}, filterNow))
}

func TestCompileStaticFilterKeep(t *testing.T) {
	static := CompileStaticFilter(domain.FilterSet{
		SalaryMin:        60000,
		LocationContains: "Berlin",
		WorkModes:        []string{"Remote"},
	}, filterNow)

	keep := &domain.JobPosting{
		Location:   "Berlin, Germany",
		RemoteType: "remote",
		SalaryMin:  70000,
		ScrapedAt:  filterNow,
	}
	assert.True(t, static.Keep(keep))

	wrongCity := *keep
	wrongCity.Location = "Munich, Germany"
	assert.False(t, static.Keep(&wrongCity))

	lowSalary := *keep
	lowSalary.SalaryMin = 40000
	assert.False(t, static.Keep(&lowSalary))

	onsite := *keep
	onsite.RemoteType = "onsite"
	assert.False(t, static.Keep(&onsite))
}

func TestCompileStaticFilterIgnoresScoreFilters(t *testing.T) {
	// Score-dependent filters only apply after scoring; the compiled
	// gate must not drop unscored postings for them.
	static := CompileStaticFilter(domain.FilterSet{
		MatchPercentageMin: intPtr(50),
		Relevancy:          []string{"strong"},
	}, filterNow)

	assert.True(t, static.Keep(&domain.JobPosting{Title: "unscored", ScrapedAt: filterNow}))
}
