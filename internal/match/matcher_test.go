package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpilot/go-aggregator/internal/common/textkit"
	"github.com/matchpilot/go-aggregator/internal/domain"
)

func TestSkillOverlapScore(t *testing.T) {
	resume := textkit.NormalizeSet([]string{"python", "sql", "docker"})
	job := textkit.NormalizeSet([]string{"python", "sql", "kubernetes", "aws"})

	// coverage 2/4, precision 2/3: 0.5*0.8 + 0.6667*0.2
	got := skillOverlapScore(resume, job)
	assert.InDelta(t, 0.5333, got, 0.001)
}

func TestSkillOverlapScoreMissingInputs(t *testing.T) {
	job := textkit.NormalizeSet([]string{"python"})
	assert.Zero(t, skillOverlapScore(nil, job))
	assert.Zero(t, skillOverlapScore(job, nil))
}

func TestSkillOverlapScoreAliases(t *testing.T) {
	resume := textkit.NormalizeSet([]string{"js", "k8s"})
	job := textkit.NormalizeSet([]string{"javascript", "kubernetes"})
	assert.InDelta(t, 1.0, skillOverlapScore(resume, job), 0.001)
}

func TestKeywordSimilarityScoreEmptyInputs(t *testing.T) {
	assert.Zero(t, keywordSimilarityScore("", "some job text"))
	assert.Zero(t, keywordSimilarityScore("resume text", "  "))
}

func TestKeywordSimilarityScoreIdenticalText(t *testing.T) {
	text := "python developer building data pipelines with airflow"
	got := keywordSimilarityScore(text, text)
	assert.InDelta(t, 1.0, got, 0.001)
}

func TestExperienceLevelMatch(t *testing.T) {
	twoYears := []domain.ExperienceEntry{{Duration: "2 years"}}
	fiveYears := []domain.ExperienceEntry{{Duration: "5 years"}}
	sevenYears := []domain.ExperienceEntry{{Duration: "7 years"}}

	tests := []struct {
		name        string
		experiences []domain.ExperienceEntry
		title       string
		want        float64
	}{
		{"junior title with little experience", twoYears, "Junior Developer", 1.0},
		{"junior title overqualified", sevenYears, "Junior Developer", 0.65},
		{"senior title well qualified", sevenYears, "Senior Engineer", 1.0},
		{"senior title borderline", fiveYears, "Senior Engineer", 0.8},
		{"senior title underqualified", twoYears, "Staff Engineer", 0.45},
		{"unspecified title experienced", fiveYears, "Software Engineer", 1.0},
		{"unspecified title some experience", twoYears, "Software Engineer", 0.75},
		{"unspecified title no experience", nil, "Software Engineer", 0.55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, experienceLevelMatch(tt.experiences, tt.title), 0.001)
		})
	}
}

func TestEstimateYears(t *testing.T) {
	assert.InDelta(t, 3.0, estimateYears([]domain.ExperienceEntry{
		{Duration: "2020-2022"},
	}), 0.001)
	assert.InDelta(t, 4.0, estimateYears([]domain.ExperienceEntry{
		{Duration: "3 years"},
		{Duration: "1 Jahr"},
	}), 0.001)
	// Unparseable durations fall back to 1.8 years per entry.
	assert.InDelta(t, 3.6, estimateYears([]domain.ExperienceEntry{
		{Duration: "a while"},
		{Duration: ""},
	}), 0.001)
}

func TestLocationMatch(t *testing.T) {
	tests := []struct {
		name     string
		resume   string
		location string
		want     float64
	}{
		{"empty job location", "lives in Berlin", "", 0.8},
		{"remote", "anything", "Remote", 1.0},
		{"hybrid", "anything", "Hybrid - Munich", 1.0},
		{"city in resume", "based in Berlin since 2019", "Berlin, Germany", 1.0},
		{"germany heuristic", "currently in Hamburg", "Frankfurt, Germany", 0.85},
		{"no signal", "lives in Paris", "Stuttgart", 0.65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, locationMatch(tt.resume, tt.location), 0.001)
		})
	}
}

func TestScoreBounds(t *testing.T) {
	matcher := New()
	resume := &domain.ResumeProfile{
		RawText: "Python engineer in Berlin with Docker and SQL experience",
		Skills:  []string{"python", "docker", "sql"},
		Experience: []domain.ExperienceEntry{
			{Title: "Engineer", Duration: "4 years"},
		},
	}
	job := &domain.JobPosting{
		Title:       "Python Developer",
		Description: "We build data products with Python, SQL and AWS.",
		Location:    "Berlin, Germany",
		Keywords:    []string{"python", "sql", "aws"},
	}

	result := matcher.Score(resume, job)

	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 1.0)
	assert.GreaterOrEqual(t, result.Breakdown.RawScore, 0.0)

	// Matched and missing skill sets never overlap.
	missing := make(map[string]struct{}, len(result.MissingSkills))
	for _, skill := range result.MissingSkills {
		missing[skill] = struct{}{}
	}
	for _, skill := range result.MatchedSkills {
		_, ok := missing[skill]
		assert.False(t, ok, "skill %q both matched and missing", skill)
	}
}

func TestScoreEmptyResume(t *testing.T) {
	matcher := New()
	result := matcher.Score(&domain.ResumeProfile{}, &domain.JobPosting{
		Title:       "Go Developer",
		Description: "Backend services in Go",
	})

	// Missing inputs zero their sub-scores but a score still exists.
	assert.Zero(t, result.Breakdown.SkillMatch)
	assert.Zero(t, result.Breakdown.KeywordMatch)
	assert.Greater(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 1.0)
	assert.Empty(t, result.MatchedSkills)
}

func TestScoreSkillBonus(t *testing.T) {
	matcher := New()
	resume := &domain.ResumeProfile{
		RawText: "python sql docker kubernetes",
		Skills:  []string{"python", "sql", "docker", "kubernetes"},
	}
	job := &domain.JobPosting{
		Title:       "Platform Engineer",
		Description: "Python, SQL, Docker and Kubernetes every day.",
		Keywords:    []string{"python", "sql", "docker", "kubernetes"},
	}

	result := matcher.Score(resume, job)
	require.GreaterOrEqual(t, len(result.MatchedSkills), 3)
	assert.LessOrEqual(t, result.Score, 1.0)
}

func TestScoreConcurrentUse(t *testing.T) {
	matcher := New()
	resume := &domain.ResumeProfile{
		RawText: "python developer",
		Skills:  []string{"python"},
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				job := &domain.JobPosting{
					Title:       "Python Developer",
					Description: "python services",
					Keywords:    []string{"python"},
				}
				result := matcher.Score(resume, job)
				if result.Score < 0 || result.Score > 1 {
					t.Errorf("score out of range: %f", result.Score)
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
