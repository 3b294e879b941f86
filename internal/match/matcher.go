// Package match scores job postings against a parsed résumé profile.
package match

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matchpilot/go-aggregator/internal/common/textkit"
	"github.com/matchpilot/go-aggregator/internal/domain"
)

// Component weights. Skill overlap dominates, location is a tiebreaker.
const (
	weightSkill      = 0.5
	weightKeyword    = 0.25
	weightExperience = 0.15
	weightLocation   = 0.1
)

var (
	yearRangePattern  = regexp.MustCompile(`(20\d{2})\s*[-–]\s*(20\d{2})`)
	singleYearPattern = regexp.MustCompile(`(\d+)\s*\+?\s*(?:years|year|jahre|jahr)`)
)

// Matcher holds no per-call state and is safe for concurrent use.
type Matcher struct{}

// New returns a Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Score computes the calibrated relevance of a posting for a résumé.
// Every sub-score falls back to 0 when its input is missing, so a
// score always exists.
func (m *Matcher) Score(resume *domain.ResumeProfile, job *domain.JobPosting) domain.MatchResult {
	resumeSkills := textkit.NormalizeSet(resume.Skills)
	jobSkills := jobSkillSet(job)

	jobText := strings.TrimSpace(job.Title + " " + job.Description + " " + job.Requirements)

	skillScore := skillOverlapScore(resumeSkills, jobSkills)
	keywordScore := keywordSimilarityScore(resume.RawText, jobText)
	expScore := experienceLevelMatch(resume.Experience, job.Title)
	locScore := locationMatch(resume.RawText, job.Location)

	rawTotal := skillScore*weightSkill + keywordScore*weightKeyword +
		expScore*weightExperience + locScore*weightLocation

	// Lift low-end clustering while preserving ranking at the high end.
	calibrated := math.Pow(clamp(rawTotal, 0.03, 1.0), 0.78)

	matched := intersect(resumeSkills, jobSkills)
	if len(matched) >= 3 {
		calibrated = math.Min(1.0, calibrated+0.05)
	}

	return domain.MatchResult{
		Score:         round3(calibrated),
		MatchedSkills: matched,
		MissingSkills: subtract(jobSkills, resumeSkills),
		Breakdown: domain.ScoreBreakdown{
			SkillMatch:      round3(skillScore),
			KeywordMatch:    round3(keywordScore),
			ExperienceMatch: round3(expScore),
			LocationMatch:   round3(locScore),
			RawScore:        round3(rawTotal),
		},
	}
}

// jobSkillSet unions the posting's stored keywords with skills
// pattern-matched out of its text body.
func jobSkillSet(job *domain.JobPosting) map[string]struct{} {
	set := textkit.NormalizeSet(job.Keywords)
	body := job.Title + " " + job.Description + " " + job.Requirements
	for _, skill := range textkit.ExtractSkills(body) {
		set[skill] = struct{}{}
	}
	return set
}

// skillOverlapScore blends how much of the job's skill set the résumé
// covers with how much of the résumé the job actually uses.
func skillOverlapScore(resumeSet, jobSet map[string]struct{}) float64 {
	if len(resumeSet) == 0 || len(jobSet) == 0 {
		return 0
	}
	intersection := 0
	for skill := range resumeSet {
		if _, ok := jobSet[skill]; ok {
			intersection++
		}
	}
	coverage := float64(intersection) / float64(len(jobSet))
	precision := float64(intersection) / float64(len(resumeSet))
	return math.Min(1.0, coverage*0.8+precision*0.2)
}

// keywordSimilarityScore blends set overlap with cosine similarity over
// token frequency vectors.
func keywordSimilarityScore(resumeText, jobText string) float64 {
	if strings.TrimSpace(resumeText) == "" || strings.TrimSpace(jobText) == "" {
		return 0
	}
	resumeTokens := textkit.Tokens(resumeText)
	jobTokens := textkit.Tokens(jobText)
	if len(resumeTokens) == 0 || len(jobTokens) == 0 {
		return 0
	}

	resumeSet := toSet(resumeTokens)
	jobSet := toSet(jobTokens)
	overlapCount := 0
	for token := range resumeSet {
		if _, ok := jobSet[token]; ok {
			overlapCount++
		}
	}
	overlap := float64(overlapCount) / float64(len(jobSet))
	cosine := cosineSimilarity(toCounts(resumeTokens), toCounts(jobTokens))
	return math.Min(1.0, overlap*0.65+cosine*0.35)
}

// experienceLevelMatch bands estimated total years against seniority
// cues in the job title.
func experienceLevelMatch(experiences []domain.ExperienceEntry, jobTitle string) float64 {
	totalYears := estimateYears(experiences)
	title := strings.ToLower(jobTitle)

	if containsAny(title, "junior", "entry", "graduate", "intern") {
		if totalYears <= 3 {
			return 1.0
		}
		return 0.65
	}
	if containsAny(title, "senior", "staff", "lead", "principal") {
		switch {
		case totalYears >= 6:
			return 1.0
		case totalYears >= 4:
			return 0.8
		default:
			return 0.45
		}
	}
	switch {
	case totalYears >= 3:
		return 1.0
	case totalYears >= 1:
		return 0.75
	default:
		return 0.55
	}
}

func locationMatch(resumeText, jobLocation string) float64 {
	if jobLocation == "" {
		return 0.8
	}
	jobLower := strings.ToLower(jobLocation)
	resumeLower := strings.ToLower(resumeText)
	city := strings.TrimSpace(strings.SplitN(jobLower, ",", 2)[0])

	if containsAny(jobLower, "remote", "hybrid", "home office") {
		return 1.0
	}
	if city != "" && strings.Contains(resumeLower, city) {
		return 1.0
	}
	if strings.Contains(jobLower, "germany") &&
		containsAny(resumeLower, "berlin", "hamburg", "munich", "köln", "cologne", "germany", "deutschland") {
		return 0.85
	}
	return 0.65
}

// estimateYears totals duration strings, falling back to 1.8 years per
// entry when none parse.
func estimateYears(experiences []domain.ExperienceEntry) float64 {
	years := 0.0
	for _, exp := range experiences {
		years += durationToYears(exp.Duration)
	}
	if years <= 0 {
		years = float64(len(experiences)) * 1.8
	}
	return years
}

func durationToYears(duration string) float64 {
	currentYear := time.Now().UTC().Format("2006")
	lower := strings.ToLower(duration)
	lower = strings.ReplaceAll(lower, "present", currentYear)
	lower = strings.ReplaceAll(lower, "heute", currentYear)

	if m := yearRangePattern.FindStringSubmatch(lower); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		if end >= start {
			return float64(end - start + 1)
		}
	}
	if m := singleYearPattern.FindStringSubmatch(lower); m != nil {
		years, _ := strconv.Atoi(m[1])
		return float64(years)
	}
	return 0
}

func cosineSimilarity(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0.0
	for token, countA := range a {
		if countB, ok := b[token]; ok {
			dot += float64(countA * countB)
		}
	}
	normA := 0.0
	for _, count := range a {
		normA += float64(count * count)
	}
	normB := 0.0
	for _, count := range b {
		normB += float64(count * count)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func intersect(a, b map[string]struct{}) []string {
	var out []string
	for token := range a {
		if _, ok := b[token]; ok {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out
}

func subtract(a, b map[string]struct{}) []string {
	var out []string
	for token := range a {
		if _, ok := b[token]; !ok {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func toCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
