// Package textkit tokenizes free text and extracts a bounded skill
// vocabulary. Pure functions, no I/O; safe for concurrent use.
package textkit

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// stopWords covers the German function words that dominate posting text.
var stopWords = map[string]struct{}{
	"und": {}, "oder": {}, "die": {}, "der": {}, "das": {},
	"ein": {}, "eine": {}, "mit": {}, "auf": {}, "im": {},
	"in": {}, "zu": {}, "von": {}, "für": {},
}

// skillAliases folds common shorthand onto one canonical spelling.
var skillAliases = map[string]string{
	"js":           "javascript",
	"ts":           "typescript",
	"postgres":     "postgresql",
	"k8s":          "kubernetes",
	"g cloud":      "gcp",
	"powerbi":      "power bi",
	"apache spark": "spark",
}

var skillPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(python|java|javascript|typescript|sql|scala|go|rust|r)\b`),
	regexp.MustCompile(`\b(django|flask|fastapi|react|vue|angular|spring|tensorflow|pytorch|node\.js|nodejs)\b`),
	regexp.MustCompile(`\b(aws|azure|gcp|docker|kubernetes|terraform)\b`),
	regexp.MustCompile(`\b(spark|hadoop|kafka|airflow|dbt|pandas|numpy|etl|elt|data warehouse)\b`),
	regexp.MustCompile(`\b(postgresql|mysql|mongodb|redis|elasticsearch|cassandra)\b`),
	regexp.MustCompile(`\b(git|jenkins|jira|tableau|power bi|excel)\b`),
}

var (
	tokenPattern   = regexp.MustCompile(`[A-Za-zäöüÄÖÜß+.]{2,}`)
	keywordPattern = regexp.MustCompile(`[A-Za-zäöüÄÖÜß]{3,}`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// NormalizeToken lower-cases, collapses whitespace, and applies the
// alias table. Returns "" for blank input.
func NormalizeToken(value string) string {
	token := strings.ToLower(strings.TrimSpace(value))
	token = strings.ReplaceAll(token, "node.js", "nodejs")
	token = spacePattern.ReplaceAllString(token, " ")
	if alias, ok := skillAliases[token]; ok {
		return alias
	}
	return token
}

// NormalizeSet normalizes each value and drops blanks and duplicates.
func NormalizeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if token := NormalizeToken(v); token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}

// Tokens splits text into normalized, stop-word-filtered tokens.
// Order and multiplicity are preserved for frequency vectors.
func Tokens(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		token := NormalizeToken(t)
		if token == "" {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// ExtractSkills pattern-matches known technology terms, sorted.
func ExtractSkills(text string) []string {
	lower := strings.ToLower(text)
	set := make(map[string]struct{})
	for _, pattern := range skillPatterns {
		for _, match := range pattern.FindAllStringSubmatch(lower, -1) {
			if token := NormalizeToken(match[1]); token != "" {
				set[token] = struct{}{}
			}
		}
	}
	skills := make([]string, 0, len(set))
	for skill := range set {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	return skills
}

// Keywords returns the most frequent non-stop-word tokens, capped at limit.
func Keywords(text string, limit int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	freq := make(map[string]int)
	order := make([]string, 0)
	for _, t := range keywordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[t]; stop {
			continue
		}
		if freq[t] == 0 {
			order = append(order, t)
		}
		freq[t]++
	}
	// Stable ordering: by frequency, first occurrence breaks ties.
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// UniqueLower lower-cases values and removes duplicates, keeping
// first-seen order.
func UniqueLower(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		token := strings.ToLower(strings.TrimSpace(v))
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// Truncate caps a string at limit bytes without splitting a rune.
// Overlong values truncate, they never error.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// IsStopWord reports whether token is in the stop-word set.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
