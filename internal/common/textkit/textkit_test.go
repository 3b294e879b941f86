package textkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JS", "javascript"},
		{"ts", "typescript"},
		{"Postgres", "postgresql"},
		{"k8s", "kubernetes"},
		{"PowerBI", "power bi"},
		{"Apache  Spark", "spark"},
		{"Node.js", "nodejs"},
		{"  Python  ", "python"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeToken(tt.in), "NormalizeToken(%q)", tt.in)
	}
}

func TestTokensFiltersStopWords(t *testing.T) {
	tokens := Tokens("Entwicklung mit Python und SQL für die Cloud")
	assert.Contains(t, tokens, "python")
	assert.Contains(t, tokens, "sql")
	assert.NotContains(t, tokens, "und")
	assert.NotContains(t, tokens, "mit")
	assert.NotContains(t, tokens, "für")
	assert.NotContains(t, tokens, "die")
}

func TestTokensPreservesMultiplicity(t *testing.T) {
	tokens := Tokens("go go go")
	assert.Equal(t, []string{"go", "go", "go"}, tokens)
}

func TestExtractSkills(t *testing.T) {
	skills := ExtractSkills("We need Python, Docker and Kubernetes experience. Also Node.js.")
	assert.Equal(t, []string{"docker", "kubernetes", "nodejs", "python"}, skills)
}

func TestExtractSkillsEmptyText(t *testing.T) {
	assert.Empty(t, ExtractSkills("nothing technical here whatsoever"))
}

func TestKeywordsRankedByFrequency(t *testing.T) {
	keywords := Keywords("data data data engineer engineer pipeline", 2)
	require.Len(t, keywords, 2)
	assert.Equal(t, "data", keywords[0])
	assert.Equal(t, "engineer", keywords[1])
}

func TestKeywordsEmptyInput(t *testing.T) {
	assert.Nil(t, Keywords("   ", 10))
}

func TestUniqueLowerKeepsFirstSeenOrder(t *testing.T) {
	got := UniqueLower([]string{"Go", "go", "SQL", "Docker", "sql", "AWS", "aws"})
	assert.Equal(t, []string{"go", "sql", "docker", "aws"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
}

func TestTruncateNeverSplitsRunes(t *testing.T) {
	// "Entwicklerin für" holds a two-byte ü at the cut point.
	s := "Entwicklerin fü"
	got := Truncate(s, len(s)-1)
	assert.Equal(t, "Entwicklerin f", got)
}
