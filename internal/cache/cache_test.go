package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

func TestQueryFingerprintStable(t *testing.T) {
	query := domain.SearchQuery{
		Keywords:    "go developer",
		Location:    "Berlin, Germany",
		Sources:     []domain.JobSource{domain.SourceIndeed, domain.SourceStepstone},
		RequesterID: 7,
	}
	assert.Equal(t, QueryFingerprint(query), QueryFingerprint(query))
}

func TestQueryFingerprintIgnoresSourceOrder(t *testing.T) {
	a := domain.SearchQuery{
		Keywords: "go",
		Sources:  []domain.JobSource{domain.SourceIndeed, domain.SourceLinkedIn},
	}
	b := domain.SearchQuery{
		Keywords: "go",
		Sources:  []domain.JobSource{domain.SourceLinkedIn, domain.SourceIndeed},
	}
	assert.Equal(t, QueryFingerprint(a), QueryFingerprint(b))
}

func TestQueryFingerprintNormalizesCasing(t *testing.T) {
	a := domain.SearchQuery{Keywords: "  Go Developer ", Location: "BERLIN"}
	b := domain.SearchQuery{Keywords: "go developer", Location: "berlin"}
	assert.Equal(t, QueryFingerprint(a), QueryFingerprint(b))
}

func TestQueryFingerprintVariesByRequester(t *testing.T) {
	a := domain.SearchQuery{Keywords: "go", RequesterID: 1}
	b := domain.SearchQuery{Keywords: "go", RequesterID: 2}
	assert.NotEqual(t, QueryFingerprint(a), QueryFingerprint(b))
}

func TestEntryMatchesRequester(t *testing.T) {
	entry := Entry{RequesterID: 7}
	assert.True(t, entry.MatchesRequester(7))
	assert.True(t, entry.MatchesRequester(0))
	assert.False(t, entry.MatchesRequester(8))

	unscoped := Entry{}
	assert.True(t, unscoped.MatchesRequester(7))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "go developer in Berlin, Germany", Describe(domain.SearchQuery{
		Keywords: " go developer ",
		Location: "Berlin, Germany",
	}))
	assert.Equal(t, "go developer", Describe(domain.SearchQuery{Keywords: "go developer"}))
}

func TestQueryFingerprintVariesByFilters(t *testing.T) {
	min := 50
	a := domain.SearchQuery{Keywords: "go"}
	b := domain.SearchQuery{Keywords: "go", Filters: domain.FilterSet{MatchPercentageMin: &min}}
	assert.NotEqual(t, QueryFingerprint(a), QueryFingerprint(b))

	c := domain.SearchQuery{Keywords: "go", Filters: domain.FilterSet{DatePosted: "last_7_days"}}
	assert.NotEqual(t, QueryFingerprint(a), QueryFingerprint(c))
}
