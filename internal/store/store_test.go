package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

func TestRankByTokenHits(t *testing.T) {
	candidates := []domain.JobPosting{
		{ID: 1, Title: "Go Developer", Description: "building services"},
		{ID: 2, Title: "Python and Go Engineer", Description: "go microservices in python"},
		{ID: 3, Title: "Frontend Developer", Description: "react and css"},
	}

	got := RankByTokenHits(candidates, []string{"go", "python"}, 10)

	// Posting 2 hits both tokens, posting 1 hits one, posting 3 none.
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestRankByTokenHitsLimit(t *testing.T) {
	candidates := []domain.JobPosting{
		{ID: 1, Title: "go"},
		{ID: 2, Title: "go"},
		{ID: 3, Title: "go"},
	}
	got := RankByTokenHits(candidates, []string{"go"}, 2)
	assert.Len(t, got, 2)
}

func TestRankByTokenHitsNoTokensPassesThrough(t *testing.T) {
	candidates := []domain.JobPosting{
		{ID: 1}, {ID: 2}, {ID: 3},
	}
	got := RankByTokenHits(candidates, nil, 2)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
}
