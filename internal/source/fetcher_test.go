package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

func TestQueryAccepts(t *testing.T) {
	posting := &domain.JobPosting{Title: "Go Developer", Location: "Berlin"}

	assert.True(t, Query{}.Accepts(posting))

	gated := Query{Keep: func(p *domain.JobPosting) bool {
		return strings.Contains(strings.ToLower(p.Location), "berlin")
	}}
	assert.True(t, gated.Accepts(posting))
	assert.False(t, gated.Accepts(&domain.JobPosting{Location: "Munich"}))
}
