package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answer = `## Executive Summary
Focus on CTR and ROAS.

## Key Insights
1. CTR benchmarks vary by industry ([WordStream](https://www.wordstream.com/ctr)).
2. ROAS is the north star, see https://example.com/roas.
3. Repeated source [again](https://www.wordstream.com/ctr).

<script>alert("x")</script>

## Sources
- [internal](/relative/path)
`

func TestRender(t *testing.T) {
	r, err := Render(answer)
	require.NoError(t, err)

	assert.Contains(t, r.HTML, "<h2")
	assert.Contains(t, r.HTML, "Executive Summary")
	assert.NotContains(t, r.HTML, "<script>")
	assert.Equal(t, []string{"https://www.wordstream.com/ctr", "https://example.com/roas"}, r.Citations)
}

func TestCitations_Empty(t *testing.T) {
	cites, err := Citations("<p>no links here</p>")
	require.NoError(t, err)
	assert.NotNil(t, cites)
	assert.Empty(t, cites)
}

func TestPage(t *testing.T) {
	r := &Report{HTML: "<p>hello</p>", Citations: []string{"https://example.com"}}
	page := Page("<b>Ads</b> report", r)
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Ads report</title>")
	assert.Contains(t, page, `<a href="https://example.com"`)
}
