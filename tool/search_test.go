package tool

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	resp := &Response{
		Query:  "email open rates",
		Answer: "Around 20%.",
		Results: []Result{
			{Title: "Benchmarks", URL: "https://example.com/a", Content: strings.Repeat("x", 400)},
		},
		Cached: true,
	}

	out := Format(resp)
	assert.True(t, strings.HasPrefix(out, "Web Search Results for: email open rates\n\n"))
	assert.Contains(t, out, "Summary: Around 20%.\n\n")
	assert.Contains(t, out, "Sources:\n\n1. Benchmarks\n   URL: https://example.com/a\n   Content: "+strings.Repeat("x", 300)+"...\n")
	assert.True(t, strings.HasSuffix(out, "\n[Note: Results from cache]"))
}

func TestFormat_NoAnswer(t *testing.T) {
	out := Format(&Response{Query: "q"})
	assert.Equal(t, "Web Search Results for: q\n\nSources:\n", out)
}

func TestSearchTypeTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, SearchResearch.TTL())
	assert.Equal(t, time.Hour, SearchNews.TTL())
	assert.Equal(t, 24*time.Hour, SearchCompetitor.TTL())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey(SearchResearch, "Google Ads"), CacheKey(SearchResearch, " google ads "))
	assert.NotEqual(t, CacheKey(SearchResearch, "google ads"), CacheKey(SearchNews, "google ads"))
	assert.True(t, strings.HasPrefix(CacheKey(SearchNews, "x"), "tavily:news:"))
}
