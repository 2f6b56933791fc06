package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when a search client has no credentials.
var ErrMissingAPIKey = errors.New("search api key not set")

// SearchType selects the caching policy of a web search.
type SearchType string

const (
	SearchResearch   SearchType = "research"
	SearchNews       SearchType = "news"
	SearchCompetitor SearchType = "competitor"
)

// TTL returns how long results of this type stay cached.
func (t SearchType) TTL() time.Duration {
	switch t {
	case SearchNews:
		return time.Hour
	case SearchCompetitor:
		return 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Result is a single web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Response is the normalized output of a web search backend.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
	// Cached is set when the response was served from the cache.
	Cached bool `json:"_cached,omitempty"`
	// QuotaExceeded is set on the placeholder returned once the monthly quota is spent.
	QuotaExceeded bool `json:"quota_exceeded,omitempty"`
}

// Searcher is a web search backend.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) (*Response, error)
}

// Format renders a response as the text block handed to the language model.
// Result content is cut to 300 characters.
func Format(resp *Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Web Search Results for: %s\n\n", resp.Query)

	if resp.Answer != "" {
		fmt.Fprintf(&sb, "Summary: %s\n\n", resp.Answer)
	}

	sb.WriteString("Sources:\n")
	for i, r := range resp.Results {
		fmt.Fprintf(&sb, "\n%d. %s\n   URL: %s\n   Content: %s...\n", i+1, r.Title, r.URL, truncate(r.Content, 300))
	}

	if resp.Cached {
		sb.WriteString("\n[Note: Results from cache]")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
