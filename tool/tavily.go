package tool

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/smallnest/marketadvisor/cache"
	"github.com/smallnest/marketadvisor/log"
	"github.com/tmc/langchaingo/tools"
)

// QuotaExceededAnswer is the answer of the placeholder response returned when
// the monthly request quota has been used up.
const QuotaExceededAnswer = "Search quota exceeded. Using cached data and LLM knowledge."

// TavilySearch is a cache-first client for the Tavily search API with a
// monthly request quota tracked in Redis.
type TavilySearch struct {
	APIKey       string
	BaseURL      string
	MaxResults   int
	SearchDepth  string
	MonthlyLimit int

	httpClient *http.Client
	cache      *cache.RedisCache
	logger     log.Logger
	now        func() time.Time
}

var (
	_ tools.Tool = (*TavilySearch)(nil)
	_ Searcher   = (*TavilySearch)(nil)
)

type TavilyOption func(*TavilySearch)

// WithTavilyBaseURL sets the base URL for the Tavily API.
func WithTavilyBaseURL(baseURL string) TavilyOption {
	return func(t *TavilySearch) {
		t.BaseURL = baseURL
	}
}

// WithTavilyMaxResults sets the default number of results (1-20).
func WithTavilyMaxResults(n int) TavilyOption {
	return func(t *TavilySearch) {
		t.MaxResults = clampResults(n)
	}
}

// WithTavilySearchDepth sets "basic" or "advanced" search depth.
func WithTavilySearchDepth(depth string) TavilyOption {
	return func(t *TavilySearch) {
		t.SearchDepth = depth
	}
}

// WithTavilyCache enables result caching and the monthly quota.
func WithTavilyCache(c *cache.RedisCache) TavilyOption {
	return func(t *TavilySearch) {
		t.cache = c
	}
}

// WithTavilyMonthlyLimit sets the monthly request quota. Zero disables it.
func WithTavilyMonthlyLimit(limit int) TavilyOption {
	return func(t *TavilySearch) {
		t.MonthlyLimit = limit
	}
}

// WithTavilyHTTPClient sets the HTTP client.
func WithTavilyHTTPClient(c *http.Client) TavilyOption {
	return func(t *TavilySearch) {
		t.httpClient = c
	}
}

// WithTavilyLogger sets the logger.
func WithTavilyLogger(l log.Logger) TavilyOption {
	return func(t *TavilySearch) {
		t.logger = l
	}
}

// NewTavilySearch creates a new Tavily client.
// If apiKey is empty, it tries to read from TAVILY_API_KEY environment variable.
func NewTavilySearch(apiKey string, opts ...TavilyOption) (*TavilySearch, error) {
	if apiKey == "" {
		apiKey = os.Getenv("TAVILY_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: TAVILY_API_KEY", ErrMissingAPIKey)
	}

	t := &TavilySearch{
		APIKey:       apiKey,
		BaseURL:      "https://api.tavily.com/search",
		MaxResults:   5,
		SearchDepth:  "basic",
		MonthlyLimit: 1000,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetDefaultLogger()
	}
	return t, nil
}

// Name returns the name of the tool.
func (t *TavilySearch) Name() string {
	return "tavily_web_search"
}

// Description returns the description of the tool.
func (t *TavilySearch) Description() string {
	return "Search the web for current information, news, competitor analysis, " +
		"and market trends. Returns recent, up-to-date information with citations."
}

// Call runs a research search and returns the formatted results.
func (t *TavilySearch) Call(ctx context.Context, input string) (string, error) {
	resp, err := t.Search(ctx, input, t.MaxResults)
	if err != nil {
		return "", err
	}
	return Format(resp), nil
}

// Search runs a research-type search.
func (t *TavilySearch) Search(ctx context.Context, query string, maxResults int) (*Response, error) {
	return t.SearchWithType(ctx, query, SearchResearch, maxResults)
}

// CacheKey returns the cache key of a query: tavily:{type}:{md5 of the normalized query}.
func CacheKey(typ SearchType, query string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("tavily:%s:%s", typ, hex.EncodeToString(sum[:]))
}

func (t *TavilySearch) quotaKey() string {
	return "tavily:monthly_count:" + t.now().UTC().Format("2006-01")
}

// SearchWithType serves from cache when possible, otherwise calls the API
// unless the monthly quota is spent, in which case a placeholder response with
// QuotaExceeded set is returned.
func (t *TavilySearch) SearchWithType(ctx context.Context, query string, typ SearchType, maxResults int) (*Response, error) {
	if maxResults <= 0 {
		maxResults = t.MaxResults
	}
	key := CacheKey(typ, query)

	if t.cache != nil {
		var cached Response
		err := t.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			t.logger.Debug("tavily cache hit for %q", query)
			cached.Cached = true
			return &cached, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			t.logger.Warn("tavily cache read failed: %v", err)
		}

		if t.MonthlyLimit > 0 {
			used, err := t.cache.Counter(ctx, t.quotaKey())
			if err != nil {
				t.logger.Warn("tavily quota read failed: %v", err)
			} else if used >= int64(t.MonthlyLimit) {
				t.logger.Warn("tavily monthly quota of %d exhausted", t.MonthlyLimit)
				return &Response{Query: query, Answer: QuotaExceededAnswer, Results: []Result{}, QuotaExceeded: true}, nil
			}
		}
	}

	resp, err := t.do(ctx, query, typ, maxResults)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		if _, err := t.cache.Incr(ctx, t.quotaKey(), 32*24*time.Hour); err != nil {
			t.logger.Warn("tavily quota update failed: %v", err)
		}
		if err := t.cache.Set(ctx, key, resp, typ.TTL()); err != nil {
			t.logger.Warn("tavily cache write failed: %v", err)
		}
	}
	return resp, nil
}

// UsageThisMonth returns the number of API calls made in the current month.
func (t *TavilySearch) UsageThisMonth(ctx context.Context) (int64, error) {
	if t.cache == nil {
		return 0, nil
	}
	return t.cache.Counter(ctx, t.quotaKey())
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	Topic         string `json:"topic,omitempty"`
	IncludeAnswer bool   `json:"include_answer"`
}

func (t *TavilySearch) do(ctx context.Context, query string, typ SearchType, maxResults int) (*Response, error) {
	body := tavilyRequest{
		APIKey:        t.APIKey,
		Query:         query,
		MaxResults:    maxResults,
		SearchDepth:   t.SearchDepth,
		IncludeAnswer: true,
	}
	if typ == SearchNews {
		body.Topic = "news"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Query == "" {
		out.Query = query
	}
	if out.Results == nil {
		out.Results = []Result{}
	}
	return &out, nil
}

func clampResults(n int) int {
	if n < 1 {
		return 1
	}
	if n > 20 {
		return 20
	}
	return n
}
