package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallnest/marketadvisor/log"
	"github.com/smallnest/marketadvisor/metrics"
	"github.com/smallnest/marketadvisor/rag"
	"github.com/smallnest/marketadvisor/tool"
)

// ToolFunc is the handler behind a Tool. Errors and panics are converted to
// result text by the Registry.
type ToolFunc func(ctx context.Context, query string) (string, error)

// ResearchIndex is the semantic search backend used by the stored research,
// blog and graph tools.
type ResearchIndex interface {
	UpsertResearch(ctx context.Context, query string, items []rag.ResearchItem, metadata map[string]any) (int, error)
	SearchSimilar(ctx context.Context, query string, topK int, filter map[string]any) []rag.SearchResult
}

// Backends are the collaborators the built-in tools run against. A nil backend
// leaves its tools unconfigured.
type Backends struct {
	Web      tool.Searcher
	Research ResearchIndex
	Graph    rag.EntityGraph
}

var blogFilter = map[string]any{"content_type": "blog_post"}

const errNotConfigured = "tool not configured"

// Registry maps every Tool to its handler and runs them.
type Registry struct {
	funcs [numTools]ToolFunc

	backends      Backends
	topK          int
	webResults    int
	timeout       time.Duration
	upsertTimeout time.Duration
	logger        log.Logger
	metrics       *metrics.Recorder

	pending sync.WaitGroup
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithToolTimeout bounds every tool call. Zero disables the bound.
func WithToolTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithTopK sets the number of semantic search hits per tool call.
func WithTopK(k int) RegistryOption {
	return func(r *Registry) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithWebResults sets the number of web results requested per search.
func WithWebResults(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.webResults = n
		}
	}
}

// WithUpsertTimeout bounds the background storage of web results.
func WithUpsertTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.upsertTimeout = d
	}
}

func WithRegistryLogger(l log.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

func WithRegistryMetrics(m *metrics.Recorder) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry builds the four retrieval tools over b.
func NewRegistry(b Backends, opts ...RegistryOption) *Registry {
	r := &Registry{
		backends:      b,
		topK:          5,
		webResults:    5,
		timeout:       30 * time.Second,
		upsertTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetDefaultLogger()
	}

	if b.Web != nil {
		r.funcs[WebSearch] = r.webSearch
	}
	if b.Research != nil {
		r.funcs[StoredResearch] = r.storedResearch
		r.funcs[BlogSearch] = r.blogSearch
	}
	if b.Graph != nil {
		r.funcs[GraphSearch] = r.graphSearch
	}
	return r
}

// Register replaces the handler of t.
func (r *Registry) Register(t Tool, fn ToolFunc) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTool, int(t))
	}
	r.funcs[t] = fn
	return nil
}

// Configured reports whether t has a handler.
func (r *Registry) Configured(t Tool) bool {
	return t.Valid() && r.funcs[t] != nil
}

// Invoke runs a single tool. It never fails: errors, panics and missing
// handlers come back as text starting with the tool's error prefix.
func (r *Registry) Invoke(ctx context.Context, t Tool, query string) (out string) {
	if !t.Valid() {
		return fmt.Sprintf("Error: %v: %d", ErrUnknownTool, int(t))
	}
	fn := r.funcs[t]
	if fn == nil {
		return t.ErrorPrefix() + errNotConfigured
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	failed := false
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool %s panicked: %v", t, p)
			out = fmt.Sprintf("%s%v", t.ErrorPrefix(), p)
			failed = true
		}
		r.metrics.ToolCall(t.String(), failed, time.Since(start))
	}()

	res, err := fn(ctx, query)
	if err != nil {
		r.logger.Warn("tool %s failed: %v", t, err)
		failed = true
		return t.ErrorPrefix() + err.Error()
	}
	return res
}

// Run invokes tools concurrently and returns once all of them finished.
// Duplicates run once.
func (r *Registry) Run(ctx context.Context, tools []Tool, query string) map[Tool]string {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[Tool]string, len(tools))
	)

	seen := make(map[Tool]bool, len(tools))
	for _, t := range tools {
		if seen[t] {
			continue
		}
		seen[t] = true

		wg.Add(1)
		go func(t Tool) {
			defer wg.Done()
			res := r.Invoke(ctx, t, query)
			mu.Lock()
			out[t] = res
			mu.Unlock()
		}(t)
	}
	wg.Wait()
	return out
}

// Wait blocks until background writes started by tool calls have finished.
func (r *Registry) Wait() {
	r.pending.Wait()
}

func (r *Registry) webSearch(ctx context.Context, query string) (string, error) {
	resp, err := r.backends.Web.Search(ctx, query, r.webResults)
	if err != nil {
		return "", err
	}
	if len(resp.Results) > 0 && r.backends.Research != nil {
		r.storeResearch(ctx, query, resp.Results)
	}
	return tool.Format(resp), nil
}

// storeResearch saves web results for later semantic lookups without holding
// up the tool call. The write outlives ctx.
func (r *Registry) storeResearch(ctx context.Context, query string, results []tool.Result) {
	items := make([]rag.ResearchItem, len(results))
	for i, res := range results {
		items[i] = rag.ResearchItem{Title: res.Title, URL: res.URL, Content: res.Content, Score: res.Score}
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.upsertTimeout)
		defer cancel()

		meta := map[string]any{"source": "tavily", "search_type": string(tool.SearchResearch)}
		if _, err := r.backends.Research.UpsertResearch(bg, query, items, meta); err != nil {
			r.logger.Warn("failed to store research for %q: %v", query, err)
		}
	}()
}

func (r *Registry) storedResearch(ctx context.Context, query string) (string, error) {
	hits := r.backends.Research.SearchSimilar(ctx, query, r.topK, nil)
	if len(hits) == 0 {
		return "No similar research found in stored results.", nil
	}

	var sb strings.Builder
	sb.WriteString("Stored Research Results:\n")
	for i, h := range hits {
		fmt.Fprintf(&sb, "\n%d. %s\n   URL: %s\n   Relevance: %.2f\n   Content: %s...\n",
			i+1, h.Title, h.URL, h.Score, rag.Truncate(h.Content, 200))
	}
	return sb.String(), nil
}

func (r *Registry) blogSearch(ctx context.Context, query string) (string, error) {
	hits := r.backends.Research.SearchSimilar(ctx, query, r.topK, blogFilter)
	if len(hits) == 0 {
		return "No relevant blog posts found. Try a different query or ensure blogs have been ingested.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Marketing Blog Results for: %s\n\n", query)
	for i, h := range hits {
		blog, _ := h.Metadata["blog_name"].(string)
		if blog == "" {
			blog = "Unknown Blog"
		}
		title := h.Title
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(&sb, "%d. %s\n   Blog: %s\n   URL: %s\n   Relevance: %.2f\n   Excerpt: %s...\n\n",
			i+1, title, blog, h.URL, h.Score, rag.Truncate(h.Content, 300))
	}
	return sb.String(), nil
}

func (r *Registry) graphSearch(ctx context.Context, query string) (string, error) {
	entities, err := r.backends.Graph.FindEntities(ctx, query, 5)
	if err != nil {
		return "", err
	}
	if len(entities) == 0 {
		return "No matching entities found in knowledge graph. Try a different query or ensure entities have been extracted from blog content.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph-Based Search Results for: %s\n\n", query)
	sb.WriteString("Found Entities:\n")

	linked := false
	for _, e := range entities {
		fmt.Fprintf(&sb, "\n- %s (%s)\n", e.Name, e.Type)

		ec, err := r.backends.Graph.GetEntityContext(ctx, e.ID, 3, 5)
		if errors.Is(err, rag.ErrEntityNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if len(ec.Related) > 0 {
			sb.WriteString("  Related entities:\n")
			for _, rel := range ec.Related {
				fmt.Fprintf(&sb, "    - %s (%s)\n", rel.Entity.Name, rel.RelationshipType)
			}
		}
		if len(ec.Documents) > 0 {
			linked = true
		}
	}

	if linked && r.backends.Research != nil {
		sb.WriteString("\n\nRelated Blog Content:\n")
		for _, e := range entities[:min(3, len(entities))] {
			hits := r.backends.Research.SearchSimilar(ctx, e.Name+" "+query, 3, blogFilter)
			for _, h := range hits {
				title := h.Title
				if title == "" {
					title = "No title"
				}
				fmt.Fprintf(&sb, "\n- %s\n  URL: %s\n  Relevance: %.2f\n  Excerpt: %s...\n",
					title, h.URL, h.Score, rag.Truncate(h.Content, 200))
			}
		}
	}
	return sb.String(), nil
}
