package rag

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/smallnest/marketadvisor/log"
)

// ResearchItem is one web search result to be stored for reuse.
type ResearchItem struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// ResearchIndex persists web research in a vector store and serves semantic
// lookups over it and over ingested blog content.
type ResearchIndex struct {
	store  VectorStore
	logger log.Logger
}

// ResearchOption configures a ResearchIndex.
type ResearchOption func(*ResearchIndex)

// WithResearchLogger sets the logger.
func WithResearchLogger(l log.Logger) ResearchOption {
	return func(r *ResearchIndex) {
		r.logger = l
	}
}

// NewResearchIndex creates an index over store.
func NewResearchIndex(store VectorStore, opts ...ResearchOption) *ResearchIndex {
	r := &ResearchIndex{store: store}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetDefaultLogger()
	}
	return r
}

// UpsertResearch stores every item as a document keyed by a fresh ID. Each
// document carries query, title, url, content (cut to 1000 characters), score
// and index metadata, merged over the caller's metadata.
func (r *ResearchIndex) UpsertResearch(ctx context.Context, query string, items []ResearchItem, metadata map[string]any) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	docs := make([]Document, 0, len(items))
	for i, item := range items {
		meta := make(map[string]any, len(metadata)+6)
		maps.Copy(meta, metadata)
		meta["query"] = query
		meta["title"] = item.Title
		meta["url"] = item.URL
		meta["content"] = Truncate(item.Content, 1000)
		meta["score"] = item.Score
		meta["index"] = i

		docs = append(docs, Document{
			ID:       uuid.NewString(),
			Content:  fmt.Sprintf("%s\n\n%s", item.Title, item.Content),
			Metadata: meta,
		})
	}

	if err := r.store.Add(ctx, docs); err != nil {
		return 0, fmt.Errorf("upsert research for %q: %w", query, err)
	}
	r.logger.Debug("stored %d research documents for %q", len(docs), query)
	return len(docs), nil
}

// SearchSimilar returns up to topK stored documents similar to query. Errors
// are logged and yield an empty result.
func (r *ResearchIndex) SearchSimilar(ctx context.Context, query string, topK int, filter map[string]any) []SearchResult {
	hits, err := r.store.SearchText(ctx, query, topK, filter)
	if err != nil {
		r.logger.Warn("semantic search for %q failed: %v", query, err)
		return []SearchResult{}
	}

	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		meta := h.Document.Metadata
		content := metaString(meta, "content")
		if content == "" {
			content = h.Document.Content
		}
		out = append(out, SearchResult{
			ID:            h.Document.ID,
			Title:         metaString(meta, "title"),
			URL:           metaString(meta, "url"),
			Content:       content,
			Score:         h.Score,
			OriginalQuery: metaString(meta, "query"),
			Metadata:      meta,
		})
	}
	return out
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
