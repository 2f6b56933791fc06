package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smallnest/marketadvisor/rag"
)

// InMemoryVectorStore is a simple in-memory vector store implementation
type InMemoryVectorStore struct {
	mu         sync.RWMutex
	documents  []rag.Document
	embeddings [][]float32
	embedder   rag.Embedder
}

var _ rag.VectorStore = (*InMemoryVectorStore)(nil)

// NewInMemoryVectorStore creates a new InMemoryVectorStore
func NewInMemoryVectorStore(embedder rag.Embedder) *InMemoryVectorStore {
	return &InMemoryVectorStore{
		documents:  make([]rag.Document, 0),
		embeddings: make([][]float32, 0),
		embedder:   embedder,
	}
}

// Add embeds documents that carry no embedding and stores them. A document
// whose ID is already present replaces the stored one.
func (s *InMemoryVectorStore) Add(ctx context.Context, documents []rag.Document) error {
	var missing []string
	var missingIdx []int
	for i, doc := range documents {
		if len(doc.Embedding) == 0 {
			missing = append(missing, doc.Content)
			missingIdx = append(missingIdx, i)
		}
	}

	embedded := make([][]float32, len(documents))
	for i, doc := range documents {
		embedded[i] = doc.Embedding
	}
	if len(missing) > 0 {
		if s.embedder == nil {
			return fmt.Errorf("no embedder configured and document has no embedding")
		}
		vecs, err := s.embedder.EmbedDocuments(ctx, missing)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vecs) != len(missing) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(missing))
		}
		for j, i := range missingIdx {
			embedded[i] = vecs[j]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range documents {
		if idx := s.indexOf(doc.ID); idx >= 0 {
			s.documents[idx] = doc
			s.embeddings[idx] = embedded[i]
			continue
		}
		s.documents = append(s.documents, doc)
		s.embeddings = append(s.embeddings, embedded[i])
	}
	return nil
}

func (s *InMemoryVectorStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, d := range s.documents {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// SearchText embeds query and performs a filtered similarity search.
func (s *InMemoryVectorStore) SearchText(ctx context.Context, query string, k int, filter map[string]any) ([]rag.DocumentSearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	emb, err := s.embedder.EmbedDocument(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.SearchWithFilter(ctx, emb, k, filter)
}

// SearchWithFilter performs similarity search with filters
func (s *InMemoryVectorStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]rag.DocumentSearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]rag.DocumentSearchResult, 0)
	for i, doc := range s.documents {
		if !matchesFilter(doc, filter) {
			continue
		}
		results = append(results, rag.DocumentSearchResult{
			Document: doc,
			Score:    cosineSimilarity32(queryEmbedding, s.embeddings[i]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Delete removes documents by ID
func (s *InMemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	idMap := make(map[string]bool, len(ids))
	for _, id := range ids {
		idMap[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var newDocs []rag.Document
	var newEmbeddings [][]float32
	for i, doc := range s.documents {
		if !idMap[doc.ID] {
			newDocs = append(newDocs, doc)
			newEmbeddings = append(newEmbeddings, s.embeddings[i])
		}
	}
	s.documents = newDocs
	s.embeddings = newEmbeddings
	return nil
}

// Len returns the number of stored documents.
func (s *InMemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

func matchesFilter(doc rag.Document, filter map[string]any) bool {
	for key, value := range filter {
		docValue, exists := doc.Metadata[key]
		if !exists || docValue != value {
			return false
		}
	}
	return true
}

// cosineSimilarity32 calculates cosine similarity between two float32 vectors
func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
