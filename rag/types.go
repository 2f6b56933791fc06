package rag

import (
	"context"
	"errors"
)

// ErrEntityNotFound is returned by graph lookups for unknown entity IDs.
var ErrEntityNotFound = errors.New("entity not found")

// Document is a unit of stored content with its metadata.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"-"`
}

// DocumentSearchResult is a raw vector store hit.
type DocumentSearchResult struct {
	Document Document
	Score    float64
}

// SearchResult is a semantic search hit projected onto the fields the
// retrieval tools render.
type SearchResult struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	URL           string         `json:"url"`
	Content       string         `json:"content"`
	Score         float64        `json:"score"`
	OriginalQuery string         `json:"original_query,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore stores documents and answers similarity queries.
type VectorStore interface {
	Add(ctx context.Context, docs []Document) error
	// SearchText embeds query and returns the k closest documents whose
	// metadata matches every key of filter.
	SearchText(ctx context.Context, query string, k int, filter map[string]any) ([]DocumentSearchResult, error)
}

// Entity is a knowledge graph node such as a platform, metric, or tactic.
type Entity struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight,omitempty"`
}

// RelatedEntity is a neighbour of an entity together with the edge type.
type RelatedEntity struct {
	Entity           Entity `json:"entity"`
	RelationshipType string `json:"relationship_type"`
}

// DocumentRef points at a blog document that mentions an entity.
type DocumentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EntityContext is the neighbourhood of an entity.
type EntityContext struct {
	Entity    Entity          `json:"entity"`
	Related   []RelatedEntity `json:"related_entities"`
	Documents []DocumentRef   `json:"linked_documents"`
}

// EntityGraph is the read side of the marketing knowledge graph.
type EntityGraph interface {
	FindEntities(ctx context.Context, query string, limit int) ([]Entity, error)
	GetEntityContext(ctx context.Context, entityID string, maxRelated, maxDocs int) (*EntityContext, error)
}
