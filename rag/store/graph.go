package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/smallnest/marketadvisor/rag"
)

// MarketingGraph is a knowledge graph that can be both populated and searched.
type MarketingGraph interface {
	rag.EntityGraph
	AddEntity(ctx context.Context, entity rag.Entity) error
	AddRelationship(ctx context.Context, rel rag.Relationship) error
	// LinkDocument records that doc mentions the entity.
	LinkDocument(ctx context.Context, entityID string, doc rag.DocumentRef) error
	Close() error
}

// NewMarketingGraph creates a knowledge graph based on the database URL
func NewMarketingGraph(databaseURL string) (MarketingGraph, error) {
	switch {
	case databaseURL == "" || strings.HasPrefix(databaseURL, "memory://"):
		return NewMemoryGraph(), nil
	case strings.HasPrefix(databaseURL, "falkordb://"):
		return NewFalkorDBGraph(databaseURL)
	default:
		return nil, fmt.Errorf("only memory:// and falkordb:// URLs are currently supported")
	}
}

// MemoryGraph implements an in-memory knowledge graph
type MemoryGraph struct {
	mu            sync.RWMutex
	entities      map[string]rag.Entity
	order         []string
	relationships []rag.Relationship
	documents     map[string][]rag.DocumentRef
}

var _ MarketingGraph = (*MemoryGraph)(nil)

// NewMemoryGraph creates an empty MemoryGraph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		entities:  make(map[string]rag.Entity),
		documents: make(map[string][]rag.DocumentRef),
	}
}

// AddEntity adds or replaces an entity.
func (m *MemoryGraph) AddEntity(ctx context.Context, entity rag.Entity) error {
	if entity.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[entity.ID]; !ok {
		m.order = append(m.order, entity.ID)
	}
	m.entities[entity.ID] = entity
	return nil
}

// AddRelationship adds a directed edge between two known entities.
func (m *MemoryGraph) AddRelationship(ctx context.Context, rel rag.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range []string{rel.Source, rel.Target} {
		if _, ok := m.entities[id]; !ok {
			return fmt.Errorf("%w: %s", rag.ErrEntityNotFound, id)
		}
	}
	m.relationships = append(m.relationships, rel)
	return nil
}

// LinkDocument records a blog document mentioning the entity.
func (m *MemoryGraph) LinkDocument(ctx context.Context, entityID string, doc rag.DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[entityID]; !ok {
		return fmt.Errorf("%w: %s", rag.ErrEntityNotFound, entityID)
	}
	for _, d := range m.documents[entityID] {
		if d.ID == doc.ID {
			return nil
		}
	}
	m.documents[entityID] = append(m.documents[entityID], doc)
	return nil
}

// FindEntities returns entities whose name appears in the query, or whose name
// or description contains the query, case-insensitively. Entities with more
// linked documents rank first, then the most recently added.
func (m *MemoryGraph) FindEntities(ctx context.Context, query string, limit int) ([]rag.Entity, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []rag.Entity{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		entity   rag.Entity
		mentions int
		pos      int
	}
	var hits []hit
	for pos, id := range m.order {
		e := m.entities[id]
		if matchesEntity(e, q) {
			hits = append(hits, hit{entity: e, mentions: len(m.documents[id]), pos: pos})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].mentions != hits[j].mentions {
			return hits[i].mentions > hits[j].mentions
		}
		return hits[i].pos > hits[j].pos
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]rag.Entity, len(hits))
	for i, h := range hits {
		out[i] = h.entity
	}
	return out, nil
}

func matchesEntity(e rag.Entity, q string) bool {
	name := strings.ToLower(e.Name)
	if name == "" {
		return false
	}
	return strings.Contains(q, name) ||
		strings.Contains(name, q) ||
		strings.Contains(strings.ToLower(e.Description), q)
}

// GetEntityContext returns the outgoing neighbours of an entity, strongest
// edges first, and the documents that mention it.
func (m *MemoryGraph) GetEntityContext(ctx context.Context, entityID string, maxRelated, maxDocs int) (*rag.EntityContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rag.ErrEntityNotFound, entityID)
	}

	var rels []rag.Relationship
	for _, r := range m.relationships {
		if r.Source == entityID {
			rels = append(rels, r)
		}
	}
	sort.SliceStable(rels, func(i, j int) bool { return rels[i].Weight > rels[j].Weight })

	out := &rag.EntityContext{
		Entity:    e,
		Related:   make([]rag.RelatedEntity, 0, len(rels)),
		Documents: make([]rag.DocumentRef, 0),
	}
	for _, r := range rels {
		if maxRelated > 0 && len(out.Related) >= maxRelated {
			break
		}
		out.Related = append(out.Related, rag.RelatedEntity{
			Entity:           m.entities[r.Target],
			RelationshipType: r.Type,
		})
	}

	docs := m.documents[entityID]
	for i := len(docs) - 1; i >= 0; i-- {
		if maxDocs > 0 && len(out.Documents) >= maxDocs {
			break
		}
		out.Documents = append(out.Documents, docs[i])
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryGraph) Close() error {
	return nil
}
