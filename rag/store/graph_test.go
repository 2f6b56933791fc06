package store

import (
	"context"
	"testing"

	"github.com/smallnest/marketadvisor/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGraph(t *testing.T, g MarketingGraph) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []rag.Entity{
		{ID: "ga", Name: "Google Ads", Type: "Platform"},
		{ID: "ctr", Name: "CTR", Type: "Metric", Description: "click-through rate"},
		{ID: "cpc", Name: "CPC", Type: "Metric", Description: "cost per click"},
		{ID: "fb", Name: "Facebook Ads", Type: "Platform"},
	} {
		require.NoError(t, g.AddEntity(ctx, e))
	}
	require.NoError(t, g.AddRelationship(ctx, rag.Relationship{Source: "ga", Target: "ctr", Type: "MEASURES", Weight: 0.6}))
	require.NoError(t, g.AddRelationship(ctx, rag.Relationship{Source: "ga", Target: "cpc", Type: "MEASURES", Weight: 0.9}))
	require.NoError(t, g.LinkDocument(ctx, "ga", rag.DocumentRef{ID: "d1", Title: "PPC basics", URL: "https://example.com/ppc"}))
	require.NoError(t, g.LinkDocument(ctx, "ga", rag.DocumentRef{ID: "d1", Title: "PPC basics", URL: "https://example.com/ppc"}))
}

func TestMemoryGraph_FindEntities(t *testing.T) {
	g := NewMemoryGraph()
	seedGraph(t, g)
	ctx := context.Background()

	found, err := g.FindEntities(ctx, "What are Google Ads key metrics?", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ga", found[0].ID)

	found, err = g.FindEntities(ctx, "ads", 5)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "ga", found[0].ID, "entity with linked documents ranks first")

	found, err = g.FindEntities(ctx, "Click", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = g.FindEntities(ctx, "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryGraph_GetEntityContext(t *testing.T) {
	g := NewMemoryGraph()
	seedGraph(t, g)
	ctx := context.Background()

	ec, err := g.GetEntityContext(ctx, "ga", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, "Google Ads", ec.Entity.Name)
	require.Len(t, ec.Related, 2)
	assert.Equal(t, "CPC", ec.Related[0].Entity.Name)
	assert.Equal(t, "MEASURES", ec.Related[0].RelationshipType)
	require.Len(t, ec.Documents, 1)

	ec, err = g.GetEntityContext(ctx, "ga", 1, 10)
	require.NoError(t, err)
	assert.Len(t, ec.Related, 1)

	_, err = g.GetEntityContext(ctx, "missing", 5, 5)
	assert.ErrorIs(t, err, rag.ErrEntityNotFound)
}

func TestMemoryGraph_Validation(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	assert.Error(t, g.AddEntity(ctx, rag.Entity{Name: "no id"}))
	assert.ErrorIs(t, g.AddRelationship(ctx, rag.Relationship{Source: "a", Target: "b"}), rag.ErrEntityNotFound)
	assert.ErrorIs(t, g.LinkDocument(ctx, "a", rag.DocumentRef{ID: "d"}), rag.ErrEntityNotFound)
}

func TestNewMarketingGraph(t *testing.T) {
	g, err := NewMarketingGraph("memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryGraph{}, g)

	g, err = NewMarketingGraph("falkordb://localhost:6379/marketing")
	require.NoError(t, err)
	assert.IsType(t, &FalkorDBGraph{}, g)
	assert.Equal(t, "marketing", g.(*FalkorDBGraph).graphName)
	require.NoError(t, g.Close())

	_, err = NewMarketingGraph("neo4j://localhost")
	assert.Error(t, err)
}
