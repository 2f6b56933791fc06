package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/marketadvisor/rag"
)

// FalkorDBGraph implements MarketingGraph on FalkorDB through GRAPH.QUERY.
//
// Entities are (:MarketingEntity) nodes, blog posts are (:BlogPost) nodes
// linked by (entity)-[:MENTIONED_IN]->(post), and entity relationships are
// edges typed by their sanitized relationship type.
type FalkorDBGraph struct {
	client    redis.UniversalClient
	graphName string
}

var _ MarketingGraph = (*FalkorDBGraph)(nil)

// NewFalkorDBGraph connects to falkordb://host:port/graph_name.
func NewFalkorDBGraph(connectionString string) (*FalkorDBGraph, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if u.Scheme != "falkordb" {
		return nil, fmt.Errorf("invalid connection string: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid connection string: missing host")
	}

	opts := &redis.Options{Addr: u.Host}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	return NewFalkorDBGraphWithClient(redis.NewClient(opts), strings.TrimPrefix(u.Path, "/")), nil
}

// NewFalkorDBGraphWithClient creates a graph over an existing client.
func NewFalkorDBGraphWithClient(client redis.UniversalClient, graphName string) *FalkorDBGraph {
	if graphName == "" {
		graphName = "marketing"
	}
	return &FalkorDBGraph{client: client, graphName: graphName}
}

// AddEntity merges an entity node by ID.
func (f *FalkorDBGraph) AddEntity(ctx context.Context, entity rag.Entity) error {
	if entity.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	q := "MERGE (e:MarketingEntity {id: $id}) SET e.name = $name, e.entity_type = $type, e.description = $description"
	_, err := f.query(ctx, q, map[string]any{
		"id":          entity.ID,
		"name":        entity.Name,
		"type":        entity.Type,
		"description": entity.Description,
	})
	return err
}

// AddRelationship merges a typed edge between two entities.
func (f *FalkorDBGraph) AddRelationship(ctx context.Context, rel rag.Relationship) error {
	q := fmt.Sprintf("MATCH (a:MarketingEntity {id: $source}), (b:MarketingEntity {id: $target}) "+
		"MERGE (a)-[r:%s]->(b) SET r.confidence = $weight", sanitizeLabel(rel.Type))
	_, err := f.query(ctx, q, map[string]any{
		"source": rel.Source,
		"target": rel.Target,
		"weight": rel.Weight,
	})
	return err
}

// LinkDocument merges a blog post node and its MENTIONED_IN edge.
func (f *FalkorDBGraph) LinkDocument(ctx context.Context, entityID string, doc rag.DocumentRef) error {
	q := "MATCH (e:MarketingEntity {id: $entity}) " +
		"MERGE (b:BlogPost {id: $id}) SET b.title = $title, b.url = $url " +
		"MERGE (e)-[:MENTIONED_IN]->(b)"
	_, err := f.query(ctx, q, map[string]any{
		"entity": entityID,
		"id":     doc.ID,
		"title":  doc.Title,
		"url":    doc.URL,
	})
	return err
}

// FindEntities mirrors MemoryGraph.FindEntities in Cypher.
func (f *FalkorDBGraph) FindEntities(ctx context.Context, query string, limit int) ([]rag.Entity, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []rag.Entity{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := f.query(ctx,
		"MATCH (e:MarketingEntity) "+
			"WHERE e.name <> '' AND ($q CONTAINS toLower(e.name) OR toLower(e.name) CONTAINS $q OR toLower(e.description) CONTAINS $q) "+
			"OPTIONAL MATCH (e)-[:MENTIONED_IN]->(b:BlogPost) "+
			"WITH e, count(b) AS mentions "+
			"RETURN e.id, e.name, e.entity_type, e.description ORDER BY mentions DESC LIMIT $limit",
		map[string]any{"q": q, "limit": limit})
	if err != nil {
		return nil, err
	}

	out := make([]rag.Entity, 0, len(rows))
	for _, row := range rows {
		out = append(out, entityFromRow(row))
	}
	return out, nil
}

// GetEntityContext loads an entity, its strongest outgoing relationships and
// the blog posts mentioning it.
func (f *FalkorDBGraph) GetEntityContext(ctx context.Context, entityID string, maxRelated, maxDocs int) (*rag.EntityContext, error) {
	params := map[string]any{"id": entityID, "max_related": maxRelated, "max_docs": maxDocs}

	rows, err := f.query(ctx,
		"MATCH (e:MarketingEntity {id: $id}) RETURN e.id, e.name, e.entity_type, e.description", params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", rag.ErrEntityNotFound, entityID)
	}
	out := &rag.EntityContext{
		Entity:    entityFromRow(rows[0]),
		Related:   make([]rag.RelatedEntity, 0),
		Documents: make([]rag.DocumentRef, 0),
	}

	if maxRelated > 0 {
		rows, err = f.query(ctx,
			"MATCH (e:MarketingEntity {id: $id})-[r]->(o:MarketingEntity) "+
				"RETURN o.id, o.name, o.entity_type, o.description, type(r) ORDER BY r.confidence DESC LIMIT $max_related", params)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out.Related = append(out.Related, rag.RelatedEntity{
				Entity:           entityFromRow(row),
				RelationshipType: cell(row, 4),
			})
		}
	}

	if maxDocs > 0 {
		rows, err = f.query(ctx,
			"MATCH (e:MarketingEntity {id: $id})-[:MENTIONED_IN]->(b:BlogPost) "+
				"RETURN b.id, b.title, b.url LIMIT $max_docs", params)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out.Documents = append(out.Documents, rag.DocumentRef{ID: cell(row, 0), Title: cell(row, 1), URL: cell(row, 2)})
		}
	}
	return out, nil
}

// Close closes the underlying client.
func (f *FalkorDBGraph) Close() error {
	return f.client.Close()
}

// query runs a parameterized Cypher query and returns its result rows.
func (f *FalkorDBGraph) query(ctx context.Context, q string, params map[string]any) ([][]any, error) {
	res, err := f.client.Do(ctx, "GRAPH.QUERY", f.graphName, cypherParams(params)+q).Result()
	if err != nil {
		return nil, fmt.Errorf("graph query failed: %w", err)
	}
	return parseRows(res)
}

// parseRows extracts the rows of a GRAPH.QUERY reply. Replies with a result set
// have three parts (header, rows, statistics); write-only queries return only
// statistics.
func parseRows(res any) ([][]any, error) {
	r, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", res)
	}
	switch len(r) {
	case 1:
		return nil, nil
	case 3:
		raw, ok := r[1].([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected rows type: %T", r[1])
		}
		rows := make([][]any, 0, len(raw))
		for _, row := range raw {
			if vals, ok := row.([]any); ok {
				rows = append(rows, vals)
			}
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unexpected response length: %d", len(r))
	}
}

func entityFromRow(row []any) rag.Entity {
	return rag.Entity{
		ID:          cell(row, 0),
		Name:        cell(row, 1),
		Type:        cell(row, 2),
		Description: cell(row, 3),
	}
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

var labelRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeLabel(l string) string {
	clean := labelRegex.ReplaceAllString(strings.ToUpper(l), "_")
	if clean == "" {
		return "RELATED_TO"
	}
	return clean
}

// cypherParams renders the CYPHER prefix that binds query parameters.
func cypherParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("CYPHER")
	for _, k := range keys {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(cypherLiteral(params[k]))
	}
	sb.WriteString(" ")
	return sb.String()
}

func cypherLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quoteString(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return quoteString(fmt.Sprint(x))
	}
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
