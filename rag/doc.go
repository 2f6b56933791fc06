// Package rag holds the retrieval types shared by the marketing advisor: documents,
// semantic search hits, knowledge graph entities, and the research index that
// persists web search results for later reuse.
//
// Storage backends live in rag/store:
//
//	embedder := rag.NewLangChainEmbedder(lcEmbedder)
//	vs := store.NewInMemoryVectorStore(embedder)
//	index := rag.NewResearchIndex(vs)
//
//	n, err := index.UpsertResearch(ctx, "google ads metrics", results, map[string]any{"source": "tavily"})
//	hits := index.SearchSimilar(ctx, "ad metrics", 5, nil)
//
// The knowledge graph side is reached through the EntityGraph interface, built
// with store.NewMarketingGraph("memory://") or store.NewMarketingGraph("falkordb://host:6379/marketing").
package rag
