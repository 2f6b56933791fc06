// Market Advisor - An Agentic Marketing Research Assistant in Go
//
// Market Advisor answers marketing questions by planning which sources to
// consult, searching them concurrently, judging the quality of what came back,
// refining the query once when the results are thin, and synthesizing a cited
// answer with a language model. The whole run is a small state graph, and
// every decision it makes is recorded as a reasoning trace that can be
// streamed to a client as it happens.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/smallnest/marketadvisor
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/marketadvisor/advisor"
//		"github.com/smallnest/marketadvisor/llm"
//		"github.com/smallnest/marketadvisor/rag"
//		"github.com/smallnest/marketadvisor/rag/store"
//		"github.com/smallnest/marketadvisor/tool"
//	)
//
//	func main() {
//		model, _ := llm.NewChatModel(llm.ProviderConfig{Provider: "groq", APIKey: "..."})
//		web, _ := tool.NewTavilySearch("...")
//
//		vectors := store.NewInMemoryVectorStore(store.NewHashEmbedder(256))
//		registry := advisor.NewRegistry(advisor.Backends{
//			Web:      web,
//			Research: rag.NewResearchIndex(vectors),
//			Graph:    store.NewMemoryGraph(),
//		})
//
//		adv, _ := advisor.New(llm.NewRateLimitedModel(model), registry)
//		defer adv.Close()
//
//		answer, _ := adv.Respond(context.Background(), "session-1",
//			"What are the key metrics for Google Ads campaigns?", nil)
//		fmt.Println(answer)
//	}
//
// # Packages
//
//   - advisor: the research workflow, its tools, quality scoring and streaming
//   - graph: a generic state graph with conditional edges and node listeners
//   - llm: provider setup and a rate limited, retrying model wrapper
//   - tool: Tavily and Brave web search clients
//   - rag, rag/store: vector search over blog posts and stored research, and the
//     marketing knowledge graph (in memory or FalkorDB)
//   - memory, store/*: conversation history over memory, Redis, Postgres or SQLite
//   - cache: Redis backed caching and quota counters for web search
//   - report: Markdown rendering, sanitizing and citation extraction
//   - config, log, metrics: viper configuration, leveled logging and Prometheus
//
// # Streaming
//
// Stream returns a channel of events. Trace events arrive while the workflow
// runs, the answer follows as token chunks, and a final done event carries the
// sources, citations and timing:
//
//	for e := range adv.Stream(ctx, "session-1", query, nil) {
//		switch e.Type {
//		case advisor.EventToken:
//			fmt.Print(e.Content)
//		case advisor.EventDone:
//			fmt.Println(e.Data["citations"])
//		}
//	}
//
// See examples/marketing_advisor for a complete command line client.
package marketadvisor // import "github.com/smallnest/marketadvisor"
