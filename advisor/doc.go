// Package advisor implements the marketing research workflow.
//
// A run analyzes the query, selects retrieval tools, executes them
// concurrently, scores their results and either refines the query once and
// tries again or synthesizes a cited answer:
//
//	query_analysis -> tool_selection -> execute_tools -> evaluate_results
//	                       ^                                  |
//	                       +---------- refine_query <---------+
//	                                                          |
//	                                   END <- synthesize <----+
//
// The controller is fail-soft below its boundary. Tool failures become low
// quality result text, unparsable planner and refiner answers fall back to
// defaults, and a failed synthesis still yields an error-valued answer. Only
// an abandoned run, such as one whose context was cancelled, is reported as an
// error, and only completed runs are written to conversation memory.
//
// # Basic Usage
//
//	registry := advisor.NewRegistry(advisor.Backends{
//		Web:      tavily,
//		Research: rag.NewResearchIndex(vectors),
//		Graph:    entityGraph,
//	})
//	adv, err := advisor.New(model, registry, advisor.WithMemory(mem))
//	if err != nil {
//		return err
//	}
//	defer adv.Close()
//
//	for ev := range adv.Stream(ctx, sessionID, "How should we budget Google Ads?", nil) {
//		switch ev.Type {
//		case advisor.EventToken:
//			fmt.Print(ev.Content)
//		case advisor.EventError:
//			return errors.New(ev.Content)
//		}
//	}
package advisor
