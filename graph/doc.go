// Package graph is a small typed state-machine runtime.
//
// A StateGraph[S] holds named nodes that transform a state value of type S,
// static edges, and conditional edges whose target is computed from the state.
// Compile validates the topology; StateRunnable.Invoke walks it from the entry
// point until a node routes to END, checking the context between nodes and
// enforcing a step budget so that cyclic graphs always terminate.
//
//	g := graph.NewStateGraph[State]()
//	g.AddNode("evaluate", "score results", evaluate)
//	g.AddNode("refine", "rewrite query", refine)
//	g.AddNode("synthesize", "write answer", synthesize)
//	g.AddConditionalEdge("evaluate", func(ctx context.Context, s State) string {
//		if s.NeedsRefinement() {
//			return "refine"
//		}
//		return "synthesize"
//	})
//	g.AddEdge("refine", "evaluate")
//	g.AddEdge("synthesize", graph.END)
//	g.SetEntryPoint("evaluate")
//
//	runnable, err := g.Compile()
//	final, err := runnable.Invoke(ctx, State{})
//
// Listeners registered with AddListener receive start, complete and error
// events for every node, which hosts use for logging and metrics.
package graph
