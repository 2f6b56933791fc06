package advisor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/marketadvisor/graph"
	"github.com/smallnest/marketadvisor/log"
	"github.com/smallnest/marketadvisor/metrics"
	"github.com/smallnest/marketadvisor/rag"
)

// Workflow node names.
const (
	NodeQueryAnalysis = "query_analysis"
	NodeToolSelection = "tool_selection"
	NodeExecuteTools  = "execute_tools"
	NodeEvaluate      = "evaluate_results"
	NodeRefineQuery   = "refine_query"
	NodeSynthesize    = "synthesize"
)

// maxWorkflowSteps covers two full passes plus the refinement and synthesis nodes.
const maxWorkflowSteps = 16

type workflow struct {
	planner     *Planner
	refiner     *Refiner
	synthesizer *Synthesizer
	registry    *Registry
	logger      log.Logger
	metrics     *metrics.Recorder
}

// build wires the nodes:
//
//	query_analysis -> tool_selection -> execute_tools -> evaluate_results
//	evaluate_results -> refine_query | synthesize
//	refine_query -> tool_selection
//	synthesize -> END
func (w *workflow) build() *graph.StateGraph[State] {
	g := graph.NewStateGraph[State]()

	g.AddNode(NodeQueryAnalysis, "Analyze query intent and choose tools", w.analyzeQuery)
	g.AddNode(NodeToolSelection, "Resolve the tools for the current query", w.selectTools)
	g.AddNode(NodeExecuteTools, "Run the selected tools concurrently", w.executeTools)
	g.AddNode(NodeEvaluate, "Score tool results", w.evaluateResults)
	g.AddNode(NodeRefineQuery, "Rewrite a query with weak results", w.refineQuery)
	g.AddNode(NodeSynthesize, "Merge results into a cited answer", w.synthesize)

	g.SetEntryPoint(NodeQueryAnalysis)
	g.AddEdge(NodeQueryAnalysis, NodeToolSelection)
	g.AddEdge(NodeToolSelection, NodeExecuteTools)
	g.AddEdge(NodeExecuteTools, NodeEvaluate)
	g.AddConditionalEdge(NodeEvaluate, w.route)
	g.AddEdge(NodeRefineQuery, NodeToolSelection)
	g.AddEdge(NodeSynthesize, graph.END)
	g.SetMaxSteps(maxWorkflowSteps)

	return g
}

func (w *workflow) analyzeQuery(ctx context.Context, s State) (State, error) {
	w.logger.Info("query analysis: %s", rag.Truncate(s.CurrentQuery, 100))

	plan := w.planner.Plan(ctx, s.CurrentQuery, true)
	if plan.Fallback {
		w.metrics.Fallback("plan")
	}
	s.Plan = plan
	s.SelectedTools = plan.Tools

	names := toolNamesOf(plan.Tools)
	e := newEvent(EventQueryAnalysis, map[string]any{
		"analysis": map[string]any{
			"needed_tools": names,
			"query_type":   plan.QueryType,
			"reasoning":    plan.Rationale,
		},
		"reasoning_steps": []map[string]any{{
			"step":      1,
			"action":    "Query Analysis",
			"reasoning": plan.Rationale,
			"decision":  fmt.Sprintf("Query type: %s. Selected tools: %s", plan.QueryType, strings.Join(names, ", ")),
			"tools":     names,
		}},
	})
	e.Query = s.CurrentQuery

	w.logger.Info("selected tools: %v", names)
	return s.withEvent(e), nil
}

// selectTools plans again for a refined query, whose wording may call for
// different tools.
func (w *workflow) selectTools(ctx context.Context, s State) (State, error) {
	if s.Attempts > 0 {
		plan := w.planner.Plan(ctx, s.CurrentQuery, false)
		if plan.Fallback {
			w.metrics.Fallback("plan")
		}
		s.Plan = plan
		s.SelectedTools = plan.Tools
		w.logger.Info("tools for refined query: %v", toolNamesOf(plan.Tools))
	}

	for _, t := range s.SelectedTools {
		e := newEvent(EventToolCallStart, nil)
		e.Tool = t.String()
		e.Query = s.CurrentQuery
		s = s.withEvent(e)
	}
	return s, nil
}

func (w *workflow) executeTools(ctx context.Context, s State) (State, error) {
	w.logger.Info("executing tools: %v", toolNamesOf(s.SelectedTools))

	results := w.registry.Run(ctx, s.SelectedTools, s.CurrentQuery)

	executed := make([]Tool, 0, len(results))
	for _, t := range s.SelectedTools {
		if _, ok := results[t]; ok && !slices.Contains(executed, t) {
			executed = append(executed, t)
		}
	}
	s.Executed = executed
	return s.withResults(results), nil
}

func (w *workflow) evaluateResults(ctx context.Context, s State) (State, error) {
	scores, q := Evaluate(s.Results)
	s.Scores = scores
	s.Quality = q

	for _, t := range s.Executed {
		text := s.Results[t]
		score := scores[t]
		lines := 0
		if text != "" {
			lines = strings.Count(text, "\n") + 1
		}

		reasoning := fmt.Sprintf("Tool '%s' returned %d result lines with quality score %.2f. ", t, lines, score)
		switch {
		case score < 0.5:
			reasoning += "Results are below optimal quality threshold."
		case score >= 0.8:
			reasoning += "Results meet high quality standards."
		default:
			reasoning += "Results are acceptable but could be improved."
		}

		e := newEvent(EventToolCallResult, map[string]any{
			"results_count": lines,
			"quality_score": score,
			"word_count":    len(strings.Fields(text)),
			"reasoning":     reasoning,
		})
		e.Tool = t.String()
		s = s.withEvent(e)
	}

	reasoning := fmt.Sprintf("Evaluated %d tool results. Average quality: %.2f, Total results: %d. ",
		len(s.Results), q.Overall, q.ResultCount)
	next := NodeSynthesize
	switch {
	case s.ShouldRefine():
		reasoning += "Results are insufficient. Query refinement may be needed."
		next = NodeRefineQuery
	case q.Insufficient():
		reasoning += "Results are insufficient, but the query was already refined. Proceeding to synthesis."
	default:
		reasoning += "Results are sufficient. Proceeding to synthesis."
	}

	w.metrics.Quality(q.Overall)
	w.logger.Info("result quality: overall=%.2f count=%d next=%s", q.Overall, q.ResultCount, next)

	return s.withEvent(newEvent(EventEvaluation, map[string]any{
		"overall_quality": q.Overall,
		"result_count":    q.ResultCount,
		"reasoning":       reasoning,
		"next_action":     next,
	})), nil
}

func (w *workflow) route(_ context.Context, s State) string {
	if s.ShouldRefine() {
		return NodeRefineQuery
	}
	return NodeSynthesize
}

func (w *workflow) refineQuery(ctx context.Context, s State) (State, error) {
	w.logger.Info("refining query: %s", s.OriginalQuery)

	ref := w.refiner.Refine(ctx, s.OriginalQuery, s.Quality)
	if ref.Fallback {
		w.metrics.Fallback("refine")
	}
	w.metrics.Refinement(ref.Strategy)

	s.Refinement = &ref
	s.CurrentQuery = ref.Query
	s.Attempts++

	w.logger.Info("query refined: %s -> %s", s.OriginalQuery, ref.Query)
	return s.withEvent(newEvent(EventQueryRefinement, map[string]any{
		"original":  s.OriginalQuery,
		"refined":   ref.Query,
		"strategy":  ref.Strategy,
		"reasoning": fmt.Sprintf("Refinement strategy: %s. %s", ref.Strategy, ref.Rationale),
	})), nil
}

func (w *workflow) synthesize(ctx context.Context, s State) (State, error) {
	sources := toolNamesOf(s.Sources())
	w.logger.Info("synthesizing results from %d sources", len(sources))

	s = s.withEvent(newEvent(EventSynthesisStart, map[string]any{
		"sources": sources,
		"reasoning": fmt.Sprintf("Combining insights from %d sources: %s. "+
			"Identifying key themes, resolving contradictions, and prioritizing recommendations by relevance.",
			len(sources), strings.Join(sources, ", ")),
	}))

	answer, err := w.synthesizer.Synthesize(ctx, s.OriginalQuery, s.Results, s.History)
	if err != nil {
		w.logger.Error("synthesis error: %v", err)
		s.FinalAnswer = "Error synthesizing results: " + err.Error()
		s.SynthesisErr = err
		e := newEvent(EventSynthesisError, nil)
		e.Content = err.Error()
		s = s.withEvent(e)
	} else {
		s.FinalAnswer = answer
	}
	s.Done = true
	return s, nil
}
