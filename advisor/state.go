package advisor

import (
	"maps"
	"slices"

	"github.com/smallnest/marketadvisor/memory"
)

// MaxRefinements caps the refinement cycles of a run, which bounds a run to
// MaxRefinements+1 tool executions.
const MaxRefinements = 1

// State is the workflow state of one run. Nodes receive it by value and
// return an updated copy; collections are cloned before they are modified so
// earlier snapshots stay intact.
type State struct {
	SessionID string
	// History is the conversation so far, read once before the run.
	History []memory.Message

	// OriginalQuery is the user's input and frames the final synthesis.
	OriginalQuery string
	// CurrentQuery is the query sent to the tools, rewritten by a refinement.
	CurrentQuery string

	Plan          Plan
	SelectedTools []Tool
	// Executed lists the tools run in the latest execution.
	Executed []Tool

	// Results accumulates across executions; a tool run again replaces its entry.
	Results map[Tool]string
	Scores  map[Tool]float64
	Quality Quality

	// Attempts counts applied refinements.
	Attempts   int
	Refinement *Refinement

	Trace []Event

	FinalAnswer string
	// Done is set once FinalAnswer holds the answer or the synthesis error text.
	Done bool
	// SynthesisErr is the failure behind an error-valued FinalAnswer.
	SynthesisErr error
}

// NewState creates the initial state of a run.
func NewState(sessionID, query string, history []memory.Message) State {
	return State{
		SessionID:     sessionID,
		History:       history,
		OriginalQuery: query,
		CurrentQuery:  query,
		Results:       map[Tool]string{},
		Scores:        map[Tool]float64{},
	}
}

// RefinementApplied reports whether the refinement budget is spent.
func (s State) RefinementApplied() bool {
	return s.Attempts >= MaxRefinements
}

// ShouldRefine is the routing guard after evaluation.
func (s State) ShouldRefine() bool {
	return s.Quality.Insufficient() && !s.RefinementApplied()
}

// Sources returns the tools that produced results, in declaration order.
func (s State) Sources() []Tool {
	out := make([]Tool, 0, len(s.Results))
	for _, t := range Tools() {
		if _, ok := s.Results[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (s State) withEvent(e Event) State {
	s.Trace = append(slices.Clip(s.Trace), e)
	return s
}

func (s State) withResults(results map[Tool]string) State {
	merged := maps.Clone(s.Results)
	if merged == nil {
		merged = make(map[Tool]string, len(results))
	}
	maps.Copy(merged, results)
	s.Results = merged
	return s
}
