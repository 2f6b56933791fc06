package graph

import (
	"context"
	"fmt"
	"time"
)

// StateGraph is a state machine over a typed state value S.
// Nodes transform the state; static and conditional edges pick the next node.
//
// Example usage:
//
//	type MyState struct {
//	    Count int
//	}
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
type StateGraph[S any] struct {
	nodes            map[string]TypedNode[S]
	edges            map[string]string
	conditionalEdges map[string]func(ctx context.Context, state S) string
	entryPoint       string
	maxSteps         int
}

// TypedNode represents a typed node in the graph.
type TypedNode[S any] struct {
	Name        string
	Description string
	Function    func(ctx context.Context, state S) (S, error)
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]TypedNode[S]),
		edges:            make(map[string]string),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
		maxSteps:         DefaultMaxSteps,
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = TypedNode[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a static edge. A node has at most one static successor;
// adding a second edge from the same node replaces the first.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges[from] = to
}

// AddConditionalEdge adds an edge whose target is chosen at runtime.
// It takes precedence over a static edge from the same node.
//
//	g.AddConditionalEdge("check", func(ctx context.Context, state MyState) string {
//	    if state.Count > 10 {
//	        return "high"
//	    }
//	    return "low"
//	})
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetMaxSteps bounds the number of node executions per Invoke.
// Values below one restore DefaultMaxSteps.
func (g *StateGraph[S]) SetMaxSteps(n int) {
	if n < 1 {
		n = DefaultMaxSteps
	}
	g.maxSteps = n
}

// Edges returns the static edges of the graph.
func (g *StateGraph[S]) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for from, to := range g.edges {
		out = append(out, Edge{From: from, To: to})
	}
	return out
}

// Compile validates the graph and returns a StateRunnable.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, from)
		}
		if _, ok := g.nodes[to]; !ok && to != END {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, to)
		}
	}
	for from := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, from)
		}
	}

	return &StateRunnable[S]{graph: g}, nil
}

// StateRunnable represents a compiled state graph.
type StateRunnable[S any] struct {
	graph     *StateGraph[S]
	listeners []NodeListener[S]
}

// AddListener registers a listener notified around every node execution.
func (r *StateRunnable[S]) AddListener(l NodeListener[S]) *StateRunnable[S] {
	r.listeners = append(r.listeners, l)
	return r
}

// Invoke runs the graph from the entry point until a node routes to END.
//
// The context is checked before every node; on cancellation the state reached
// so far is returned together with the context error. Node errors and panics
// stop the run and are returned wrapped with the node name.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	state := initialState
	current := r.graph.entryPoint

	for step := 0; current != END; step++ {
		if step >= r.graph.maxSteps {
			return state, fmt.Errorf("%w: %d", ErrMaxStepsExceeded, r.graph.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		next, err := r.runNode(ctx, node, state)
		if err != nil {
			return state, fmt.Errorf("error in node %s: %w", node.Name, err)
		}
		state = next

		current, err = r.nextNode(ctx, node.Name, state)
		if err != nil {
			return state, err
		}
	}

	return state, nil
}

func (r *StateRunnable[S]) runNode(ctx context.Context, node TypedNode[S], state S) (result S, err error) {
	r.notify(ctx, NodeEventStart, node.Name, state, nil, 0)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			result = state
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			r.notify(ctx, NodeEventError, node.Name, state, err, time.Since(start))
			return
		}
		r.notify(ctx, NodeEventComplete, node.Name, result, nil, time.Since(start))
	}()

	return node.Function(ctx, state)
}

func (r *StateRunnable[S]) nextNode(ctx context.Context, from string, state S) (string, error) {
	if cond, ok := r.graph.conditionalEdges[from]; ok {
		next := cond(ctx, state)
		if next == "" {
			return "", fmt.Errorf("conditional edge returned empty next node from %s", from)
		}
		return next, nil
	}
	if to, ok := r.graph.edges[from]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}

func (r *StateRunnable[S]) notify(ctx context.Context, event NodeEvent, name string, state S, err error, d time.Duration) {
	for _, l := range r.listeners {
		func() {
			defer func() { _ = recover() }()
			l.OnNodeEvent(ctx, NodeEventInfo[S]{
				Event:    event,
				NodeName: name,
				State:    state,
				Err:      err,
				Duration: d,
			})
		}()
	}
}
