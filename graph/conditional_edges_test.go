package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/smallnest/marketadvisor/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeState struct {
	Message string
	Value   int
	Path    []string
}

func visit(name string) func(ctx context.Context, s routeState) (routeState, error) {
	return func(ctx context.Context, s routeState) (routeState, error) {
		s.Path = append(s.Path, name)
		return s, nil
	}
}

func TestConditionalEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    routeState
		wantPath []string
	}{
		{
			name:     "urgent routing",
			input:    routeState{Message: "URGENT: budget overspend"},
			wantPath: []string{"router", "urgent"},
		},
		{
			name:     "normal routing",
			input:    routeState{Message: "REGULAR weekly report"},
			wantPath: []string{"router", "normal"},
		},
		{
			name:     "fallback routing",
			input:    routeState{Message: "whenever"},
			wantPath: []string{"router", "low"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := graph.NewStateGraph[routeState]()
			g.AddNode("router", "router", visit("router"))
			g.AddNode("urgent", "urgent", visit("urgent"))
			g.AddNode("normal", "normal", visit("normal"))
			g.AddNode("low", "low", visit("low"))

			g.AddConditionalEdge("router", func(ctx context.Context, s routeState) string {
				switch {
				case strings.Contains(s.Message, "URGENT"):
					return "urgent"
				case strings.Contains(s.Message, "REGULAR"):
					return "normal"
				}
				return "low"
			})
			g.AddEdge("urgent", graph.END)
			g.AddEdge("normal", graph.END)
			g.AddEdge("low", graph.END)
			g.SetEntryPoint("router")

			runnable, err := g.Compile()
			require.NoError(t, err)

			result, err := runnable.Invoke(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, result.Path)
		})
	}
}

func TestConditionalEdges_DirectToEnd(t *testing.T) {
	t.Parallel()

	g := graph.NewStateGraph[routeState]()
	g.AddNode("check", "check", visit("check"))
	g.AddNode("process", "process", func(ctx context.Context, s routeState) (routeState, error) {
		s.Value *= 2
		return s, nil
	})
	g.AddConditionalEdge("check", func(ctx context.Context, s routeState) string {
		if s.Value < 0 {
			return graph.END
		}
		return "process"
	})
	g.AddEdge("process", graph.END)
	g.SetEntryPoint("check")

	runnable, err := g.Compile()
	require.NoError(t, err)

	result, err := runnable.Invoke(context.Background(), routeState{Value: -5})
	require.NoError(t, err)
	assert.Equal(t, -5, result.Value)

	result, err = runnable.Invoke(context.Background(), routeState{Value: 4})
	require.NoError(t, err)
	assert.Equal(t, 8, result.Value)
}

func TestConditionalEdges_BoundedLoop(t *testing.T) {
	t.Parallel()

	// evaluate -> retry -> evaluate runs at most once because the flag flips.
	type loopState struct {
		Retried bool
		Visits  int
	}

	g := graph.NewStateGraph[loopState]()
	g.AddNode("evaluate", "evaluate", func(ctx context.Context, s loopState) (loopState, error) {
		s.Visits++
		return s, nil
	})
	g.AddNode("retry", "retry", func(ctx context.Context, s loopState) (loopState, error) {
		s.Retried = true
		return s, nil
	})
	g.AddNode("finish", "finish", func(ctx context.Context, s loopState) (loopState, error) {
		return s, nil
	})
	g.AddConditionalEdge("evaluate", func(ctx context.Context, s loopState) string {
		if !s.Retried {
			return "retry"
		}
		return "finish"
	})
	g.AddEdge("retry", "evaluate")
	g.AddEdge("finish", graph.END)
	g.SetEntryPoint("evaluate")

	runnable, err := g.Compile()
	require.NoError(t, err)

	result, err := runnable.Invoke(context.Background(), loopState{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Visits)
	assert.True(t, result.Retried)
}
