package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/smallnest/marketadvisor/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanner_Plan(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		first     bool
		wantTools []Tool
		wantType  string
		fallback  bool
	}{
		{
			name:      "plain json",
			response:  `{"needed_tools": ["search_marketing_blogs", "tavily_web_search"], "query_type": "insight", "reasoning": "best practices"}`,
			first:     true,
			wantTools: []Tool{BlogSearch, WebSearch},
			wantType:  QueryInsight,
		},
		{
			name:      "code block with prose",
			response:  "Sure!\n```json\n{\"needed_tools\": [\"search_marketing_graph\"], \"query_type\": \"research\", \"reasoning\": \"relationships\"}\n```\nDone.",
			first:     true,
			wantTools: []Tool{GraphSearch},
			wantType:  QueryResearch,
		},
		{
			name:      "unknown tools dropped and duplicates removed",
			response:  `Here: {"needed_tools": ["crystal_ball", "search_stored_research", "search_stored_research"], "query_type": "weird"}`,
			first:     true,
			wantTools: []Tool{StoredResearch},
			wantType:  QueryMixed,
		},
		{
			name:      "unparsable on first pass",
			response:  "I think you should search blogs.",
			first:     true,
			wantTools: []Tool{BlogSearch, WebSearch},
			wantType:  QueryMixed,
			fallback:  true,
		},
		{
			name:      "unparsable after refinement",
			response:  "I think you should search blogs.",
			first:     false,
			wantTools: []Tool{BlogSearch},
			wantType:  QueryMixed,
			fallback:  true,
		},
		{
			name:      "only unknown tools",
			response:  `{"needed_tools": ["crystal_ball"], "query_type": "news"}`,
			first:     false,
			wantTools: []Tool{BlogSearch},
			wantType:  QueryMixed,
			fallback:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(&MockModel{plans: []string{tt.response}}, &log.NoOpLogger{})
			plan := p.Plan(context.Background(), "What are Google Ads key metrics?", tt.first)
			assert.Equal(t, tt.wantTools, plan.Tools)
			assert.Equal(t, tt.wantType, plan.QueryType)
			assert.Equal(t, tt.fallback, plan.Fallback)
			assert.NotEmpty(t, plan.Rationale)
		})
	}
}

func TestPlanner_ModelError(t *testing.T) {
	p := NewPlanner(&MockModel{planErr: errors.New("boom")}, &log.NoOpLogger{})

	plan := p.Plan(context.Background(), "q", true)
	assert.True(t, plan.Fallback)
	assert.Equal(t, []Tool{BlogSearch, WebSearch}, plan.Tools)
}

func TestPlanner_ModelPanic(t *testing.T) {
	p := NewPlanner(&MockModel{panicOn: "plan"}, &log.NoOpLogger{})

	plan := p.Plan(context.Background(), "q", true)
	assert.True(t, plan.Fallback)
	assert.Equal(t, []Tool{BlogSearch, WebSearch}, plan.Tools)

	plan = p.Plan(context.Background(), "q", false)
	assert.Equal(t, []Tool{BlogSearch}, plan.Tools)
}

func TestPlanningPrompt(t *testing.T) {
	prompt := buildPlanningPrompt("How do I grow on TikTok?")
	assert.Contains(t, prompt, "Query: How do I grow on TikTok?")
	for _, tool := range Tools() {
		assert.Contains(t, prompt, tool.String())
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`prefix {"a": {"b": 2}} suffix`, `{"a": {"b": 2}}`},
		{"no json", "no json"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, extractJSON(tt.input))
	}
}
