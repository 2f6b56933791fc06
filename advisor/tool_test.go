package advisor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolNames(t *testing.T) {
	assert.Equal(t, []Tool{WebSearch, StoredResearch, BlogSearch, GraphSearch}, Tools())
	assert.Equal(t, "tavily_web_search", WebSearch.String())
	assert.Equal(t, "search_stored_research", StoredResearch.String())
	assert.Equal(t, "search_marketing_blogs", BlogSearch.String())
	assert.Equal(t, "search_marketing_graph", GraphSearch.String())
	assert.Equal(t, "Tool(9)", Tool(9).String())

	for _, tool := range Tools() {
		parsed, ok := ParseTool(tool.String())
		require.True(t, ok)
		assert.Equal(t, tool, parsed)
	}
	_, ok := ParseTool("search_everything")
	assert.False(t, ok)
}

func TestToolText(t *testing.T) {
	data, err := json.Marshal(map[string][]Tool{"tools": {BlogSearch, GraphSearch}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tools":["search_marketing_blogs","search_marketing_graph"]}`, string(data))

	var got []Tool
	require.NoError(t, json.Unmarshal([]byte(`["tavily_web_search"]`), &got))
	assert.Equal(t, []Tool{WebSearch}, got)

	err = json.Unmarshal([]byte(`["bogus"]`), &got)
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = Tool(-1).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownTool)
}
