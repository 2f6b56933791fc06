package advisor

import (
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when a tool name is not part of the registry.
var ErrUnknownTool = errors.New("unknown tool")

// Tool identifies one of the fixed retrieval capabilities.
type Tool int

const (
	WebSearch Tool = iota
	StoredResearch
	BlogSearch
	GraphSearch

	numTools
)

var toolNames = [numTools]string{
	WebSearch:      "tavily_web_search",
	StoredResearch: "search_stored_research",
	BlogSearch:     "search_marketing_blogs",
	GraphSearch:    "search_marketing_graph",
}

// errorPrefixes start the result text of a failed call.
var errorPrefixes = [numTools]string{
	WebSearch:      "Error searching web: ",
	StoredResearch: "Error searching stored research: ",
	BlogSearch:     "Error searching marketing blogs: ",
	GraphSearch:    "Error searching knowledge graph: ",
}

// sourceLabels name each tool in the synthesis prompt, in prompt order.
var sourceLabels = []struct {
	tool  Tool
	label string
	empty string
}{
	{BlogSearch, "Marketing Blogs", "No blog results"},
	{WebSearch, "Web Search", "No web results"},
	{StoredResearch, "Stored Research", "No stored results"},
	{GraphSearch, "Knowledge Graph", "No graph results"},
}

// String returns the tool name used in prompts and events.
func (t Tool) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// Valid reports whether t is a registered tool.
func (t Tool) Valid() bool {
	return t >= 0 && t < numTools
}

// ErrorPrefix returns the text that starts a failed result of t.
func (t Tool) ErrorPrefix() string {
	if !t.Valid() {
		return "Error: "
	}
	return errorPrefixes[t]
}

// ParseTool resolves a tool name.
func ParseTool(name string) (Tool, bool) {
	for i, n := range toolNames {
		if n == name {
			return Tool(i), true
		}
	}
	return 0, false
}

// Tools returns every tool in declaration order.
func Tools() []Tool {
	out := make([]Tool, 0, numTools)
	for t := range numTools {
		out = append(out, t)
	}
	return out
}

func (t Tool) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTool, int(t))
	}
	return []byte(toolNames[t]), nil
}

func (t *Tool) UnmarshalText(text []byte) error {
	v, ok := ParseTool(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTool, string(text))
	}
	*t = v
	return nil
}

// toolNamesOf renders tools for log lines and events.
func toolNamesOf(tools []Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.String()
	}
	return out
}
