package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/smallnest/marketadvisor/log"
	"github.com/tmc/langchaingo/llms"
)

// Query types reported by the planner.
const (
	QueryInsight  = "insight"
	QueryNews     = "news"
	QueryResearch = "research"
	QueryMixed    = "mixed"
)

// Plan is the planner's tool selection for a query.
type Plan struct {
	Tools     []Tool `json:"needed_tools"`
	QueryType string `json:"query_type"`
	Rationale string `json:"reasoning"`
	// Fallback is set when the model's answer could not be used.
	Fallback bool `json:"-"`
}

// Planner asks the model which tools a query needs.
type Planner struct {
	model  llms.Model
	logger log.Logger
}

// NewPlanner creates a planner. A nil logger uses the default logger.
func NewPlanner(model llms.Model, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Planner{model: model, logger: logger}
}

func buildPlanningPrompt(query string) string {
	return fmt.Sprintf(`Analyze this marketing query and determine which tools are needed:
Query: %s

Available tools:
1. search_marketing_blogs - For marketing insights, best practices, case studies from industry blogs
2. tavily_web_search - For current information, news, trends, competitor analysis
3. search_stored_research - For related past research
4. search_marketing_graph - For connections between marketing platforms, strategies, metrics and intents

Respond with a JSON object:
{
    "needed_tools": ["tool1", "tool2"],
    "query_type": "insight|news|research|mixed",
    "reasoning": "brief explanation"
}`, query)
}

// Plan selects tools for query. It always returns a usable plan: when the
// answer cannot be parsed or names no known tool, the first plan of a run
// falls back to blog and web search, later plans to blog search only.
func (p *Planner) Plan(ctx context.Context, query string, first bool) (plan Plan) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Warn("query analysis panicked: %v", rec)
			plan = fallbackPlan(first)
		}
	}()

	text, err := llms.GenerateFromSinglePrompt(ctx, p.model, buildPlanningPrompt(query))
	if err != nil {
		p.logger.Warn("query analysis failed: %v", err)
		return fallbackPlan(first)
	}

	plan, err = parsePlan(text)
	if err != nil {
		p.logger.Warn("failed to parse query analysis: %v", err)
		return fallbackPlan(first)
	}
	return plan
}

type planResponse struct {
	NeededTools []string `json:"needed_tools"`
	QueryType   string   `json:"query_type"`
	Reasoning   string   `json:"reasoning"`
}

func parsePlan(text string) (Plan, error) {
	var raw planResponse
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return Plan{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	tools := make([]Tool, 0, len(raw.NeededTools))
	seen := make(map[Tool]bool)
	for _, name := range raw.NeededTools {
		t, ok := ParseTool(strings.TrimSpace(name))
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		tools = append(tools, t)
	}
	if len(tools) == 0 {
		return Plan{}, fmt.Errorf("plan names no known tool: %v", raw.NeededTools)
	}

	queryType := raw.QueryType
	switch queryType {
	case QueryInsight, QueryNews, QueryResearch, QueryMixed:
	default:
		queryType = QueryMixed
	}
	rationale := raw.Reasoning
	if rationale == "" {
		rationale = "Analyzing query intent"
	}
	return Plan{Tools: tools, QueryType: queryType, Rationale: rationale}, nil
}

func fallbackPlan(first bool) Plan {
	if first {
		return Plan{
			Tools:     []Tool{BlogSearch, WebSearch},
			QueryType: QueryMixed,
			Rationale: "Defaulting to comprehensive search",
			Fallback:  true,
		}
	}
	return Plan{
		Tools:     []Tool{BlogSearch},
		QueryType: QueryMixed,
		Rationale: "Defaulting to blog search",
		Fallback:  true,
	}
}

var (
	codeBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*({.*?})\\s*```")
	jsonRegex      = regexp.MustCompile("(?s){.*}")
)

// extractJSON extracts JSON from a text that might contain markdown code blocks
// or surrounding prose.
func extractJSON(text string) string {
	if matches := codeBlockRegex.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	if match := jsonRegex.FindString(text); match != "" {
		return match
	}
	return text
}
