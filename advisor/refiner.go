package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallnest/marketadvisor/log"
	"github.com/tmc/langchaingo/llms"
)

// Refinement strategies.
const (
	StrategyBroaden  = "broaden"
	StrategyNarrow   = "narrow"
	StrategyRephrase = "rephrase"
)

// fallbackQualifier is appended to the query when the model gives no usable rewrite.
const fallbackQualifier = " marketing strategy best practices"

// Refinement is a rewritten query.
type Refinement struct {
	Query     string `json:"refined_query"`
	Strategy  string `json:"strategy"`
	Rationale string `json:"reasoning"`
	Fallback  bool   `json:"-"`
}

// Refiner rewrites queries whose results were insufficient.
type Refiner struct {
	model  llms.Model
	logger log.Logger
}

// NewRefiner creates a refiner. A nil logger uses the default logger.
func NewRefiner(model llms.Model, logger log.Logger) *Refiner {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Refiner{model: model, logger: logger}
}

func buildRefinementPrompt(original string, q Quality) string {
	return fmt.Sprintf(`The original query "%s" returned insufficient results.

Current results quality: %.2f
Result count: %d

Refine the query to get better results. You can:
1. Broaden the query (add related terms)
2. Narrow the query (be more specific)
3. Rephrase using different terminology

Respond with a JSON object:
{
    "refined_query": "improved query text",
    "strategy": "broaden|narrow|rephrase",
    "reasoning": "why this refinement will help"
}`, original, q.Overall, q.ResultCount)
}

// Refine proposes a better query. It never fails; without a usable answer the
// original query is broadened with a generic marketing qualifier.
func (r *Refiner) Refine(ctx context.Context, original string, q Quality) (ref Refinement) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("query refinement panicked: %v", rec)
			ref = fallbackRefinement(original)
		}
	}()

	text, err := llms.GenerateFromSinglePrompt(ctx, r.model, buildRefinementPrompt(original, q))
	if err != nil {
		r.logger.Warn("query refinement failed: %v", err)
		return fallbackRefinement(original)
	}

	ref, err = parseRefinement(text)
	if err != nil {
		r.logger.Warn("failed to parse query refinement: %v", err)
		return fallbackRefinement(original)
	}
	return ref
}

func parseRefinement(text string) (Refinement, error) {
	var ref Refinement
	if err := json.Unmarshal([]byte(extractJSON(text)), &ref); err != nil {
		return Refinement{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	ref.Query = strings.TrimSpace(ref.Query)
	if ref.Query == "" {
		return Refinement{}, fmt.Errorf("refinement has no query")
	}

	switch ref.Strategy {
	case StrategyBroaden, StrategyNarrow, StrategyRephrase:
	default:
		ref.Strategy = StrategyRephrase
	}
	if ref.Rationale == "" {
		ref.Rationale = "Improving query to get better results"
	}
	return ref, nil
}

func fallbackRefinement(original string) Refinement {
	return Refinement{
		Query:     original + fallbackQualifier,
		Strategy:  StrategyBroaden,
		Rationale: "Adding marketing context to the original query",
		Fallback:  true,
	}
}
