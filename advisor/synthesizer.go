package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/marketadvisor/log"
	"github.com/smallnest/marketadvisor/memory"
	"github.com/smallnest/marketadvisor/rag"
	"github.com/tmc/langchaingo/llms"
)

var errEmptyResponse = errors.New("empty response from model")

const (
	// sourceExcerptLength bounds each tool result in the synthesis prompt.
	sourceExcerptLength = 1000
	// historyTurns is the number of prior messages shown to the synthesizer.
	historyTurns = 6
)

// Synthesizer merges tool results into the final cited answer.
type Synthesizer struct {
	model  llms.Model
	logger log.Logger
}

// NewSynthesizer creates a synthesizer. A nil logger uses the default logger.
func NewSynthesizer(model llms.Model, logger log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Synthesizer{model: model, logger: logger}
}

func buildSynthesisPrompt(original string, results map[Tool]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are synthesizing marketing research from multiple sources to answer this query: %s\n\n", original)

	sb.WriteString("Sources:\n")
	for _, src := range sourceLabels {
		text := results[src.tool]
		if text == "" {
			text = src.empty
		}
		fmt.Fprintf(&sb, "- %s: %s\n", src.label, rag.Truncate(text, sourceExcerptLength))
	}

	sb.WriteString(`
Task:
1. Identify key insights from each source
2. Resolve any contradictions between sources
3. Prioritize recommendations by relevance and authority
4. Generate a coherent marketing strategy with actionable recommendations

Format your response as:
- Executive Summary (2-3 sentences)
- Key Insights (numbered list with citations)
- Recommended Strategy (actionable steps)
- Sources (list of URLs)

Always include citations (URLs) for each insight.`)
	return sb.String()
}

// Synthesize asks the model for the final answer. Recent history is sent
// ahead of the prompt so follow-up questions keep their context.
func (s *Synthesizer) Synthesize(ctx context.Context, original string, results map[Tool]string, history []memory.Message) (answer string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			answer, err = "", fmt.Errorf("model panicked: %v", rec)
		}
	}()

	history = memory.Tail(history, historyTurns)
	messages := make([]llms.MessageContent, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case memory.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case memory.RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		}
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, buildSynthesisPrompt(original, results)))

	resp, err := s.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", errEmptyResponse
	}
	answer = resp.Choices[0].Content
	s.logger.Info("synthesis complete: %d characters", len(answer))
	return answer, nil
}
