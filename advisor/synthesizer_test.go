package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/smallnest/marketadvisor/log"
	"github.com/smallnest/marketadvisor/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestSynthesisPrompt(t *testing.T) {
	blog := strings.Repeat("b", 1500)
	prompt := buildSynthesisPrompt("budget split?", map[Tool]string{
		BlogSearch: blog,
		WebSearch:  "Web Search Results for: budget split?",
	})

	assert.True(t, strings.HasPrefix(prompt, "You are synthesizing marketing research from multiple sources to answer this query: budget split?"))
	assert.Contains(t, prompt, "- Marketing Blogs: "+strings.Repeat("b", 1000)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("b", 1001))
	assert.Contains(t, prompt, "- Web Search: Web Search Results for: budget split?\n")
	assert.Contains(t, prompt, "- Stored Research: No stored results\n")
	assert.Contains(t, prompt, "- Knowledge Graph: No graph results\n")
	assert.Contains(t, prompt, "Always include citations (URLs) for each insight.")

	// Blogs come first, then web, stored research and graph.
	assert.Less(t, strings.Index(prompt, "Marketing Blogs"), strings.Index(prompt, "Web Search:"))
	assert.Less(t, strings.Index(prompt, "Stored Research:"), strings.Index(prompt, "Knowledge Graph:"))
}

func TestSynthesizer_History(t *testing.T) {
	model := &MockModel{answer: "## Executive Summary\nSpend more on search."}
	s := NewSynthesizer(model, &log.NoOpLogger{})

	var history []memory.Message
	for i := range 8 {
		role := memory.RoleUser
		if i%2 == 1 {
			role = memory.RoleAssistant
		}
		history = append(history, memory.NewMessage("s1", role, fmt.Sprintf("turn %d", i), nil))
	}
	history = append(history, memory.NewMessage("s1", memory.RoleSystem, "ignored", nil))

	answer, err := s.Synthesize(context.Background(), "and for video?", map[Tool]string{}, history)
	require.NoError(t, err)
	assert.Equal(t, "## Executive Summary\nSpend more on search.", answer)

	require.Len(t, model.synthMessages, 1)
	msgs := model.synthMessages[0]
	// The last six messages include the system message, which is skipped.
	require.Len(t, msgs, 6)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[0].Role)
	assert.Equal(t, "turn 3", lastText(msgs[:1]))
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[5].Role)
	assert.Contains(t, lastText(msgs), "and for video?")
}

func TestSynthesizer_Error(t *testing.T) {
	s := NewSynthesizer(&MockModel{synthErr: errors.New("model unavailable")}, &log.NoOpLogger{})
	_, err := s.Synthesize(context.Background(), "q", nil, nil)
	assert.EqualError(t, err, "model unavailable")
}

func TestSynthesizer_ModelPanic(t *testing.T) {
	s := NewSynthesizer(&MockModel{panicOn: "synth"}, &log.NoOpLogger{})
	answer, err := s.Synthesize(context.Background(), "q", nil, nil)
	assert.Empty(t, answer)
	assert.ErrorContains(t, err, "provider decoded nil choice")
}

func TestSynthesizer_NilChoice(t *testing.T) {
	s := NewSynthesizer(&MockModel{nilChoice: true}, &log.NoOpLogger{})
	_, err := s.Synthesize(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, errEmptyResponse)
}
