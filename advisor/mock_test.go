package advisor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockModel answers by prompt kind. Planner and refiner responses are
// consumed in order; the last one repeats.
type MockModel struct {
	mu sync.Mutex

	plans       []string
	refinements []string
	answer      string
	planErr     error
	synthErr    error

	// block, when set, makes synthesis wait for ctx cancellation.
	block bool
	// panicOn names a prompt kind ("plan", "refine" or "synth") that panics.
	panicOn string
	// nilChoice makes synthesis return a response holding a nil choice.
	nilChoice bool

	planCalls     int
	refineCalls   int
	synthMessages [][]llms.MessageContent
}

func (m *MockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prompt := lastText(messages)
	var resp string
	switch {
	case strings.HasPrefix(prompt, "Analyze this marketing query"):
		m.planCalls++
		if m.panicOn == "plan" {
			panic("provider decoded nil choice")
		}
		if m.planErr != nil {
			return nil, m.planErr
		}
		resp = pick(m.plans, m.planCalls)
	case strings.Contains(prompt, "returned insufficient results"):
		m.refineCalls++
		if m.panicOn == "refine" {
			panic("provider decoded nil choice")
		}
		resp = pick(m.refinements, m.refineCalls)
	case strings.HasPrefix(prompt, "You are synthesizing"):
		m.synthMessages = append(m.synthMessages, messages)
		if m.block {
			m.mu.Unlock()
			<-ctx.Done()
			m.mu.Lock()
			return nil, ctx.Err()
		}
		if m.panicOn == "synth" {
			panic("provider decoded nil choice")
		}
		if m.nilChoice {
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{nil}}, nil
		}
		if m.synthErr != nil {
			return nil, m.synthErr
		}
		resp = m.answer
	default:
		return nil, errors.New("unexpected prompt")
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: resp},
		},
	}, nil
}

func (m *MockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *MockModel) calls() (plans, refines, synths int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.planCalls, m.refineCalls, len(m.synthMessages)
}

func pick(responses []string, call int) string {
	if len(responses) == 0 {
		return ""
	}
	return responses[min(call, len(responses))-1]
}

func lastText(messages []llms.MessageContent) string {
	if len(messages) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range messages[len(messages)-1].Parts {
		if t, ok := p.(llms.TextContent); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}
