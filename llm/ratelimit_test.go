package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type scriptedModel struct {
	errs     []error
	calls    int
	lastOpts llms.CallOptions
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	m.lastOpts = llms.CallOptions{}
	for _, opt := range options {
		opt(&m.lastOpts)
	}
	if m.calls <= len(m.errs) && m.errs[m.calls-1] != nil {
		return nil, m.errs[m.calls-1]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "ok"}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newTestModel(inner llms.Model, opts ...Option) (*RateLimitedModel, *[]time.Duration) {
	m := NewRateLimitedModel(inner, append([]Option{WithRequestsPerMinute(0, 0)}, opts...)...)
	var slept []time.Duration
	m.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	m.random = func() float64 { return 0 }
	return m, &slept
}

func TestRateLimitedModel_RetriesOn429(t *testing.T) {
	inner := &scriptedModel{errs: []error{
		errors.New("API returned unexpected status code: 429"),
		errors.New("Rate limit reached for model"),
	}}
	m, slept := newTestModel(inner)

	out, err := m.Call(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestRateLimitedModel_DoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("invalid api key")
	inner := &scriptedModel{errs: []error{boom}}
	m, slept := newTestModel(inner)

	_, err := m.Call(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *slept)
}

func TestRateLimitedModel_ExhaustsRetries(t *testing.T) {
	limited := errors.New("RateLimitError: slow down")
	inner := &scriptedModel{errs: []error{limited, limited, limited}}

	var hooks []int
	m, _ := newTestModel(inner,
		WithRetry(2, 0, 0),
		WithRetryHook(func(attempt int, delay time.Duration, err error) {
			hooks = append(hooks, attempt)
		}),
	)

	_, err := m.Call(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.ErrorIs(t, err, limited)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []int{1, 2}, hooks)
}

func TestRateLimitedModel_CancelledDuringBackoff(t *testing.T) {
	inner := &scriptedModel{errs: []error{errors.New("429")}}
	m, _ := newTestModel(inner)
	m.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := m.GenerateContent(context.Background(), []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimitedModel_CancelledBeforeCall(t *testing.T) {
	inner := &scriptedModel{}
	m, _ := newTestModel(inner, WithRequestsPerMinute(60, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Call(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, inner.calls)
}

func TestRateLimitedModel_DefaultCallOptions(t *testing.T) {
	inner := &scriptedModel{}
	m, _ := newTestModel(inner, WithDefaultCallOptions(llms.WithTemperature(0.3)))

	_, err := m.Call(context.Background(), "hello", llms.WithMaxTokens(256))
	require.NoError(t, err)
	assert.InDelta(t, 0.3, inner.lastOpts.Temperature, 1e-9)
	assert.Equal(t, 256, inner.lastOpts.MaxTokens)
}

func TestBackoff(t *testing.T) {
	m := NewRateLimitedModel(&scriptedModel{}, WithRetry(10, time.Second, 60*time.Second))
	m.random = func() float64 { return 0 }

	assert.Equal(t, time.Second, m.backoff(0))
	assert.Equal(t, 4*time.Second, m.backoff(2))
	assert.Equal(t, 32*time.Second, m.backoff(5))
	assert.Equal(t, 60*time.Second, m.backoff(6))
	assert.Equal(t, 60*time.Second, m.backoff(9))

	m.random = func() float64 { return 1 }
	assert.Equal(t, 1200*time.Millisecond, m.backoff(0))
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("status 429 Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("Rate Limit exceeded")))
	assert.True(t, IsRateLimitError(errors.New("groq.RateLimitError")))
	assert.False(t, IsRateLimitError(errors.New("context deadline exceeded")))
}
