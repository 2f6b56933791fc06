package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/smallnest/marketadvisor/log"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when an upstream rate limit persists after all retries.
var ErrRateLimited = errors.New("llm rate limit exceeded")

// RetryHook is called before each backoff sleep.
type RetryHook func(attempt int, delay time.Duration, err error)

// RateLimitedModel wraps an llms.Model with a token-bucket limiter and
// exponential backoff on rate-limit errors. All LLM traffic of an advisor
// instance goes through one RateLimitedModel so the limit is shared.
type RateLimitedModel struct {
	model       llms.Model
	limiter     *rate.Limiter
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64
	defaultOpts []llms.CallOption
	onRetry     RetryHook
	logger      log.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
}

var _ llms.Model = (*RateLimitedModel)(nil)

// Option configures a RateLimitedModel.
type Option func(*RateLimitedModel)

// WithRequestsPerMinute sets the sustained request rate and burst size.
func WithRequestsPerMinute(rpm int, burst int) Option {
	return func(m *RateLimitedModel) {
		if rpm <= 0 {
			m.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
	}
}

// WithRetry sets the retry budget and the backoff window.
func WithRetry(maxRetries int, base, maxDelay time.Duration) Option {
	return func(m *RateLimitedModel) {
		if maxRetries >= 0 {
			m.maxRetries = maxRetries
		}
		if base > 0 {
			m.baseDelay = base
		}
		if maxDelay > 0 {
			m.maxDelay = maxDelay
		}
	}
}

// WithJitter sets the maximum jitter as a fraction of the delay (0.2 adds up to 20%).
func WithJitter(fraction float64) Option {
	return func(m *RateLimitedModel) {
		if fraction >= 0 {
			m.jitter = fraction
		}
	}
}

// WithDefaultCallOptions prepends call options, such as temperature, to every request.
func WithDefaultCallOptions(opts ...llms.CallOption) Option {
	return func(m *RateLimitedModel) {
		m.defaultOpts = append(m.defaultOpts, opts...)
	}
}

// WithRetryHook registers a callback invoked before each retry.
func WithRetryHook(hook RetryHook) Option {
	return func(m *RateLimitedModel) {
		m.onRetry = hook
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(m *RateLimitedModel) {
		m.logger = logger
	}
}

// NewRateLimitedModel wraps model. Defaults: 5000 requests per minute with a
// burst of 10, three retries, backoff from 1s doubling up to 60s, 20% jitter.
func NewRateLimitedModel(model llms.Model, opts ...Option) *RateLimitedModel {
	m := &RateLimitedModel{
		model:      model,
		limiter:    rate.NewLimiter(rate.Limit(5000.0/60.0), 10),
		maxRetries: 3,
		baseDelay:  time.Second,
		maxDelay:   60 * time.Second,
		jitter:     0.2,
		sleep:      sleepContext,
		random:     rand.Float64,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.GetDefaultLogger()
	}
	return m
}

// GenerateContent implements llms.Model.
func (m *RateLimitedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := append(append([]llms.CallOption{}, m.defaultOpts...), options...)

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := m.model.GenerateContent(ctx, messages, opts...)
		if err == nil {
			return resp, nil
		}
		if !IsRateLimitError(err) {
			return nil, err
		}
		lastErr = err

		if attempt == m.maxRetries {
			break
		}
		delay := m.backoff(attempt)
		m.logger.Warn("llm rate limited (attempt %d/%d), retrying in %s: %v", attempt+1, m.maxRetries+1, delay, err)
		if m.onRetry != nil {
			m.onRetry(attempt+1, delay, err)
		}
		if err := m.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("retry cancelled during backoff: %w", err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRateLimited, m.maxRetries+1, lastErr)
}

// Call implements llms.Model.
func (m *RateLimitedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// backoff returns base*2^attempt capped at maxDelay, plus up to jitter*delay.
func (m *RateLimitedModel) backoff(attempt int) time.Duration {
	delay := m.baseDelay
	for i := 0; i < attempt && delay < m.maxDelay; i++ {
		delay *= 2
	}
	delay = min(delay, m.maxDelay)
	if m.jitter > 0 {
		delay += time.Duration(float64(delay) * m.jitter * m.random())
	}
	return delay
}

// IsRateLimitError reports whether err looks like an upstream rate-limit response.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "ratelimiterror") ||
		strings.Contains(msg, "429")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
