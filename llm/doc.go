// Package llm provides the shared, rate-limited chat model used by the advisor.
//
// NewChatModel and NewEmbedder construct langchaingo OpenAI-compatible clients for
// Groq or OpenAI. NewRateLimitedModel wraps any llms.Model with a
// golang.org/x/time/rate token bucket and retries rate-limit failures (HTTP 429
// or messages mentioning a rate limit) with capped exponential backoff and jitter.
// When retries are exhausted the error wraps ErrRateLimited.
package llm
