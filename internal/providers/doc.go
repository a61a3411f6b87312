// Package providers implements the review.Provider interface for the
// supported AI backends: OpenRouter (OpenAI-compatible chat completions)
// and Anthropic. Both share the JSON extraction helpers in parse.go and a
// common backoff policy for rate-limited calls.
package providers
