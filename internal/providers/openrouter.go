package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gavelhq/gavel/internal/review"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	reviewTimeout     = 120 * time.Second
	connectTimeout    = 10 * time.Second
)

// OpenRouter implements review.Provider against the OpenRouter API, which
// speaks the OpenAI chat-completions protocol.
type OpenRouter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	log         *slog.Logger
}

// NewOpenRouter creates an OpenRouter provider. Requires OPENROUTER_API_KEY.
func NewOpenRouter(model string, maxTokens int, temperature float64, log *slog.Logger) (*OpenRouter, error) {
	key := os.Getenv("OPENROUTER_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is not set")
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = openRouterBaseURL
	return &OpenRouter{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		log:         log,
	}, nil
}

func (o *OpenRouter) Name() string { return "openrouter" }

// Review sends one review context and returns the parsed comments.
// A reply without a parseable JSON array yields an empty list, not an
// error: malformed model output must not abort the surrounding run.
func (o *OpenRouter) Review(ctx context.Context, reviewContext string) ([]review.Comment, error) {
	text, err := o.complete(ctx, reviewContext)
	if err != nil {
		return nil, err
	}
	comments, err := ExtractComments(text)
	if err != nil {
		o.log.Warn("no parseable comments in provider response", "error", err)
		return []review.Comment{}, nil
	}
	return comments, nil
}

// ReviewBatch reviews several files in one call; the batch context instructs
// the model to tag every comment with its filepath.
func (o *OpenRouter) ReviewBatch(ctx context.Context, batchContext string) ([]review.Comment, error) {
	return o.Review(ctx, batchContext)
}

// VerifyIssue resubmits an issue plus evidence and expects a structured
// confirm/dismiss verdict. Parse failures are returned as errors so the
// verifier can fail open.
func (o *OpenRouter) VerifyIssue(ctx context.Context, prompt string) (review.Verdict, error) {
	text, err := o.complete(ctx, prompt)
	if err != nil {
		return review.Verdict{}, err
	}
	return ExtractVerdict(text)
}

// TestConnection checks API reachability by listing models.
func (o *OpenRouter) TestConnection(ctx context.Context) bool {
	listCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	_, err := o.client.ListModels(listCtx)
	return err == nil
}

func (o *OpenRouter) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, reviewTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var content string
	err := retryWithBackoff(callCtx, 3, func() error {
		resp, err := o.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return fmt.Errorf("openrouter chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("openrouter returned no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	return content, err
}
