package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/gavelhq/gavel/internal/review"
)

// Anthropic implements review.Provider against the Anthropic Messages API.
type Anthropic struct {
	api       *anthropic.Client
	model     anthropic.Model
	maxTokens int
	log       *slog.Logger
}

// NewAnthropic creates an Anthropic provider. Requires ANTHROPIC_API_KEY
// (picked up by the SDK from the environment).
func NewAnthropic(model string, maxTokens int, log *slog.Logger) (*Anthropic, error) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}
	client := anthropic.NewClient()
	return &Anthropic{
		api:       &client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		log:       log,
	}, nil
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Review(ctx context.Context, reviewContext string) ([]review.Comment, error) {
	text, err := a.complete(ctx, reviewContext)
	if err != nil {
		return nil, err
	}
	comments, err := ExtractComments(text)
	if err != nil {
		a.log.Warn("no parseable comments in provider response", "error", err)
		return []review.Comment{}, nil
	}
	return comments, nil
}

func (a *Anthropic) ReviewBatch(ctx context.Context, batchContext string) ([]review.Comment, error) {
	return a.Review(ctx, batchContext)
}

func (a *Anthropic) VerifyIssue(ctx context.Context, prompt string) (review.Verdict, error) {
	text, err := a.complete(ctx, prompt)
	if err != nil {
		return review.Verdict{}, err
	}
	return ExtractVerdict(text)
}

// TestConnection sends a minimal message to confirm credentials and
// reachability.
func (a *Anthropic) TestConnection(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	_, err := a.api.Messages.New(pingCtx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	return err == nil
}

func (a *Anthropic) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, reviewTimeout)
	defer cancel()

	msg, err := a.api.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}
