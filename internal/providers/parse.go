package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gavelhq/gavel/internal/review"
)

// ExtractComments pulls the first JSON array out of an LLM reply and decodes
// it into comments. Models routinely wrap the payload in prose or markdown
// fences, so the parser looks for bracket boundaries instead of demanding
// pure JSON.
func ExtractComments(text string) ([]review.Comment, error) {
	payload, err := sliceJSON(text, '[', ']')
	if err != nil {
		return nil, err
	}
	var comments []review.Comment
	if err := json.Unmarshal([]byte(payload), &comments); err != nil {
		return nil, fmt.Errorf("decoding comment array: %w", err)
	}
	for i := range comments {
		comments[i].Severity = review.Severity(strings.ToLower(string(comments[i].Severity)))
	}
	return comments, nil
}

// ExtractVerdict pulls the first JSON object out of an LLM reply and decodes
// it into a verification verdict.
func ExtractVerdict(text string) (review.Verdict, error) {
	payload, err := sliceJSON(text, '{', '}')
	if err != nil {
		return review.Verdict{}, err
	}
	var verdict review.Verdict
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		return review.Verdict{}, fmt.Errorf("decoding verdict: %w", err)
	}
	verdict.UpdatedSeverity = strings.ToLower(verdict.UpdatedSeverity)
	return verdict, nil
}

func sliceJSON(text string, open, close byte) (string, error) {
	text = stripFences(text)
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON %c...%c payload in response", open, close)
	}
	return text[start : end+1], nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
