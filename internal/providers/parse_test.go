package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhq/gavel/internal/review"
)

func TestExtractComments(t *testing.T) {
	text := `Here is my review:
[
  {"filepath": "app.py", "line": 12, "comment": "SQL built by string concat", "severity": "CRITICAL", "suggestion": "use parameters"},
  {"filepath": "app.py", "line": 30, "comment": "prefer early return", "severity": "suggestion"}
]
Let me know if you need anything else.`

	comments, err := ExtractComments(text)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	assert.Equal(t, "app.py", comments[0].Filepath)
	assert.Equal(t, 12, comments[0].Line)
	assert.Equal(t, review.SeverityCritical, comments[0].Severity, "severities are lowercased")
	assert.Equal(t, review.SeveritySuggestion, comments[1].Severity)
}

func TestExtractComments_FencedJSON(t *testing.T) {
	text := "```json\n[{\"filepath\": \"a.go\", \"line\": 1, \"comment\": \"x\", \"severity\": \"minor\"}]\n```"
	comments, err := ExtractComments(text)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestExtractComments_EmptyArray(t *testing.T) {
	comments, err := ExtractComments("No issues found: []")
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestExtractComments_NoJSON(t *testing.T) {
	_, err := ExtractComments("The code looks fine to me.")
	assert.Error(t, err)
}

func TestExtractComments_MalformedJSON(t *testing.T) {
	_, err := ExtractComments(`[{"filepath": "a.go", "line": }]`)
	assert.Error(t, err)
}

func TestExtractVerdict(t *testing.T) {
	text := `Based on the evidence:
{"confirmed": true, "reasoning": "the linter flags the same line", "updated_severity": "MAJOR", "confidence": "high"}`

	verdict, err := ExtractVerdict(text)
	require.NoError(t, err)
	assert.True(t, verdict.Confirmed)
	assert.Equal(t, "major", verdict.UpdatedSeverity)
	assert.Equal(t, "high", verdict.Confidence)
}

func TestExtractVerdict_Dismissed(t *testing.T) {
	verdict, err := ExtractVerdict(`{"confirmed": false, "reasoning": "style preference, not a defect"}`)
	require.NoError(t, err)
	assert.False(t, verdict.Confirmed)
}

func TestExtractVerdict_NoJSON(t *testing.T) {
	_, err := ExtractVerdict("I cannot decide.")
	assert.Error(t, err)
}
