package review

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contentSource serves canned file contents keyed by path.
type contentSource struct {
	fakeSource
	files map[string]string
}

func (c *contentSource) GetFileContent(_ context.Context, path, _ string) (string, bool) {
	content, ok := c.files[path]
	return content, ok
}

func TestBuildContext(t *testing.T) {
	source := &contentSource{files: map[string]string{
		"README.md": "# Demo project\nA small web service.",
		"app.py":    "from flask import Flask\n\nclass Server:\n    pass\n\ndef handle(req):\n    return req\n",
	}}
	builder := NewContextBuilder(source)

	got := builder.BuildContext(context.Background(), Change{
		Filepath: "app.py",
		Diff:     "@@ -1,2 +1,3 @@\n ctx\n+added\n tail",
		HeadRef:  "h1",
		BaseRef:  "b1",
	})

	assert.Contains(t, got, "## File: app.py")
	assert.Contains(t, got, "## Language: python")
	assert.Contains(t, got, "## Framework: flask")
	assert.Contains(t, got, "# Demo project")
	assert.Contains(t, got, "from flask import Flask")
	assert.Contains(t, got, "handle")
	assert.Contains(t, got, "Server")
	assert.Contains(t, got, "```diff")
}

func TestBuildContext_UnknownLanguage(t *testing.T) {
	builder := NewContextBuilder(&contentSource{})

	got := builder.BuildContext(context.Background(), Change{Filepath: "Makefile", Diff: "@@ -1 +1 @@\n+all:"})

	assert.Contains(t, got, "## Language: Unknown")
	assert.Contains(t, got, "## Framework: None")
}

func TestAnalyzeImpact(t *testing.T) {
	im := analyzeImpact("auth.py", "+ password = hash(secret)\n+ removed old login")
	assert.Equal(t, "major", im.Scope, "breaking keywords escalate scope")
	assert.Contains(t, im.Areas, "security")
	assert.Contains(t, im.Areas, "breaking_change")

	im = analyzeImpact("Dockerfile", "+FROM alpine")
	assert.Equal(t, "major", im.Scope)
	assert.Contains(t, im.Areas, "infrastructure")

	small := analyzeImpact("x.py", "+one line")
	assert.Equal(t, "minor", small.Scope)
}

func TestAnalyzeImpact_SizeHeuristic(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("+line\n")
	}
	assert.Equal(t, "moderate", analyzeImpact("x.py", sb.String()).Scope)

	for i := 0; i < 50; i++ {
		sb.WriteString("+line\n")
	}
	assert.Equal(t, "major", analyzeImpact("x.py", sb.String()).Scope)
}

func TestBuildBatchContext(t *testing.T) {
	got := BuildBatchContext([]BatchFile{
		{Filepath: "a.py", Context: "context A"},
		{Filepath: "b.go", Context: "context B", LinterNotes: "line 3: unused variable"},
	})

	assert.Contains(t, got, "reviewing 2 changed files")
	assert.Contains(t, got, "=== FILE 1 of 2: a.py ===")
	assert.Contains(t, got, "=== FILE 2 of 2: b.go ===")
	assert.Contains(t, got, "unused variable")
	assert.Contains(t, got, `"severity": "critical|major|minor|suggestion"`)

	require.Less(t, strings.Index(got, "context A"), strings.Index(got, "context B"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	long := strings.Repeat("x", 150)
	got := truncate(long, 100)
	assert.Len(t, got, 100+len("\n...[truncated]..."))
	assert.Contains(t, got, "[truncated]")
}
