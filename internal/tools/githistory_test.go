package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitLog(t *testing.T) {
	output := "a1b2c3d4e5f6a7b8c9d0|Alice|3 days ago|Fix nil check in handler\n" +
		"f6e5d4c3b2a1f6e5d4c3|Bob|2 weeks ago|Refactor request parsing"

	commits := ParseGitLog(output)
	require.Len(t, commits, 2)

	assert.Equal(t, "a1b2c3d4", commits[0].Hash, "hash is shortened to 8 chars")
	assert.Equal(t, "Alice", commits[0].Author)
	assert.Equal(t, "3 days ago", commits[0].Date)
	assert.Equal(t, "Fix nil check in handler", commits[0].Subject)
	assert.Equal(t, "Bob", commits[1].Author)
}

func TestParseGitLog_SubjectWithPipes(t *testing.T) {
	commits := ParseGitLog("abcdef1234567890|Carol|1 hour ago|Add a | b parsing")
	require.Len(t, commits, 1)
	assert.Equal(t, "Add a | b parsing", commits[0].Subject, "pipes in the subject survive")
}

func TestParseGitLog_Empty(t *testing.T) {
	assert.Empty(t, ParseGitLog(""))
	assert.Empty(t, ParseGitLog("malformed line without pipes"))
}

func TestGitHistoryTool_MissingFilepath(t *testing.T) {
	tool := NewGitHistoryTool(t.TempDir())
	res := tool.Execute(context.Background(), map[string]any{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "filepath")
}

func TestGitHistoryTool_OutsideRepository(t *testing.T) {
	// A plain temp dir is not a git repository, so git log fails; that is a
	// declared failure, not a panic or Go error.
	tool := NewGitHistoryTool(t.TempDir())
	res := tool.Execute(context.Background(), map[string]any{"filepath": "main.go"})
	assert.False(t, res.Success)
}
