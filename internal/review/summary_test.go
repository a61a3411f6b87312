package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSummary_NoIssues(t *testing.T) {
	stats := Stats{FilesReviewed: 3, CacheHits: 1}

	body := BuildSummary(stats, nil)

	assert.True(t, strings.HasPrefix(body, BotMarker), "summary must open with the bot marker")
	assert.Contains(t, body, "No issues found")
	assert.Contains(t, body, "3 file(s)")
	assert.Contains(t, body, "1 from cache")
}

func TestBuildSummary_WithIssues(t *testing.T) {
	comments := map[string][]Comment{
		"app.py": {
			{Filepath: "app.py", Line: 12, Comment: "SQL injection risk", Severity: SeverityCritical},
			{Filepath: "app.py", Line: 40, Comment: "consider renaming", Severity: SeveritySuggestion},
		},
		"util.go": {
			{Filepath: "util.go", Line: 8, Comment: "unchecked error", Severity: SeverityMajor},
		},
	}
	all := append(append([]Comment{}, comments["app.py"]...), comments["util.go"]...)
	stats := Stats{
		FilesReviewed: 2,
		TotalComments: 3,
		FilesSkipped:  1,
		Severities:    CountSeverities(all),
	}

	body := BuildSummary(stats, comments)

	assert.True(t, strings.HasPrefix(body, BotMarker))
	assert.Contains(t, body, "**3** issue(s)")
	assert.Contains(t, body, "Critical | 1")
	assert.Contains(t, body, "Major | 1")
	assert.Contains(t, body, "Suggestion | 1")
	assert.NotContains(t, body, "Minor |", "zero-count severities are omitted")
	assert.Contains(t, body, "**app.py**")
	assert.Contains(t, body, "SQL injection risk")
	assert.Contains(t, body, "(line 12)")
	assert.Contains(t, body, "1 skipped")

	// Files appear in sorted order.
	assert.Less(t, strings.Index(body, "app.py"), strings.Index(body, "util.go"))
}

func TestCountSeverities(t *testing.T) {
	counts := CountSeverities([]Comment{
		{Severity: SeverityCritical},
		{Severity: SeverityCritical},
		{Severity: SeverityMinor},
		{Severity: "unknown"},
	})
	assert.Equal(t, 2, counts.Critical)
	assert.Equal(t, 1, counts.Minor)
	assert.Zero(t, counts.Major)
}
