package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhq/gavel/internal/tools"
)

// stubTool returns a canned result and records its invocations.
type stubTool struct {
	name   string
	result tools.ToolResult
	calls  []map[string]any
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }

func (s *stubTool) Parameters() []tools.Param { return nil }
func (s *stubTool) Execute(_ context.Context, params map[string]any) tools.ToolResult {
	s.calls = append(s.calls, params)
	return s.result
}

func lintResult(findings ...tools.LinterFinding) tools.ToolResult {
	return tools.ToolResult{Success: true, Data: tools.LintReport{
		Findings:       findings,
		TotalIssues:    len(findings),
		FilteredIssues: len(findings),
	}}
}

func newTestRegistry(linter tools.ToolResult) (*tools.Registry, *stubTool) {
	reg := tools.NewRegistry(nil)
	lt := &stubTool{name: "run_linter", result: linter}
	reg.Register(lt)
	reg.Register(&stubTool{name: "git_history", result: tools.ToolResult{
		Success: true,
		Data:    tools.HistoryReport{Commits: []tools.CommitInfo{{Hash: "abcd1234", Author: "Ann", Date: "2 days ago", Subject: "init"}}},
	}})
	reg.Register(&stubTool{name: "read_file", result: tools.Failure("file not found")})
	return reg, lt
}

func TestVerify_LinterConfirms(t *testing.T) {
	reg, lt := newTestRegistry(lintResult(
		tools.LinterFinding{Line: 12, Severity: "error", Message: "undefined variable", Rule: "undefined-variable"},
	))
	v := NewVerifier(nil, reg, false, nil)

	issues := []Comment{{Filepath: "app.py", Line: 12, Comment: "uses undefined variable", Severity: SeverityCritical}}
	got := v.Verify(context.Background(), issues, "app.py", "python", []int{10, 11, 12})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].LinterConfirmed)
	assert.True(t, *got[0].LinterConfirmed)
	require.NotNil(t, got[0].LinterEvidence)
	assert.Equal(t, "undefined-variable", got[0].LinterEvidence.Rule)

	// The linter was scoped to the changed lines.
	require.NotEmpty(t, lt.calls)
	assert.Equal(t, []int{10, 11, 12}, lt.calls[0]["changed_lines"])
}

func TestVerify_UnconfirmedIssueIsKept(t *testing.T) {
	reg, _ := newTestRegistry(lintResult())
	v := NewVerifier(nil, reg, false, nil)

	issues := []Comment{{Filepath: "app.py", Line: 5, Comment: "race condition", Severity: SeverityMajor}}
	got := v.Verify(context.Background(), issues, "app.py", "python", []int{5})

	require.Len(t, got, 1, "absence of linter evidence must not drop the issue")
	require.NotNil(t, got[0].LinterConfirmed)
	assert.False(t, *got[0].LinterConfirmed)
	assert.Nil(t, got[0].LinterEvidence)
}

func TestVerify_NearbyLineDoesNotConfirm(t *testing.T) {
	reg, _ := newTestRegistry(lintResult(
		tools.LinterFinding{Line: 13, Severity: "error", Message: "one line off"},
	))
	v := NewVerifier(nil, reg, false, nil)

	issues := []Comment{{Filepath: "app.py", Line: 12, Comment: "x", Severity: SeverityCritical}}
	got := v.Verify(context.Background(), issues, "app.py", "python", nil)

	require.Len(t, got, 1)
	assert.False(t, *got[0].LinterConfirmed, "confirmation requires the exact line")
}

func TestVerify_LowSeverityPassesThrough(t *testing.T) {
	reg, lt := newTestRegistry(lintResult())
	v := NewVerifier(nil, reg, false, nil)

	issues := []Comment{
		{Filepath: "a.go", Line: 1, Comment: "nit", Severity: SeverityMinor},
		{Filepath: "a.go", Line: 2, Comment: "style", Severity: SeveritySuggestion},
	}
	got := v.Verify(context.Background(), issues, "a.go", "go", nil)

	assert.Equal(t, issues, got, "low-severity issues are untouched")
	assert.Empty(t, lt.calls, "no evidence is gathered for low-severity issues")
}

func TestVerify_OrderPreserved(t *testing.T) {
	reg, _ := newTestRegistry(lintResult())
	v := NewVerifier(nil, reg, false, nil)

	issues := []Comment{
		{Filepath: "a.go", Line: 1, Comment: "first", Severity: SeverityMinor},
		{Filepath: "a.go", Line: 2, Comment: "second", Severity: SeverityCritical},
		{Filepath: "a.go", Line: 3, Comment: "third", Severity: SeverityMinor},
	}
	got := v.Verify(context.Background(), issues, "a.go", "go", nil)

	require.Len(t, got, 3)
	assert.Equal(t, "second", got[0].Comment, "verified issues lead")
	assert.Equal(t, "first", got[1].Comment)
	assert.Equal(t, "third", got[2].Comment)
}

// verdictProvider serves canned verdicts for recheck tests.
type verdictProvider struct {
	verdict Verdict
	err     error
	calls   int
}

func (p *verdictProvider) Review(_ context.Context, _ string) ([]Comment, error) {
	return nil, nil
}

func (p *verdictProvider) ReviewBatch(_ context.Context, _ string) ([]Comment, error) {
	return nil, nil
}

func (p *verdictProvider) VerifyIssue(_ context.Context, _ string) (Verdict, error) {
	p.calls++
	return p.verdict, p.err
}
func (p *verdictProvider) TestConnection(_ context.Context) bool { return true }
func (p *verdictProvider) Name() string                          { return "verdict-stub" }

func TestVerify_RecheckDismisses(t *testing.T) {
	reg, _ := newTestRegistry(lintResult())
	provider := &verdictProvider{verdict: Verdict{Confirmed: false, Reasoning: "false positive"}}
	v := NewVerifier(provider, reg, true, nil)

	issues := []Comment{{Filepath: "a.go", Line: 1, Comment: "x", Severity: SeverityCritical}}
	got := v.Verify(context.Background(), issues, "a.go", "go", nil)

	assert.Empty(t, got, "dismissed issues are dropped")
	assert.Equal(t, 1, provider.calls)
}

func TestVerify_RecheckAdjustsSeverity(t *testing.T) {
	reg, _ := newTestRegistry(lintResult())
	provider := &verdictProvider{verdict: Verdict{Confirmed: true, Reasoning: "real but minor", UpdatedSeverity: "minor"}}
	v := NewVerifier(provider, reg, true, nil)

	issues := []Comment{{Filepath: "a.go", Line: 1, Comment: "x", Severity: SeverityCritical}}
	got := v.Verify(context.Background(), issues, "a.go", "go", nil)

	require.Len(t, got, 1)
	assert.Equal(t, SeverityMinor, got[0].Severity)
	assert.Equal(t, "real but minor", got[0].Reasoning)
}

func TestVerify_RecheckFailsOpen(t *testing.T) {
	reg, _ := newTestRegistry(lintResult())
	provider := &verdictProvider{err: assert.AnError}
	v := NewVerifier(provider, reg, true, nil)

	issues := []Comment{{Filepath: "a.go", Line: 1, Comment: "x", Severity: SeverityCritical}}
	got := v.Verify(context.Background(), issues, "a.go", "go", nil)

	require.Len(t, got, 1, "provider failure must keep the issue")
}

func TestVerify_LinterConfirmedSkipsRecheck(t *testing.T) {
	reg, _ := newTestRegistry(lintResult(tools.LinterFinding{Line: 7, Severity: "error", Message: "m"}))
	provider := &verdictProvider{verdict: Verdict{Confirmed: false}}
	v := NewVerifier(provider, reg, true, nil)

	issues := []Comment{{Filepath: "a.go", Line: 7, Comment: "x", Severity: SeverityMajor}}
	got := v.Verify(context.Background(), issues, "a.go", "go", nil)

	require.Len(t, got, 1)
	assert.Zero(t, provider.calls, "linter-confirmed issues never reach the AI recheck")
}

func TestExtractFileRefs(t *testing.T) {
	text := "This duplicates logic in src/utils/parse.py and conflicts with lib/db.go. See https://example.com/docs.html for details."
	refs := ExtractFileRefs(text)

	assert.Contains(t, refs, "src/utils/parse.py")
	assert.Contains(t, refs, "lib/db.go")
	for _, r := range refs {
		assert.NotContains(t, r, "example.com", "URLs are not file refs")
	}
}

func TestExtractFileRefs_RequiresSeparator(t *testing.T) {
	assert.Empty(t, ExtractFileRefs("the value of config.py is reused"), "bare filenames without a path separator are too ambiguous")
}
