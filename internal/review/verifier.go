package review

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gavelhq/gavel/internal/tools"
)

const (
	maxEvidenceCommits = 3
	maxRelatedFiles    = 2
	maxCandidatePaths  = 5
)

// Evidence is the auxiliary data gathered for one issue under verification.
// Every field is optional: sources fail independently and partial evidence
// is normal. Ephemeral; never persisted beyond the run.
type Evidence struct {
	Linter       *tools.LintReport
	GitHistory   *tools.HistoryReport
	RelatedFiles []tools.FileContent
}

// Verifier runs the double-check pass over AI-flagged issues: only critical
// and major issues are verified; the rest pass through untouched. An issue
// is linter-confirmed when a normalized finding sits on exactly the same
// line, with no fuzzy window, since the linter pass is already scoped to
// changed lines. Unconfirmed issues are kept: linter absence is weaker
// corroboration, not proof of absence.
type Verifier struct {
	provider Provider
	registry *tools.Registry
	log      *slog.Logger

	// recheck enables the optional third pass: resubmitting
	// linter-unconfirmed issues with evidence for an AI verdict.
	recheck bool
}

// NewVerifier creates a Verifier. provider may be nil when recheck is off.
func NewVerifier(provider Provider, registry *tools.Registry, recheck bool, log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{provider: provider, registry: registry, recheck: recheck, log: log}
}

// Verify runs verification over one file's issues and returns the final
// list: verified high-severity issues followed by untouched others, order
// preserved within each partition.
func (v *Verifier) Verify(ctx context.Context, issues []Comment, path, lang string, changedLines []int) []Comment {
	if len(issues) == 0 {
		return issues
	}

	var high, other []Comment
	for _, issue := range issues {
		if IsHighSeverity(issue.Severity) {
			high = append(high, issue)
		} else {
			other = append(other, issue)
		}
	}
	v.log.Info("verification triage",
		"file", path, "total", len(issues), "verifying", len(high), "passthrough", len(other))
	if len(high) == 0 {
		return issues
	}

	confirmed := 0
	verified := make([]Comment, 0, len(high))
	for _, issue := range high {
		evidence := v.gatherEvidence(ctx, issue, path, lang, changedLines)

		if ev := linterConfirmation(issue, evidence); ev != nil {
			t := true
			issue.LinterConfirmed = &t
			issue.LinterEvidence = ev
			confirmed++
			v.log.Info("issue confirmed by linter",
				"file", path, "line", issue.Line, "rule", ev.Rule)
			verified = append(verified, issue)
			continue
		}

		f := false
		issue.LinterConfirmed = &f
		if v.recheck && v.provider != nil {
			kept, ok := v.recheckWithProvider(ctx, issue, evidence, path)
			if !ok {
				v.log.Info("issue dismissed by re-verification", "file", path, "line", issue.Line)
				continue
			}
			issue = kept
		}
		v.log.Info("issue kept without linter confirmation", "file", path, "line", issue.Line)
		verified = append(verified, issue)
	}

	v.log.Info("verification complete",
		"file", path, "before", len(issues), "after", len(verified)+len(other), "linter_confirmed", confirmed)
	return append(verified, other...)
}

// gatherEvidence runs the evidence tools for one issue. Each source is
// independent and best-effort: a missing linter or untracked file degrades
// to nil, never aborts the others.
func (v *Verifier) gatherEvidence(ctx context.Context, issue Comment, path, lang string, changedLines []int) Evidence {
	var ev Evidence

	if lang != "" {
		res, err := v.registry.Execute(ctx, "run_linter", map[string]any{
			"filepath":      path,
			"language":      lang,
			"changed_lines": changedLines,
		})
		if err != nil {
			v.log.Error("linter tool missing from registry", "error", err)
		} else if res.Success {
			if report, ok := res.Data.(tools.LintReport); ok {
				ev.Linter = &report
			}
		} else {
			v.log.Debug("linter unavailable", "file", path, "reason", res.Error)
		}
	}

	res, err := v.registry.Execute(ctx, "git_history", map[string]any{
		"filepath":    path,
		"max_commits": maxEvidenceCommits,
	})
	if err != nil {
		v.log.Error("git history tool missing from registry", "error", err)
	} else if res.Success {
		if report, ok := res.Data.(tools.HistoryReport); ok {
			ev.GitHistory = &report
		}
	}

	for _, candidate := range ExtractFileRefs(issue.Comment + " " + issue.Suggestion) {
		if len(ev.RelatedFiles) >= maxRelatedFiles {
			break
		}
		res, err := v.registry.Execute(ctx, "read_file", map[string]any{"filepath": candidate})
		if err != nil {
			v.log.Error("file reader tool missing from registry", "error", err)
			break
		}
		if res.Success {
			if content, ok := res.Data.(tools.FileContent); ok {
				ev.RelatedFiles = append(ev.RelatedFiles, content)
			}
		}
	}

	return ev
}

// linterConfirmation returns the matching finding when the linter reported
// anything on exactly the AI-claimed line.
func linterConfirmation(issue Comment, ev Evidence) *LinterEvidence {
	if ev.Linter == nil || issue.Line == 0 {
		return nil
	}
	for _, f := range ev.Linter.Findings {
		if f.Line == issue.Line {
			return &LinterEvidence{
				Line:     f.Line,
				Severity: f.Severity,
				Message:  f.Message,
				Rule:     f.Rule,
			}
		}
	}
	return nil
}

// recheckWithProvider runs the optional third pass. Returns the (possibly
// severity-adjusted) issue and whether to keep it. Any call or parse
// failure keeps the issue unchanged: verification fails open, never
// silently drops.
func (v *Verifier) recheckWithProvider(ctx context.Context, issue Comment, ev Evidence, path string) (Comment, bool) {
	verdict, err := v.provider.VerifyIssue(ctx, buildVerifyPrompt(issue, ev, path))
	if err != nil {
		v.log.Warn("re-verification call failed, keeping issue", "file", path, "line", issue.Line, "error", err)
		return issue, true
	}
	if !verdict.Confirmed {
		return Comment{}, false
	}
	issue.Reasoning = verdict.Reasoning
	if s := Severity(verdict.UpdatedSeverity); s != "" && SeverityRank(s) > 0 && s != issue.Severity {
		v.log.Info("severity adjusted by re-verification",
			"file", path, "line", issue.Line, "from", issue.Severity, "to", s)
		issue.Severity = s
	}
	return issue, true
}

func buildVerifyPrompt(issue Comment, ev Evidence, path string) string {
	var sb strings.Builder
	sb.WriteString("You are re-verifying a potential code issue. Decide whether it is a REAL issue or a FALSE POSITIVE.\n\n")
	fmt.Fprintf(&sb, "FILE: %s\n\nORIGINAL ISSUE:\n- Severity: %s\n- Line: %d\n- Message: %s\n",
		path, issue.Severity, issue.Line, issue.Comment)
	if issue.Suggestion != "" {
		fmt.Fprintf(&sb, "- Suggestion: %s\n", issue.Suggestion)
	}

	sb.WriteString("\nGATHERED EVIDENCE:\n")
	if ev.Linter != nil {
		fmt.Fprintf(&sb, "\n### Static Analysis (%d findings on changed lines):\n", ev.Linter.FilteredIssues)
		for _, f := range ev.Linter.Findings {
			fmt.Fprintf(&sb, "- line %d [%s] %s (%s)\n", f.Line, f.Severity, f.Message, f.Rule)
		}
	}
	if ev.GitHistory != nil && len(ev.GitHistory.Commits) > 0 {
		sb.WriteString("\n### Git History:\n")
		for _, c := range ev.GitHistory.Commits {
			fmt.Fprintf(&sb, "- %s: %s (%s, %s)\n", c.Hash, c.Subject, c.Author, c.Date)
		}
	}
	for _, f := range ev.RelatedFiles {
		fmt.Fprintf(&sb, "\n### Related file %s:\n```\n%s\n```\n", f.Filepath, truncate(f.Content, 1000))
	}

	sb.WriteString(`
Respond in JSON:
{
  "confirmed": true/false,
  "reasoning": "explanation of your decision",
  "updated_severity": "critical/major/minor/suggestion" (only to change it),
  "confidence": "high/medium/low"
}

Be strict: only confirm issues that are definitely problems. When in doubt,
dismiss as a false positive.`)
	return sb.String()
}

// fileRefPattern matches path-like tokens: word characters and separators
// followed by a 2-4 character extension.
var fileRefPattern = regexp.MustCompile(`\b[\w\-/\\]+\.[A-Za-z]{2,4}\b`)

// ExtractFileRefs scans issue text for file paths worth reading as
// evidence. Tokens must contain a path separator, be relative, and not
// look like URLs. Best-effort heuristic; precision here bounds
// verification quality.
func ExtractFileRefs(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range fileRefPattern.FindAllString(text, -1) {
		if strings.HasPrefix(m, "http") || strings.HasPrefix(m, "www.") {
			continue
		}
		// Absolute paths are almost always URL remnants or system paths,
		// neither of which lives in the repository.
		if strings.HasPrefix(m, "/") || strings.HasPrefix(m, `\`) {
			continue
		}
		if !strings.ContainsAny(m, `/\`) {
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == maxCandidatePaths {
			break
		}
	}
	return out
}
