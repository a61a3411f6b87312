package review

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gavelhq/gavel/internal/diffutil"
	"github.com/gavelhq/gavel/internal/language"
)

const (
	maxReadmeChars  = 3000
	maxContentChars = 2000
)

// ContextBuilder assembles the per-file review context handed to the AI:
// project overview, code structure extracted by lightweight textual scans,
// change-impact heuristics, surrounding file content, and the diff itself.
type ContextBuilder struct {
	source ChangeSource
}

// NewContextBuilder creates a ContextBuilder reading project files through
// the given change source.
func NewContextBuilder(source ChangeSource) *ContextBuilder {
	return &ContextBuilder{source: source}
}

// fileStructure is what the regex scans pull out of a source file.
type fileStructure struct {
	Imports   []string
	Functions []string
	Classes   []string
}

// impact is a rough classification of how risky a change looks.
type impact struct {
	Scope string // minor, moderate, major
	Areas []string
	Risks []string
}

var (
	pyImportRe = regexp.MustCompile(`(?m)^(?:import|from)\s+\S+.*$`)
	pyFuncRe   = regexp.MustCompile(`(?m)^def\s+(\w+)\s*\(`)
	pyClassRe  = regexp.MustCompile(`(?m)^class\s+(\w+)`)
	jsImportRe = regexp.MustCompile(`import\s+.*?from\s+['"][^'"]+['"]`)
	jsFuncRe   = regexp.MustCompile(`(?:function\s+(\w+)|const\s+(\w+)\s*=\s*(?:async\s*)?\()`)
	jsClassRe  = regexp.MustCompile(`class\s+(\w+)`)
	goImportRe = regexp.MustCompile(`(?m)^\s*(?:import\s+)?"[^"]+"$|^import\s+\S+`)
	goFuncRe   = regexp.MustCompile(`(?m)^func\s+(?:\([^)]+\)\s+)?(\w+)\s*\(`)
)

// extractStructure pulls imports, functions, and classes out of content with
// per-language regex scans. This is deliberately textual; no parsing.
func extractStructure(path, content string) fileStructure {
	var s fileStructure
	switch language.Detect(path) {
	case "python":
		s.Imports = pyImportRe.FindAllString(content, 10)
		for _, m := range pyFuncRe.FindAllStringSubmatch(content, 10) {
			s.Functions = append(s.Functions, m[1])
		}
		for _, m := range pyClassRe.FindAllStringSubmatch(content, 5) {
			s.Classes = append(s.Classes, m[1])
		}
	case "javascript", "typescript":
		s.Imports = jsImportRe.FindAllString(content, 10)
		for _, m := range jsFuncRe.FindAllStringSubmatch(content, 10) {
			if m[1] != "" {
				s.Functions = append(s.Functions, m[1])
			} else if m[2] != "" {
				s.Functions = append(s.Functions, m[2])
			}
		}
		for _, m := range jsClassRe.FindAllStringSubmatch(content, 5) {
			s.Classes = append(s.Classes, m[1])
		}
	case "go":
		s.Imports = goImportRe.FindAllString(content, 10)
		for _, m := range goFuncRe.FindAllStringSubmatch(content, 10) {
			s.Functions = append(s.Functions, m[1])
		}
	}
	return s
}

var impactKeywords = []struct {
	area     string
	risk     string
	keywords []string
}{
	{"breaking_change", "potential breaking change", []string{"breaking", "removed", "deprecated", "renamed"}},
	{"security", "security-related code modified", []string{"password", "token", "secret", "auth", "permission"}},
	{"database", "database-related changes", []string{"migration", "schema", "table", "column", "database"}},
}

// analyzeImpact classifies a diff with keyword and size heuristics.
func analyzeImpact(path, diff string) impact {
	im := impact{Scope: "minor"}
	lower := strings.ToLower(diff)
	for _, k := range impactKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(lower, kw) {
				im.Areas = append(im.Areas, k.area)
				im.Risks = append(im.Risks, k.risk)
				if k.area == "breaking_change" {
					im.Scope = "major"
				}
				break
			}
		}
	}
	if strings.Contains(path, "Dockerfile") || strings.Contains(path, "docker-compose") {
		im.Areas = append(im.Areas, "infrastructure")
		im.Scope = "major"
	}
	switch lines := diffutil.AddedLineCount(diff); {
	case lines > 100:
		im.Scope = "major"
	case lines > 50 && im.Scope == "minor":
		im.Scope = "moderate"
	}
	return im
}

// BuildContext produces the review context for one change.
func (b *ContextBuilder) BuildContext(ctx context.Context, ch Change) string {
	after, _ := b.source.GetFileContent(ctx, ch.Filepath, ch.HeadRef)
	before, _ := b.source.GetFileContent(ctx, ch.Filepath, ch.BaseRef)

	lang := language.Detect(ch.Filepath)
	framework := language.DetectFramework(ch.Filepath, after)
	structure := extractStructure(ch.Filepath, after)
	im := analyzeImpact(ch.Filepath, ch.Diff)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# CODE REVIEW CONTEXT\n\n## File: %s\n\n", ch.Filepath)
	fmt.Fprintf(&sb, "## Language: %s\n## Framework: %s\n\n", orUnknown(lang), orNone(framework))

	fmt.Fprintf(&sb, "## Change Impact\n- Scope: %s\n- Areas: %s\n- Risks: %s\n\n",
		strings.ToUpper(im.Scope), orNone(strings.Join(im.Areas, ", ")), orNone(strings.Join(im.Risks, ", ")))

	if readme := b.readme(ctx, ch.HeadRef); readme != "" {
		fmt.Fprintf(&sb, "## Project Overview (from README)\n```\n%s\n```\n\n", readme)
	}

	if len(structure.Imports) > 0 {
		fmt.Fprintf(&sb, "## Imports in Changed File\n```\n%s\n```\n\n", strings.Join(structure.Imports, "\n"))
	}
	if len(structure.Functions) > 0 {
		fmt.Fprintf(&sb, "## Functions Defined\n%s\n\n", strings.Join(structure.Functions, ", "))
	}
	if len(structure.Classes) > 0 {
		fmt.Fprintf(&sb, "## Classes Defined\n%s\n\n", strings.Join(structure.Classes, ", "))
	}

	if before != "" {
		fmt.Fprintf(&sb, "## File BEFORE Changes (truncated)\n```\n%s\n```\n\n", truncate(before, maxContentChars))
	}
	if after != "" {
		fmt.Fprintf(&sb, "## File AFTER Changes (truncated)\n```\n%s\n```\n\n", truncate(after, maxContentChars))
	}

	fmt.Fprintf(&sb, "## DIFF (Actual Changes)\n```diff\n%s\n```\n", ch.Diff)
	return sb.String()
}

// BuildBatchContext combines per-file contexts into a single batched
// request, appending any linter pre-pass findings as auxiliary signal and
// the response-format instructions.
func BuildBatchContext(files []BatchFile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are reviewing %d changed files from one pull request.\n\n", len(files))
	for i, f := range files {
		fmt.Fprintf(&sb, "=== FILE %d of %d: %s ===\n\n%s\n", i+1, len(files), f.Filepath, f.Context)
		if f.LinterNotes != "" {
			fmt.Fprintf(&sb, "## Static Analysis (changed lines only)\n%s\n\n", f.LinterNotes)
		}
	}
	sb.WriteString(`
---
Review every file above. Provide your review as a single JSON array:
[
  {
    "filepath": "<path of the file the comment applies to>",
    "line": <line number in the new version>,
    "comment": "<specific, constructive comment>",
    "severity": "critical|major|minor|suggestion"
  }
]

Every element MUST carry the filepath it belongs to. Return [] if the code
looks good. Do not comment on style a linter would catch.`)
	return sb.String()
}

// BatchFile is one file's slice of a batched review request.
type BatchFile struct {
	Filepath    string
	Context     string
	LinterNotes string
}

func (b *ContextBuilder) readme(ctx context.Context, ref string) string {
	for _, name := range []string{"README.md", "README", "readme.md", "README.rst"} {
		if content, ok := b.source.GetFileContent(ctx, name, ref); ok {
			return truncate(content, maxReadmeChars)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n...[truncated]..."
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
