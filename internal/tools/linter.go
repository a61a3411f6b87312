package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	probeTimeout = 10 * time.Second
	lintTimeout  = 30 * time.Second
	// maxFindings caps the payload handed back to the AI.
	maxFindings = 10
)

// LinterFinding is one normalized static-analysis finding.
type LinterFinding struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"` // error, warning, info
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// LintReport is the Data payload of a successful linter run.
type LintReport struct {
	Filepath       string          `json:"filepath"`
	Language       string          `json:"language"`
	TotalIssues    int             `json:"total_issues"`
	FilteredIssues int             `json:"filtered_issues"`
	Summary        map[string]int  `json:"summary"`
	Findings       []LinterFinding `json:"issues"`
}

// linterSpec describes how to invoke and parse one language's linter.
// Adding a language means adding a spec, not branching pipeline logic.
type linterSpec struct {
	command  []string
	fallback []string
	probe    []string
	parse    func(output string) []LinterFinding
}

var linterSpecs = map[string]linterSpec{
	"python": {
		command:  []string{"pylint", "--output-format=json"},
		fallback: []string{"flake8", "--format=json"},
		probe:    []string{"pylint", "--version"},
		parse:    parsePylint,
	},
	"javascript": {
		command: []string{"eslint", "--format=json"},
		probe:   []string{"eslint", "--version"},
		parse:   parseESLint,
	},
	"typescript": {
		command: []string{"eslint", "--format=json", "--ext", ".ts,.tsx"},
		probe:   []string{"eslint", "--version"},
		parse:   parseESLint,
	},
	"go": {
		command:  []string{"golangci-lint", "run", "--out-format=json"},
		fallback: []string{"go", "vet"},
		probe:    []string{"golangci-lint", "--version"},
		parse:    parseGolangci,
	},
	"rust": {
		command: []string{"cargo", "clippy", "--message-format=json"},
		probe:   []string{"cargo", "--version"},
		parse:   parseClippy,
	},
	"dart": {
		command: []string{"dart", "analyze", "--format=json"},
		probe:   []string{"dart", "--version"},
		parse:   parseDart,
	},
	"php": {
		command:  []string{"phpcs", "--report=json"},
		fallback: []string{"php", "-l"},
		probe:    []string{"phpcs", "--version"},
		parse:    parsePHPCS,
	},
}

// LinterTool runs a language-appropriate static analyzer and returns only
// the findings on caller-supplied changed lines.
type LinterTool struct {
	repoPath string
	log      *slog.Logger

	// run is swappable for tests; defaults to subprocess execution.
	run func(ctx context.Context, dir string, args []string) (string, error)
}

// NewLinterTool creates a LinterTool rooted at repoPath.
func NewLinterTool(repoPath string, log *slog.Logger) *LinterTool {
	if log == nil {
		log = slog.Default()
	}
	t := &LinterTool{repoPath: repoPath, log: log}
	t.run = t.runCommand
	return t
}

func (t *LinterTool) Name() string { return "run_linter" }

func (t *LinterTool) Description() string {
	return "Run a language-specific linter on a file and return issues only for " +
		"the specified changed lines, filtering out findings from unchanged code."
}

func (t *LinterTool) Parameters() []Param {
	return []Param{
		{Name: "filepath", Type: "string", Description: "Path to the file to lint, relative to the repository root", Required: true},
		{Name: "language", Type: "string", Description: "Programming language (python, javascript, typescript, go, rust, dart, php)", Required: true},
		{Name: "changed_lines", Type: "array", Description: "Changed line numbers; only findings on these lines are returned", Required: false},
	}
}

// Execute runs the linter. Every failure mode (unknown language, missing
// linter, timed-out run) is a declared failure, never a Go error.
func (t *LinterTool) Execute(ctx context.Context, params map[string]any) ToolResult {
	path := stringParam(params, "filepath")
	lang := strings.ToLower(stringParam(params, "language"))
	changed := intSliceParam(params, "changed_lines")

	if path == "" {
		return Failure("filepath parameter is required")
	}
	spec, ok := linterSpecs[lang]
	if !ok {
		return Failure("unsupported language: %s (supported: %s)", lang, strings.Join(supportedLanguages(), ", "))
	}
	if !t.probe(ctx, spec) {
		return Failure("no %s linter installed (%s not found)", lang, spec.probe[0])
	}

	output, err := t.invoke(ctx, spec, path)
	if err != nil {
		return Failure("linter execution failed: %v", err)
	}

	findings := t.parse(spec, output, lang)
	filtered := FilterFindings(findings, changed)

	report := LintReport{
		Filepath:       path,
		Language:       lang,
		TotalIssues:    len(findings),
		FilteredIssues: len(filtered),
		Summary:        aggregate(filtered),
		Findings:       filtered,
	}
	t.log.Debug("linter run complete",
		"file", path, "language", lang,
		"total", report.TotalIssues, "filtered", report.FilteredIssues)
	return ToolResult{Success: true, Data: report}
}

// FilterFindings keeps findings whose line is in the changed set, then
// truncates to the most significant maxFindings entries (errors first).
func FilterFindings(findings []LinterFinding, changedLines []int) []LinterFinding {
	out := findings
	if len(changedLines) > 0 {
		set := make(map[int]bool, len(changedLines))
		for _, n := range changedLines {
			set[n] = true
		}
		out = make([]LinterFinding, 0, len(findings))
		for _, f := range findings {
			if set[f.Line] {
				out = append(out, f)
			}
		}
	}
	if len(out) > maxFindings {
		sorted := make([]LinterFinding, len(out))
		copy(sorted, out)
		sort.SliceStable(sorted, func(i, j int) bool {
			return severityWeight(sorted[i].Severity) > severityWeight(sorted[j].Severity)
		})
		out = sorted[:maxFindings]
	}
	return out
}

func (t *LinterTool) probe(ctx context.Context, spec linterSpec) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := t.run(probeCtx, t.repoPath, spec.probe)
	return err == nil
}

func (t *LinterTool) invoke(ctx context.Context, spec linterSpec, path string) (string, error) {
	lintCtx, cancel := context.WithTimeout(ctx, lintTimeout)
	defer cancel()
	out, err := t.run(lintCtx, t.repoPath, append(append([]string{}, spec.command...), path))
	if err != nil && out == "" && len(spec.fallback) > 0 {
		out, err = t.run(lintCtx, t.repoPath, append(append([]string{}, spec.fallback...), path))
	}
	if err != nil && out == "" {
		return "", err
	}
	return out, nil
}

func (t *LinterTool) parse(spec linterSpec, output, lang string) []LinterFinding {
	findings := spec.parse(output)
	if findings == nil && strings.TrimSpace(output) != "" {
		t.log.Warn("failed to parse linter output", "language", lang)
	}
	return findings
}

// runCommand executes a subprocess capturing combined stdout and stderr:
// many linters signal findings, not failure, through non-zero exit codes.
func (t *LinterTool) runCommand(ctx context.Context, dir string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	if buf.Len() > 0 {
		return buf.String(), nil
	}
	return "", err
}

// NormalizeSeverity maps linter-specific severities onto error/warning/info.
func NormalizeSeverity(severity string) string {
	switch strings.ToLower(severity) {
	case "error", "fatal", "critical", "2":
		return "error"
	case "warning", "warn", "major", "1":
		return "warning"
	default:
		return "info"
	}
}

func severityWeight(s string) int {
	switch s {
	case "error":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}

func aggregate(findings []LinterFinding) map[string]int {
	summary := map[string]int{"error": 0, "warning": 0, "info": 0, "total": len(findings)}
	for _, f := range findings {
		summary[f.Severity]++
	}
	return summary
}

func supportedLanguages() []string {
	langs := make([]string, 0, len(linterSpecs))
	for l := range linterSpecs {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Output parsers. Each degrades to nil on malformed input; the caller logs
// and continues with an empty finding list.

func parsePylint(output string) []LinterFinding {
	if strings.TrimSpace(output) == "" {
		return []LinterFinding{}
	}
	var items []struct {
		Line    int    `json:"line"`
		Column  int    `json:"column"`
		Type    string `json:"type"`
		Message string `json:"message"`
		Symbol  string `json:"symbol"`
	}
	if err := json.Unmarshal([]byte(output), &items); err != nil {
		return nil
	}
	findings := make([]LinterFinding, 0, len(items))
	for _, it := range items {
		findings = append(findings, LinterFinding{
			Line:     it.Line,
			Column:   it.Column,
			Severity: NormalizeSeverity(it.Type),
			Message:  it.Message,
			Rule:     it.Symbol,
		})
	}
	return findings
}

func parseESLint(output string) []LinterFinding {
	if strings.TrimSpace(output) == "" {
		return []LinterFinding{}
	}
	var files []struct {
		Messages []struct {
			Line     int    `json:"line"`
			Column   int    `json:"column"`
			Severity int    `json:"severity"`
			Message  string `json:"message"`
			RuleID   string `json:"ruleId"`
		} `json:"messages"`
	}
	if err := json.Unmarshal([]byte(output), &files); err != nil {
		return nil
	}
	var findings []LinterFinding
	for _, f := range files {
		for _, m := range f.Messages {
			findings = append(findings, LinterFinding{
				Line:     m.Line,
				Column:   m.Column,
				Severity: NormalizeSeverity(strconv.Itoa(m.Severity)),
				Message:  m.Message,
				Rule:     m.RuleID,
			})
		}
	}
	if findings == nil {
		findings = []LinterFinding{}
	}
	return findings
}

func parseGolangci(output string) []LinterFinding {
	if strings.TrimSpace(output) == "" {
		return []LinterFinding{}
	}
	var doc struct {
		Issues []struct {
			Text       string `json:"Text"`
			FromLinter string `json:"FromLinter"`
			Severity   string `json:"Severity"`
			Pos        struct {
				Line   int `json:"Line"`
				Column int `json:"Column"`
			} `json:"Pos"`
		} `json:"Issues"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return nil
	}
	findings := make([]LinterFinding, 0, len(doc.Issues))
	for _, is := range doc.Issues {
		sev := is.Severity
		if sev == "" {
			sev = "warning"
		}
		findings = append(findings, LinterFinding{
			Line:     is.Pos.Line,
			Column:   is.Pos.Column,
			Severity: NormalizeSeverity(sev),
			Message:  is.Text,
			Rule:     is.FromLinter,
		})
	}
	return findings
}

// parseClippy handles cargo's line-delimited JSON message stream.
func parseClippy(output string) []LinterFinding {
	var findings []LinterFinding
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var msg struct {
			Reason  string `json:"reason"`
			Message struct {
				Level   string `json:"level"`
				Message string `json:"message"`
				Code    struct {
					Code string `json:"code"`
				} `json:"code"`
				Spans []struct {
					LineStart   int `json:"line_start"`
					ColumnStart int `json:"column_start"`
				} `json:"spans"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.Reason != "compiler-message" || len(msg.Message.Spans) == 0 {
			continue
		}
		findings = append(findings, LinterFinding{
			Line:     msg.Message.Spans[0].LineStart,
			Column:   msg.Message.Spans[0].ColumnStart,
			Severity: NormalizeSeverity(msg.Message.Level),
			Message:  msg.Message.Message,
			Rule:     msg.Message.Code.Code,
		})
	}
	if findings == nil {
		findings = []LinterFinding{}
	}
	return findings
}

func parseDart(output string) []LinterFinding {
	if strings.TrimSpace(output) == "" {
		return []LinterFinding{}
	}
	var doc struct {
		Diagnostics []struct {
			Severity string `json:"severity"`
			Message  string `json:"message"`
			Code     string `json:"code"`
			Location struct {
				StartLine   int `json:"startLine"`
				StartColumn int `json:"startColumn"`
			} `json:"location"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return nil
	}
	findings := make([]LinterFinding, 0, len(doc.Diagnostics))
	for _, d := range doc.Diagnostics {
		findings = append(findings, LinterFinding{
			Line:     d.Location.StartLine,
			Column:   d.Location.StartColumn,
			Severity: NormalizeSeverity(d.Severity),
			Message:  d.Message,
			Rule:     d.Code,
		})
	}
	return findings
}

func parsePHPCS(output string) []LinterFinding {
	if strings.TrimSpace(output) == "" {
		return []LinterFinding{}
	}
	var doc struct {
		Files map[string]struct {
			Messages []struct {
				Line    int    `json:"line"`
				Column  int    `json:"column"`
				Type    string `json:"type"`
				Message string `json:"message"`
				Source  string `json:"source"`
			} `json:"messages"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return nil
	}
	var findings []LinterFinding
	for _, f := range doc.Files {
		for _, m := range f.Messages {
			findings = append(findings, LinterFinding{
				Line:     m.Line,
				Column:   m.Column,
				Severity: NormalizeSeverity(m.Type),
				Message:  m.Message,
				Rule:     m.Source,
			})
		}
	}
	if findings == nil {
		findings = []LinterFinding{}
	}
	return findings
}
