package review

import (
	"fmt"
	"sort"
	"strings"
)

// BuildSummary renders the run summary posted after inline comments. The
// body opens with the bot marker so it can be found and cleared on the
// next run.
func BuildSummary(stats Stats, comments map[string][]Comment) string {
	var sb strings.Builder
	sb.WriteString(BotMarker)
	sb.WriteString("\n## AI Code Review\n\n")

	if stats.TotalComments == 0 {
		sb.WriteString("No issues found. ")
		fmt.Fprintf(&sb, "Reviewed %d file(s)", stats.FilesReviewed)
		if stats.CacheHits > 0 {
			fmt.Fprintf(&sb, " (%d from cache)", stats.CacheHits)
		}
		sb.WriteString(".\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Found **%d** issue(s) across **%d** file(s).\n\n", stats.TotalComments, stats.FilesReviewed)

	sb.WriteString("| Severity | Count |\n|---|---|\n")
	for _, row := range []struct {
		label string
		count int
	}{
		{"🔴 Critical", stats.Severities.Critical},
		{"🟠 Major", stats.Severities.Major},
		{"🟡 Minor", stats.Severities.Minor},
		{"🔵 Suggestion", stats.Severities.Suggestion},
	} {
		if row.count > 0 {
			fmt.Fprintf(&sb, "| %s | %d |\n", row.label, row.count)
		}
	}
	sb.WriteString("\n")

	if len(comments) > 0 {
		sb.WriteString("<details>\n<summary>Issues by file</summary>\n\n")
		for _, path := range sortedKeys(comments) {
			list := comments[path]
			if len(list) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "**%s** — %d issue(s)\n", path, len(list))
			for _, c := range list {
				loc := ""
				if c.Line > 0 {
					loc = fmt.Sprintf(" (line %d)", c.Line)
				}
				fmt.Fprintf(&sb, "- `%s`%s: %s\n", c.Severity, loc, firstLine(c.Comment))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("</details>\n\n")
	}

	var notes []string
	if stats.CacheHits > 0 {
		notes = append(notes, fmt.Sprintf("%d cached", stats.CacheHits))
	}
	if stats.FilesSkipped > 0 {
		notes = append(notes, fmt.Sprintf("%d skipped", stats.FilesSkipped))
	}
	if stats.FilesExcluded > 0 {
		notes = append(notes, fmt.Sprintf("%d excluded", stats.FilesExcluded))
	}
	if len(notes) > 0 {
		fmt.Fprintf(&sb, "_%s_\n", strings.Join(notes, ", "))
	}
	return sb.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func sortedKeys(m map[string][]Comment) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
