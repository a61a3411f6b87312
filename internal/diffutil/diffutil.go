// Package diffutil extracts line-level information from unified diffs.
//
// Hosting platforms hand back per-file patches as bare @@ hunks; this
// package parses them with sourcegraph/go-diff and reports which new-side
// line numbers were added or modified. The changed-line set scopes linter
// output and verification to the lines the changeset actually touched.
package diffutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ChangedLines returns the sorted new-side line numbers added by a patch.
// The patch may be a bare hunk sequence (platform API style) or carry full
// diff headers.
func ChangedLines(patch string) ([]int, error) {
	hunks, err := parseHunks(patch)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	for _, h := range hunks {
		line := int(h.NewStartLine)
		for _, raw := range strings.Split(string(h.Body), "\n") {
			if raw == "" || strings.HasPrefix(raw, `\`) {
				continue // trailing split artifact or "\ No newline at end of file"
			}
			switch raw[0] {
			case '+':
				seen[line] = true
				line++
			case ' ':
				line++
			case '-':
				// old-side only
			}
		}
	}
	lines := make([]int, 0, len(seen))
	for n := range seen {
		lines = append(lines, n)
	}
	sort.Ints(lines)
	return lines, nil
}

// AddedLineCount returns how many lines a patch adds or removes, used for
// change-impact heuristics.
func AddedLineCount(patch string) int {
	count := 0
	for _, line := range strings.Split(patch, "\n") {
		if len(line) == 0 {
			continue
		}
		if (line[0] == '+' && !strings.HasPrefix(line, "+++")) ||
			(line[0] == '-' && !strings.HasPrefix(line, "---")) {
			count++
		}
	}
	return count
}

func parseHunks(patch string) ([]*diff.Hunk, error) {
	trimmed := patch
	// Strip any leading headers down to the first hunk marker.
	if idx := strings.Index(trimmed, "@@"); idx > 0 {
		trimmed = trimmed[idx:]
	}
	if !strings.HasPrefix(trimmed, "@@") {
		return nil, fmt.Errorf("no hunks in patch")
	}
	hunks, err := diff.ParseHunks([]byte(trimmed))
	if err != nil {
		return nil, fmt.Errorf("parsing hunks: %w", err)
	}
	return hunks, nil
}
