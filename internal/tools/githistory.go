package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const gitTimeout = 10 * time.Second

// CommitInfo is one commit touching a file.
type CommitInfo struct {
	Hash    string `json:"hash"` // short hash
	Author  string `json:"author"`
	Date    string `json:"date"` // relative, e.g. "3 days ago"
	Subject string `json:"message"`
}

// HistoryReport is the Data payload of a git_history run.
type HistoryReport struct {
	Filepath string       `json:"filepath"`
	Commits  []CommitInfo `json:"commits"`
	Count    int          `json:"count"`
	Message  string       `json:"message,omitempty"`
}

// GitHistoryTool returns the most recent commits touching a file. Used as
// verification evidence: who changed the code, when, and why.
type GitHistoryTool struct {
	repoPath string
}

// NewGitHistoryTool creates a GitHistoryTool rooted at repoPath.
func NewGitHistoryTool(repoPath string) *GitHistoryTool {
	return &GitHistoryTool{repoPath: repoPath}
}

func (t *GitHistoryTool) Name() string { return "git_history" }

func (t *GitHistoryTool) Description() string {
	return "Get recent git commit history for a file: who changed it, when, and why."
}

func (t *GitHistoryTool) Parameters() []Param {
	return []Param{
		{Name: "filepath", Type: "string", Description: "Relative path to the file from the repository root", Required: true},
		{Name: "max_commits", Type: "integer", Description: "Maximum number of recent commits to return (default 5)", Required: false},
	}
}

func (t *GitHistoryTool) Execute(ctx context.Context, params map[string]any) ToolResult {
	path := stringParam(params, "filepath")
	maxCommits := intParam(params, "max_commits", 5)
	if path == "" {
		return Failure("filepath parameter is required")
	}

	gitCtx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(gitCtx, "git", "log",
		fmt.Sprintf("-%d", maxCommits),
		"--pretty=format:%H|%an|%ar|%s",
		"--", path)
	cmd.Dir = t.repoPath
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if gitCtx.Err() != nil {
			return Failure("git log timed out")
		}
		return Failure("git log failed: %s", strings.TrimSpace(errBuf.String()))
	}

	commits := ParseGitLog(out.String())
	report := HistoryReport{Filepath: path, Commits: commits, Count: len(commits)}
	if len(commits) == 0 {
		// Untracked or brand-new file: absence of history is information,
		// not an error.
		report.Message = "no commit history found (new file or not tracked)"
	}
	return ToolResult{Success: true, Data: report}
}

// ParseGitLog parses "--pretty=format:%H|%an|%ar|%s" output into commits.
func ParseGitLog(output string) []CommitInfo {
	commits := []CommitInfo{}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		hash := parts[0]
		if len(hash) > 8 {
			hash = hash[:8]
		}
		commits = append(commits, CommitInfo{
			Hash:    hash,
			Author:  parts[1],
			Date:    parts[2],
			Subject: parts[3],
		})
	}
	return commits
}
