package platform

import (
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"github.com/gavelhq/gavel/internal/review"
)

// New returns the ChangeSource for the named hosting platform.
// repo identifies the project ("owner/name" for GitHub, project ID or
// path for GitLab); empty falls back to CI environment variables.
func New(platform, repo string, log *slog.Logger) (review.ChangeSource, error) {
	switch platform {
	case "github":
		return NewGitHub(repo, log)
	case "gitlab":
		return NewGitLab(repo, log)
	default:
		return nil, fmt.Errorf("unsupported platform: %q (supported: github, gitlab)", platform)
	}
}

var remotePattern = regexp.MustCompile(`(?:github\.com[:/])([^/]+)/([^/.]+)`)

// gitRemoteURL is swapped out in tests.
var gitRemoteURL = func() (string, error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", fmt.Errorf("git remote get-url origin: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DetectRepo reads the git remote origin URL of the current working
// directory and extracts owner and repo from it.
func DetectRepo() (owner, repo string, err error) {
	url, err := gitRemoteURL()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repository: %w", err)
	}
	return ParseRemoteURL(url)
}

// ParseRemoteURL extracts owner and repo from a git remote URL.
// Handles both SSH (git@github.com:owner/repo.git) and HTTPS forms.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	m := remotePattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", "", fmt.Errorf("cannot parse remote URL: %s", url)
	}
	return m[1], m[2], nil
}
