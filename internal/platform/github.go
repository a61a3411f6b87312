package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gavelhq/gavel/internal/review"
)

const githubAPIURL = "https://api.github.com"

// GitHub talks to the GitHub REST API. Requires GITHUB_TOKEN; the
// repository comes from the constructor or GITHUB_REPOSITORY
// ("owner/name", set automatically in Actions).
type GitHub struct {
	token   string
	apiURL  string
	owner   string
	repo    string
	httpCli *http.Client
	log     *slog.Logger
}

// NewGitHub creates a GitHub change source.
func NewGitHub(repo string, log *slog.Logger) (*GitHub, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}
	if repo == "" {
		repo = os.Getenv("GITHUB_REPOSITORY")
	}

	var owner, name string
	if repo == "" {
		// Outside CI, fall back to the git remote of the working directory.
		var err error
		owner, name, err = DetectRepo()
		if err != nil {
			return nil, fmt.Errorf("repository not specified (--repo or GITHUB_REPOSITORY): %w", err)
		}
	} else {
		var ok bool
		owner, name, ok = strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" {
			return nil, fmt.Errorf("repository must be in owner/name form, got %q", repo)
		}
	}

	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = githubAPIURL
	}
	if log == nil {
		log = slog.Default()
	}

	return &GitHub{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		owner:   owner,
		repo:    name,
		httpCli: &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}, nil
}

func (g *GitHub) do(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpCli.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, data, nil
}

type prInfo struct {
	Base struct {
		SHA string `json:"sha"`
	} `json:"base"`
	Head struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

type prFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Patch    string `json:"patch"`
}

// GetChanges fetches the changed files of a pull request. Files without a
// patch (binaries, large files) are returned with Binary set so the
// pipeline can skip them with a count.
func (g *GitHub) GetChanges(ctx context.Context, id string) ([]review.Change, error) {
	num, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("pull request id must be a number, got %q", id)
	}

	status, body, err := g.do(ctx, "GET", fmt.Sprintf("%s/repos/%s/%s/pulls/%d", g.apiURL, g.owner, g.repo, num), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching PR: %w", err)
	}
	if status == 404 {
		return nil, fmt.Errorf("PR #%d not found in %s/%s", num, g.owner, g.repo)
	}
	if status != 200 {
		return nil, fmt.Errorf("GitHub API error (status %d): %s", status, body)
	}
	var pr prInfo
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("parsing PR: %w", err)
	}

	var changes []review.Change
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=100&page=%d", g.apiURL, g.owner, g.repo, num, page)
		status, body, err := g.do(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("fetching PR files: %w", err)
		}
		if status != 200 {
			return nil, fmt.Errorf("GitHub API error (status %d): %s", status, body)
		}
		var files []prFile
		if err := json.Unmarshal(body, &files); err != nil {
			return nil, fmt.Errorf("parsing PR files: %w", err)
		}
		for _, f := range files {
			if f.Status == "removed" {
				continue
			}
			changes = append(changes, review.Change{
				Filepath: f.Filename,
				Diff:     f.Patch,
				Binary:   f.Patch == "",
				BaseRef:  pr.Base.SHA,
				HeadRef:  pr.Head.SHA,
			})
		}
		if len(files) < 100 {
			break
		}
	}
	return changes, nil
}

// GetFileContent fetches a file at a ref via the contents API. Returns
// false when the file does not exist at that ref or cannot be decoded.
func (g *GitHub) GetFileContent(ctx context.Context, path, ref string) (string, bool) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiURL, g.owner, g.repo, path)
	if ref != "" {
		url += "?ref=" + ref
	}
	status, body, err := g.do(ctx, "GET", url, nil)
	if err != nil || status != 200 {
		return "", false
	}
	var file struct {
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(body, &file); err != nil {
		return "", false
	}
	if file.Encoding != "base64" {
		return file.Content, true
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// GetDirectoryTree lists a directory at a ref.
func (g *GitHub) GetDirectoryTree(ctx context.Context, dir, ref string) ([]review.TreeEntry, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiURL, g.owner, g.repo, dir)
	if ref != "" {
		url += "?ref=" + ref
	}
	status, body, err := g.do(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	if status != 200 {
		return nil, fmt.Errorf("GitHub API error (status %d): %s", status, body)
	}
	var items []struct {
		Name string `json:"name"`
		Path string `json:"path"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parsing directory listing: %w", err)
	}
	entries := make([]review.TreeEntry, len(items))
	for i, it := range items {
		kind := "blob"
		if it.Type == "dir" {
			kind = "tree"
		}
		entries[i] = review.TreeEntry{Path: it.Path, Name: it.Name, Kind: kind}
	}
	return entries, nil
}

type ghReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Side string `json:"side"`
	Body string `json:"body"`
}

type ghReviewRequest struct {
	Event    string            `json:"event"`
	Body     string            `json:"body,omitempty"`
	Comments []ghReviewComment `json:"comments"`
}

// PostComments publishes inline comments as a single COMMENT review. Each
// body carries the bot marker so the next run can clear it. Comments that
// GitHub rejects for an unanchorable line are retried as a plain review
// without inline positions rather than lost.
func (g *GitHub) PostComments(ctx context.Context, id string, comments []review.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	req := ghReviewRequest{Event: "COMMENT"}
	for _, c := range comments {
		req.Comments = append(req.Comments, ghReviewComment{
			Path: c.Filepath,
			Line: c.Line,
			Side: "RIGHT",
			Body: formatCommentBody(c),
		})
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%s/reviews", g.apiURL, g.owner, g.repo, id)
	status, body, err := g.do(ctx, "POST", url, req)
	if err != nil {
		return fmt.Errorf("posting review: %w", err)
	}
	if status == 422 {
		g.log.Warn("inline positions rejected, posting as review body", "detail", string(body))
		return g.postFallbackReview(ctx, id, comments)
	}
	if status != 200 && status != 201 {
		return fmt.Errorf("GitHub API error (status %d): %s", status, body)
	}
	return nil
}

func (g *GitHub) postFallbackReview(ctx context.Context, id string, comments []review.Comment) error {
	var sb strings.Builder
	sb.WriteString(review.BotMarker + "\n## Review Comments\n\n")
	for _, c := range comments {
		fmt.Fprintf(&sb, "**%s:%d** (%s)\n%s\n\n", c.Filepath, c.Line, c.Severity, c.Comment)
	}
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%s/reviews", g.apiURL, g.owner, g.repo, id)
	status, body, err := g.do(ctx, "POST", url, ghReviewRequest{Event: "COMMENT", Body: sb.String()})
	if err != nil {
		return fmt.Errorf("posting review: %w", err)
	}
	if status != 200 && status != 201 {
		return fmt.Errorf("GitHub API error (status %d): %s", status, body)
	}
	return nil
}

// PostSummary publishes the run summary as an issue comment.
func (g *GitHub) PostSummary(ctx context.Context, id string, stats review.Stats, comments []review.Comment) error {
	grouped := make(map[string][]review.Comment)
	for _, c := range comments {
		grouped[c.Filepath] = append(grouped[c.Filepath], c)
	}
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%s/comments", g.apiURL, g.owner, g.repo, id)
	status, body, err := g.do(ctx, "POST", url, map[string]string{"body": review.BuildSummary(stats, grouped)})
	if err != nil {
		return fmt.Errorf("posting summary: %w", err)
	}
	if status != 201 {
		return fmt.Errorf("GitHub API error (status %d): %s", status, body)
	}
	return nil
}

// ClearBotComments deletes previously posted bot comments, identified by
// the marker, from both the issue thread and inline review comments.
// Deletion failures are logged and skipped so stale comments never block
// a new review.
func (g *GitHub) ClearBotComments(ctx context.Context, id string) (int, error) {
	cleared := 0
	for _, kind := range []string{"issues", "pulls"} {
		listURL := fmt.Sprintf("%s/repos/%s/%s/%s/%s/comments?per_page=100", g.apiURL, g.owner, g.repo, kind, id)
		status, body, err := g.do(ctx, "GET", listURL, nil)
		if err != nil {
			return cleared, fmt.Errorf("listing %s comments: %w", kind, err)
		}
		if status != 200 {
			return cleared, fmt.Errorf("GitHub API error (status %d): %s", status, body)
		}
		var items []struct {
			ID   int64  `json:"id"`
			Body string `json:"body"`
		}
		if err := json.Unmarshal(body, &items); err != nil {
			return cleared, fmt.Errorf("parsing %s comments: %w", kind, err)
		}

		for _, item := range items {
			if !strings.Contains(item.Body, review.BotMarker) {
				continue
			}
			delURL := fmt.Sprintf("%s/repos/%s/%s/%s/comments/%d", g.apiURL, g.owner, g.repo, kind, item.ID)
			status, _, err := g.do(ctx, "DELETE", delURL, nil)
			if err != nil || status != 204 {
				g.log.Warn("deleting stale comment failed", "id", item.ID, "status", status)
				continue
			}
			cleared++
		}
	}
	return cleared, nil
}

func formatCommentBody(c review.Comment) string {
	var sb strings.Builder
	sb.WriteString(review.BotMarker + "\n")
	fmt.Fprintf(&sb, "**[%s]** %s", strings.ToUpper(string(c.Severity)), c.Comment)
	if c.Suggestion != "" {
		fmt.Fprintf(&sb, "\n\n**Suggestion:** %s", c.Suggestion)
	}
	if c.LinterConfirmed != nil && *c.LinterConfirmed && c.LinterEvidence != nil {
		fmt.Fprintf(&sb, "\n\n_Confirmed by static analysis: %s (%s)_", c.LinterEvidence.Message, c.LinterEvidence.Rule)
	}
	return sb.String()
}
