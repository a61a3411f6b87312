package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gavelhq/gavel/internal/review"
)

const gitlabAPIURL = "https://gitlab.com/api/v4"

// GitLab talks to the GitLab REST API. Requires GITLAB_TOKEN; the project
// comes from the constructor or CI_PROJECT_ID (set automatically in
// GitLab CI). The id passed to the ChangeSource methods is the merge
// request IID.
type GitLab struct {
	token   string
	apiURL  string
	project string
	httpCli *http.Client
	log     *slog.Logger

	// diff refs of the last fetched MR, needed to anchor inline
	// discussion positions.
	baseSHA  string
	headSHA  string
	startSHA string
}

// NewGitLab creates a GitLab change source.
func NewGitLab(project string, log *slog.Logger) (*GitLab, error) {
	token := os.Getenv("GITLAB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITLAB_TOKEN environment variable is not set")
	}
	if project == "" {
		project = os.Getenv("CI_PROJECT_ID")
	}
	if project == "" {
		return nil, fmt.Errorf("project not set: pass --repo or set CI_PROJECT_ID")
	}

	apiURL := os.Getenv("CI_API_V4_URL")
	if apiURL == "" {
		apiURL = gitlabAPIURL
	}
	if log == nil {
		log = slog.Default()
	}

	return &GitLab{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		project: url.PathEscape(project),
		httpCli: &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}, nil
}

func (g *GitLab) do(ctx context.Context, method, u string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", g.token)
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

type mrChanges struct {
	DiffRefs struct {
		BaseSHA  string `json:"base_sha"`
		HeadSHA  string `json:"head_sha"`
		StartSHA string `json:"start_sha"`
	} `json:"diff_refs"`
	Changes []struct {
		OldPath     string `json:"old_path"`
		NewPath     string `json:"new_path"`
		Diff        string `json:"diff"`
		NewFile     bool   `json:"new_file"`
		DeletedFile bool   `json:"deleted_file"`
	} `json:"changes"`
}

// GetChanges fetches the changed files of a merge request.
func (g *GitLab) GetChanges(ctx context.Context, id string) ([]review.Change, error) {
	u := fmt.Sprintf("%s/projects/%s/merge_requests/%s/changes", g.apiURL, g.project, id)
	status, body, err := g.do(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching MR changes: %w", err)
	}
	if status == 404 {
		return nil, fmt.Errorf("MR !%s not found in project %s", id, g.project)
	}
	if status != 200 {
		return nil, fmt.Errorf("GitLab API error (status %d): %s", status, body)
	}

	var mr mrChanges
	if err := json.Unmarshal(body, &mr); err != nil {
		return nil, fmt.Errorf("parsing MR changes: %w", err)
	}
	g.baseSHA = mr.DiffRefs.BaseSHA
	g.headSHA = mr.DiffRefs.HeadSHA
	g.startSHA = mr.DiffRefs.StartSHA

	var changes []review.Change
	for _, ch := range mr.Changes {
		if ch.DeletedFile {
			continue
		}
		changes = append(changes, review.Change{
			Filepath: ch.NewPath,
			Diff:     ch.Diff,
			Binary:   ch.Diff == "",
			BaseRef:  mr.DiffRefs.BaseSHA,
			HeadRef:  mr.DiffRefs.HeadSHA,
		})
	}
	return changes, nil
}

// GetFileContent fetches a raw file at a ref.
func (g *GitLab) GetFileContent(ctx context.Context, path, ref string) (string, bool) {
	if ref == "" {
		ref = "HEAD"
	}
	u := fmt.Sprintf("%s/projects/%s/repository/files/%s/raw?ref=%s",
		g.apiURL, g.project, url.PathEscape(path), url.QueryEscape(ref))
	status, body, err := g.do(ctx, "GET", u, nil)
	if err != nil || status != 200 {
		return "", false
	}
	return string(body), true
}

// GetDirectoryTree lists a directory at a ref.
func (g *GitLab) GetDirectoryTree(ctx context.Context, dir, ref string) ([]review.TreeEntry, error) {
	u := fmt.Sprintf("%s/projects/%s/repository/tree?path=%s", g.apiURL, g.project, url.QueryEscape(dir))
	if ref != "" {
		u += "&ref=" + url.QueryEscape(ref)
	}
	status, body, err := g.do(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("listing tree: %w", err)
	}
	if status != 200 {
		return nil, fmt.Errorf("GitLab API error (status %d): %s", status, body)
	}
	var items []struct {
		Name string `json:"name"`
		Path string `json:"path"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parsing tree: %w", err)
	}
	entries := make([]review.TreeEntry, len(items))
	for i, it := range items {
		entries[i] = review.TreeEntry{Path: it.Path, Name: it.Name, Kind: it.Type}
	}
	return entries, nil
}

type glPosition struct {
	PositionType string `json:"position_type"`
	BaseSHA      string `json:"base_sha"`
	HeadSHA      string `json:"head_sha"`
	StartSHA     string `json:"start_sha"`
	NewPath      string `json:"new_path"`
	NewLine      int    `json:"new_line"`
}

// PostComments publishes inline comments as MR discussions. Requires diff
// refs from a prior GetChanges call; comments that cannot be anchored fall
// back to plain notes.
func (g *GitLab) PostComments(ctx context.Context, id string, comments []review.Comment) error {
	for _, c := range comments {
		payload := map[string]any{
			"body": formatCommentBody(c),
		}
		if g.headSHA != "" && c.Line > 0 {
			payload["position"] = glPosition{
				PositionType: "text",
				BaseSHA:      g.baseSHA,
				HeadSHA:      g.headSHA,
				StartSHA:     g.startSHA,
				NewPath:      c.Filepath,
				NewLine:      c.Line,
			}
		}
		u := fmt.Sprintf("%s/projects/%s/merge_requests/%s/discussions", g.apiURL, g.project, id)
		status, body, err := g.do(ctx, "POST", u, payload)
		if err != nil {
			return fmt.Errorf("posting discussion: %w", err)
		}
		if status == 400 {
			g.log.Warn("position rejected, posting as note", "file", c.Filepath, "line", c.Line)
			if err := g.postNote(ctx, id, formatCommentBody(c)); err != nil {
				return err
			}
			continue
		}
		if status != 201 {
			return fmt.Errorf("GitLab API error (status %d): %s", status, body)
		}
	}
	return nil
}

// PostSummary publishes the run summary as an MR note.
func (g *GitLab) PostSummary(ctx context.Context, id string, stats review.Stats, comments []review.Comment) error {
	grouped := make(map[string][]review.Comment)
	for _, c := range comments {
		grouped[c.Filepath] = append(grouped[c.Filepath], c)
	}
	return g.postNote(ctx, id, review.BuildSummary(stats, grouped))
}

func (g *GitLab) postNote(ctx context.Context, id, body string) error {
	u := fmt.Sprintf("%s/projects/%s/merge_requests/%s/notes", g.apiURL, g.project, id)
	status, respBody, err := g.do(ctx, "POST", u, map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("posting note: %w", err)
	}
	if status != 201 {
		return fmt.Errorf("GitLab API error (status %d): %s", status, respBody)
	}
	return nil
}

// ClearBotComments deletes previously posted bot notes, identified by the
// marker.
func (g *GitLab) ClearBotComments(ctx context.Context, id string) (int, error) {
	u := fmt.Sprintf("%s/projects/%s/merge_requests/%s/notes?per_page=100", g.apiURL, g.project, id)
	status, body, err := g.do(ctx, "GET", u, nil)
	if err != nil {
		return 0, fmt.Errorf("listing notes: %w", err)
	}
	if status != 200 {
		return 0, fmt.Errorf("GitLab API error (status %d): %s", status, body)
	}
	var notes []struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
	}
	if err := json.Unmarshal(body, &notes); err != nil {
		return 0, fmt.Errorf("parsing notes: %w", err)
	}

	cleared := 0
	for _, n := range notes {
		if !strings.Contains(n.Body, review.BotMarker) {
			continue
		}
		delURL := fmt.Sprintf("%s/projects/%s/merge_requests/%s/notes/%d", g.apiURL, g.project, id, n.ID)
		status, _, err := g.do(ctx, "DELETE", delURL, nil)
		if err != nil || status != 204 {
			g.log.Warn("deleting stale note failed", "id", n.ID, "status", status)
			continue
		}
		cleared++
	}
	return cleared, nil
}
