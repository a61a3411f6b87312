package review

import "context"

// Severity classifies how serious a review comment is.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMajor      Severity = "major"
	SeverityMinor      Severity = "minor"
	SeveritySuggestion Severity = "suggestion"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityMajor:
		return 3
	case SeverityMinor:
		return 2
	case SeveritySuggestion:
		return 1
	default:
		return 0
	}
}

// IsHighSeverity reports whether a severity level routes through verification.
func IsHighSeverity(s Severity) bool {
	return s == SeverityCritical || s == SeverityMajor
}

// BotMarker is embedded in every posted comment so prior bot comments can be
// identified and cleared without touching human-authored ones.
const BotMarker = "<!-- gavel:review -->"

// Comment is a single review comment attached to a file and line.
// The verifier may add confirmation metadata but never changes
// Filepath or Line.
type Comment struct {
	Filepath   string   `json:"filepath"`
	Line       int      `json:"line"`
	Comment    string   `json:"comment"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion,omitempty"`

	// Set by the verifier for high-severity issues.
	LinterConfirmed *bool           `json:"linter_confirmed,omitempty"`
	LinterEvidence  *LinterEvidence `json:"linter_evidence,omitempty"`
	Reasoning       string          `json:"verification_reasoning,omitempty"`
}

// LinterEvidence records the static-analysis finding that corroborated a
// comment during verification.
type LinterEvidence struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// Change is one file-level diff in a changeset. Immutable for the run.
type Change struct {
	Filepath string
	Diff     string
	Binary   bool
	BaseRef  string
	HeadRef  string
}

// TreeEntry is a single node in a repository directory listing.
type TreeEntry struct {
	Path string
	Name string
	Kind string // "blob" or "tree"
}

// SeverityCounts holds comment counts by severity level.
type SeverityCounts struct {
	Critical   int `json:"critical"`
	Major      int `json:"major"`
	Minor      int `json:"minor"`
	Suggestion int `json:"suggestion"`
}

// CountSeverities tallies comments by severity.
func CountSeverities(comments []Comment) SeverityCounts {
	var c SeverityCounts
	for _, cm := range comments {
		switch cm.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityMajor:
			c.Major++
		case SeverityMinor:
			c.Minor++
		case SeveritySuggestion:
			c.Suggestion++
		}
	}
	return c
}

// Stats summarizes one full review run.
type Stats struct {
	RunID           string         `json:"run_id"`
	FilesReviewed   int            `json:"files_reviewed"`
	FilesSkipped    int            `json:"files_skipped"`
	FilesExcluded   int            `json:"files_excluded"`
	CacheHits       int            `json:"cache_hits"`
	TotalComments   int            `json:"total_comments"`
	CommentsCleared int            `json:"comments_cleared"`
	Severities      SeverityCounts `json:"severities"`
}

// ChangeSource is the hosting-platform surface the orchestrator consumes.
// Implementations live in internal/platform.
type ChangeSource interface {
	GetChanges(ctx context.Context, id string) ([]Change, error)
	GetFileContent(ctx context.Context, path, ref string) (string, bool)
	GetDirectoryTree(ctx context.Context, dir, ref string) ([]TreeEntry, error)
	PostComments(ctx context.Context, id string, comments []Comment) error
	PostSummary(ctx context.Context, id string, stats Stats, comments []Comment) error
	ClearBotComments(ctx context.Context, id string) (int, error)
}

// Verdict is the structured response from a third-pass AI re-verification.
type Verdict struct {
	Confirmed       bool   `json:"confirmed"`
	Reasoning       string `json:"reasoning"`
	UpdatedSeverity string `json:"updated_severity,omitempty"`
	Confidence      string `json:"confidence,omitempty"`
}

// Provider is the AI reviewer surface the pipeline consumes.
// Implementations live in internal/providers.
type Provider interface {
	Review(ctx context.Context, reviewContext string) ([]Comment, error)
	ReviewBatch(ctx context.Context, batchContext string) ([]Comment, error)
	VerifyIssue(ctx context.Context, prompt string) (Verdict, error)
	TestConnection(ctx context.Context) bool
	Name() string
}
