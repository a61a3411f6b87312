package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/gavelhq/gavel/internal/cache"
	"github.com/gavelhq/gavel/internal/config"
	"github.com/gavelhq/gavel/internal/diffutil"
	"github.com/gavelhq/gavel/internal/language"
	"github.com/gavelhq/gavel/internal/redact"
	"github.com/gavelhq/gavel/internal/tools"
)

// Orchestrator drives a full review run: fetch changes, filter, consult
// the cache, batch the rest through the AI provider, verify high-severity
// findings, and publish the results back to the platform.
type Orchestrator struct {
	source   ChangeSource
	provider Provider
	cache    *cache.Store
	registry *tools.Registry
	verifier *Verifier
	builder  *ContextBuilder
	cfg      config.Config
	log      *slog.Logger
}

// NewOrchestrator wires a review pipeline from its parts. verifier may be
// nil to skip the verification stage.
func NewOrchestrator(source ChangeSource, provider Provider, store *cache.Store, registry *tools.Registry, verifier *Verifier, cfg config.Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		source:   source,
		provider: provider,
		cache:    store,
		registry: registry,
		verifier: verifier,
		builder:  NewContextBuilder(source),
		cfg:      cfg,
		log:      log,
	}
}

// pending is a file queued for AI review, with everything gathered during
// the pre-pass.
type pending struct {
	change       Change
	cacheKey     string
	lang         string
	changedLines []int
	linterNotes  string
}

// ReviewPullRequest runs the whole pipeline for one pull request. Per-file
// and per-batch failures are isolated: one bad file never aborts the run.
// The returned Stats reflect what actually happened, even on partial
// failure.
func (o *Orchestrator) ReviewPullRequest(ctx context.Context, id string) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}
	log := o.log.With("run_id", stats.RunID, "pr", id)
	log.Info("starting review", "provider", o.provider.Name(), "model", o.cfg.Model)

	changes, err := o.source.GetChanges(ctx, id)
	if err != nil {
		return stats, fmt.Errorf("fetching changes: %w", err)
	}
	log.Info("changes fetched", "files", len(changes))

	results := make(map[string][]Comment)
	var queue []pending

	for _, ch := range changes {
		if Excluded(ch.Filepath, o.cfg.Exclusions) {
			log.Debug("file excluded", "file", ch.Filepath)
			stats.FilesExcluded++
			continue
		}
		if ch.Binary || ch.Diff == "" {
			log.Debug("file skipped", "file", ch.Filepath, "binary", ch.Binary)
			stats.FilesSkipped++
			continue
		}
		if len(ch.Diff) > o.cfg.MaxDiffChars {
			log.Info("file skipped: diff too large", "file", ch.Filepath, "chars", len(ch.Diff))
			stats.FilesSkipped++
			continue
		}

		if o.cfg.Privacy.RedactSecrets {
			ch.Diff = redact.Secrets(ch.Diff)
		}

		key := cache.Key(ch.Filepath, ch.Diff)
		var cached []Comment
		if o.cache.Get(key, &cached) {
			log.Info("cache hit", "file", ch.Filepath, "comments", len(cached))
			stats.CacheHits++
			stats.FilesReviewed++
			results[ch.Filepath] = cached
			continue
		}

		queue = append(queue, o.prepare(ctx, ch, key, log))
	}

	for _, batch := range Batches(queue, o.batchSize()) {
		o.reviewBatch(ctx, batch, results, log)
	}

	for _, p := range queue {
		stats.FilesReviewed++
		comments := results[p.change.Filepath]
		if len(comments) == 0 {
			continue
		}

		if o.verifier != nil {
			comments = o.verifier.Verify(ctx, comments, p.change.Filepath, p.lang, p.changedLines)
		}
		comments = capComments(comments, o.cfg.Review.MaxCommentsPerFile)
		results[p.change.Filepath] = comments

		if len(comments) > 0 {
			o.cache.Set(p.cacheKey, comments)
		}
	}

	var all []Comment
	for _, path := range sortedKeys(results) {
		all = append(all, results[path]...)
	}
	stats.TotalComments = len(all)
	stats.Severities = CountSeverities(all)

	cleared, err := o.source.ClearBotComments(ctx, id)
	if err != nil {
		log.Warn("clearing previous comments failed", "error", err)
	}
	stats.CommentsCleared = cleared

	if len(all) > 0 {
		if err := o.source.PostComments(ctx, id, all); err != nil {
			return stats, fmt.Errorf("posting comments: %w", err)
		}
	}
	if err := o.source.PostSummary(ctx, id, stats, all); err != nil {
		return stats, fmt.Errorf("posting summary: %w", err)
	}

	log.Info("review complete",
		"reviewed", stats.FilesReviewed,
		"skipped", stats.FilesSkipped,
		"excluded", stats.FilesExcluded,
		"cache_hits", stats.CacheHits,
		"comments", stats.TotalComments)
	return stats, nil
}

// prepare runs the per-file pre-pass: language detection, changed-line
// extraction, and an early linter run whose findings are surfaced to the
// AI alongside the diff.
func (o *Orchestrator) prepare(ctx context.Context, ch Change, key string, log *slog.Logger) pending {
	p := pending{change: ch, cacheKey: key, lang: language.Detect(ch.Filepath)}

	lines, err := diffutil.ChangedLines(ch.Diff)
	if err != nil {
		log.Warn("parsing diff hunks failed", "file", ch.Filepath, "error", err)
	}
	p.changedLines = lines

	if p.lang == "" || len(lines) == 0 {
		return p
	}
	res, err := o.registry.Execute(ctx, "run_linter", map[string]any{
		"filepath":      ch.Filepath,
		"language":      p.lang,
		"changed_lines": lines,
	})
	if err != nil {
		log.Error("linter tool missing from registry", "error", err)
		return p
	}
	if !res.Success {
		log.Debug("linter pre-pass unavailable", "file", ch.Filepath, "reason", res.Error)
		return p
	}
	if report, ok := res.Data.(tools.LintReport); ok && len(report.Findings) > 0 {
		p.linterNotes = formatLinterNotes(report)
		log.Info("linter pre-pass findings", "file", ch.Filepath, "count", len(report.Findings))
	}
	return p
}

// reviewBatch sends one batch through the provider and redistributes the
// returned comments to their files. A failed call loses this batch's
// comments only.
func (o *Orchestrator) reviewBatch(ctx context.Context, batch []pending, results map[string][]Comment, log *slog.Logger) {
	if len(batch) == 0 {
		return
	}

	files := make([]BatchFile, 0, len(batch))
	members := make(map[string]bool, len(batch))
	for _, p := range batch {
		files = append(files, BatchFile{
			Filepath:    p.change.Filepath,
			Context:     o.builder.BuildContext(ctx, p.change),
			LinterNotes: p.linterNotes,
		})
		members[p.change.Filepath] = true
	}

	log.Info("reviewing batch", "files", len(files))
	comments, err := o.provider.ReviewBatch(ctx, BuildBatchContext(files))
	if err != nil {
		log.Error("batch review failed", "files", len(files), "error", err)
		return
	}

	for _, c := range comments {
		if !members[c.Filepath] {
			log.Warn("dropping comment for file outside batch", "file", c.Filepath)
			continue
		}
		results[c.Filepath] = append(results[c.Filepath], c)
	}
}

func (o *Orchestrator) batchSize() int {
	if o.cfg.BatchSize > 0 {
		return o.cfg.BatchSize
	}
	return DefaultBatchSize
}

// capComments keeps at most max comments per file, preferring the most
// severe. Stable within a severity level.
func capComments(comments []Comment, max int) []Comment {
	if max <= 0 || len(comments) <= max {
		return comments
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return SeverityRank(comments[i].Severity) > SeverityRank(comments[j].Severity)
	})
	return comments[:max]
}

func formatLinterNotes(report tools.LintReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Static analysis found %d issue(s) on changed lines:\n", report.FilteredIssues)
	for _, f := range report.Findings {
		fmt.Fprintf(&sb, "- line %d [%s] %s (%s)\n", f.Line, f.Severity, f.Message, f.Rule)
	}
	return sb.String()
}
