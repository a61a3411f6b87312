package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gavelhq/gavel/internal/cache"
	"github.com/gavelhq/gavel/internal/config"
	"github.com/gavelhq/gavel/internal/platform"
	"github.com/gavelhq/gavel/internal/providers"
	"github.com/gavelhq/gavel/internal/review"
	"github.com/gavelhq/gavel/internal/tools"
)

var (
	flagPlatform  string
	flagRepo      string
	flagProvider  string
	flagModel     string
	flagBatchSize int
	flagNoCache   bool
	flagNoVerify  bool
	flagRecheck   bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <pr-number>",
	Short: "Review a pull or merge request",
	Long: `Review fetches the change request's diffs, runs the AI review pipeline
(batching, caching, linter cross-check), and posts inline comments and a
summary back to the request.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&flagPlatform, "platform", "", "Hosting platform (github, gitlab)")
	reviewCmd.Flags().StringVar(&flagRepo, "repo", "", "Repository (owner/name for GitHub, project ID for GitLab)")
	reviewCmd.Flags().StringVar(&flagProvider, "provider", "", "AI provider (openrouter, anthropic)")
	reviewCmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	reviewCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "Files per AI call")
	reviewCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the review cache")
	reviewCmd.Flags().BoolVar(&flagNoVerify, "no-verify", false, "Skip verification of high-severity issues")
	reviewCmd.Flags().BoolVar(&flagRecheck, "recheck", false, "Re-verify unconfirmed issues with a second AI pass")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagPlatform != "" {
		m["platform"] = flagPlatform
	}
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagBatchSize > 0 {
		m["batchSize"] = fmt.Sprintf("%d", flagBatchSize)
	}
	if flagNoCache {
		m["noCache"] = "true"
	}
	if flagNoVerify {
		m["noVerify"] = "true"
	}
	return m
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig, buildOverrides())
	if err != nil {
		exitCode = ExitUsageError
		return err
	}
	if !cfg.Enabled {
		fmt.Fprintln(os.Stdout, "Review is disabled in config.")
		return nil
	}
	if flagRecheck {
		cfg.Review.AIRecheck = true
	}
	log := newLogger()

	store, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLDays, log)
	if err != nil {
		exitCode = ExitRuntimeError
		return fmt.Errorf("opening cache: %w", err)
	}

	provider, err := providers.New(cfg, log)
	if err != nil {
		exitCode = ExitAuthError
		return err
	}

	source, err := platform.New(cfg.Platform, flagRepo, log)
	if err != nil {
		exitCode = ExitAuthError
		return err
	}

	repoPath, err := os.Getwd()
	if err != nil {
		exitCode = ExitRuntimeError
		return err
	}
	registry := tools.NewRegistry(log)
	registry.Register(tools.NewLinterTool(repoPath, log))
	registry.Register(tools.NewGitHistoryTool(repoPath))
	registry.Register(tools.NewFileReaderTool(repoPath))

	var verifier *review.Verifier
	if cfg.Review.Verify {
		verifier = review.NewVerifier(provider, registry, cfg.Review.AIRecheck, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := review.NewOrchestrator(source, provider, store, registry, verifier, cfg, log)
	stats, err := orch.ReviewPullRequest(ctx, args[0])
	if err != nil {
		exitCode = ExitRuntimeError
		return err
	}

	printStats(stats)
	if stats.Severities.Critical > 0 || stats.Severities.Major > 0 {
		exitCode = ExitFindings
	}
	return nil
}

func printStats(stats review.Stats) {
	bold := color.New(color.Bold)
	bold.Fprintf(os.Stdout, "\nReview complete (run %s)\n", stats.RunID)
	fmt.Fprintf(os.Stdout, "  Files reviewed: %d (cache hits: %d, skipped: %d, excluded: %d)\n",
		stats.FilesReviewed, stats.CacheHits, stats.FilesSkipped, stats.FilesExcluded)
	if stats.CommentsCleared > 0 {
		fmt.Fprintf(os.Stdout, "  Stale comments cleared: %d\n", stats.CommentsCleared)
	}
	if stats.TotalComments == 0 {
		color.New(color.FgGreen).Fprintln(os.Stdout, "  No issues found.")
		return
	}

	var parts []string
	for _, p := range []struct {
		c     *color.Color
		label string
		n     int
	}{
		{color.New(color.FgRed), "critical", stats.Severities.Critical},
		{color.New(color.FgYellow), "major", stats.Severities.Major},
		{color.New(color.FgCyan), "minor", stats.Severities.Minor},
		{color.New(color.FgBlue), "suggestion", stats.Severities.Suggestion},
	} {
		if p.n > 0 {
			parts = append(parts, p.c.Sprintf("%d %s", p.n, p.label))
		}
	}
	fmt.Fprintf(os.Stdout, "  Issues posted: %d (%s)\n", stats.TotalComments, strings.Join(parts, ", "))
}
