// Gavel is an AI code review bot for pull and merge requests.
//
// It fetches a change request's diffs from GitHub or GitLab, reviews them in
// batches with an AI provider, cross-checks high-severity findings against
// local static analysis and git history, and posts inline comments plus a
// summary back to the request. Results are cached per file-diff so unchanged
// files are never re-reviewed.
//
// Usage:
//
//	gavel review 42                    # review PR/MR #42
//	gavel review 42 --platform gitlab  # review a GitLab merge request
//	gavel cache clear                  # drop all cached reviews
//	gavel config init                  # write a default .gavel.json
//
// See https://github.com/gavelhq/gavel for full documentation.
package main
