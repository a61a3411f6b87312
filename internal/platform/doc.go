// Package platform implements the hosting-platform clients that feed the
// review pipeline. Each client adapts one provider's REST API (GitHub pull
// requests, GitLab merge requests) to the review.ChangeSource interface:
// fetching changed files, reading repository content for context, and
// publishing comments and summaries back to the change request.
package platform
