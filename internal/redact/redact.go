// Package redact scrubs secret-looking strings from diffs and file content
// before they are sent to an AI provider or embedded in a posted comment.
package redact

import "regexp"

const placeholder = "[REDACTED]"

// patterns are regex heuristics for common credential shapes.
var patterns = []*regexp.Regexp{
	// key/secret/token/password assignments
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|token|password|passwd|credential)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{16,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub / GitLab tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`glpat-[A-Za-z0-9_-]{20,}`),
	// Anthropic / OpenAI style keys
	regexp.MustCompile(`sk-(ant-)?[A-Za-z0-9_-]{20,}`),
}

// Secrets replaces detected secrets in text with a placeholder.
func Secrets(text string) string {
	out := text
	for _, pat := range patterns {
		out = pat.ReplaceAllString(out, placeholder)
	}
	return out
}
