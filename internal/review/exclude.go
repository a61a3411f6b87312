package review

import (
	"path/filepath"
	"strings"

	"github.com/gavelhq/gavel/internal/config"
)

// Excluded reports whether a path is filtered out before any review cost is
// incurred. Directory rules match path components, prefix rules match the
// bare filename, and glob patterns are tried against both the filename and
// the full path.
func Excluded(path string, rules config.ExclusionConfig) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, dir := range rules.Directories {
		for _, part := range parts[:max(len(parts)-1, 0)] {
			if part == dir {
				return true
			}
		}
	}

	name := filepath.Base(path)
	for _, prefix := range rules.FilePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	for _, pattern := range rules.FilePatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		// Literal patterns like "package-lock.json" also match by substring
		// anywhere in the path.
		if !strings.ContainsAny(pattern, "*?[") && strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}
