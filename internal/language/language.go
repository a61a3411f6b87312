// Package language detects the programming language and framework of a file
// from its extension and a lightweight content scan. Detection drives linter
// dispatch and prompt hints; it never parses source.
package language

import (
	"path/filepath"
	"strings"
)

var extensions = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".dart":  "dart",
	".go":    "go",
	".java":  "java",
	".kt":    "kotlin",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".c":     "c",
	".cpp":   "cpp",
	".cs":    "csharp",
	".swift": "swift",
}

// frameworkHints maps language -> framework -> content keywords.
var frameworkHints = map[string]map[string][]string{
	"python": {
		"django":  {"from django", "import django"},
		"flask":   {"from flask", "import flask", "Flask("},
		"fastapi": {"from fastapi", "import fastapi", "FastAPI("},
	},
	"javascript": {
		"react":   {"from 'react'", "import React", "useState", "useEffect"},
		"vue":     {"from 'vue'", "import Vue", "createApp"},
		"angular": {"@angular", "import { Component }"},
	},
	"typescript": {
		"react":   {"from 'react'", "import React", "useState", "useEffect"},
		"angular": {"@angular", "import { Component }"},
	},
	"dart": {
		"flutter": {"package:flutter"},
	},
}

// Detect returns the language for a file path, or "" if unknown.
func Detect(path string) string {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// DetectFramework scans content for framework fingerprints. Returns "" when
// nothing matches or the language is unknown.
func DetectFramework(path, content string) string {
	hints, ok := frameworkHints[Detect(path)]
	if !ok || content == "" {
		return ""
	}
	for framework, keywords := range hints {
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				return framework
			}
		}
	}
	return ""
}
