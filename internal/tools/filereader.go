package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxReadBytes bounds how much file content can enter a verification prompt.
// Oversize files are a declared failure rather than a silent truncation.
const maxReadBytes = 50 * 1024

// FileContent is the Data payload of a read_file run.
type FileContent struct {
	Filepath string `json:"filepath"`
	Content  string `json:"content"`
	Lines    int    `json:"lines"`
	Size     int64  `json:"size"`
}

// FileReaderTool reads repository files as verification evidence, bounded
// in size and restricted to text content.
type FileReaderTool struct {
	repoPath string
}

// NewFileReaderTool creates a FileReaderTool rooted at repoPath.
func NewFileReaderTool(repoPath string) *FileReaderTool {
	return &FileReaderTool{repoPath: repoPath}
}

func (t *FileReaderTool) Name() string { return "read_file" }

func (t *FileReaderTool) Description() string {
	return "Read the complete contents of a repository file to examine related code, imports, or surrounding context."
}

func (t *FileReaderTool) Parameters() []Param {
	return []Param{
		{Name: "filepath", Type: "string", Description: "Relative path to the file from the repository root", Required: true},
	}
}

func (t *FileReaderTool) Execute(_ context.Context, params map[string]any) ToolResult {
	path := stringParam(params, "filepath")
	if path == "" {
		return Failure("filepath parameter is required")
	}

	full := filepath.Join(t.repoPath, path)
	info, err := os.Stat(full)
	if err != nil {
		return Failure("file not found: %s", path)
	}
	if info.Size() > maxReadBytes {
		return Failure("file too large: %d bytes (max %d)", info.Size(), maxReadBytes)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return Failure("reading %s: %v", path, err)
	}
	if !utf8.Valid(data) || strings.ContainsRune(string(data), 0) {
		return Failure("file is binary or not UTF-8 encoded: %s", path)
	}

	content := string(data)
	return ToolResult{Success: true, Data: FileContent{
		Filepath: path,
		Content:  content,
		Lines:    strings.Count(content, "\n") + 1,
		Size:     info.Size(),
	}}
}
