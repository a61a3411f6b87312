package tools

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReaderTool_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := "package main\n\nfunc main() {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(content), 0o644))

	tool := NewFileReaderTool(dir)
	res := tool.Execute(context.Background(), map[string]any{"filepath": "main.go"})
	require.True(t, res.Success, res.Error)

	fc, ok := res.Data.(FileContent)
	require.True(t, ok)
	assert.Equal(t, content, fc.Content)
	assert.Equal(t, 4, fc.Lines)
	assert.Equal(t, int64(len(content)), fc.Size)
}

func TestFileReaderTool_Missing(t *testing.T) {
	tool := NewFileReaderTool(t.TempDir())
	res := tool.Execute(context.Background(), map[string]any{"filepath": "nope.go"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")
}

func TestFileReaderTool_TooLarge(t *testing.T) {
	dir := t.TempDir()
	big := bytes.Repeat([]byte("a"), maxReadBytes+1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644))

	tool := NewFileReaderTool(dir)
	res := tool.Execute(context.Background(), map[string]any{"filepath": "big.txt"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "too large")
}

func TestFileReaderTool_Binary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{0x00, 0x01, 0xFF, 0xFE}, 0o644))

	tool := NewFileReaderTool(dir)
	res := tool.Execute(context.Background(), map[string]any{"filepath": "blob.bin"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "binary")
}

func TestFileReaderTool_MissingFilepath(t *testing.T) {
	tool := NewFileReaderTool(t.TempDir())
	res := tool.Execute(context.Background(), map[string]any{})
	assert.False(t, res.Success)
}
