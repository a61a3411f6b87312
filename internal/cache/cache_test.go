package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Filepath string `json:"filepath"`
	Comment  string `json:"comment"`
	Severity string `json:"severity"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_SetGet(t *testing.T) {
	store, err := New(true, t.TempDir(), 7, testLogger())
	require.NoError(t, err)

	key := Key("main.go", "@@ -1,3 +1,4 @@")
	want := []payload{{Filepath: "main.go", Comment: "unchecked error", Severity: "major"}}

	var got []payload
	assert.False(t, store.Get(key, &got), "expected miss before set")

	store.Set(key, want)
	require.True(t, store.Get(key, &got), "expected hit after set")
	assert.Equal(t, want, got)
}

func TestStore_Disabled(t *testing.T) {
	store, err := New(false, "", 7, testLogger())
	require.NoError(t, err)

	store.Set("k", []payload{{Comment: "x"}})
	var got []payload
	assert.False(t, store.Get("k", &got))
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("a.go", "diff")
	k2 := Key("a.go", "diff")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	assert.NotEqual(t, k1, Key("b.go", "diff"), "path must change the key")
	assert.NotEqual(t, k1, Key("a.go", "diff2"), "diff must change the key")
}

func TestStore_ExpiredEntrySelfHeals(t *testing.T) {
	dir := t.TempDir()
	store, err := New(true, dir, 7, testLogger())
	require.NoError(t, err)

	key := Key("old.go", "diff")
	entry := Entry{
		Timestamp: time.Now().Add(-8 * 24 * time.Hour),
		CacheKey:  key,
		Review:    json.RawMessage(`[{"comment":"stale"}]`),
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	path := filepath.Join(dir, key+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var got []payload
	assert.False(t, store.Get(key, &got), "expired entry must miss")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "expired entry must be deleted")
}

func TestStore_MalformedEntrySelfHeals(t *testing.T) {
	dir := t.TempDir()
	store, err := New(true, dir, 7, testLogger())
	require.NoError(t, err)

	key := Key("bad.go", "diff")
	path := filepath.Join(dir, key+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var got []payload
	assert.False(t, store.Get(key, &got))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "malformed entry must be deleted")
}

func TestStore_ClearExpired(t *testing.T) {
	dir := t.TempDir()
	store, err := New(true, dir, 7, testLogger())
	require.NoError(t, err)

	store.Set(Key("fresh.go", "d"), []payload{{Comment: "keep"}})

	old := Entry{Timestamp: time.Now().Add(-30 * 24 * time.Hour), CacheKey: "old", Review: json.RawMessage(`[]`)}
	data, _ := json.Marshal(old)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), data, 0o644))

	assert.Equal(t, 1, store.ClearExpired())

	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestStore_Clear(t *testing.T) {
	dir := t.TempDir()
	store, err := New(true, dir, 7, testLogger())
	require.NoError(t, err)

	store.Set(Key("a.go", "d"), []payload{{Comment: "a"}})
	store.Set(Key("b.go", "d"), []payload{{Comment: "b"}})

	require.NoError(t, store.Clear())
	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}
