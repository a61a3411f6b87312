package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PipelineVersion is folded into every cache key. Bump it whenever the shape
// or semantics of cached review output changes; stale entries then miss and
// self-delete instead of failing to deserialize.
const PipelineVersion = "v3"

// Entry is the on-disk envelope for one cached review result.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	CacheKey  string          `json:"cache_key"`
	Review    json.RawMessage `json:"review"`
}

// Store is a content-addressed, TTL-expiring cache of review results.
// One JSON file per entry, named by the cache key. Writes are best-effort:
// failures are logged, never propagated.
type Store struct {
	dir     string
	ttl     time.Duration
	enabled bool
	log     *slog.Logger
}

// New creates a Store rooted at dir. A disabled store misses on every Get
// and drops every Set.
func New(enabled bool, dir string, ttlDays int, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if !enabled {
		return &Store{enabled: false, log: log}, nil
	}
	if dir == "" {
		dir = ".review_cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{
		dir:     dir,
		ttl:     time.Duration(ttlDays) * 24 * time.Hour,
		enabled: true,
		log:     log,
	}, nil
}

// Key derives the deterministic cache key for a (filepath, diff) pair.
func Key(path, diff string) string {
	h := sha256.Sum256([]byte(path + ":" + diff + ":" + PipelineVersion))
	return fmt.Sprintf("%x", h)
}

// Get loads the cached payload for key into out. A missing file, malformed
// entry, or expired entry is a miss; the offending file is removed so the
// cache heals itself.
func (s *Store) Get(key string, out any) bool {
	if !s.enabled {
		return false
	}
	path := s.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.log.Warn("removing malformed cache entry", "key", short(key), "error", err)
		os.Remove(path)
		return false
	}
	if s.ttl > 0 && time.Since(entry.Timestamp) > s.ttl {
		s.log.Debug("cache entry expired", "key", short(key))
		os.Remove(path)
		return false
	}
	if err := json.Unmarshal(entry.Review, out); err != nil {
		s.log.Warn("removing undecodable cache payload", "key", short(key), "error", err)
		os.Remove(path)
		return false
	}
	s.log.Debug("cache hit", "key", short(key))
	return true
}

// Set persists a payload under key. Errors are logged and swallowed: the
// cache is an optimization, not a source of truth.
func (s *Store) Set(key string, payload any) {
	if !s.enabled {
		return
	}
	review, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal cache payload", "key", short(key), "error", err)
		return
	}
	entry := Entry{
		Timestamp: time.Now(),
		CacheKey:  key,
		Review:    review,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		s.log.Warn("failed to marshal cache entry", "key", short(key), "error", err)
		return
	}
	if err := s.writeAtomic(s.entryPath(key), data); err != nil {
		s.log.Warn("failed to write cache entry", "key", short(key), "error", err)
		return
	}
	s.log.Debug("cached review", "key", short(key))
}

// Clear removes all cache entries.
func (s *Store) Clear() error {
	if !s.enabled || s.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			os.Remove(filepath.Join(s.dir, e.Name()))
		}
	}
	return nil
}

// ClearExpired removes expired or unreadable entries and returns how many
// were deleted.
func (s *Store) ClearExpired() int {
	if !s.enabled || s.dir == "" {
		return 0
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			if os.Remove(path) == nil {
				removed++
			}
			continue
		}
		if s.ttl > 0 && time.Since(entry.Timestamp) > s.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		s.log.Info("removed expired cache entries", "count", removed)
	}
	return removed
}

// Stats describes the current cache contents.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// GetStats returns information about the cache.
func (s *Store) GetStats() (Stats, error) {
	stats := Stats{Dir: s.dir}
	if !s.enabled || s.dir == "" {
		return stats, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()

		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			stats.Expired++
			continue
		}
		if s.ttl > 0 && time.Since(entry.Timestamp) > s.ttl {
			stats.Expired++
		}
	}
	return stats, nil
}

// Enabled returns whether caching is enabled.
func (s *Store) Enabled() bool { return s.enabled }

// Dir returns the cache directory path.
func (s *Store) Dir() string { return s.dir }

// writeAtomic writes via a temp file and rename so a concurrent reader never
// observes a partially written entry.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func short(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
