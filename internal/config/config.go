package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// ConfigFileName is looked up in the repository root being reviewed.
const ConfigFileName = ".gavel.json"

// Config represents the gavel configuration.
type Config struct {
	Enabled      bool            `json:"enabled"`
	Platform     string          `json:"platform"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	MaxTokens    int             `json:"maxTokens"`
	Temperature  float64         `json:"temperature"`
	BatchSize    int             `json:"batchSize"`
	MaxDiffChars int             `json:"maxDiffChars"`
	Exclusions   ExclusionConfig `json:"exclusions"`
	Review       ReviewConfig    `json:"review"`
	Cache        CacheConfig     `json:"cache"`
	Privacy      PrivacyConfig   `json:"privacy"`
}

// ExclusionConfig lists paths that are never reviewed.
type ExclusionConfig struct {
	Directories  []string `json:"directories"`
	FilePrefixes []string `json:"filePrefixes"`
	FilePatterns []string `json:"filePatterns"`
}

// ReviewConfig controls review behavior.
type ReviewConfig struct {
	MaxCommentsPerFile int  `json:"maxCommentsPerFile"`
	Verify             bool `json:"verify"`
	AIRecheck          bool `json:"aiRecheck"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`
	TTLDays int    `json:"ttlDays"`
}

// PrivacyConfig controls secret redaction.
type PrivacyConfig struct {
	RedactSecrets bool `json:"redactSecrets"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Enabled:      true,
		Platform:     "github",
		Provider:     "openrouter",
		Model:        "anthropic/claude-sonnet-4.5",
		MaxTokens:    4000,
		Temperature:  0.3,
		BatchSize:    7,
		MaxDiffChars: 10000,
		Exclusions: ExclusionConfig{
			Directories: []string{
				"node_modules", "vendor", "dist", "build", ".git",
				"__pycache__", "coverage", "venv", ".venv", "migrations",
				"target", "bin", "obj",
			},
			FilePrefixes: []string{
				"test_", "_test", ".min.", "bundle.", "vendor.",
				"legacy_", "deprecated_",
			},
			FilePatterns: []string{
				"*.lock", "*.log", "*.pyc", "*.so", "*.dylib", "*.dll",
				"*.exe", "*.o", "*.a", "package-lock.json", "yarn.lock",
				"poetry.lock", "Gemfile.lock", "*.min.js", "*.min.css",
				"*.map",
			},
		},
		Review: ReviewConfig{
			MaxCommentsPerFile: 10,
			Verify:             true,
			AIRecheck:          false,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".review_cache",
			TTLDays: 7,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
		},
	}
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	if err := loadFile(&cfg, path); err != nil {
		return Config{}, err
	}
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

// Save writes the config to the given path.
func Save(cfg Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// loadFile unmarshals the config file over cfg, so absent fields keep
// their current values and a missing file is not an error.
func loadFile(cfg *Config, path string) error {
	if path == "" {
		path = ConfigFileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("GAVEL_PLATFORM"); v != "" {
		cfg.Platform = v
	}
	if v := os.Getenv("GAVEL_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("GAVEL_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("GAVEL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("GAVEL_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["platform"]; ok && v != "" {
		cfg.Platform = v
	}
	if v, ok := overrides["provider"]; ok && v != "" {
		cfg.Provider = v
	}
	if v, ok := overrides["model"]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := overrides["batchSize"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v, ok := overrides["maxDiffChars"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxDiffChars = n
		}
	}
	if v, ok := overrides["cacheDir"]; ok && v != "" {
		cfg.Cache.Dir = v
	}
	if v, ok := overrides["noCache"]; ok && v == "true" {
		cfg.Cache.Enabled = false
	}
	if v, ok := overrides["noVerify"]; ok && v == "true" {
		cfg.Review.Verify = false
	}
}
