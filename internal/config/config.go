// Package config holds the process-wide run options (spec.md §6), adapted
// from the teacher's global/repo JSON config layering, collapsed here to a
// single process-wide struct plus an environment overlay since this tool
// has no per-repository working directory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config is the full set of options spec.md §6 enumerates for a run.
type Config struct {
	SourceObjectRoot  string `json:"source_object_root"`
	OutputObjectRoot  string `json:"output_object_root"`
	SkipBinaryStaging bool   `json:"skip_binary_staging"`
	BinaryStagingRoot string `json:"binary_staging_root,omitempty"`
	MaxCommits        int    `json:"max_commits,omitempty"`
}

// fileOverride mirrors Config but tracks whether skip_binary_staging was
// actually present in the file, so an omitted key doesn't silently clobber
// DefaultConfig's true with JSON's false zero value.
type fileOverride struct {
	SourceObjectRoot  string `json:"source_object_root"`
	OutputObjectRoot  string `json:"output_object_root"`
	SkipBinaryStaging *bool  `json:"skip_binary_staging"`
	BinaryStagingRoot string `json:"binary_staging_root,omitempty"`
	MaxCommits        int    `json:"max_commits,omitempty"`
}

// DefaultConfig returns a Config with spec.md's documented defaults applied.
func DefaultConfig() *Config {
	return &Config{
		SkipBinaryStaging: true,
	}
}

// overridePath returns the path to the optional JSON override file.
func overridePath() string {
	if p := os.Getenv("REPOSPLIT_CONFIG"); p != "" {
		return p
	}
	return "reposplit.json"
}

// LoadConfig builds a Config from defaults, an optional reposplit.json
// override file, and environment variables, in that precedence order —
// mirroring the teacher's LoadConfig global-then-repo merge, collapsed to a
// single override layer since there is no per-repo working directory here.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	path := overridePath()
	if data, err := os.ReadFile(path); err == nil {
		var override fileOverride
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		mergeConfig(cfg, &override)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays recognized environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REPOSPLIT_SOURCE_OBJECT_ROOT"); v != "" {
		cfg.SourceObjectRoot = v
	}
	if v := os.Getenv("REPOSPLIT_OUTPUT_OBJECT_ROOT"); v != "" {
		cfg.OutputObjectRoot = v
	}
	if v := os.Getenv("REPOSPLIT_SKIP_BINARY_STAGING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SkipBinaryStaging = b
		}
	}
	if v := os.Getenv("REPOSPLIT_BINARY_STAGING_ROOT"); v != "" {
		cfg.BinaryStagingRoot = v
	}
	if v := os.Getenv("REPOSPLIT_MAX_COMMITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxCommits = n
		}
	}
}

// SaveOverride writes cfg to the override file, for tooling that wants to
// pin a resolved configuration for a reproducible rerun.
func SaveOverride(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(overridePath(), data, 0644)
}

// Validate checks the options required for a run to proceed.
func (c *Config) Validate() error {
	if c.SourceObjectRoot == "" {
		return fmt.Errorf("config: source_object_root is required")
	}
	if c.OutputObjectRoot == "" {
		return fmt.Errorf("config: output_object_root is required")
	}
	if !c.SkipBinaryStaging && c.BinaryStagingRoot == "" {
		return fmt.Errorf("config: binary_staging_root is required when skip_binary_staging is false")
	}
	return nil
}

// mergeConfig merges src onto dst. Only fields actually present in src
// override dst.
func mergeConfig(dst *Config, src *fileOverride) {
	if src.SourceObjectRoot != "" {
		dst.SourceObjectRoot = src.SourceObjectRoot
	}
	if src.OutputObjectRoot != "" {
		dst.OutputObjectRoot = src.OutputObjectRoot
	}
	if src.BinaryStagingRoot != "" {
		dst.BinaryStagingRoot = src.BinaryStagingRoot
	}
	if src.MaxCommits != 0 {
		dst.MaxCommits = src.MaxCommits
	}
	if src.SkipBinaryStaging != nil {
		dst.SkipBinaryStaging = *src.SkipBinaryStaging
	}
}
