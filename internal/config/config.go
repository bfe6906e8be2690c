package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/dstone/memdex/pkg/types"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// MEMDEX_ROOT or MEMDEX_EMBEDDING_PROVIDER.
const EnvPrefix = "MEMDEX_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MEMDEX_*). A missing file is not an error;
// defaults apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// MEMDEX_EMBEDDING_PROVIDER -> embedding.provider, etc.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderLocal:  true,
}

// Validate checks that the configuration contains usable values. Any failure
// is a *types.ConfigurationError and aborts startup.
func (c *Config) Validate() error {
	bad := func(field, reason string) error {
		return &types.ConfigurationError{Field: field, Reason: reason}
	}

	if c.Root == "" {
		return bad("root", "is required")
	}
	if c.IndexDir == "" {
		return bad("index_dir", "is required")
	}

	if c.Chunking.SmallFileLines <= 0 {
		return bad("chunking.small_file_lines", "must be positive")
	}
	if c.Chunking.MediumFileLines <= c.Chunking.SmallFileLines {
		return bad("chunking.medium_file_lines", "must exceed small_file_lines")
	}
	if c.Chunking.MaxChunkTokens <= 0 {
		return bad("chunking.max_chunk_tokens", "must be positive")
	}
	if c.Chunking.OverlapTokens < 0 || c.Chunking.OverlapTokens >= c.Chunking.MaxChunkTokens {
		return bad("chunking.overlap_tokens", "must be non-negative and below max_chunk_tokens")
	}
	if _, err := regexp.Compile(c.Chunking.SectionHeading); err != nil {
		return bad("chunking.section_heading", fmt.Sprintf("invalid pattern: %v", err))
	}

	if !validProviders[c.Embedding.Provider] {
		return bad("embedding.provider", fmt.Sprintf("unknown provider %q: must be one of openai, ollama, local", c.Embedding.Provider))
	}
	if c.Embedding.BatchSize <= 0 {
		return bad("embedding.batch_size", "must be positive")
	}
	if c.Embedding.MaxRetries < 0 {
		return bad("embedding.max_retries", "must be non-negative")
	}

	if c.Indexing.Workers <= 0 {
		return bad("indexing.workers", "must be positive")
	}
	if len(c.Indexing.Include) == 0 {
		return bad("indexing.include", "at least one include glob is required")
	}

	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return bad("search.alpha", "must be within [0, 1]")
	}
	if c.Search.RelevanceThreshold < 0 || c.Search.RelevanceThreshold > 1 {
		return bad("search.relevance_threshold", "must be within [0, 1]")
	}
	if c.Search.DefaultTopK <= 0 || c.Search.DefaultTopK > c.Search.MaxTopK {
		return bad("search.default_top_k", "must be positive and not exceed max_top_k")
	}
	if c.Search.OverfetchFactor <= 0 {
		return bad("search.overfetch_factor", "must be positive")
	}

	if c.Intelligence.BoostCap < 1 {
		return bad("intelligence.boost_cap", "must be at least 1")
	}
	for field, patterns := range map[string][]string{
		"intelligence.status_patterns.completed":   c.Intelligence.StatusPatterns.Completed,
		"intelligence.status_patterns.in_progress": c.Intelligence.StatusPatterns.InProgress,
		"intelligence.status_patterns.pending":     c.Intelligence.StatusPatterns.Pending,
	} {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return bad(field, fmt.Sprintf("invalid pattern %q: %v", p, err))
			}
		}
	}
	for class := range c.Intelligence.TemporalDecay {
		switch class {
		case "current", "upcoming", "recent", "historical":
		default:
			return bad("intelligence.temporal_decay", fmt.Sprintf("unknown temporal class %q", class))
		}
	}

	for name, rule := range c.Domains {
		if rule.Multiplier < 1 {
			return bad("domains."+name+".multiplier", "must be at least 1")
		}
		if len(rule.Keywords) == 0 && len(rule.Paths) == 0 {
			return bad("domains."+name, "needs at least one keyword or path glob")
		}
	}

	return nil
}
