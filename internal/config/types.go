package config

import "time"

// ProviderType identifies an embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderLocal  ProviderType = "local"
)

// Config is the top-level memdex configuration, corresponding to .memdex.yml.
type Config struct {
	// Root is the directory tree to index.
	Root string `yaml:"root" koanf:"root"`

	// IndexDir holds all derived state: vector store, lexical database,
	// embedding cache, fingerprints, lock file.
	IndexDir string `yaml:"index_dir" koanf:"index_dir"`

	Chunking     ChunkingConfig     `yaml:"chunking" koanf:"chunking"`
	Embedding    EmbeddingConfig    `yaml:"embedding" koanf:"embedding"`
	Indexing     IndexingConfig     `yaml:"indexing" koanf:"indexing"`
	Search       SearchConfig       `yaml:"search" koanf:"search"`
	Intelligence IntelligenceConfig `yaml:"intelligence" koanf:"intelligence"`

	// Domains maps a domain name to its boost rule. Names are referenced by
	// query filters.
	Domains map[string]DomainRule `yaml:"domains" koanf:"domains"`
}

// ChunkingConfig controls how documents split into chunks.
type ChunkingConfig struct {
	SmallFileLines  int    `yaml:"small_file_lines" koanf:"small_file_lines"`
	MediumFileLines int    `yaml:"medium_file_lines" koanf:"medium_file_lines"`
	MaxChunkTokens  int    `yaml:"max_chunk_tokens" koanf:"max_chunk_tokens"`
	OverlapTokens   int    `yaml:"overlap_tokens" koanf:"overlap_tokens"`
	SummaryMaxLines int    `yaml:"summary_max_lines" koanf:"summary_max_lines"`
	SectionHeading  string `yaml:"section_heading" koanf:"section_heading"` // regexp for top-level section markers
}

// EmbeddingConfig selects and tunes the embedding provider and cache.
type EmbeddingConfig struct {
	Provider     ProviderType  `yaml:"provider" koanf:"provider"`
	Model        string        `yaml:"model" koanf:"model"`
	Endpoint     string        `yaml:"endpoint" koanf:"endpoint"` // ollama only
	BatchSize    int           `yaml:"batch_size" koanf:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" koanf:"batch_timeout"`
	MaxRetries   int           `yaml:"max_retries" koanf:"max_retries"`
}

// IndexingConfig controls document discovery and the indexing worker pool.
type IndexingConfig struct {
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	Workers      int      `yaml:"workers" koanf:"workers"`
	MaxFileBytes int64    `yaml:"max_file_bytes" koanf:"max_file_bytes"`
}

// SearchConfig tunes hybrid fusion and the query cache.
type SearchConfig struct {
	// Alpha weights the semantic side of fusion; the lexical side gets
	// 1 - Alpha.
	Alpha              float64       `yaml:"alpha" koanf:"alpha"`
	RelevanceThreshold float64       `yaml:"relevance_threshold" koanf:"relevance_threshold"`
	DefaultTopK        int           `yaml:"default_top_k" koanf:"default_top_k"`
	MaxTopK            int           `yaml:"max_top_k" koanf:"max_top_k"`
	OverfetchFactor    int           `yaml:"overfetch_factor" koanf:"overfetch_factor"`
	CacheSize          int           `yaml:"cache_size" koanf:"cache_size"`
	CacheTTL           time.Duration `yaml:"cache_ttl" koanf:"cache_ttl"`
}

// IntelligenceConfig holds the signal vocabularies and boost bounds.
type IntelligenceConfig struct {
	BoostCap float64 `yaml:"boost_cap" koanf:"boost_cap"`

	StatusBoosts   map[string]float64 `yaml:"status_boosts" koanf:"status_boosts"`
	StatusKeywords StatusKeywords     `yaml:"status_keywords" koanf:"status_keywords"`
	StatusPatterns StatusPatterns     `yaml:"status_patterns" koanf:"status_patterns"`

	TemporalDecay   map[string]float64 `yaml:"temporal_decay" koanf:"temporal_decay"`
	PhaseMarkers    map[string]string  `yaml:"phase_markers" koanf:"phase_markers"` // marker -> temporal class
	UrgencyKeywords []string           `yaml:"urgency_keywords" koanf:"urgency_keywords"`

	PriorityKeywords map[string]float64 `yaml:"priority_keywords" koanf:"priority_keywords"`
	Hierarchy        HierarchyConfig    `yaml:"hierarchy" koanf:"hierarchy"`
}

// StatusKeywords lists the phrases that count as status signals, per class.
type StatusKeywords struct {
	Completed  []string `yaml:"completed" koanf:"completed"`
	InProgress []string `yaml:"in_progress" koanf:"in_progress"`
	Pending    []string `yaml:"pending" koanf:"pending"`
}

// StatusPatterns holds the regular expressions matched against chunk content
// as checkbox and marker signals, per class. Defaults cover markdown task
// boxes and status emoji.
type StatusPatterns struct {
	Completed  []string `yaml:"completed" koanf:"completed"`
	InProgress []string `yaml:"in_progress" koanf:"in_progress"`
	Pending    []string `yaml:"pending" koanf:"pending"`
}

// HierarchyConfig maps document-path keywords onto organizational layers with
// distinct priority multipliers.
type HierarchyConfig struct {
	Strategic   HierarchyLayer `yaml:"strategic" koanf:"strategic"`
	Tactical    HierarchyLayer `yaml:"tactical" koanf:"tactical"`
	Operational HierarchyLayer `yaml:"operational" koanf:"operational"`
}

// HierarchyLayer is one layer's path keywords and multiplier.
type HierarchyLayer struct {
	Keywords   []string `yaml:"keywords" koanf:"keywords"`
	Multiplier float64  `yaml:"multiplier" koanf:"multiplier"`
}

// DomainRule scopes content to a named domain via keywords and path globs,
// and boosts matching chunks.
type DomainRule struct {
	Keywords   []string `yaml:"keywords" koanf:"keywords"`
	Paths      []string `yaml:"paths" koanf:"paths"` // doublestar globs against the document path
	Multiplier float64  `yaml:"multiplier" koanf:"multiplier"`
}
