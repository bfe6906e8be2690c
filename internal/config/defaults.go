package config

import (
	"runtime"
	"time"
)

// DefaultConfig returns the built-in defaults. Values here mirror the tuning
// the engine ships with; a config file and MEMDEX_* environment variables
// override them.
func DefaultConfig() *Config {
	return &Config{
		Root:     ".",
		IndexDir: ".memdex",
		Chunking: ChunkingConfig{
			SmallFileLines:  400,
			MediumFileLines: 600,
			MaxChunkTokens:  512,
			OverlapTokens:   50,
			SummaryMaxLines: 100,
			SectionHeading:  `^##\s+`,
		},
		Embedding: EmbeddingConfig{
			Provider:     ProviderLocal,
			Model:        "",
			BatchSize:    32,
			BatchTimeout: 30 * time.Second,
			MaxRetries:   3,
		},
		Indexing: IndexingConfig{
			Include:      []string{"**/*.md"},
			Exclude:      []string{"**/.git/**", "**/node_modules/**", "**/.memdex/**"},
			Workers:      runtime.NumCPU(),
			MaxFileBytes: 2 << 20,
		},
		Search: SearchConfig{
			Alpha:              0.7,
			RelevanceThreshold: 0.25,
			DefaultTopK:        10,
			MaxTopK:            100,
			OverfetchFactor:    10,
			CacheSize:          512,
			CacheTTL:           5 * time.Minute,
		},
		Intelligence: IntelligenceConfig{
			BoostCap: 3.0,
			StatusBoosts: map[string]float64{
				"completed":   0.8,
				"in_progress": 1.4,
				"pending":     1.2,
				"unknown":     1.0,
			},
			StatusKeywords: StatusKeywords{
				Completed:  []string{"COMPLETED", "DONE", "FINISHED", "SHIPPED"},
				InProgress: []string{"IN PROGRESS", "ACTIVE", "WORKING", "ONGOING"},
				Pending:    []string{"PENDING", "TODO", "PLANNED", "BACKLOG"},
			},
			StatusPatterns: StatusPatterns{
				Completed:  []string{`(?i)\[x\]`, `✅`},
				InProgress: []string{`\[[-~]\]`, `🔄`},
				Pending:    []string{`\[ \]`, `❌`, `📋`},
			},
			TemporalDecay: map[string]float64{
				"current":    1.0,
				"upcoming":   0.8,
				"recent":     0.6,
				"historical": 0.3,
			},
			PhaseMarkers: map[string]string{
				"this week":    "current",
				"this sprint":  "current",
				"next week":    "upcoming",
				"next sprint":  "upcoming",
				"next quarter": "upcoming",
				"last week":    "recent",
				"last sprint":  "recent",
				"last year":    "historical",
				"archived":     "historical",
			},
			UrgencyKeywords: []string{"URGENT", "ASAP", "CRITICAL", "BLOCKER", "DEADLINE"},
			PriorityKeywords: map[string]float64{
				"P0":            1.5,
				"P1":            1.3,
				"P2":            1.1,
				"HIGH PRIORITY": 1.4,
				"LOW PRIORITY":  0.9,
			},
			Hierarchy: HierarchyConfig{
				Strategic:   HierarchyLayer{Keywords: []string{"strategy", "vision", "roadmap"}, Multiplier: 1.3},
				Tactical:    HierarchyLayer{Keywords: []string{"planning", "sprint", "milestone"}, Multiplier: 1.1},
				Operational: HierarchyLayer{Keywords: []string{"notes", "daily", "log"}, Multiplier: 1.0},
			},
		},
		Domains: map[string]DomainRule{},
	}
}
