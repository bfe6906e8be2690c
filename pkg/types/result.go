package types

import (
	"errors"
	"time"
)

// SearchResult is one ranked hit from a hybrid query.
type SearchResult struct {
	Chunk Chunk
	Rank  int // 1-based position in the result set

	// SemanticScore and LexicalScore are the normalized per-index scores in
	// [0, 1]. A side that produced no hit for this chunk contributes zero.
	SemanticScore float64
	LexicalScore  float64

	// CombinedScore is the weighted fusion of the two sides, before any
	// boost. The relevance threshold applies to this value.
	CombinedScore float64

	// DomainBoost and IntelligenceBoost are the multipliers applied on top
	// of CombinedScore. Both are at least 1.
	DomainBoost       float64
	IntelligenceBoost float64

	// FinalScore = CombinedScore * DomainBoost * IntelligenceBoost. Results
	// sort by this, descending.
	FinalScore float64

	// Intelligence carries the per-query signal extraction that produced
	// IntelligenceBoost. Never persisted.
	Intelligence IntelligenceMetadata
}

// IntelligenceMetadata is the derived status, temporal, and priority signal
// set for a chunk, recomputed for every query.
type IntelligenceMetadata struct {
	Status            Status
	StatusConfidence  float64 // [0, 1]
	CompletionPercent float64 // [0, 1], checkbox-derived

	TemporalClass     TemporalClass
	TemporalRelevance float64 // decay value in [0, 1]
	Urgency           float64 // [0, 1]

	PriorityBoost float64 // [1.0, 2.5]
}

// Status is the lifecycle classification of a chunk's content.
type Status string

const (
	StatusUnknown    Status = "unknown"
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in_progress"
	StatusPending    Status = "pending"
)

// ParseStatus maps user-facing status filter values onto Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "completed":
		return StatusCompleted, nil
	case "in_progress", "in-progress":
		return StatusInProgress, nil
	case "pending":
		return StatusPending, nil
	case "unknown":
		return StatusUnknown, nil
	default:
		return "", errors.New("unknown status " + s)
	}
}

// TemporalClass buckets content by how fresh its temporal markers are.
type TemporalClass string

const (
	TemporalNeutral    TemporalClass = "neutral"
	TemporalCurrent    TemporalClass = "current"
	TemporalUpcoming   TemporalClass = "upcoming"
	TemporalRecent     TemporalClass = "recent"
	TemporalHistorical TemporalClass = "historical"
)

// IndexStats summarizes the state of the index.
type IndexStats struct {
	TotalDocuments int       `json:"total_documents"`
	TotalChunks    int       `json:"total_chunks"`
	LastIndexedAt  time.Time `json:"last_indexed_at"`
}
