package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SizeCategory classifies a document by line count. The category decides the
// chunking strategy: small documents stay whole, medium documents split per
// section, large documents additionally get a summary chunk and sub-section
// splitting.
type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
)

// ChunkIDLength is the number of hex characters in a chunk identifier.
const ChunkIDLength = 12

// Chunk is a contiguous slice of a markdown document, the unit of embedding,
// indexing, and retrieval.
type Chunk struct {
	// ID is deterministic for a given (document path, section path, ordinal)
	// triple. See ChunkID.
	ID string

	// DocumentPath is the path of the source document relative to the
	// indexed root.
	DocumentPath string

	// SectionPath holds the heading trail from the document title down to
	// the section this chunk came from.
	SectionPath []string

	// Ordinal distinguishes sub-chunks of a single oversized section,
	// 1-based. Zero for chunks that are not split.
	Ordinal int

	Content    string
	TokenCount int

	// StartLine and EndLine are 1-based inclusive line numbers in the
	// source document.
	StartLine int
	EndLine   int

	Category SizeCategory

	// Summary marks the leading executive-summary chunk of a large
	// document.
	Summary bool
}

// ChunkID derives the deterministic identifier for a chunk: the first
// ChunkIDLength hex characters of SHA-256 over "docPath|sectionPath|ordinal".
// Identical content at different paths therefore gets different IDs, while
// re-indexing an unchanged document reproduces the same IDs.
func ChunkID(docPath string, sectionPath []string, ordinal int) string {
	h := sha256.New()
	h.Write([]byte(docPath))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(sectionPath, "/")))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(ordinal)))
	return hex.EncodeToString(h.Sum(nil))[:ChunkIDLength]
}

// NavigationPath renders the human-readable location of the chunk, e.g.
// "Roadmap → Q3 Goals → Infrastructure → 2". Sub-chunk ordinals appear as a
// trailing numeric element.
func (c *Chunk) NavigationPath() string {
	parts := make([]string, 0, len(c.SectionPath)+1)
	parts = append(parts, c.SectionPath...)
	if c.Ordinal > 0 {
		parts = append(parts, strconv.Itoa(c.Ordinal))
	}
	return strings.Join(parts, " → ")
}

// Validate checks structural invariants before a chunk enters an index.
func (c *Chunk) Validate() error {
	if len(c.ID) != ChunkIDLength {
		return fmt.Errorf("chunk id %q: %w", c.ID, ErrInvalidChunkID)
	}
	if c.DocumentPath == "" {
		return errors.New("chunk document path cannot be empty")
	}
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("chunk line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("chunk start line must not exceed end line")
	}
	switch c.Category {
	case SizeSmall, SizeMedium, SizeLarge:
	default:
		return fmt.Errorf("unknown size category %q", c.Category)
	}
	return nil
}

// EstimateTokens approximates the token count of text by whitespace splitting.
// Good enough for chunk budgeting; exact tokenizer counts are a provider
// concern.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// Fingerprint returns the SHA-256 hex digest of a document's raw bytes. Used
// for change detection and as the content-addressed embedding cache key.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
