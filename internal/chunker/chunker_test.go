package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/pkg/types"
)

func newTestChunker(t *testing.T) *Chunker {
	t.Helper()
	c, err := New(config.DefaultConfig().Chunking)
	require.NoError(t, err)
	return c
}

// docOfLines builds a markdown document with a title, the given number of
// sections, and enough filler lines to reach total lines.
func docOfLines(total, sections int) string {
	var sb strings.Builder
	sb.WriteString("# Test Document\n")
	written := 1
	perSection := (total - written) / sections
	for s := 1; s <= sections; s++ {
		sb.WriteString(fmt.Sprintf("## Section %d\n", s))
		written++
		for written < total && (s == sections || written < 1+s*perSection) {
			sb.WriteString(fmt.Sprintf("filler line %d with some words\n", written))
			written++
		}
	}
	return sb.String()
}

func TestCategorize(t *testing.T) {
	c := newTestChunker(t)
	assert.Equal(t, types.SizeSmall, c.Categorize(1))
	assert.Equal(t, types.SizeSmall, c.Categorize(400))
	assert.Equal(t, types.SizeMedium, c.Categorize(401))
	assert.Equal(t, types.SizeMedium, c.Categorize(600))
	assert.Equal(t, types.SizeLarge, c.Categorize(601))
}

func TestChunkDocument_EmptyYieldsNothing(t *testing.T) {
	c := newTestChunker(t)
	chunks, err := c.ChunkDocument("empty.md", []byte("  \n\n\t\n"))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkDocument_SmallSingleChunk(t *testing.T) {
	c := newTestChunker(t)
	content := "# Notes\n\nSome short notes.\n\n## Ideas\n\n- one\n- two\n"

	chunks, err := c.ChunkDocument("notes.md", []byte(content))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, types.SizeSmall, ch.Category)
	assert.Equal(t, "Notes", ch.NavigationPath())
	assert.Equal(t, 1, ch.StartLine)
	assert.Equal(t, 8, ch.EndLine)
	assert.Equal(t, types.ChunkIDLength, len(ch.ID))
}

func TestChunkDocument_SmallWithoutHeadingUsesFilename(t *testing.T) {
	c := newTestChunker(t)
	chunks, err := c.ChunkDocument("docs/weekly-sync.md", []byte("just a line\n"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "weekly-sync", chunks[0].NavigationPath())
}

func TestChunkDocument_MediumSplitsPerSection(t *testing.T) {
	c := newTestChunker(t)
	content := docOfLines(500, 4)

	chunks, err := c.ChunkDocument("plan.md", []byte(content))
	require.NoError(t, err)
	require.Len(t, chunks, 5) // title preamble + 4 sections

	assert.Equal(t, "Test Document", chunks[0].NavigationPath())
	for i, ch := range chunks[1:] {
		assert.Equal(t, types.SizeMedium, ch.Category)
		assert.Equal(t, fmt.Sprintf("Test Document → Section %d", i+1), ch.NavigationPath())
	}
}

func TestChunkDocument_MediumLineCoverage(t *testing.T) {
	c := newTestChunker(t)
	content := docOfLines(500, 4)
	lineCount := strings.Count(content, "\n")

	chunks, err := c.ChunkDocument("plan.md", []byte(content))
	require.NoError(t, err)

	covered := make(map[int]bool)
	for _, ch := range chunks {
		for l := ch.StartLine; l <= ch.EndLine; l++ {
			covered[l] = true
		}
	}
	for l := 1; l <= lineCount; l++ {
		assert.True(t, covered[l], "line %d not covered by any chunk", l)
	}
}

func TestChunkDocument_LargeHasSummaryChunk(t *testing.T) {
	c := newTestChunker(t)

	var sb strings.Builder
	sb.WriteString("# Big Plan\n")
	sb.WriteString("An overview paragraph before any section.\n")
	sb.WriteString(docOfLines(700, 3)[len("# Test Document\n"):])

	chunks, err := c.ChunkDocument("big.md", []byte(sb.String()))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.True(t, chunks[0].Summary)
	assert.Equal(t, types.SizeLarge, chunks[0].Category)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Contains(t, chunks[0].Content, "overview paragraph")
}

func TestChunkDocument_LargeSplitsOversizedSection(t *testing.T) {
	cfg := config.DefaultConfig().Chunking
	cfg.MaxChunkTokens = 40
	cfg.OverlapTokens = 5
	c, err := New(cfg)
	require.NoError(t, err)

	var sb strings.Builder
	sb.WriteString("# Doc\n")
	sb.WriteString("## Long Section\n")
	for p := 0; p < 10; p++ {
		sb.WriteString(fmt.Sprintf("paragraph %d has exactly eight words in this line\n\n", p))
	}
	// Pad to large category.
	sb.WriteString("## Tail\n")
	for i := 0; i < 650; i++ {
		sb.WriteString("x\n")
	}

	chunks, err := c.ChunkDocument("doc.md", []byte(sb.String()))
	require.NoError(t, err)

	var sub []*types.Chunk
	for _, ch := range chunks {
		if len(ch.SectionPath) > 1 && ch.SectionPath[1] == "Long Section" {
			sub = append(sub, ch)
		}
	}
	require.Greater(t, len(sub), 1, "oversized section should split")

	for i, ch := range sub {
		assert.Equal(t, i+1, ch.Ordinal)
		assert.Equal(t, fmt.Sprintf("Doc → Long Section → %d", i+1), ch.NavigationPath())
	}
	// Overlap: each later sub-chunk starts with the tail of the previous one.
	assert.Contains(t, sub[1].Content, "in this line")
}

func TestChunkDocument_LargeLineCoverage(t *testing.T) {
	cfg := config.DefaultConfig().Chunking
	cfg.MaxChunkTokens = 40
	cfg.OverlapTokens = 5
	c, err := New(cfg)
	require.NoError(t, err)

	// Blank-separated paragraphs force the section to split into several
	// groups; the blank lines between and after groups must still fall
	// inside some chunk's range.
	var sb strings.Builder
	sb.WriteString("# Doc\n")
	sb.WriteString("## Long Section\n\n")
	for p := 0; p < 10; p++ {
		sb.WriteString(fmt.Sprintf("paragraph %d has exactly eight words in this line\n\n", p))
	}
	sb.WriteString("## Tail\n")
	for i := 0; i < 650; i++ {
		sb.WriteString("x\n")
	}
	content := sb.String()
	lineCount := strings.Count(content, "\n")

	chunks, err := c.ChunkDocument("big.md", []byte(content))
	require.NoError(t, err)

	covered := make(map[int]bool)
	for _, ch := range chunks {
		for l := ch.StartLine; l <= ch.EndLine; l++ {
			covered[l] = true
		}
	}
	for l := 1; l <= lineCount; l++ {
		assert.True(t, covered[l], "line %d not covered by any chunk", l)
	}
}

func TestChunkDocument_DeterministicIDs(t *testing.T) {
	c := newTestChunker(t)
	content := docOfLines(500, 3)

	first, err := c.ChunkDocument("plan.md", []byte(content))
	require.NoError(t, err)
	second, err := c.ChunkDocument("plan.md", []byte(content))
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestChunkDocument_SamePathDifferentContentKeepsIDs(t *testing.T) {
	c := newTestChunker(t)

	a, err := c.ChunkDocument("x/doc.md", []byte("# T\n## S\nalpha\n"))
	require.NoError(t, err)
	b, err := c.ChunkDocument("y/doc.md", []byte("# T\n## S\nalpha\n"))
	require.NoError(t, err)

	// Identical content at different paths must not share IDs.
	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	for _, ca := range a {
		for _, cb := range b {
			assert.NotEqual(t, ca.ID, cb.ID)
		}
	}
}

func TestChunkDocument_DuplicateSectionTitles(t *testing.T) {
	c := newTestChunker(t)
	var sb strings.Builder
	sb.WriteString("# T\n## Notes\nfirst\n## Notes\nsecond\n")
	// Pad into the medium category so sections become separate chunks.
	for i := 0; i < 450; i++ {
		sb.WriteString("pad\n")
	}

	chunks, err := c.ChunkDocument("dup.md", []byte(sb.String()))
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, ch := range chunks {
		assert.False(t, ids[ch.ID], "duplicate chunk ID %s", ch.ID)
		ids[ch.ID] = true
	}
}

func TestChunkDocument_MalformedHeadingJumpDoesNotPanic(t *testing.T) {
	cfg := config.DefaultConfig().Chunking
	cfg.MaxChunkTokens = 10
	c, err := New(cfg)
	require.NoError(t, err)

	var sb strings.Builder
	sb.WriteString("# T\n## S\n")
	sb.WriteString("##### deep jump\n\nwords words words words words words\n\n")
	sb.WriteString("### shallow again\n\nmore words here for the second paragraph\n\n")
	for i := 0; i < 650; i++ {
		sb.WriteString("pad\n")
	}

	chunks, err := c.ChunkDocument("weird.md", []byte(sb.String()))
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}
