package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstone/memdex/pkg/types"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func lexChunk(id, docPath, content string) *types.Chunk {
	return &types.Chunk{
		ID:           id,
		DocumentPath: docPath,
		SectionPath:  []string{"Doc", "Section"},
		Content:      content,
		TokenCount:   len(content) / 5,
		StartLine:    1,
		EndLine:      5,
		Category:     types.SizeSmall,
	}
}

func TestUpsertAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{
		lexChunk("aaaaaaaaaaa1", "infra.md", "kubernetes cluster deployment with helm charts"),
		lexChunk("aaaaaaaaaaa2", "finance.md", "quarterly revenue projections and budget"),
	}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := idx.Search(ctx, "kubernetes deployment", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "aaaaaaaaaaa1", hits[0].Chunk.ID)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.LessOrEqual(t, hits[0].Score, 1.0)
}

func TestSearchRanksByRelevance(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{
		lexChunk("bbbbbbbbbbb1", "a.md", "migration migration migration plan for the database"),
		lexChunk("bbbbbbbbbbb2", "b.md", "a passing mention of migration in a long note about something else entirely with many extra words"),
	}))

	hits, err := idx.Search(ctx, "migration", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "bbbbbbbbbbb1", hits[0].Chunk.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchRestoresChunkFields(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	ch := &types.Chunk{
		ID:           "ccccccccccc1",
		DocumentPath: "plans/q3.md",
		SectionPath:  []string{"Q3 Plan", "Infrastructure"},
		Ordinal:      2,
		Content:      "migrate the cluster to the new region",
		TokenCount:   7,
		StartLine:    40,
		EndLine:      55,
		Category:     types.SizeLarge,
		Summary:      true,
	}
	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{ch}))

	hits, err := idx.Search(ctx, "cluster region", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, *ch, hits[0].Chunk)
}

func TestUpsertReplacesExisting(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	ch := lexChunk("ddddddddddd1", "a.md", "original wording")
	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{ch}))

	ch.Content = "replacement wording"
	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{ch}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := idx.Search(ctx, "original", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "stale content should leave the full-text index")

	hits, err = idx.Search(ctx, "replacement", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "replacement wording", hits[0].Chunk.Content)
}

func TestDeleteDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{
		lexChunk("eeeeeeeeeee1", "keep.md", "shared keyword alpha"),
		lexChunk("eeeeeeeeeee2", "drop.md", "shared keyword beta"),
		lexChunk("eeeeeeeeeee3", "drop.md", "shared keyword gamma"),
	}))

	require.NoError(t, idx.DeleteDocument(ctx, "drop.md"))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := idx.Search(ctx, "shared", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "keep.md", hits[0].Chunk.DocumentPath)

	docs, err := idx.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, docs)
}

func TestDeleteChunks(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{
		lexChunk("fffffffffff1", "a.md", "first fragment"),
		lexChunk("fffffffffff2", "a.md", "second fragment"),
	}))

	require.NoError(t, idx.DeleteChunks(ctx, []string{"fffffffffff1", "not-a-real-id"}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := idx.Search(ctx, "fragment", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fffffffffff2", hits[0].Chunk.ID)
}

func TestSearchSpecialCharacters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{
		lexChunk("ggggggggggg1", "a.md", "error handling AND retry logic"),
	}))

	// Operator keywords and FTS punctuation must not break the query.
	for _, q := range []string{
		`error AND retry`,
		`"error" (retry)`,
		`retry* NOT NEAR logic`,
	} {
		hits, err := idx.Search(ctx, q, 10)
		require.NoError(t, err, "query %q", q)
		require.NotEmpty(t, hits, "query %q", q)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Search(context.Background(), "   ", 10)
	assert.Error(t, err)
}

func TestSearchLimit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	chunks := make([]*types.Chunk, 5)
	ids := []string{"hhhhhhhhhhh1", "hhhhhhhhhhh2", "hhhhhhhhhhh3", "hhhhhhhhhhh4", "hhhhhhhhhhh5"}
	for i, id := range ids {
		chunks[i] = lexChunk(id, "a.md", "common term appears here")
	}
	require.NoError(t, idx.Upsert(ctx, chunks))

	hits, err := idx.Search(ctx, "common", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []*types.Chunk{
		lexChunk("iiiiiiiiiii1", "a.md", "durable keyword entry"),
	}))
	require.NoError(t, idx.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	hits, err := reopened.Search(ctx, "durable", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain words", `"plain" "words"`},
		{"a AND b", `"a" "b"`},
		{`quoted "phrase"`, `"quoted" "phrase"`},
		{"NOT OR NEAR", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFTSQuery(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeBM25(t *testing.T) {
	assert.Equal(t, matchFloor, normalizeBM25(0))
	assert.InDelta(t, 0.95, normalizeBM25(-50), 1e-9)
	assert.Greater(t, normalizeBM25(-10), normalizeBM25(-1), "stronger matches score higher")
	assert.Less(t, normalizeBM25(-1e6), 1.0)
}
