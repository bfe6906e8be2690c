package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/internal/indexer"
	"github.com/dstone/memdex/internal/searcher"
	"github.com/dstone/memdex/pkg/types"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Root = t.TempDir()
	cfg.Embedding.Provider = config.ProviderLocal

	e, err := Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func writeDoc(t *testing.T, e *Engine, relPath, content string) {
	t.Helper()
	abs := filepath.Join(e.Config().Root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestIndexThenSearch(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	writeDoc(t, e, "runbooks/deploy.md", "# Deploy Runbook\n\nRolling restart procedure for the API fleet.\n")
	writeDoc(t, e, "meetings/standup.md", "# Standup\n\nDiscussed the roadmap and hiring.\n")
	writeDoc(t, e, "recipes/soup.md", "# Soup\n\nSimmer the broth for an hour.\n")

	res, err := e.Reindex(ctx, indexer.ModeFull, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Indexed)
	assert.Equal(t, 3, res.Chunks, "one small document yields one chunk")

	resp, err := e.Search(ctx, searcher.Request{Query: "Rolling restart procedure for the API fleet."})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "runbooks/deploy.md", resp.Results[0].Chunk.DocumentPath)
}

func TestStats(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.True(t, stats.LastIndexedAt.IsZero())

	writeDoc(t, e, "a.md", "# A\n\ncontent\n")
	writeDoc(t, e, "b.md", "# B\n\nmore content\n")
	_, err = e.Reindex(ctx, indexer.ModeFull, nil)
	require.NoError(t, err)

	stats, err = e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.False(t, stats.LastIndexedAt.IsZero())
}

func TestStatusFilterEndToEnd(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	writeDoc(t, e, "done.md", "# Migration\n\nmigration checklist\n\n- [x] cut over traffic\n")
	writeDoc(t, e, "open.md", "# Migration\n\nmigration checklist\n\n- [ ] cut over traffic\n")
	_, err := e.Reindex(ctx, indexer.ModeFull, nil)
	require.NoError(t, err)

	resp, err := e.Search(ctx, searcher.Request{Query: "migration checklist", Status: "completed"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "done.md", resp.Results[0].Chunk.DocumentPath)
	assert.Equal(t, types.StatusCompleted, resp.Results[0].Intelligence.Status)
}

func TestReindexPurgesQueryCache(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	writeDoc(t, e, "a.md", "# A\n\noriginal topic sentence\n")
	_, err := e.Reindex(ctx, indexer.ModeFull, nil)
	require.NoError(t, err)

	req := searcher.Request{Query: "original topic sentence"}
	first, err := e.Search(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, first.Results)

	cached, err := e.Search(ctx, req)
	require.NoError(t, err)
	assert.True(t, cached.CacheHit)

	_, err = e.Reindex(ctx, indexer.ModeIncremental, nil)
	require.NoError(t, err)

	fresh, err := e.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, fresh.CacheHit, "indexing must invalidate cached responses")
}

func TestIdenticalContentSeparatePaths(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	content := "# Shared\n\nthe same paragraph in two documents\n"
	writeDoc(t, e, "one.md", content)
	writeDoc(t, e, "two.md", content)

	res, err := e.Reindex(ctx, indexer.ModeFull, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Indexed)

	resp, err := e.Search(ctx, searcher.Request{Query: "the same paragraph in two documents"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.NotEqual(t, resp.Results[0].Chunk.ID, resp.Results[1].Chunk.ID,
		"identical content in different documents keeps distinct identities")
}
