package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dstone/memdex/internal/chunker"
	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/internal/embedder"
	"github.com/dstone/memdex/internal/indexer"
	"github.com/dstone/memdex/internal/lexical"
	"github.com/dstone/memdex/internal/searcher"
	"github.com/dstone/memdex/internal/vectorindex"
	"github.com/dstone/memdex/pkg/types"
)

// Engine owns the full retrieval stack for one knowledge base: chunking,
// embedding, both indexes, the indexing pipeline, and query serving.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	embed    *embedder.CachingEmbedder
	lexical  *lexical.Index
	vector   vectorindex.Index
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
}

// Open validates the configuration and brings up every component. The index
// directory is created if missing.
func Open(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// A relative index directory lives inside the knowledge base root.
	if !filepath.IsAbs(cfg.IndexDir) {
		cfg.IndexDir = filepath.Join(cfg.Root, cfg.IndexDir)
	}
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	ck, err := chunker.New(cfg.Chunking)
	if err != nil {
		return nil, err
	}

	embed, err := embedder.New(cfg.Embedding, cfg.IndexDir)
	if err != nil {
		return nil, err
	}

	lex, err := lexical.Open(cfg.IndexDir)
	if err != nil {
		_ = embed.Close()
		return nil, err
	}

	vec, err := vectorindex.Open(cfg.IndexDir)
	if err != nil {
		_ = lex.Close()
		_ = embed.Close()
		return nil, err
	}

	search, err := searcher.New(cfg, embed, lex, vec, logger)
	if err != nil {
		_ = vec.Close()
		_ = lex.Close()
		_ = embed.Close()
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		embed:    embed,
		lexical:  lex,
		vector:   vec,
		indexer:  indexer.New(cfg, ck, embed, lex, vec, logger),
		searcher: search,
	}, nil
}

// Reindex runs one indexing pass and invalidates the query cache so
// subsequent searches see the new index state. onProgress may be nil.
func (e *Engine) Reindex(ctx context.Context, mode indexer.Mode, onProgress func(done, total int)) (*indexer.Result, error) {
	e.indexer.OnProgress = onProgress
	res, err := e.indexer.Run(ctx, mode)
	e.searcher.Purge()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Search answers one hybrid query.
func (e *Engine) Search(ctx context.Context, req searcher.Request) (*searcher.Response, error) {
	return e.searcher.Search(ctx, req)
}

// Stats reports the current size and age of the index.
func (e *Engine) Stats(ctx context.Context) (*types.IndexStats, error) {
	docs, err := e.lexical.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := e.lexical.Count(ctx)
	if err != nil {
		return nil, err
	}
	last, err := indexer.LastIndexedAt(e.cfg.IndexDir)
	if err != nil {
		return nil, err
	}
	return &types.IndexStats{
		TotalDocuments: docs,
		TotalChunks:    chunks,
		LastIndexedAt:  last,
	}, nil
}

// Config returns the engine's resolved configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Close releases every component. Safe to call once after use.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.vector.Close(); err != nil {
		firstErr = err
	}
	if err := e.lexical.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.embed.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
