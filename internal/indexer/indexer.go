package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dstone/memdex/internal/chunker"
	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/internal/lexical"
	"github.com/dstone/memdex/internal/vectorindex"
	"github.com/dstone/memdex/pkg/types"
)

// Mode selects how much of the knowledge base an indexing run revisits.
type Mode int

const (
	// ModeIncremental re-indexes only documents whose content fingerprint
	// changed, and removes documents that disappeared from disk.
	ModeIncremental Mode = iota
	// ModeFull re-embeds and rewrites every document regardless of
	// fingerprints.
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "incremental"
}

// Embedder is the slice of the embedding layer the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Failure records one document the run could not index.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes an indexing run.
type Result struct {
	Indexed       int
	Skipped       int
	Removed       int
	Failed        int
	Chunks        int
	ChunksRemoved int
	Duration      time.Duration
	Failures      []Failure
}

// Indexer drives the document pipeline: discover, chunk, embed, then write
// both retrieval indexes and the fingerprint state.
type Indexer struct {
	cfg     *config.Config
	chunker *chunker.Chunker
	embed   Embedder
	lexical *lexical.Index
	vector  vectorindex.Index
	logger  *slog.Logger

	// OnProgress, when set, is called after each document finishes
	// (indexed, skipped, or failed). Used for CLI progress display.
	OnProgress func(done, total int)
}

// New wires an Indexer over already-opened index components.
func New(cfg *config.Config, ck *chunker.Chunker, embed Embedder, lex *lexical.Index, vec vectorindex.Index, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		cfg:     cfg,
		chunker: ck,
		embed:   embed,
		lexical: lex,
		vector:  vec,
		logger:  logger,
	}
}

// Run executes one indexing pass over the knowledge base root. It takes the
// index write lock for the duration; a concurrent run fails fast with
// types.ErrIndexLocked.
func (idx *Indexer) Run(ctx context.Context, mode Mode) (*Result, error) {
	lock, err := AcquireLock(idx.cfg.IndexDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	start := time.Now()
	res := &Result{}

	state, err := loadState(idx.cfg.IndexDir)
	if err != nil {
		return nil, err
	}

	w := &walker{
		root:         idx.cfg.Root,
		include:      idx.cfg.Indexing.Include,
		exclude:      idx.cfg.Indexing.Exclude,
		maxFileBytes: idx.cfg.Indexing.MaxFileBytes,
	}
	docs, oversized, err := w.discover()
	if err != nil {
		return nil, err
	}
	for _, doc := range oversized {
		idx.logger.Warn("skipping oversized document",
			"path", doc.RelPath, "bytes", doc.Size, "limit", idx.cfg.Indexing.MaxFileBytes)
		res.Skipped++
	}

	idx.logger.Info("indexing run starting",
		"mode", mode.String(), "documents", len(docs), "root", idx.cfg.Root)

	var mu sync.Mutex // guards state, res and progress accounting
	done := 0
	total := len(docs)
	progress := func() {
		done++
		if idx.OnProgress != nil {
			idx.OnProgress(done, total)
		}
	}

	workers := idx.cfg.Indexing.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			outcome, chunkCount, chunksDropped, err := idx.indexDocument(gctx, mode, doc, state, &mu)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res.Failed++
				res.Failures = append(res.Failures, Failure{Path: doc.RelPath, Err: err})
				idx.logger.Error("document indexing failed", "path", doc.RelPath, "error", err)
			case outcome == outcomeSkipped:
				res.Skipped++
			default:
				res.Indexed++
				res.Chunks += chunkCount
			}
			res.ChunksRemoved += chunksDropped
			progress()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Save what succeeded before bailing so completed documents are
		// not re-embedded on the next run.
		_ = saveState(idx.cfg.IndexDir, state)
		return nil, err
	}

	removedDocs, removedChunks, err := idx.removeDeleted(ctx, docs, state)
	if err != nil {
		_ = saveState(idx.cfg.IndexDir, state)
		return nil, err
	}
	res.Removed = removedDocs
	res.ChunksRemoved += removedChunks

	state.LastIndexedAt = time.Now()
	if err := saveState(idx.cfg.IndexDir, state); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	idx.logger.Info("indexing run finished",
		"indexed", res.Indexed, "skipped", res.Skipped, "removed", res.Removed,
		"failed", res.Failed, "chunks", res.Chunks, "chunks_removed", res.ChunksRemoved,
		"duration", res.Duration)
	return res, nil
}

type outcome int

const (
	outcomeIndexed outcome = iota
	outcomeSkipped
)

// indexDocument runs the pipeline for one document. The state entry is
// updated only after both indexes accepted the chunks. The third return
// value counts chunks deleted from the indexes on the way.
func (idx *Indexer) indexDocument(ctx context.Context, mode Mode, doc document, state *stateFile, mu *sync.Mutex) (outcome, int, int, error) {
	mu.Lock()
	prev, known := state.Documents[doc.RelPath]
	mu.Unlock()

	// Fast path: unchanged mtime means unchanged content for incremental
	// runs, no read needed.
	if mode == ModeIncremental && known && prev.ModTime.Equal(doc.ModTime) {
		return outcomeSkipped, 0, 0, nil
	}

	content, err := os.ReadFile(doc.AbsPath)
	if err != nil {
		return 0, 0, 0, &types.DocumentReadError{Path: doc.RelPath, Err: err}
	}
	fingerprint := types.Fingerprint(content)

	if mode == ModeIncremental && known && prev.Fingerprint == fingerprint {
		// Touched but unchanged. Refresh the mtime so the fast path
		// works next run.
		mu.Lock()
		prev.ModTime = doc.ModTime
		state.Documents[doc.RelPath] = prev
		mu.Unlock()
		return outcomeSkipped, 0, 0, nil
	}

	chunks, err := idx.chunker.ChunkDocument(doc.RelPath, content)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("chunking: %w", err)
	}
	if len(chunks) == 0 {
		// Empty document: drop whatever the index held for it.
		if known {
			if err := idx.deleteDocument(ctx, doc.RelPath); err != nil {
				return 0, 0, 0, err
			}
			mu.Lock()
			delete(state.Documents, doc.RelPath)
			mu.Unlock()
			return outcomeSkipped, 0, len(prev.ChunkIDs), nil
		}
		return outcomeSkipped, 0, 0, nil
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
		ids[i] = ch.ID
	}

	vectors, err := idx.embed.Embed(ctx, texts)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("embedding: %w", err)
	}

	if err := idx.lexical.Upsert(ctx, chunks); err != nil {
		return 0, 0, 0, err
	}
	if err := idx.vector.Upsert(ctx, chunks, vectors); err != nil {
		return 0, 0, 0, err
	}

	// Chunks from the previous version that no longer exist must leave
	// both indexes.
	stale := staleChunkIDs(prev.ChunkIDs, ids)
	if len(stale) > 0 {
		if err := idx.lexical.DeleteChunks(ctx, stale); err != nil {
			return 0, 0, 0, err
		}
		if err := idx.vector.DeleteChunks(ctx, stale); err != nil {
			return 0, 0, 0, err
		}
	}

	mu.Lock()
	state.Documents[doc.RelPath] = documentState{
		Fingerprint: fingerprint,
		ModTime:     doc.ModTime,
		ChunkIDs:    ids,
		IndexedAt:   time.Now(),
	}
	mu.Unlock()

	return outcomeIndexed, len(chunks), len(stale), nil
}

// removeDeleted drops documents that are in the state but no longer on disk.
// It returns the number of documents and chunks removed.
func (idx *Indexer) removeDeleted(ctx context.Context, docs []document, state *stateFile) (int, int, error) {
	onDisk := make(map[string]bool, len(docs))
	for _, d := range docs {
		onDisk[d.RelPath] = true
	}

	removedDocs, removedChunks := 0, 0
	for _, path := range state.knownPaths() {
		if onDisk[path] {
			continue
		}
		if err := idx.deleteDocument(ctx, path); err != nil {
			return removedDocs, removedChunks, err
		}
		removedChunks += len(state.Documents[path].ChunkIDs)
		delete(state.Documents, path)
		removedDocs++
		idx.logger.Info("removed deleted document", "path", path)
	}
	return removedDocs, removedChunks, nil
}

func (idx *Indexer) deleteDocument(ctx context.Context, path string) error {
	if err := idx.lexical.DeleteDocument(ctx, path); err != nil {
		return err
	}
	return idx.vector.DeleteDocument(ctx, path)
}

func staleChunkIDs(prev, current []string) []string {
	if len(prev) == 0 {
		return nil
	}
	keep := make(map[string]bool, len(current))
	for _, id := range current {
		keep[id] = true
	}
	var stale []string
	for _, id := range prev {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	return stale
}
