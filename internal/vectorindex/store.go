package vectorindex

import (
	"context"

	"github.com/dstone/memdex/pkg/types"
)

// Index is the narrow surface the engine needs from a vector store: upsert
// and delete by chunk identity, and nearest-neighbor lookup over precomputed
// query vectors. Similarity scoring lives behind this interface; the engine
// treats returned scores as normalized relevance in [0, 1].
type Index interface {
	// Upsert adds or replaces chunks with their precomputed vectors.
	// len(vectors) must equal len(chunks).
	Upsert(ctx context.Context, chunks []*types.Chunk, vectors [][]float32) error

	// DeleteDocument removes every chunk belonging to the document path.
	DeleteDocument(ctx context.Context, docPath string) error

	// DeleteChunks removes chunks by ID. Unknown IDs are ignored.
	DeleteChunks(ctx context.Context, ids []string) error

	// Search returns up to limit nearest chunks for the query vector,
	// most similar first.
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)

	// Count returns the number of stored chunks.
	Count() int

	// Close flushes and releases the store.
	Close() error
}

// Hit is one nearest-neighbor match.
type Hit struct {
	Chunk      types.Chunk
	Similarity float64 // normalized to [0, 1]
}
