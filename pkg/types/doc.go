// Package types provides shared type definitions for the memdex retrieval
// engine.
//
// # Core Types
//
// Chunk is the unit of indexing and retrieval: a contiguous slice of a
// markdown document with a deterministic, path-scoped identifier and a
// navigation path describing where in the document it came from:
//
//	chunk := &types.Chunk{
//	    ID:           types.ChunkID("docs/roadmap.md", path, 0),
//	    DocumentPath: "docs/roadmap.md",
//	    SectionPath:  []string{"Roadmap", "Q3 Goals"},
//	    Content:      sectionText,
//	}
//
// SearchResult carries the full score decomposition of a hit so callers can
// see how semantic, lexical, domain, and intelligence components contributed
// to the final ranking.
//
// # Error Taxonomy
//
// Indexing and query failures are typed by recovery strategy:
//
//   - ConfigurationError: fatal at startup
//   - DocumentReadError:  document skipped, run continues
//   - EmbeddingError:     affected chunks skipped, retried next pass
//   - IndexWriteError:    fingerprint not advanced, document retried
//   - QueryError:         synchronous, no index mutation
package types
