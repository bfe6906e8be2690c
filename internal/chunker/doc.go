// Package chunker divides markdown documents into retrieval chunks.
//
// The splitting strategy is driven by the document's size category:
//
//   - small documents become a single chunk
//   - medium documents split at top-level section headings
//   - large documents get a leading executive summary chunk, per-section
//     chunks, and token-budgeted splitting of oversized sections at
//     paragraph boundaries with a configurable token overlap
//
// Every chunk carries a deterministic, path-scoped ID and a navigation path
// describing its place in the document's heading hierarchy.
//
// # Basic Usage
//
//	c, err := chunker.New(cfg.Chunking)
//	if err != nil {
//	    return err
//	}
//	chunks, err := c.ChunkDocument("docs/roadmap.md", content)
package chunker
