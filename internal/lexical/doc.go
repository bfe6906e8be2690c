// Package lexical is the keyword side of hybrid retrieval: a SQLite FTS5
// index over chunk content, queried with BM25 ranking. Scores are normalized
// into a high band below 1 so they can be fused with semantic similarity
// without further scaling.
//
// The driver is pure Go (modernc.org/sqlite), so indexing works without cgo
// on any platform the toolchain targets.
package lexical
