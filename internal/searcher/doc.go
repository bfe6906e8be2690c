// Package searcher answers hybrid queries. Each query fans out to the
// vector and keyword indexes concurrently, fuses the two score lists with a
// weighted sum, drops results under the relevance threshold, then applies
// domain and intelligence boosting before ranking.
//
// If one retrieval side fails the query degrades to the surviving side
// instead of failing outright; only both sides failing is an error.
//
// Responses are cached per request shape with a short TTL. The engine
// purges the cache after every indexing run.
package searcher
