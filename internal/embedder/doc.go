// Package embedder generates vector embeddings for document chunks.
//
// Providers (OpenAI, Ollama, and a deterministic local fallback) implement
// the Provider interface; CachingEmbedder wraps a provider with a persistent
// content-addressed cache so that re-indexing unchanged content never
// re-embeds it. Cache keys are SHA-256 fingerprints of the text itself, so
// identical content in different documents shares one entry. A change of
// embedding model drops the cache wholesale.
//
// # Basic Usage
//
//	emb, err := embedder.New(cfg.Embedding, cfg.IndexDir)
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	vectors, err := emb.Embed(ctx, []string{"chunk one", "chunk two"})
//
// Provider calls are batched, bounded by a per-batch timeout, and retried
// with exponential backoff. Failures surface as *types.EmbeddingError values
// naming the fingerprints that were not embedded, so the indexer can skip
// the affected documents and retry them on a later pass.
package embedder
