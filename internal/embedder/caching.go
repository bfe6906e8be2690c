package embedder

import (
	"context"
	"errors"
	"time"

	"github.com/dstone/memdex/pkg/types"
)

// CachingEmbedder wraps a Provider with the persistent content-addressed
// cache. Texts are deduplicated within a request and looked up by content
// fingerprint before any provider call; only misses are embedded, in batches.
type CachingEmbedder struct {
	provider     Provider
	cache        *Cache
	batchSize    int
	batchTimeout time.Duration
}

// NewCachingEmbedder combines a provider and a cache. batchSize bounds the
// number of texts per provider call; batchTimeout bounds each call's wall
// time (zero disables the bound).
func NewCachingEmbedder(provider Provider, cache *Cache, batchSize int, batchTimeout time.Duration) *CachingEmbedder {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &CachingEmbedder{
		provider:     provider,
		cache:        cache,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
	}
}

// Embed returns one vector per input text, in input order. Repeated texts in
// one request resolve to a single provider computation and bit-identical
// vectors. On provider failure the returned error is a *types.EmbeddingError
// carrying the fingerprints whose vectors were not produced; fingerprints
// already cached are unaffected.
func (e *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	fingerprints := make([]string, len(texts))
	for i, text := range texts {
		fingerprints[i] = types.Fingerprint([]byte(text))
	}

	// Resolve what we can from the cache, collecting unique misses.
	resolved := make(map[string][]float32, len(texts))
	var missFPs []string
	var missTexts []string
	for i, fp := range fingerprints {
		if _, ok := resolved[fp]; ok {
			continue
		}
		vec, ok, err := e.cache.Get(fp)
		if err != nil {
			return nil, err
		}
		if ok {
			resolved[fp] = vec
			continue
		}
		resolved[fp] = nil
		missFPs = append(missFPs, fp)
		missTexts = append(missTexts, texts[i])
	}

	for start := 0; start < len(missTexts); start += e.batchSize {
		end := min(start+e.batchSize, len(missTexts))
		vectors, err := e.embedBatch(ctx, missTexts[start:end])
		if err != nil {
			return nil, &types.EmbeddingError{
				Provider: e.provider.Model(),
				Chunks:   missFPs[start:],
				Err:      err,
			}
		}
		for i, vec := range vectors {
			fp := missFPs[start+i]
			resolved[fp] = vec
			if err := e.cache.Put(fp, vec); err != nil {
				return nil, err
			}
		}
	}

	out := make([][]float32, len(texts))
	for i, fp := range fingerprints {
		vec := resolved[fp]
		if vec == nil {
			return nil, errors.New("embedding resolution incomplete")
		}
		// Copy so callers cannot mutate what later requests will share.
		cp := make([]float32, len(vec))
		copy(cp, vec)
		out[i] = cp
	}
	return out, nil
}

func (e *CachingEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if e.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.batchTimeout)
		defer cancel()
	}
	vectors, err := e.provider.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, ErrDimensionMismatch
	}
	return vectors, nil
}

// Dimension reports the wrapped provider's vector width.
func (e *CachingEmbedder) Dimension() int { return e.provider.Dimension() }

// Model reports the wrapped provider's model identifier.
func (e *CachingEmbedder) Model() string { return e.provider.Model() }

// Close releases the provider and the cache.
func (e *CachingEmbedder) Close() error {
	perr := e.provider.Close()
	cerr := e.cache.Close()
	if perr != nil {
		return perr
	}
	return cerr
}
