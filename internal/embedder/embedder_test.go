package embedder

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstone/memdex/pkg/types"
)

// countingProvider wraps LocalProvider and counts Embed calls and texts.
type countingProvider struct {
	inner      Provider
	calls      atomic.Int64
	textsTotal atomic.Int64
	fail       atomic.Bool
}

func newCountingProvider(t *testing.T) *countingProvider {
	t.Helper()
	inner, err := NewLocalProvider()
	require.NoError(t, err)
	return &countingProvider{inner: inner}
}

func (p *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	p.textsTotal.Add(int64(len(texts)))
	if p.fail.Load() {
		return nil, errors.New("provider down")
	}
	return p.inner.Embed(ctx, texts)
}

func (p *countingProvider) Dimension() int { return p.inner.Dimension() }
func (p *countingProvider) Model() string  { return p.inner.Model() }
func (p *countingProvider) Close() error   { return p.inner.Close() }

func newTestEmbedder(t *testing.T, provider Provider, batchSize int) *CachingEmbedder {
	t.Helper()
	cache, err := OpenCache(t.TempDir(), provider.Model())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return NewCachingEmbedder(provider, cache, batchSize, time.Minute)
}

func TestLocalProviderDeterministic(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)

	a, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)

	assert.Equal(t, a[0], b[0])
	assert.Len(t, a[0], LocalDimension)
}

func TestLocalProviderUnitLength(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)

	vecs, err := p.Embed(context.Background(), []string{"some text"})
	require.NoError(t, err)

	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestLocalProviderUnrelatedTextsNearOrthogonal(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)

	vecs, err := p.Embed(context.Background(), []string{
		"quantum entanglement experiments in the lab",
		"slow roasted vegetables with garlic and thyme",
	})
	require.NoError(t, err)

	var dot float64
	for i := range vecs[0] {
		dot += float64(vecs[0][i]) * float64(vecs[1][i])
	}
	assert.Less(t, math.Abs(dot), 0.3, "unrelated texts must not look similar")
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	e := newTestEmbedder(t, newCountingProvider(t), 8)

	_, err := e.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Embed(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmbedDeduplicatesWithinRequest(t *testing.T) {
	p := newCountingProvider(t)
	e := newTestEmbedder(t, p, 8)

	text := "the same text twice"
	vecs, err := e.Embed(context.Background(), []string{text, text})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	assert.Equal(t, vecs[0], vecs[1], "duplicate inputs must yield identical vectors")
	assert.Equal(t, int64(1), p.calls.Load())
	assert.Equal(t, int64(1), p.textsTotal.Load(), "only one unique text should reach the provider")
}

func TestEmbedCacheHitsSkipProvider(t *testing.T) {
	p := newCountingProvider(t)
	e := newTestEmbedder(t, p, 8)

	first, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Equal(t, int64(2), p.textsTotal.Load())

	second, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), p.textsTotal.Load(), "second request must be fully served from cache")
	assert.Equal(t, first, second)
}

func TestEmbedBatching(t *testing.T) {
	p := newCountingProvider(t)
	e := newTestEmbedder(t, p, 3)

	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	vecs, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	// 7 unique misses with batch size 3 -> 3 provider calls.
	assert.Equal(t, int64(3), p.calls.Load())
}

func TestEmbedOrderPreserved(t *testing.T) {
	p := newCountingProvider(t)
	e := newTestEmbedder(t, p, 2)

	texts := []string{"one", "two", "three", "two", "one"}
	vecs, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)

	direct, err := p.inner.Embed(context.Background(), texts)
	require.NoError(t, err)

	for i := range texts {
		assert.Equal(t, direct[i], vecs[i], "vector %d out of order", i)
	}
}

func TestEmbedFailureReturnsEmbeddingError(t *testing.T) {
	p := newCountingProvider(t)
	e := newTestEmbedder(t, p, 8)

	p.fail.Store(true)
	_, err := e.Embed(context.Background(), []string{"x", "y"})
	require.Error(t, err)

	var ee *types.EmbeddingError
	require.True(t, errors.As(err, &ee))
	assert.Len(t, ee.Chunks, 2, "both unembedded fingerprints should be reported")
}

func TestEmbedFailureKeepsCachedEntriesUsable(t *testing.T) {
	p := newCountingProvider(t)
	e := newTestEmbedder(t, p, 8)

	_, err := e.Embed(context.Background(), []string{"stable"})
	require.NoError(t, err)

	p.fail.Store(true)
	// Cached text still resolves without touching the provider.
	vecs, err := e.Embed(context.Background(), []string{"stable"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	cache, err := OpenCache(dir, "model-a")
	require.NoError(t, err)
	fp := types.Fingerprint([]byte("persisted"))
	require.NoError(t, cache.Put(fp, []float32{0.25, -1, 3.5}))
	require.NoError(t, cache.Close())

	cache, err = OpenCache(dir, "model-a")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	vec, ok, err := cache.Get(fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{0.25, -1, 3.5}, vec)
}

func TestCacheDroppedOnModelChange(t *testing.T) {
	dir := t.TempDir()

	cache, err := OpenCache(dir, "model-a")
	require.NoError(t, err)
	fp := types.Fingerprint([]byte("text"))
	require.NoError(t, cache.Put(fp, []float32{1, 2}))
	require.NoError(t, cache.Close())

	cache, err = OpenCache(dir, "model-b")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	_, ok, err := cache.Get(fp)
	require.NoError(t, err)
	assert.False(t, ok, "model change must invalidate cached vectors")

	n, err := cache.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
		attempts := 0
		got, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
			attempts++
			if attempts < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
		_, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
			return 0, errors.New("permanent")
		})
		assert.EqualError(t, err, "permanent")
	})

	t.Run("context cancellation is not retried", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
		attempts := 0
		_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
			attempts++
			cancel()
			return 0, errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})
}
