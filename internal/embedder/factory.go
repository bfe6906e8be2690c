package embedder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dstone/memdex/internal/config"
)

// cacheSubdir is the embedding cache location inside the index directory.
const cacheSubdir = "embeddings"

// New builds the configured provider wrapped in the persistent cache. The
// cache lives under indexDir and is invalidated automatically when the
// provider model changes.
func New(cfg config.EmbeddingConfig, indexDir string) (*CachingEmbedder, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	cache, err := OpenCache(filepath.Join(indexDir, cacheSubdir), provider.Model())
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	return NewCachingEmbedder(provider, cache, cfg.BatchSize, cfg.BatchTimeout), nil
}

func newProvider(cfg config.EmbeddingConfig) (Provider, error) {
	retry := DefaultRetryConfig().WithMaxRetries(cfg.MaxRetries)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), cfg.Model, retry)
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.Endpoint, cfg.Model, retry)
	case config.ProviderLocal:
		return NewLocalProvider()
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, cfg.Provider)
	}
}
