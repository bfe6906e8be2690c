package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstone/memdex/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Search.Alpha)
	assert.Equal(t, 400, cfg.Chunking.SmallFileLines)
	assert.Equal(t, 600, cfg.Chunking.MediumFileLines)
	assert.Equal(t, 3.0, cfg.Intelligence.BoostCap)
	assert.Equal(t, ProviderLocal, cfg.Embedding.Provider)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".memdex.yml")
	data := []byte(`
root: /srv/docs
search:
  alpha: 0.5
chunking:
  small_file_lines: 200
domains:
  infra:
    keywords: [kubernetes, terraform]
    multiplier: 1.5
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/docs", cfg.Root)
	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, 200, cfg.Chunking.SmallFileLines)
	// Untouched keys keep defaults.
	assert.Equal(t, 600, cfg.Chunking.MediumFileLines)
	require.Contains(t, cfg.Domains, "infra")
	assert.Equal(t, 1.5, cfg.Domains["infra"].Multiplier)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEMDEX_ROOT", "/tmp/kb")
	t.Setenv("MEMDEX_EMBEDDING_PROVIDER", "openai")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/kb", cfg.Root)
	assert.Equal(t, ProviderOpenAI, cfg.Embedding.Provider)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha above one", func(c *Config) { c.Search.Alpha = 1.2 }},
		{"medium below small", func(c *Config) { c.Chunking.MediumFileLines = 100 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"boost cap below one", func(c *Config) { c.Intelligence.BoostCap = 0.5 }},
		{"overlap at max tokens", func(c *Config) { c.Chunking.OverlapTokens = c.Chunking.MaxChunkTokens }},
		{"bad section pattern", func(c *Config) { c.Chunking.SectionHeading = "[" }},
		{"bad status pattern", func(c *Config) { c.Intelligence.StatusPatterns.Pending = []string{"("} }},
		{"domain multiplier below one", func(c *Config) {
			c.Domains = map[string]DomainRule{"x": {Keywords: []string{"k"}, Multiplier: 0.9}}
		}},
		{"empty domain rule", func(c *Config) {
			c.Domains = map[string]DomainRule{"x": {Multiplier: 1.1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var ce *types.ConfigurationError
			assert.True(t, errors.As(err, &ce), "expected ConfigurationError, got %T", err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yml")

	cfg := DefaultConfig()
	cfg.Root = "/data/kb"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/kb", loaded.Root)
	assert.Equal(t, cfg.Search.Alpha, loaded.Search.Alpha)
}
