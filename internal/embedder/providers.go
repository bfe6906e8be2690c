package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Provider names and defaults
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOllamaURL   = "http://localhost:11434"

	OpenAIDimension = 1536
	OllamaDimension = 768
	LocalDimension  = 384

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// OpenAIProvider generates embeddings via the OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	retry  RetryConfig
}

// NewOpenAIProvider creates an OpenAI embedding provider. The API key must
// be non-empty; model defaults to text-embedding-3-small.
func NewOpenAIProvider(apiKey, model string, retry RetryConfig) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		retry:  retry,
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	vectors, err := retryWithBackoff(ctx, o.retry, func() ([][]float32, error) {
		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(o.model),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("got %d embeddings, expected %d", len(resp.Data), len(texts))
		}
		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			out[i] = d.Embedding
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return vectors, nil
}

func (o *OpenAIProvider) Dimension() int {
	if o.model == "text-embedding-3-large" {
		return 3072
	}
	return OpenAIDimension
}

func (o *OpenAIProvider) Model() string { return o.model }
func (o *OpenAIProvider) Close() error  { return nil }

// OllamaProvider generates embeddings via a local Ollama server.
type OllamaProvider struct {
	endpoint   string
	model      string
	httpClient *http.Client
	retry      RetryConfig
}

// NewOllamaProvider creates an Ollama embedding provider. endpoint defaults
// to http://localhost:11434 and model to nomic-embed-text.
func NewOllamaProvider(endpoint, model string, retry RetryConfig) (*OllamaProvider, error) {
	if endpoint == "" {
		endpoint = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      retry,
	}, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	vectors, err := retryWithBackoff(ctx, o.retry, func() ([][]float32, error) {
		return o.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return vectors, nil
}

func (o *OllamaProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(b))
	}

	var apiResp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings, expected %d", len(apiResp.Embeddings), len(texts))
	}
	return apiResp.Embeddings, nil
}

func (o *OllamaProvider) Dimension() int { return OllamaDimension }
func (o *OllamaProvider) Model() string  { return o.model }

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic hash-derived vectors. Useful for
// tests and for offline operation where semantic quality does not matter;
// lexical search still carries the query.
type LocalProvider struct {
	model string
}

// NewLocalProvider creates the deterministic local provider.
func NewLocalProvider() (*LocalProvider, error) {
	return &LocalProvider{model: "local-hash-v1"}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, LocalDimension)
		sum := sha256.Sum256([]byte(text))
		// Stretch the 32 digest bytes across the vector by re-hashing
		// with a counter suffix. Components are centered on zero so two
		// unrelated digests are near-orthogonal under cosine similarity.
		for off := 0; off < LocalDimension; off += len(sum) {
			for j := 0; j < len(sum) && off+j < LocalDimension; j++ {
				vector[off+j] = float32(sum[j])/255.0*2.0 - 1.0
			}
			sum = sha256.Sum256(append(sum[:], byte(off)))
		}
		out[i] = NormalizeVector(vector)
	}
	return out, nil
}

func (l *LocalProvider) Dimension() int { return LocalDimension }
func (l *LocalProvider) Model() string  { return l.model }
func (l *LocalProvider) Close() error   { return nil }

// NormalizeVector scales a vector to unit length for cosine similarity.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
