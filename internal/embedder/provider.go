package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/coderag-dev/coderag/pkg/types"
)

// Provider kinds and defaults
const (
	KindOllama = "ollama"
	KindOpenAI = "openai"

	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel = "text-embedding-3-small"

	// EnvOpenAIAPIKey is consulted when no API key is configured.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	defaultTimeout = 30 * time.Second
)

// ProviderConfig configures the external embedding provider.
type ProviderConfig struct {
	Kind    string // "ollama" or "openai"; empty auto-detects
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Provider delegates embedding to an external HTTP provider. The provider
// declares its own vector dimension, learned from a probe embedding at
// construction time. Construction fails with ErrBackendUnavailable when the
// provider cannot be reached, and failures are never retried here: the
// provider owns its retry policy, and the caller owns fallback.
type Provider struct {
	kind       string
	baseURL    string
	model      string
	apiKey     string
	dim        int
	httpClient *http.Client
	cache      *Cache
}

// NewProvider constructs a semantic embedding provider and verifies it is
// reachable by requesting one probe embedding.
func NewProvider(ctx context.Context, cfg ProviderConfig, cache *Cache) (*Provider, error) {
	if cfg.Kind == "" {
		if cfg.APIKey != "" || os.Getenv(EnvOpenAIAPIKey) != "" {
			cfg.Kind = KindOpenAI
		} else {
			cfg.Kind = KindOllama
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	p := &Provider{
		kind:       cfg.Kind,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
	}

	switch cfg.Kind {
	case KindOllama:
		if p.baseURL == "" {
			p.baseURL = DefaultOllamaURL
		}
		if host := os.Getenv("OLLAMA_HOST"); host != "" && cfg.BaseURL == "" {
			p.baseURL = host
		}
		if p.model == "" {
			p.model = DefaultOllamaModel
		}
	case KindOpenAI:
		if p.baseURL == "" {
			p.baseURL = DefaultOpenAIURL
		}
		if p.model == "" {
			p.model = DefaultOpenAIModel
		}
		if p.apiKey == "" {
			p.apiKey = os.Getenv(EnvOpenAIAPIKey)
		}
		if p.apiKey == "" {
			return nil, fmt.Errorf("%w: %s not set", types.ErrBackendUnavailable, EnvOpenAIAPIKey)
		}
	default:
		return nil, fmt.Errorf("%w: unknown provider kind %q", types.ErrBackendUnavailable, cfg.Kind)
	}

	// Probe once to confirm reachability and learn the declared dimension.
	vec, err := p.callAPI(ctx, "dimension probe")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrBackendUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty vector", types.ErrBackendUnavailable)
	}
	p.dim = len(vec)

	return p, nil
}

// Embed produces the provider embedding for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if v, ok := p.cache.Get(hash); ok {
			return v, nil
		}
	}

	vec, err := p.callAPI(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(vec) != p.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionChanged, len(vec), p.dim)
	}

	if p.cache != nil {
		p.cache.Set(hash, vec)
	}
	return vec, nil
}

// Dimension returns the provider-declared vector dimension.
func (p *Provider) Dimension() int {
	return p.dim
}

// Capability reports the full-semantic tier.
func (p *Provider) Capability() types.BackendCapability {
	return types.CapabilityFullSemantic
}

// Kind returns the configured provider kind.
func (p *Provider) Kind() string {
	return p.kind
}

// Close releases idle HTTP connections.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *Provider) callAPI(ctx context.Context, text string) ([]float32, error) {
	switch p.kind {
	case KindOllama:
		return p.callOllama(ctx, text)
	default:
		return p.callOpenAI(ctx, text)
	}
}

func (p *Provider) callOllama(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":  p.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return apiResp.Embedding, nil
}

func (p *Provider) callOpenAI(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": p.model,
		"input": []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return apiResp.Data[0].Embedding, nil
}
