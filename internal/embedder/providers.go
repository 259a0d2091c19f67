package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"

	"github.com/dshills/personarag/pkg/types"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hashing"

	// DefaultDimension is the system-wide vector length
	DefaultDimension = 1536

	// Endpoints
	OpenAIEndpoint = "https://api.openai.com/v1/embeddings"
	JinaEndpoint   = "https://api.jina.ai/v1/embeddings"

	// MaxBatchSize is the most texts sent in one provider call
	MaxBatchSize = 2048

	DefaultTimeout = 30 * time.Second
)

// ProviderConfig configures an HTTP embedding provider
type ProviderConfig struct {
	APIKey    string
	Model     string
	Dimension int
	Endpoint  string // Overrides the provider's default endpoint

	// RequestsPerSecond limits upstream calls; 0 disables limiting
	RequestsPerSecond float64

	HTTPClient *http.Client
}

// apiProvider implements the OpenAI-compatible /v1/embeddings protocol
// shared by OpenAI and Jina.
type apiProvider struct {
	name           string
	apiKey         string
	model          string
	dimension      int
	endpoint       string
	sendDimensions bool
	httpClient     *http.Client
	limiter        *rate.Limiter
}

func newAPIProvider(name, defaultModel, defaultEndpoint string, cfg ProviderConfig) (*apiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s API key not set", ErrNoProviderEnabled, name)
	}

	p := &apiProvider{
		name:      name,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		endpoint:  cfg.Endpoint,
	}
	if p.model == "" {
		p.model = defaultModel
	}
	if p.dimension <= 0 {
		p.dimension = DefaultDimension
	}
	if p.endpoint == "" {
		p.endpoint = defaultEndpoint
	}
	p.httpClient = cfg.HTTPClient
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p, nil
}

func (p *apiProvider) Embed(ctx context.Context, texts []string) (*Result, error) {
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, &types.ProviderError{Provider: p.name, Message: "rate limit wait: " + err.Error()}
		}
	}

	return p.callAPI(ctx, texts)
}

func (p *apiProvider) callAPI(ctx context.Context, texts []string) (*Result, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}
	if p.sendDimensions {
		reqBody["dimensions"] = p.dimension
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &types.ProviderError{Provider: p.name, Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &types.ProviderError{
			Provider:   p.name,
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(bodyBytes),
		}
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
		Usage Usage  `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &types.ProviderError{Provider: p.name, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}

	if len(apiResp.Data) != len(texts) {
		return nil, &types.ProviderError{
			Provider:   p.name,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(apiResp.Data)),
		}
	}

	// Providers may return data out of order; index is authoritative
	sort.Slice(apiResp.Data, func(i, j int) bool { return apiResp.Data[i].Index < apiResp.Data[j].Index })

	vectors := make([][]float32, len(apiResp.Data))
	for i, data := range apiResp.Data {
		if len(data.Embedding) != p.dimension {
			return nil, &types.DimensionMismatchError{Want: p.dimension, Got: len(data.Embedding)}
		}
		vectors[i] = data.Embedding
	}

	model := apiResp.Model
	if model == "" {
		model = p.model
	}

	return &Result{Vectors: vectors, Model: model, Usage: apiResp.Usage}, nil
}

// apiErrorMessage extracts error.message from an API error body, falling
// back to the raw body
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	return strings.TrimSpace(string(body))
}

func (p *apiProvider) Dimension() int {
	return p.dimension
}

func (p *apiProvider) Name() string {
	return p.name
}

func (p *apiProvider) Model() string {
	return p.model
}

func (p *apiProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// OpenAIProvider calls the OpenAI embeddings API. The configured dimension
// is sent upstream so text-embedding-3 models return vectors of that length.
type OpenAIProvider struct {
	*apiProvider
}

// NewOpenAIProvider creates an OpenAI provider
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	p, err := newAPIProvider(ProviderOpenAI, DefaultOpenAIModel, OpenAIEndpoint, cfg)
	if err != nil {
		return nil, err
	}
	p.sendDimensions = true
	return &OpenAIProvider{apiProvider: p}, nil
}

// JinaProvider calls the Jina AI embeddings API
type JinaProvider struct {
	*apiProvider
}

// NewJinaProvider creates a Jina provider
func NewJinaProvider(cfg ProviderConfig) (*JinaProvider, error) {
	p, err := newAPIProvider(ProviderJina, DefaultJinaModel, JinaEndpoint, cfg)
	if err != nil {
		return nil, err
	}
	p.sendDimensions = true
	return &JinaProvider{apiProvider: p}, nil
}

// LocalProvider is a deterministic feature-hashing vectorizer for offline
// development and tests. Texts sharing words get similar vectors; there is
// no semantic generalization.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local provider producing vectors of dimension
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &LocalProvider{dimension: dimension}
}

func (l *LocalProvider) Embed(ctx context.Context, texts []string) (*Result, error) {
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	res := &Result{Vectors: make([][]float32, len(texts)), Model: DefaultLocalModel}
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, tokens := l.vectorize(text)
		res.Vectors[i] = vec
		res.Usage.PromptTokens += tokens
	}
	res.Usage.TotalTokens = res.Usage.PromptTokens
	return res, nil
}

func (l *LocalProvider) vectorize(text string) ([]float32, int) {
	vec := make([]float32, l.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := xxhash.Sum64String(w)
		idx := h % uint64(l.dimension)
		if h>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	return NormalizeVector(vec), len(words)
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Name() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return DefaultLocalModel
}

func (l *LocalProvider) Close() error {
	return nil
}
