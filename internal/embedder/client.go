package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dshills/personarag/internal/cache"
	"github.com/dshills/personarag/pkg/types"
)

// CacheTTL is how long a computed embedding stays cached
const CacheTTL = 24 * time.Hour

// Stats are cumulative counters for a Client
type Stats struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	ProviderCalls int64 `json:"provider_calls"`
	TokensUsed    int64 `json:"tokens_used"`
}

// Client embeds text through a Provider with a cache-aside layer.
// Cache failures degrade to computing fresh; provider failures are returned.
type Client struct {
	provider Provider
	cache    cache.Cache
	logger   *slog.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	providerCalls atomic.Int64
	tokens        atomic.Int64
}

// NewClient creates a Client. A nil cache disables caching.
func NewClient(provider Provider, c cache.Cache, logger *slog.Logger) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider: provider,
		cache:    c,
		logger:   logger.With("component", "embedder", "provider", provider.Name()),
	}
}

// Provider returns the wrapped provider
func (c *Client) Provider() Provider {
	return c.provider
}

// Dimension returns the vector length produced by this client
func (c *Client) Dimension() int {
	return c.provider.Dimension()
}

// Stats returns a snapshot of the client's counters
func (c *Client) Stats() Stats {
	return Stats{
		CacheHits:     c.hits.Load(),
		CacheMisses:   c.misses.Load(),
		ProviderCalls: c.providerCalls.Load(),
		TokensUsed:    c.tokens.Load(),
	}
}

// Embed returns the vector for text, from cache when possible
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	key := CacheKey(c.provider.Model(), text)
	if vec, ok := c.lookup(ctx, key); ok {
		return vec, nil
	}

	res, err := c.call(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	vec := res.Vectors[0]
	c.store(ctx, key, vec)
	return vec, nil
}

// EmbedBatch returns one vector per text in input order. Cached texts are
// served from cache; the rest are embedded in a single provider call, which
// is skipped when everything is cached.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}

	model := c.provider.Model()
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var (
		uncached    []string
		uncachedIdx []int
	)
	for i, text := range texts {
		keys[i] = CacheKey(model, text)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		uncached = append(uncached, text)
		uncachedIdx = append(uncachedIdx, i)
	}

	if len(uncached) == 0 {
		c.logger.Debug("batch fully cached", "texts", len(texts))
		return out, nil
	}

	res, err := c.call(ctx, uncached)
	if err != nil {
		return nil, err
	}

	for j, idx := range uncachedIdx {
		out[idx] = res.Vectors[j]
		c.store(ctx, keys[idx], res.Vectors[j])
	}

	c.logger.Debug("batch embedded",
		"texts", len(texts), "cached", len(texts)-len(uncached), "computed", len(uncached))
	return out, nil
}

// call makes one provider request and checks the response shape
func (c *Client) call(ctx context.Context, texts []string) (*Result, error) {
	c.providerCalls.Add(1)
	res, err := c.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(res.Vectors) != len(texts) {
		return nil, &types.ProviderError{
			Provider: c.provider.Name(),
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(res.Vectors)),
		}
	}
	c.tokens.Add(int64(res.Usage.TotalTokens))
	return res, nil
}

// lookup reads a cached vector. Undecodable entries count as misses.
func (c *Client) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, ok := c.cache.Get(ctx, key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	vec, err := DecodeVector(data, c.provider.Dimension())
	if err != nil {
		c.logger.Warn("discarding malformed cached embedding", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return vec, true
}

func (c *Client) store(ctx context.Context, key string, vec []float32) {
	if !c.cache.Set(ctx, key, EncodeVector(vec), CacheTTL) {
		c.logger.Debug("embedding not cached", "key", key)
	}
}
