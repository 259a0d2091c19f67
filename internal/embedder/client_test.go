package embedder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/internal/cache"
	"github.com/dshills/personarag/pkg/types"
)

// countingProvider records every Embed call
type countingProvider struct {
	mu        sync.Mutex
	calls     [][]string
	dimension int
	embedFunc func(texts []string) (*Result, error)
}

func newCountingProvider(dim int) *countingProvider {
	return &countingProvider{dimension: dim}
}

func (p *countingProvider) Embed(_ context.Context, texts []string) (*Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]string(nil), texts...))
	p.mu.Unlock()

	if p.embedFunc != nil {
		return p.embedFunc(texts)
	}
	res := &Result{Vectors: make([][]float32, len(texts)), Model: "counting"}
	for i, text := range texts {
		res.Vectors[i] = vectorFor(text, p.dimension)
	}
	res.Usage.TotalTokens = len(texts)
	return res, nil
}

func (p *countingProvider) Dimension() int { return p.dimension }
func (p *countingProvider) Name() string   { return "counting" }
func (p *countingProvider) Model() string  { return "counting-model" }
func (p *countingProvider) Close() error   { return nil }

func (p *countingProvider) Calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.calls...)
}

// vectorFor gives each text a distinct, recognizable vector
func vectorFor(text string, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(len(text)) + float32(i)/10
	}
	return v
}

// failingCache behaves like an unreachable cache: reads miss, writes fail
type failingCache struct{ cache.Nop }

func TestClient_EmbedCachesResult(t *testing.T) {
	ctx := context.Background()
	p := newCountingProvider(4)
	c := cache.NewMemory(100)
	client := NewClient(p, c, nil)

	v1, err := client.Embed(ctx, "hello")
	require.NoError(t, err)
	v2, err := client.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, p.Calls(), 1, "second call should be served from cache")

	key := CacheKey("counting-model", "hello")
	assert.True(t, c.Exists(ctx, key))
	ttl := c.TTL(ctx, key)
	assert.InDelta(t, CacheTTL.Seconds(), float64(ttl), 2)

	stats := client.Stats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ProviderCalls)
}

func TestClient_EmbedBatchOnlyUncached(t *testing.T) {
	ctx := context.Background()
	p := newCountingProvider(3)
	c := cache.NewMemory(100)
	client := NewClient(p, c, nil)

	cachedT1 := []float32{9, 9, 9}
	require.True(t, c.Set(ctx, CacheKey("counting-model", "t1"), EncodeVector(cachedT1), time.Hour))

	got, err := client.EmbedBatch(ctx, []string{"t1", "t2-long", "t3"})
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 1, "exactly one provider call")
	assert.Equal(t, []string{"t2-long", "t3"}, calls[0], "only uncached texts are sent")

	require.Len(t, got, 3)
	assert.Equal(t, cachedT1, got[0])
	assert.Equal(t, vectorFor("t2-long", 3), got[1])
	assert.Equal(t, vectorFor("t3", 3), got[2])

	// Newly computed vectors are cached individually
	assert.True(t, c.Exists(ctx, CacheKey("counting-model", "t2-long")))
	assert.True(t, c.Exists(ctx, CacheKey("counting-model", "t3")))
}

func TestClient_EmbedBatchAllCached(t *testing.T) {
	ctx := context.Background()
	p := newCountingProvider(2)
	client := NewClient(p, cache.NewMemory(100), nil)

	_, err := client.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, p.Calls(), 1)

	got, err := client.EmbedBatch(ctx, []string{"b", "a"})
	require.NoError(t, err)
	assert.Len(t, p.Calls(), 1, "fully cached batch makes no provider call")
	assert.Equal(t, vectorFor("b", 2), got[0])
	assert.Equal(t, vectorFor("a", 2), got[1])
}

func TestClient_EmbedBatchEmpty(t *testing.T) {
	client := NewClient(newCountingProvider(2), nil, nil)
	got, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = client.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = client.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_ProviderErrorIsFatal(t *testing.T) {
	ctx := context.Background()
	p := newCountingProvider(2)
	p.embedFunc = func([]string) (*Result, error) {
		return nil, &types.ProviderError{Provider: "counting", StatusCode: 503, Message: "overloaded"}
	}
	client := NewClient(p, cache.NewMemory(10), nil)

	_, err := client.Embed(ctx, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingProvider)

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 503, pe.StatusCode)

	_, err = client.EmbedBatch(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, types.ErrEmbeddingProvider)
}

func TestClient_ShortProviderResponse(t *testing.T) {
	p := newCountingProvider(2)
	p.embedFunc = func([]string) (*Result, error) {
		return &Result{Vectors: [][]float32{{1, 2}}}, nil
	}
	client := NewClient(p, nil, nil)

	_, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, types.ErrEmbeddingProvider)
}

func TestClient_CacheFailureDegradesToFresh(t *testing.T) {
	ctx := context.Background()
	p := newCountingProvider(2)
	client := NewClient(p, failingCache{}, nil)

	for i := 0; i < 3; i++ {
		v, err := client.Embed(ctx, "same")
		require.NoError(t, err)
		assert.Equal(t, vectorFor("same", 2), v)
	}
	assert.Len(t, p.Calls(), 3, "every call computes fresh when the cache is down")
}

func TestClient_MalformedCacheEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	p := newCountingProvider(4)
	c := cache.NewMemory(10)
	client := NewClient(p, c, nil)

	key := CacheKey("counting-model", "text")
	require.True(t, c.Set(ctx, key, EncodeVector([]float32{1, 2}), time.Hour))

	v, err := client.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	assert.Len(t, p.Calls(), 1)

	// The fresh vector replaced the bad entry
	data, ok := c.Get(ctx, key)
	require.True(t, ok)
	decoded, err := DecodeVector(data, 4)
	require.NoError(t, err)
	assert.Equal(t, v, decoded)
}

func TestCacheKey(t *testing.T) {
	k1 := CacheKey("m", "text")
	assert.Equal(t, k1, CacheKey("m", "text"), "deterministic")
	assert.NotEqual(t, k1, CacheKey("m", "other"))
	assert.NotEqual(t, k1, CacheKey("m2", "text"), "model is part of the key")
	assert.Regexp(t, `^emb:m:[0-9a-f]{16}$`, k1)
}

func TestVectorCodec(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}
	data := EncodeVector(v)
	assert.Len(t, data, 16)

	got, err := DecodeVector(data, 4)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVector(data, 3)
	assert.Error(t, err)
}
