package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/internal/config"
	"github.com/dshills/personarag/pkg/types"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Store:              config.StoreSQLite,
		DBPath:             filepath.Join(t.TempDir(), "data", "test.db"),
		Cache:              config.CacheMemory,
		MemoryCacheLen:     100,
		EmbeddingProvider:  "local",
		EmbeddingDimension: 64,
	}
}

func TestNew_SQLiteMemoryCache(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.CacheMemory, st.Cache)
	assert.True(t, st.CacheOK)
	assert.Equal(t, "local", st.Provider)
	assert.Equal(t, 64, st.Dimension)
	assert.True(t, st.Store.Health.DatabaseAccessible)
	assert.Zero(t, st.Store.Chunks[types.NamespaceMindset])
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache = config.CacheRedis
	cfg.RedisURL = "redis://" + mr.Addr()

	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	vec, err := a.Embeddings.Embed(ctx, "steady routine")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.Len(t, mr.Keys(), 1, "embedding cached in redis")

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.CacheRedis, st.Cache)
	assert.True(t, st.CacheOK)
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.EmbeddingProvider = "cohere"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.DictionaryFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNew_NoCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache = config.CacheNone
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Equal(t, config.CacheNone, cacheName(a.Cache))
}
