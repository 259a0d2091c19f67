package retriever

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/internal/cache"
	"github.com/dshills/personarag/internal/embedder"
	"github.com/dshills/personarag/internal/expander"
	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/pkg/types"
)

// fakeStore records what each pass was asked for
type fakeStore struct {
	mu sync.Mutex

	vector  []storage.VectorResult
	text    []storage.TextResult
	vecErr  error
	textErr error

	vectorFilters []types.Filters
	textFilters   []types.Filters
	limits        []int
	textQueries   []string
}

func (s *fakeStore) SearchVector(_ context.Context, _ types.Namespace, _ []float32, limit int, f types.Filters) ([]storage.VectorResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectorFilters = append(s.vectorFilters, f)
	s.limits = append(s.limits, limit)
	return s.vector, s.vecErr
}

func (s *fakeStore) SearchText(_ context.Context, _ types.Namespace, q string, limit int, f types.Filters) ([]storage.TextResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textFilters = append(s.textFilters, f)
	s.limits = append(s.limits, limit)
	s.textQueries = append(s.textQueries, q)
	return s.text, s.textErr
}

type fakeEmbedder struct {
	err   error
	texts []string
	mu    sync.Mutex
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.texts = append(e.texts, text)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

func newTestRetriever(store Store, emb Embedder) *Retriever {
	return New(store, emb, expander.Defaults(), nil)
}

func TestSearch_FusesBothPasses(t *testing.T) {
	store := &fakeStore{
		vector: vectorList("A", "B", "C"),
		text:   textList("B", "C", "A"),
	}
	emb := &fakeEmbedder{}
	r := newTestRetriever(store, emb)

	resp, err := r.Search(context.Background(), SearchRequest{
		Query:     "  how do I price my services  ",
		Namespace: types.NamespaceBusiness,
		TopK:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A"}, ids(resp.Results))
	assert.Equal(t, 3, resp.VectorCandidates)
	assert.Equal(t, 3, resp.TextCandidates)
	assert.Equal(t, []int{4, 4}, store.limits, "each pass fetches 2x topK")

	// Raw query embedded, expanded query searched
	assert.Equal(t, []string{"how do I price my services"}, emb.texts)
	require.Len(t, store.textQueries, 1)
	assert.Equal(t, resp.KeywordQuery, store.textQueries[0])
	assert.Contains(t, resp.KeywordQuery, " OR ")
}

func TestSearch_SameFiltersBothPasses(t *testing.T) {
	store := &fakeStore{}
	r := newTestRetriever(store, &fakeEmbedder{})

	filters := types.Filters{
		Patterns:      []string{"anxiety"},
		MaxMinutes:    types.IntPtr(10),
		EmergencyOnly: true,
	}
	_, err := r.Search(context.Background(), SearchRequest{
		Query:     "panic",
		Namespace: types.NamespaceMindset,
		Filters:   filters,
	})
	require.NoError(t, err)

	require.Len(t, store.vectorFilters, 1)
	require.Len(t, store.textFilters, 1)
	assert.Equal(t, filters, store.vectorFilters[0])
	assert.Equal(t, store.vectorFilters[0], store.textFilters[0])
}

func TestSearch_Errors(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name    string
		store   *fakeStore
		emb     *fakeEmbedder
		req     SearchRequest
		wantErr error
	}{
		{
			name:    "empty query",
			store:   &fakeStore{},
			emb:     &fakeEmbedder{},
			req:     SearchRequest{Query: "  ", Namespace: types.NamespaceBusiness},
			wantErr: types.ErrEmptyQuery,
		},
		{
			name:    "unknown namespace",
			store:   &fakeStore{},
			emb:     &fakeEmbedder{},
			req:     SearchRequest{Query: "x", Namespace: "finance"},
			wantErr: types.ErrInvalidNamespace,
		},
		{
			name:    "filter not allowed for namespace",
			store:   &fakeStore{},
			emb:     &fakeEmbedder{},
			req:     SearchRequest{Query: "x", Namespace: types.NamespaceBusiness, Filters: types.Filters{EmergencyOnly: true}},
			wantErr: types.ErrInvalidFilter,
		},
		{
			name:    "embedding failure",
			store:   &fakeStore{text: textList("A")},
			emb:     &fakeEmbedder{err: &types.ProviderError{Provider: "openai", StatusCode: 429, Message: "slow down"}},
			req:     SearchRequest{Query: "x", Namespace: types.NamespaceBusiness},
			wantErr: types.ErrEmbeddingProvider,
		},
		{
			name:    "vector pass failure",
			store:   &fakeStore{text: textList("A"), vecErr: storeErr},
			emb:     &fakeEmbedder{},
			req:     SearchRequest{Query: "x", Namespace: types.NamespaceBusiness},
			wantErr: storeErr,
		},
		{
			name:    "keyword pass failure",
			store:   &fakeStore{vector: vectorList("A"), textErr: storeErr},
			emb:     &fakeEmbedder{},
			req:     SearchRequest{Query: "x", Namespace: types.NamespaceBusiness},
			wantErr: storeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRetriever(tt.store, tt.emb)
			resp, err := r.Search(context.Background(), tt.req)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	store := &fakeStore{}
	r := newTestRetriever(store, &fakeEmbedder{})
	ctx := context.Background()

	_, err := r.Search(ctx, SearchRequest{Query: "x", Namespace: types.NamespaceBusiness})
	require.NoError(t, err)
	_, err = r.Search(ctx, SearchRequest{Query: "x", Namespace: types.NamespaceBusiness, TopK: 500})
	require.NoError(t, err)

	assert.Equal(t, []int{2 * DefaultTopK, 2 * DefaultTopK, 2 * MaxTopK, 2 * MaxTopK}, store.limits)
}

func TestRoutes(t *testing.T) {
	routes := NewRoutes(expander.Defaults())
	require.Len(t, routes, len(types.AllNamespaces))

	for _, ns := range types.AllNamespaces {
		route, err := routes.Lookup(ns)
		require.NoError(t, err)
		assert.Equal(t, ns, route.Namespace)
		assert.NotEmpty(t, route.Table)
		assert.Positive(t, route.Dictionary.Len())
		assert.True(t, route.Filters.Allows(types.FieldCategory))
	}

	assert.True(t, routes[types.NamespaceMindset].Filters.Allows(types.FieldEmergency))
	assert.False(t, routes[types.NamespaceBusiness].Filters.Allows(types.FieldEmergency))
	assert.Equal(t, storage.TableMindset, routes[types.NamespaceMindset].Table)

	_, err := routes.Lookup("finance")
	assert.ErrorIs(t, err, types.ErrInvalidNamespace)
}

// TestSearch_SQLite runs the full path: local embeddings through the
// cache-aside client into an in-memory SQLite store
func TestSearch_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client := embedder.NewClient(embedder.NewLocalProvider(256), cache.NewMemory(100), nil)

	docs := map[string]string{
		"cash":    "Review your cash flow every Friday and note where money went.",
		"pricing": "Price your services by the value delivered, not by the hour.",
		"sleep":   "Keep a steady sleep schedule during your first weeks home.",
	}
	for id, text := range docs {
		vec, err := client.Embed(ctx, text)
		require.NoError(t, err)
		c := &types.KnowledgeChunk{
			ID:        id,
			Namespace: types.NamespaceBusiness,
			Text:      text,
			Embedding: vec,
			Active:    true,
		}
		require.NoError(t, store.UpsertChunk(ctx, c))
	}

	r := New(store, client, expander.Defaults(), nil)
	resp, err := r.Search(ctx, SearchRequest{
		Query:     "cash flow",
		Namespace: types.NamespaceBusiness,
		TopK:      3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	assert.Equal(t, "cash", top.Chunk.ID)
	assert.True(t, top.InVector())
	assert.True(t, top.InFTS())
	assert.Equal(t, types.NamespaceBusiness, top.Chunk.Namespace)

	block := Render(resp.Results)
	assert.True(t, strings.HasPrefix(block, "[1] Source: cash"))
}
