package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func testChunk(id string, ns types.Namespace, text string, vec []float32) *types.KnowledgeChunk {
	return &types.KnowledgeChunk{
		ID:         id,
		Namespace:  ns,
		SourceFile: id + ".md",
		Text:       text,
		Embedding:  vec,
		Active:     true,
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)

	for _, ns := range types.AllNamespaces {
		n, err := storage.CountChunks(context.Background(), ns)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestUpsertAndGetChunk(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	chunk := &types.KnowledgeChunk{
		ID:            "biz-001",
		Namespace:     types.NamespaceBusiness,
		SourceFile:    "pricing.md",
		ChunkNumber:   2,
		Text:          "Set your prices from the value you deliver.",
		Summary:       "Value based pricing",
		Category:      "pricing",
		Difficulty:    "beginner",
		BusinessStage: "launch",
		Patterns:      []string{"underpricing"},
		Temperaments:  []string{"sage", "builder"},
		Populations:   []string{"returning_citizen"},
		Topics:        []string{"pricing", "sales"},
		TimeMinMin:    10,
		TimeMaxMin:    30,
		Emergency:     false,
		Embedding:     []float32{0.1, 0.2, 0.3},
		Active:        true,
	}
	require.NoError(t, storage.UpsertChunk(ctx, chunk))
	assert.False(t, chunk.CreatedAt.IsZero())

	got, err := storage.GetChunk(ctx, types.NamespaceBusiness, "biz-001")
	require.NoError(t, err)

	assert.Equal(t, types.NamespaceBusiness, got.Namespace)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, chunk.Summary, got.Summary)
	assert.Equal(t, 2, got.ChunkNumber)
	assert.Equal(t, []string{"sage", "builder"}, got.Temperaments)
	assert.Equal(t, []string{"pricing", "sales"}, got.Topics)
	assert.Equal(t, 10, got.TimeMinMin)
	assert.Equal(t, 30, got.TimeMaxMin)
	assert.Equal(t, chunk.Embedding, got.Embedding)
	assert.True(t, got.Active)
	assert.Equal(t, chunk.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())

	// The same ID in another namespace is a different row
	_, err = storage.GetChunk(ctx, types.NamespaceMindset, "biz-001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertChunk_Update(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	chunk := testChunk("c1", types.NamespaceMindset, "morning gratitude ritual", nil)
	require.NoError(t, storage.UpsertChunk(ctx, chunk))

	chunk.Text = "evening reflection ritual"
	require.NoError(t, storage.UpsertChunk(ctx, chunk))

	n, err := storage.CountChunks(ctx, types.NamespaceMindset)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The full-text index follows the update
	res, err := storage.SearchText(ctx, types.NamespaceMindset, "gratitude", 10, types.Filters{})
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = storage.SearchText(ctx, types.NamespaceMindset, "reflection", 10, types.Filters{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "c1", res[0].Chunk.ID)
	assert.Equal(t, types.NamespaceMindset, res[0].Chunk.Namespace)
}

func TestUpsertChunk_Invalid(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, storage.UpsertChunk(ctx, testChunk("", types.NamespaceBusiness, "x", nil)))
	assert.Error(t, storage.UpsertChunk(ctx, testChunk("a", types.NamespaceBusiness, "", nil)))
	assert.ErrorIs(t, storage.UpsertChunk(ctx, testChunk("a", "finance", "x", nil)), types.ErrInvalidNamespace)
}

func TestDeactivateChunk(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertChunk(ctx, testChunk("a", types.NamespaceOnboarding, "parole check in", []float32{1, 0})))
	require.NoError(t, storage.DeactivateChunk(ctx, types.NamespaceOnboarding, "a"))

	res, err := storage.SearchText(ctx, types.NamespaceOnboarding, "parole", 10, types.Filters{})
	require.NoError(t, err)
	assert.Empty(t, res)

	vres, err := storage.SearchVector(ctx, types.NamespaceOnboarding, []float32{1, 0}, 10, types.Filters{})
	require.NoError(t, err)
	assert.Empty(t, vres)

	got, err := storage.GetChunk(ctx, types.NamespaceOnboarding, "a")
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, storage.DeactivateChunk(ctx, types.NamespaceOnboarding, "missing"), ErrNotFound)
}

func TestSearchVector(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	chunks := []*types.KnowledgeChunk{
		testChunk("exact", types.NamespaceBusiness, "one", []float32{1, 0, 0}),
		testChunk("close", types.NamespaceBusiness, "two", []float32{0.9, 0.1, 0}),
		testChunk("far", types.NamespaceBusiness, "three", []float32{0, 0, 1}),
		testChunk("none", types.NamespaceBusiness, "four", nil),
	}
	for _, c := range chunks {
		require.NoError(t, storage.UpsertChunk(ctx, c))
	}

	res, err := storage.SearchVector(ctx, types.NamespaceBusiness, []float32{1, 0, 0}, 10, types.Filters{})
	require.NoError(t, err)
	require.Len(t, res, 3, "chunks without embeddings are skipped")

	assert.Equal(t, "exact", res[0].Chunk.ID)
	assert.InDelta(t, 1.0, res[0].Similarity, 1e-6)
	assert.Equal(t, "close", res[1].Chunk.ID)
	assert.Equal(t, "far", res[2].Chunk.ID)
	assert.InDelta(t, 0.0, res[2].Similarity, 1e-6)

	res, err = storage.SearchVector(ctx, types.NamespaceBusiness, []float32{1, 0, 0}, 2, types.Filters{})
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestSearchVector_DimensionMismatch(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertChunk(ctx, testChunk("a", types.NamespaceBusiness, "x", []float32{1, 0, 0})))

	_, err := storage.SearchVector(ctx, types.NamespaceBusiness, []float32{1, 0}, 5, types.Filters{})
	require.Error(t, err)

	var dm *types.DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 2, dm.Want)
	assert.Equal(t, 3, dm.Got)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSearchText(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertChunk(ctx, testChunk("cash", types.NamespaceBusiness, "Track your cash flow every week.", nil)))
	require.NoError(t, storage.UpsertChunk(ctx, testChunk("money", types.NamespaceBusiness, "Know where your money goes.", nil)))
	require.NoError(t, storage.UpsertChunk(ctx, testChunk("sales", types.NamespaceBusiness, "Call three prospects today.", nil)))

	res, err := storage.SearchText(ctx, types.NamespaceBusiness, `"cash flow" OR "money"`, 10, types.Filters{})
	require.NoError(t, err)

	ids := make([]string, 0, len(res))
	for _, r := range res {
		ids = append(ids, r.Chunk.ID)
	}
	assert.ElementsMatch(t, []string{"cash", "money"}, ids)

	// Operators and punctuation in raw input are treated as text
	res, err = storage.SearchText(ctx, types.NamespaceBusiness, `prospects AND (NOT`, 10, types.Filters{})
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = storage.SearchText(ctx, types.NamespaceBusiness, "   ", 10, types.Filters{})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearch_Filters(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a := testChunk("a", types.NamespaceMindset, "breathing reset protocol", []float32{1, 0})
	a.Patterns = []string{"anxiety", "overwhelm"}
	a.TimeMinMin, a.TimeMaxMin = 5, 10
	a.Emergency = true

	b := testChunk("b", types.NamespaceMindset, "breathing practice for focus", []float32{0.8, 0.2})
	b.Patterns = []string{"procrastination"}
	b.TimeMinMin, b.TimeMaxMin = 20, 45
	b.Category = "focus"

	require.NoError(t, storage.UpsertChunk(ctx, a))
	require.NoError(t, storage.UpsertChunk(ctx, b))

	tests := []struct {
		name    string
		filters types.Filters
		want    []string
	}{
		{"no filters", types.Filters{}, []string{"a", "b"}},
		{"pattern", types.Filters{Patterns: []string{"anxiety"}}, []string{"a"}},
		{"category", types.Filters{Category: "focus"}, []string{"b"}},
		{"emergency", types.Filters{EmergencyOnly: true}, []string{"a"}},
		{"max minutes", types.Filters{MaxMinutes: types.IntPtr(15)}, []string{"a"}},
		{"min minutes", types.Filters{MinMinutes: types.IntPtr(15)}, []string{"b"}},
		{"no match", types.Filters{Patterns: []string{"anxiety"}, Category: "focus"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vres, err := storage.SearchVector(ctx, types.NamespaceMindset, []float32{1, 0}, 10, tt.filters)
			require.NoError(t, err)
			tres, err := storage.SearchText(ctx, types.NamespaceMindset, "breathing", 10, tt.filters)
			require.NoError(t, err)

			var vids, tids []string
			for _, r := range vres {
				vids = append(vids, r.Chunk.ID)
			}
			for _, r := range tres {
				tids = append(tids, r.Chunk.ID)
			}
			assert.ElementsMatch(t, tt.want, vids, "vector pass")
			assert.ElementsMatch(t, tt.want, tids, "text pass")
		})
	}
}

func TestSearch_InvalidNamespace(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, err := storage.SearchVector(ctx, "finance", []float32{1}, 5, types.Filters{})
	assert.ErrorIs(t, err, types.ErrInvalidNamespace)

	_, err = storage.SearchText(ctx, "finance", "x", 5, types.Filters{})
	assert.ErrorIs(t, err, types.ErrInvalidNamespace)
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertChunk(ctx, testChunk("rolled", types.NamespaceBusiness, "gone", nil)))
	require.NoError(t, tx.Rollback())

	_, err = storage.GetChunk(ctx, types.NamespaceBusiness, "rolled")
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err = storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertChunk(ctx, testChunk("kept", types.NamespaceBusiness, "stays", nil)))
	require.NoError(t, tx.Commit())

	_, err = storage.GetChunk(ctx, types.NamespaceBusiness, "kept")
	assert.NoError(t, err)
}

func TestStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertChunk(ctx, testChunk("a", types.NamespaceBusiness, "x", []float32{1})))
	require.NoError(t, storage.UpsertChunk(ctx, testChunk("b", types.NamespaceBusiness, "y", nil)))
	require.NoError(t, storage.UpsertProfile(ctx, &types.UserProfile{UserID: "u1"}))

	status, err := storage.Status(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, status.Chunks[types.NamespaceBusiness])
	assert.Equal(t, 1, status.Embedded[types.NamespaceBusiness])
	assert.Equal(t, 0, status.Chunks[types.NamespaceMindset])
	assert.Equal(t, 1, status.Users)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.EmbeddingsAvailable)
	assert.Contains(t, status.Backend, "sqlite")
}
