package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/pkg/types"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{0.3, -0.2, 0.9}, []float32{0.3, -0.2, 0.9}, 1},
		{"scaled", []float32{1, 2}, []float32{2, 4}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.LessOrEqual(t, got, 1.0)
			assert.GreaterOrEqual(t, got, -1.0)
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestClampSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, clampSimilarity(1.0000001))
	assert.Equal(t, -1.0, clampSimilarity(-1.0000001))
	assert.Equal(t, 0.5, clampSimilarity(0.5))
}

func TestSerializeVector(t *testing.T) {
	v := []float32{0, 1.5, -2.25, float32(math.Pi)}
	blob := SerializeVector(v)
	assert.Len(t, blob, 16)
	assert.Equal(t, v, DeserializeVector(blob))
}

func TestVectorString(t *testing.T) {
	assert.Equal(t, "[0.5,-1,2.25]", vectorToString([]float32{0.5, -1, 2.25}))

	v, err := parseVectorString("[0.5, -1,2.25]")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 2.25}, v)

	v, err = parseVectorString("[]")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = parseVectorString("0.5,1")
	assert.Error(t, err)
	_, err = parseVectorString("[a,b]")
	assert.Error(t, err)
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "   ", ""},
		{"bare term", "pricing", `"pricing"`},
		{"bare words", "cash flow", `"cash flow"`},
		{"expanded", `"cash flow" OR "money" OR "revenue"`, `"cash flow" OR "money" OR "revenue"`},
		{"operators neutralized", `a AND (b`, `"a AND (b"`},
		{"stray quote", `foo"`, `"foo"`},
		{"empty phrases dropped", `"" OR "x"`, `"x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prepareFTSQuery(tt.query))
		})
	}
}

func TestSortCandidates(t *testing.T) {
	mk := func(id string, sim float64) VectorResult {
		return VectorResult{Chunk: &types.KnowledgeChunk{ID: id}, Similarity: sim}
	}
	c := []VectorResult{mk("b", 0.5), mk("c", 0.9), mk("a", 0.5)}
	sortCandidates(c)

	assert.Equal(t, "c", c[0].Chunk.ID)
	assert.Equal(t, "a", c[1].Chunk.ID, "ties broken by ID")
	assert.Equal(t, "b", c[2].Chunk.ID)
}
