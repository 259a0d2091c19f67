package retriever

import (
	"math"
	"sort"

	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/pkg/types"
)

// DefaultRRFConstant is the k in 1/(k + rank)
const DefaultRRFConstant = 60.0

// candidate accumulates one chunk's contributions across both passes
type candidate struct {
	chunk       *types.KnowledgeChunk
	vectorRank  int
	ftsRank     int
	vectorScore float64
	score       float64
}

// bestRank is the smaller of the constituent ranks that are present
func (c *candidate) bestRank() int {
	switch {
	case c.vectorRank == 0:
		return c.ftsRank
	case c.ftsRank == 0:
		return c.vectorRank
	default:
		return min(c.vectorRank, c.ftsRank)
	}
}

// vectorOrder treats an absent vector rank as worse than any present one
func (c *candidate) vectorOrder() int {
	if c.vectorRank == 0 {
		return math.MaxInt
	}
	return c.vectorRank
}

// Fuse merges the two ranked lists with Reciprocal Rank Fusion and returns
// at most topK results. A chunk present in both lists appears once with its
// contributions summed. Equal fused scores are ordered by the smaller best
// constituent rank, then the smaller vector rank, then chunk ID.
func Fuse(vector []storage.VectorResult, text []storage.TextResult, k float64, topK int) []types.SearchResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	byID := make(map[string]*candidate, len(vector)+len(text))
	order := make([]*candidate, 0, len(vector)+len(text))
	get := func(chunk *types.KnowledgeChunk) *candidate {
		c, ok := byID[chunk.ID]
		if !ok {
			c = &candidate{chunk: chunk}
			byID[chunk.ID] = c
			order = append(order, c)
		}
		return c
	}

	for i, vr := range vector {
		c := get(vr.Chunk)
		if c.vectorRank != 0 {
			continue // duplicate in one list keeps its first rank
		}
		c.vectorRank = i + 1
		c.vectorScore = vr.Similarity
		c.score += 1.0 / (k + float64(i+1))
	}
	for i, tr := range text {
		c := get(tr.Chunk)
		if c.ftsRank != 0 {
			continue
		}
		c.ftsRank = i + 1
		c.score += 1.0 / (k + float64(i+1))
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.bestRank() != b.bestRank() {
			return a.bestRank() < b.bestRank()
		}
		if a.vectorOrder() != b.vectorOrder() {
			return a.vectorOrder() < b.vectorOrder()
		}
		return a.chunk.ID < b.chunk.ID
	})

	if topK > 0 && len(order) > topK {
		order = order[:topK]
	}

	results := make([]types.SearchResult, len(order))
	for i, c := range order {
		results[i] = types.SearchResult{
			Chunk:       c.chunk,
			Rank:        i + 1,
			VectorRank:  c.vectorRank,
			FTSRank:     c.ftsRank,
			VectorScore: c.vectorScore,
			FusedScore:  c.score,
		}
	}
	return results
}

// MaxFusedScore is the score of a chunk ranked first in both lists
func MaxFusedScore(k float64) float64 {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return 2.0 / (k + 1)
}
