package types

import "errors"

// SearchResult is one fused retrieval hit
type SearchResult struct {
	Chunk *KnowledgeChunk

	// Rank is the position in the fused list (1-based)
	Rank int

	// VectorRank and FTSRank are 1-based and zero when the chunk was
	// absent from that pass.
	VectorRank int
	FTSRank    int

	// VectorScore is the cosine similarity from the vector pass, if present
	VectorScore float64

	FusedScore float64
}

// InVector reports whether the vector pass returned the chunk
func (sr *SearchResult) InVector() bool {
	return sr.VectorRank > 0
}

// InFTS reports whether the keyword pass returned the chunk
func (sr *SearchResult) InFTS() bool {
	return sr.FTSRank > 0
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Chunk == nil || sr.Chunk.ID == "" {
		return errors.New("search result has no chunk")
	}
	if sr.Rank < 1 {
		return errors.New("rank must be >= 1")
	}
	if sr.VectorRank == 0 && sr.FTSRank == 0 {
		return errors.New("search result must come from at least one pass")
	}
	if sr.FusedScore <= 0 {
		return errors.New("fused score must be positive")
	}
	return nil
}
