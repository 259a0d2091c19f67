package retriever

import (
	"fmt"
	"math"
	"strings"

	"github.com/dshills/personarag/pkg/types"
)

// Relevance converts a fused score to a percentage of the best attainable
// score, capped at 100
func Relevance(fused, k float64) int {
	pct := fused / MaxFusedScore(k) * 100
	return int(math.Min(100, math.Round(pct)))
}

// Render formats results as one text block for prompt injection. Each
// result gets a header line with its source, category and relevance,
// followed by the summary and body.
func Render(results []types.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		c := res.Chunk
		fmt.Fprintf(&b, "[%d] Source: %s", i+1, c.Source())
		if c.Category != "" {
			fmt.Fprintf(&b, " | Category: %s", c.Category)
		}
		fmt.Fprintf(&b, " | Relevance: %d%%\n", Relevance(res.FusedScore, DefaultRRFConstant))
		if c.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", c.Summary)
		}
		b.WriteString(strings.TrimSpace(c.Text))
	}
	return b.String()
}

// ResultView is the transport shape of one search result
type ResultView struct {
	Rank       int      `json:"rank"`
	ID         string   `json:"id"`
	Source     string   `json:"source"`
	Category   string   `json:"category,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Text       string   `json:"text"`
	Patterns   []string `json:"patterns,omitempty"`
	Relevance  int      `json:"relevance"`
	FusedScore float64  `json:"fused_score"`
	VectorRank int      `json:"vector_rank,omitempty"`
	FTSRank    int      `json:"fts_rank,omitempty"`
}

// Views converts results for JSON transports
func Views(results []types.SearchResult) []ResultView {
	views := make([]ResultView, len(results))
	for i, res := range results {
		c := res.Chunk
		views[i] = ResultView{
			Rank:       res.Rank,
			ID:         c.ID,
			Source:     c.Source(),
			Category:   c.Category,
			Summary:    c.Summary,
			Text:       c.Text,
			Patterns:   c.Patterns,
			Relevance:  Relevance(res.FusedScore, DefaultRRFConstant),
			FusedScore: res.FusedScore,
			VectorRank: res.VectorRank,
			FTSRank:    res.FTSRank,
		}
	}
	return views
}
