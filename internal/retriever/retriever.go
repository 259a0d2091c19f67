package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/personarag/internal/expander"
	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/pkg/types"
)

const (
	// DefaultTopK is used when a request does not set TopK
	DefaultTopK = 5

	// MaxTopK bounds TopK
	MaxTopK = 50

	// candidateFactor is how many candidates each pass returns per result
	candidateFactor = 2
)

// Embedder produces the query vector for the semantic pass
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the part of the backing store the retriever reads
type Store interface {
	SearchVector(ctx context.Context, ns types.Namespace, vector []float32, limit int, filters types.Filters) ([]storage.VectorResult, error)
	SearchText(ctx context.Context, ns types.Namespace, query string, limit int, filters types.Filters) ([]storage.TextResult, error)
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query     string
	Namespace types.Namespace
	Filters   types.Filters
	TopK      int
}

// Response contains fused results and per-pass metadata
type Response struct {
	Results          []types.SearchResult
	KeywordQuery     string
	VectorCandidates int
	TextCandidates   int
	Duration         time.Duration
}

// Retriever runs the vector and keyword passes and fuses them
type Retriever struct {
	store    Store
	embedder Embedder
	routes   Routes
	k        float64
	logger   *slog.Logger
}

// New creates a Retriever. dicts supplies the vocabulary for each
// namespace's keyword pass.
func New(store Store, emb Embedder, dicts expander.Set, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: emb,
		routes:   NewRoutes(dicts),
		k:        DefaultRRFConstant,
		logger:   logger.With("component", "retriever"),
	}
}

// Routes returns the routing table
func (r *Retriever) Routes() Routes {
	return r.routes
}

// Search embeds the raw query, expands it for the keyword pass, runs both
// passes in parallel with identical filters, and fuses the ranked lists.
// Any failure in either pass fails the search.
func (r *Retriever) Search(ctx context.Context, req SearchRequest) (*Response, error) {
	startTime := time.Now()

	route, err := r.validateRequest(&req)
	if err != nil {
		return nil, err
	}

	keywordQuery := expander.ExpandQueryForFTS(req.Query, route.Dictionary)
	limit := req.TopK * candidateFactor

	var (
		vectorResults []storage.VectorResult
		textResults   []storage.TextResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := r.embedder.Embed(gctx, req.Query)
		if err != nil {
			return fmt.Errorf("failed to generate query embedding: %w", err)
		}
		vectorResults, err = r.store.SearchVector(gctx, req.Namespace, vec, limit, req.Filters)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		textResults, err = r.store.SearchText(gctx, req.Namespace, keywordQuery, limit, req.Filters)
		if err != nil {
			return fmt.Errorf("keyword search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		r.logger.Warn("search failed",
			"namespace", req.Namespace,
			"error", err)
		return nil, err
	}

	results := Fuse(vectorResults, textResults, r.k, req.TopK)

	resp := &Response{
		Results:          results,
		KeywordQuery:     keywordQuery,
		VectorCandidates: len(vectorResults),
		TextCandidates:   len(textResults),
		Duration:         time.Since(startTime),
	}

	r.logger.Debug("search complete",
		"namespace", req.Namespace,
		"filters", req.Filters.Key(),
		"vector_candidates", resp.VectorCandidates,
		"text_candidates", resp.TextCandidates,
		"results", len(results),
		"duration", resp.Duration)

	return resp, nil
}

// validateRequest resolves the route and applies defaults
func (r *Retriever) validateRequest(req *SearchRequest) (Route, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return Route{}, types.ErrEmptyQuery
	}

	route, err := r.routes.Lookup(req.Namespace)
	if err != nil {
		return Route{}, err
	}

	if err := req.Filters.Validate(route.Filters); err != nil {
		return Route{}, err
	}

	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	if req.TopK > MaxTopK {
		req.TopK = MaxTopK
	}
	return route, nil
}
