package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/pkg/types"
)

// DefaultBatchSize is the number of chunks embedded and committed together
const DefaultBatchSize = 100

// Embedder embeds a batch of texts, returning vectors in input order
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store opens the per-batch write transactions
type Store interface {
	BeginTx(ctx context.Context) (storage.Tx, error)
}

// Ingester runs the ingest pipeline: validate -> embed -> store
type Ingester struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

// Config contains configuration for one ingest run
type Config struct {
	Workers   int // Concurrent batches (default: runtime.NumCPU())
	BatchSize int // Chunks per embedding call and transaction (default: 100)
}

// Statistics contains statistics about an ingest run
type Statistics struct {
	Namespace      types.Namespace `json:"namespace"`
	ChunksIngested int             `json:"chunks_ingested"`
	ChunksFailed   int             `json:"chunks_failed"`
	Batches        int             `json:"batches"`
	TokensApprox   int             `json:"tokens_approx"`
	Duration       time.Duration   `json:"duration"`
	ErrorMessages  []string        `json:"errors,omitempty"`
}

// New creates a new Ingester
func New(store Store, emb Embedder, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		store:    store,
		embedder: emb,
		logger:   logger.With("component", "ingest"),
	}
}

// Ingest embeds and stores records into namespace ns. Invalid records are
// counted and skipped; an embedding or store failure aborts the run, with
// batches committed before the failure kept.
func (in *Ingester) Ingest(ctx context.Context, ns types.Namespace, records []Record, config *Config) (*Statistics, error) {
	if !ns.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidNamespace, ns)
	}
	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	start := time.Now()
	stats := &Statistics{Namespace: ns, ErrorMessages: make([]string, 0)}

	chunks := make([]*types.KnowledgeChunk, 0, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			stats.ChunksFailed++
			stats.ErrorMessages = append(stats.ErrorMessages,
				fmt.Sprintf("record %d (%s): %v", i+1, records[i].SourceFile, err))
			continue
		}
		chunks = append(chunks, records[i].Chunk(ns))
	}

	var (
		ingested atomic.Int32
		tokens   atomic.Int64
		batches  atomic.Int32
		mu       sync.Mutex // Protects stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < len(chunks); i += batchSize {
		batch := chunks[i:min(i+batchSize, len(chunks))]
		batchNum := i/batchSize + 1

		g.Go(func() error {
			n, tok, err := in.ingestBatch(gctx, batch)
			if err != nil {
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("batch %d: %v", batchNum, err))
				mu.Unlock()
				return fmt.Errorf("batch %d: %w", batchNum, err)
			}
			ingested.Add(int32(n))
			tokens.Add(int64(tok))
			batches.Add(1)
			in.logger.Debug("batch committed", "batch", batchNum, "chunks", n)
			return nil
		})
	}

	err := g.Wait()

	stats.ChunksIngested = int(ingested.Load())
	stats.TokensApprox = int(tokens.Load())
	stats.Batches = int(batches.Load())
	stats.Duration = time.Since(start)

	if err != nil {
		in.logger.Warn("ingest aborted",
			"namespace", ns,
			"ingested", stats.ChunksIngested,
			"error", err)
		return stats, err
	}

	in.logger.Info("ingest complete",
		"namespace", ns,
		"ingested", stats.ChunksIngested,
		"failed", stats.ChunksFailed,
		"batches", stats.Batches,
		"tokens", stats.TokensApprox,
		"duration", stats.Duration)
	return stats, nil
}

// ingestBatch embeds one batch and writes it in a single transaction
func (in *Ingester) ingestBatch(ctx context.Context, batch []*types.KnowledgeChunk) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = EmbeddingText(c)
	}

	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return 0, 0, fmt.Errorf("embed: got %d vectors for %d texts", len(vectors), len(batch))
	}

	tx, err := in.store.BeginTx(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tokens := 0
	for i, c := range batch {
		c.Embedding = vectors[i]
		if err := tx.UpsertChunk(ctx, c); err != nil {
			return 0, 0, fmt.Errorf("store chunk %s: %w", c.ID, err)
		}
		tokens += c.TokenCount()
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(batch), tokens, nil
}
