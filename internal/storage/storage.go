package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/personarag/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = types.ErrNotFound
)

// Knowledge tables, one per namespace
const (
	TableOnboarding = "onboarding_knowledge_chunks"
	TableMindset    = "mio_knowledge_chunks"
	TableBusiness   = "business_knowledge_chunks"
)

var namespaceTables = map[types.Namespace]string{
	types.NamespaceOnboarding: TableOnboarding,
	types.NamespaceMindset:    TableMindset,
	types.NamespaceBusiness:   TableBusiness,
}

// TableFor returns the knowledge table backing namespace ns. Table names
// never come from user input; this lookup is the only source.
func TableFor(ns types.Namespace) (string, error) {
	table, ok := namespaceTables[ns]
	if !ok {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidNamespace, ns)
	}
	return table, nil
}

// KnowledgeStore persists and searches knowledge chunks
type KnowledgeStore interface {
	// SearchVector ranks active chunks by cosine similarity to vector,
	// most similar first. Filters narrow the candidate set before ranking.
	SearchVector(ctx context.Context, ns types.Namespace, vector []float32, limit int, filters types.Filters) ([]VectorResult, error)

	// SearchText runs a full-text query (an OR of quoted phrases or a single
	// bare term) with the same filter semantics as SearchVector.
	SearchText(ctx context.Context, ns types.Namespace, query string, limit int, filters types.Filters) ([]TextResult, error)

	UpsertChunk(ctx context.Context, chunk *types.KnowledgeChunk) error
	GetChunk(ctx context.Context, ns types.Namespace, id string) (*types.KnowledgeChunk, error)

	// DeactivateChunk hides a chunk from search without deleting it
	DeactivateChunk(ctx context.Context, ns types.Namespace, id string) error

	CountChunks(ctx context.Context, ns types.Namespace) (int, error)
}

// ProfileStore holds per-user records read by the context loader
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*types.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *types.UserProfile) error

	// GetProgress returns ErrNotFound for users with no progress row
	GetProgress(ctx context.Context, userID string) (*types.UserProgress, error)
	UpsertProgress(ctx context.Context, progress *types.UserProgress) error

	RecordActivity(ctx context.Context, activity *types.Activity) error

	// ListRecentActivity returns activities completed at or after since,
	// newest first, at most limit rows
	ListRecentActivity(ctx context.Context, userID string, since time.Time, limit int) ([]*types.Activity, error)
}

// Storage is the full backing store
type Storage interface {
	KnowledgeStore
	ProfileStore

	// Status reports counts and health for every namespace
	Status(ctx context.Context) (*Status, error)

	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx groups writes that must land together: an ingest batch, or an
// activity with its progress update
type Tx interface {
	Commit() error
	Rollback() error

	UpsertChunk(ctx context.Context, chunk *types.KnowledgeChunk) error
	RecordActivity(ctx context.Context, activity *types.Activity) error
	GetProgress(ctx context.Context, userID string) (*types.UserProgress, error)
	UpsertProgress(ctx context.Context, progress *types.UserProgress) error
}

// VectorResult is one hit from the vector pass
type VectorResult struct {
	Chunk      *types.KnowledgeChunk
	Similarity float64
}

// TextResult is one hit from the keyword pass. Score is backend specific
// and only meaningful for ordering within one result list.
type TextResult struct {
	Chunk *types.KnowledgeChunk
	Score float64
}

// Status contains statistics about the store
type Status struct {
	Backend       string                  `json:"backend"`
	SchemaVersion string                  `json:"schema_version"`
	Chunks        map[types.Namespace]int `json:"chunks"`
	Embedded      map[types.Namespace]int `json:"embedded"`
	Users         int                     `json:"users"`
	SizeMB        float64                 `json:"size_mb,omitempty"`
	Health        HealthStatus            `json:"health"`
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible  bool `json:"database_accessible"`
	EmbeddingsAvailable bool `json:"embeddings_available"`
	FTSIndexesBuilt     bool `json:"fts_indexes_built"`
	VectorExtension     bool `json:"vector_extension"`
}
