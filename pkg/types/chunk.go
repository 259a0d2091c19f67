package types

import (
	"errors"
	"time"
)

// KnowledgeChunk is one retrievable passage of a namespace's knowledge base
type KnowledgeChunk struct {
	// Identification
	ID          string
	Namespace   Namespace
	SourceFile  string
	ChunkNumber int

	// Content
	Text    string
	Summary string // Optional

	// Filterable attributes
	Category      string
	Difficulty    string
	BusinessStage string
	Patterns      []string
	Temperaments  []string
	Populations   []string
	Topics        []string
	TimeMinMin    int // Minimum time commitment, minutes
	TimeMaxMin    int // Maximum time commitment, minutes
	Emergency     bool

	// Embedding shares the system-wide dimension
	Embedding []float32

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the chunk is insertable
func (c *KnowledgeChunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}
	if !c.Namespace.Valid() {
		return ErrInvalidNamespace
	}
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.TimeMinMin < 0 || c.TimeMaxMin < 0 {
		return errors.New("time commitment cannot be negative")
	}
	if c.TimeMaxMin > 0 && c.TimeMinMin > c.TimeMaxMin {
		return errors.New("minimum time commitment exceeds maximum")
	}
	return nil
}

// TokenCount estimates tokens with the 4-characters-per-token heuristic
func (c *KnowledgeChunk) TokenCount() int {
	return len(c.Text) / 4
}

// Source returns the identifier shown to the downstream agent
func (c *KnowledgeChunk) Source() string {
	if c.SourceFile != "" {
		return c.SourceFile
	}
	return c.ID
}
