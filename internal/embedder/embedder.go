package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Common errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrBatchTooLarge       = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
)

// Usage is the token accounting reported by a provider for one call
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates u2 into u
func (u *Usage) Add(u2 Usage) {
	u.PromptTokens += u2.PromptTokens
	u.TotalTokens += u2.TotalTokens
}

// Result is a provider response: one vector per input text, in input order
type Result struct {
	Vectors [][]float32
	Model   string
	Usage   Usage
}

// Provider turns texts into vectors with one upstream call per Embed.
// Implementations do not cache and do not retry.
type Provider interface {
	// Embed returns one vector per text, in the same order
	Embed(ctx context.Context, texts []string) (*Result, error)

	// Dimension returns the length of every vector this provider returns
	Dimension() int

	// Name returns the provider name (openai, jina, local)
	Name() string

	// Model returns the model identifier sent upstream
	Model() string

	// Close releases any resources held by the provider
	Close() error
}

// ValidateTexts checks a batch before it is sent to a provider
func ValidateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	if len(texts) > MaxBatchSize {
		return fmt.Errorf("%w: %d texts, max %d", ErrBatchTooLarge, len(texts), MaxBatchSize)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}

	return result
}
