package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component.
var (
	// ErrCacheUnavailable marks a transport or auth failure talking to the cache.
	// It never escapes the cache package for reads.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrEmbeddingProvider marks a rejected or failed embedding provider call.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrStoreQuery marks a malformed query or unreachable backing store.
	ErrStoreQuery = errors.New("store query error")

	// ErrDimensionMismatch marks a comparison between vectors of different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	ErrNotFound         = errors.New("not found")
	ErrInvalidNamespace = errors.New("invalid namespace")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrInvalidInput     = errors.New("invalid input")
)

// ProviderError carries the status code and message returned by an
// embedding provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return ErrEmbeddingProvider
}

// DimensionMismatchError reports two vectors that cannot be compared.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}
