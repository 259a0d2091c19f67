// Package types provides shared type definitions for the personarag engine.
//
// This package defines domain types used across the retrieval and
// personalization components: namespaces, filters, knowledge chunks, search
// results, user records and the cached user context snapshot.
//
// # Core Types
//
// Namespace is a closed enumeration selecting which knowledge collection and
// synonym vocabulary a query runs against:
//
//	ns, err := types.ParseNamespace("mindset")
//
// KnowledgeChunk is a passage stored in a namespace's collection. Its
// embedding shares the system-wide dimension:
//
//	chunk := &types.KnowledgeChunk{
//	    ID:        "mio-042",
//	    Namespace: types.NamespaceMindset,
//	    Text:      "When comparison creeps in...",
//	    Patterns:  []string{"comparison_catastrophe"},
//	}
//
// Filters narrows both retrieval passes identically. Each namespace accepts a
// subset of fields, enforced by Validate:
//
//	f := types.Filters{Temperaments: []string{"warrior"}, MaxMinutes: types.IntPtr(20)}
//	if err := f.Validate(schema); err != nil { ... }
//
// SearchResult carries a chunk with its per-pass ranks and fused score.
//
// UserContext is the flattened personalization snapshot with derived
// engagement signals.
//
// # Errors
//
// The error taxonomy is shared by all components. Cache errors are swallowed
// at the cache boundary; ErrEmbeddingProvider, ErrStoreQuery and
// ErrDimensionMismatch propagate to callers and are matched with errors.Is.
package types
