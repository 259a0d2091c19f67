// Package expander bridges informal user vocabulary to the terms used in the
// knowledge base.
//
// Three built-in dictionaries (population, business and behavioral) hold
// synonym groups keyed by a canonical snake_case term. Expand maps a term to
// every group it touches; ExpandForFTS and ExpandQueryForFTS render the
// result as an OR query for the keyword pass of hybrid search. Dictionaries
// are immutable once built and safe for concurrent use.
package expander
